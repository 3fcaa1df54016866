package handlers

import "github.com/labstack/echo/v4"

// getUserIDFromContext returns the authenticated caller's user id, or
// zero for an anonymous request
func getUserIDFromContext(c echo.Context) uint {
	userID, _ := c.Get("userID").(uint)
	return userID
}
