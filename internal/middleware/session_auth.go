package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
)

// SessionAuth resolves the caller's identity from the session cookie
// (or an Authorization bearer token) and stores the user id in the
// request context. An absent or invalid token leaves the caller
// anonymous; handlers that mutate state check for a zero user id and
// return 401 themselves.
func SessionAuth(cookieName, jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := tokenFromRequest(c, cookieName)
			if tokenString == "" {
				return next(c)
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				// a presented-but-invalid token is an error, not anonymity
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid session token")
			}

			c.Set("userID", claims.UserID)
			c.Set("userEmail", claims.Email)
			return next(c)
		}
	}
}

// tokenFromRequest prefers the session cookie and falls back to a
// Bearer Authorization header for non-browser clients
func tokenFromRequest(c echo.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
