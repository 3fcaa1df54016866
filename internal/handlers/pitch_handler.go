package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/opaq-social/backend/internal/repositories"
	"github.com/opaq-social/backend/pkg/logger"
	"github.com/opaq-social/backend/pkg/mailer"
	"github.com/opaq-social/backend/pkg/storeweb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	pitchAccessCodeTTL     = 10 * time.Minute
	pitchAccessTokenExpiry = time.Hour
	pitchAccessKeyTemplate = "pitch_access:%d:%s"
)

// PitchHandler handles HTTP requests for Bloom pitches: CRUD, the
// view/like interaction ledger, file uploads, and OTP-gated access to
// private pitch files.
type PitchHandler struct {
	pitchRepository repositories.PitchRepository
	storage         *storeweb.Client
	mail            *mailer.Client
	redis           *redis.Client
	jwtSecret       string
}

// NewPitchHandler creates a new PitchHandler
func NewPitchHandler(
	pitchRepo repositories.PitchRepository,
	storage *storeweb.Client,
	mail *mailer.Client,
	redisClient *redis.Client,
	jwtSecret string,
) *PitchHandler {
	return &PitchHandler{
		pitchRepository: pitchRepo,
		storage:         storage,
		mail:            mail,
		redis:           redisClient,
		jwtSecret:       jwtSecret,
	}
}

// RegisterPitchRoutes registers pitch-related routes
func (h *PitchHandler) RegisterPitchRoutes(g *echo.Group) {
	g.POST("/pitches", h.CreatePitch)
	g.GET("/pitches", h.ListPitches)
	g.GET("/pitches/mine", h.ListMyPitches)
	g.GET("/pitches/:id", h.GetPitch)
	g.PUT("/pitches/:id", h.UpdatePitch)
	g.DELETE("/pitches/:id", h.DeletePitch)
	g.POST("/pitches/:id/like", h.LikePitch)
	g.POST("/pitches/:id/file", h.UploadPitchFile)
	g.POST("/pitches/:id/access-requests", h.RequestAccess)
	g.POST("/pitches/:id/access-verify", h.VerifyAccess)
}

// CreatePitch creates a new pitch
func (h *PitchHandler) CreatePitch(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePitchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.PitchVisibilityPublic
	}

	pitch := &models.Pitch{
		UserID:      currentUserID,
		Title:       req.Title,
		Summary:     req.Summary,
		Content:     req.Content,
		Category:    req.Category,
		FundingGoal: req.FundingGoal,
		Visibility:  visibility,
	}
	if err := h.pitchRepository.CreatePitch(pitch); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, pitch)
}

// ListPitches lists public pitches with optional category filter
func (h *PitchHandler) ListPitches(c echo.Context) error {
	page, limit := parsePageParams(c)
	category := c.QueryParam("category")

	pitches, total, err := h.pitchRepository.ListPublicPitches(category, int((page-1)*limit), int(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return c.JSON(http.StatusOK, echo.Map{
		"pitches": pitches,
		"pagination": models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// ListMyPitches lists all of the caller's pitches, private included
func (h *PitchHandler) ListMyPitches(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	pitches, err := h.pitchRepository.ListPitchesByUserID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pitches)
}

// GetPitch retrieves one pitch. Reading counts as a view for an
// authenticated non-owner, once per user; repeat reads only refresh the
// viewer's timestamp. Private pitches are indistinguishable from absent
// ones for everyone but the owner.
func (h *PitchHandler) GetPitch(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	pitch, err := h.loadVisiblePitch(c, currentUserID)
	if err != nil {
		return err
	}

	var viewer *models.PitchInteraction
	if currentUserID != 0 && currentUserID != pitch.UserID {
		viewer, err = h.pitchRepository.RecordView(pitch.ID, currentUserID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		// re-read so views_count reflects a first view by this caller
		pitch, err = h.pitchRepository.GetPitchByID(pitch.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else if currentUserID != 0 {
		viewer, err = h.pitchRepository.GetInteraction(pitch.ID, currentUserID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"pitch": pitch, "viewer": viewer})
}

// UpdatePitch updates a pitch; owner only
func (h *PitchHandler) UpdatePitch(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdatePitchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pitch, err := h.loadVisiblePitch(c, currentUserID)
	if err != nil {
		return err
	}
	if pitch.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this pitch")
	}

	if req.Title != "" {
		pitch.Title = req.Title
	}
	if req.Summary != "" {
		pitch.Summary = req.Summary
	}
	if req.Content != "" {
		pitch.Content = req.Content
	}
	if req.Category != "" {
		pitch.Category = req.Category
	}
	if req.FundingGoal != nil {
		pitch.FundingGoal = *req.FundingGoal
	}
	if req.Visibility != "" {
		pitch.Visibility = req.Visibility
	}

	if err := h.pitchRepository.UpdatePitch(pitch); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pitch)
}

// DeletePitch deletes a pitch and its interaction rows; owner only
func (h *PitchHandler) DeletePitch(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	pitch, err := h.loadVisiblePitch(c, currentUserID)
	if err != nil {
		return err
	}
	if pitch.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this pitch")
	}

	if err := h.pitchRepository.DeletePitch(pitch.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// LikePitch toggles the caller's like on a pitch. Unlike post likes
// this carries no target state: each call flips the current one.
func (h *PitchHandler) LikePitch(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	pitch, err := h.loadVisiblePitch(c, currentUserID)
	if err != nil {
		return err
	}

	liked, likes, err := h.pitchRepository.ToggleLike(pitch.ID, currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"liked": liked, "likes_count": likes})
}

// UploadPitchFile attaches a file to a pitch via the storage gateway;
// owner only. The stored CID replaces any previous one.
func (h *PitchHandler) UploadPitchFile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	pitch, err := h.loadVisiblePitch(c, currentUserID)
	if err != nil {
		return err
	}
	if pitch.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to modify this pitch")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file upload")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer src.Close()

	name := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	cid, err := h.storage.Upload(c.Request().Context(), name, src)
	if err != nil {
		logger.Log.Error("pitch file upload failed",
			zap.Uint("pitch_id", pitch.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "File upload failed")
	}

	pitch.FileCID = cid
	if err := h.pitchRepository.UpdatePitch(pitch); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"file_cid": cid})
}

// RequestAccess issues a one-time code for a pitch's file and mails it
// to the requester. The code lives in Redis for ten minutes. The
// response is 202 whether or not the mail went out; delivery failures
// are logged, not surfaced.
func (h *PitchHandler) RequestAccess(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.RequestPitchAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// no visibility gate here: access grants exist so that invited
	// outsiders can reach a private pitch's file
	pitch, err := h.loadPitch(c)
	if err != nil {
		return err
	}
	if pitch.FileCID == "" {
		return echo.NewHTTPError(http.StatusNotFound, "Pitch has no file attached")
	}

	code, err := generateAccessCode()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate access code")
	}

	ctx := c.Request().Context()
	key := fmt.Sprintf(pitchAccessKeyTemplate, pitch.ID, req.Email)
	if err := h.redis.Set(ctx, key, code, pitchAccessCodeTTL).Err(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.mail.SendOTP(ctx, req.Email, pitch.Title, code); err != nil {
		logger.Log.Error("access code delivery failed",
			zap.Uint("pitch_id", pitch.ID), zap.Error(err))
	}

	return c.JSON(http.StatusAccepted, echo.Map{"message": "Access code sent"})
}

// VerifyAccess redeems a one-time code for a short-lived file access
// token. Codes are single-use: a successful redeem deletes the key.
func (h *PitchHandler) VerifyAccess(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.VerifyPitchAccessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pitch, err := h.loadPitch(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	key := fmt.Sprintf(pitchAccessKeyTemplate, pitch.ID, req.Email)
	stored, err := h.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access code")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if stored != req.Code {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access code")
	}
	if err := h.redis.Del(ctx, key).Err(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	claims := jwt.MapClaims{
		"pitch_id": pitch.ID,
		"email":    req.Email,
		"scope":    "pitch_file",
		"exp":      jwt.NewNumericDate(time.Now().Add(pitchAccessTokenExpiry)),
		"iat":      jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate access token")
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": token, "file_cid": pitch.FileCID})
}

// loadPitch fetches the pitch named in the path with no visibility gate
func (h *PitchHandler) loadPitch(c echo.Context) (*models.Pitch, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid pitch ID")
	}

	pitch, err := h.pitchRepository.GetPitchByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Pitch not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return pitch, nil
}

// loadVisiblePitch fetches the pitch named in the path. A private pitch
// returns 404 for everyone but its owner so its existence leaks nothing.
func (h *PitchHandler) loadVisiblePitch(c echo.Context, currentUserID uint) (*models.Pitch, error) {
	pitch, err := h.loadPitch(c)
	if err != nil {
		return nil, err
	}
	if pitch.Visibility == models.PitchVisibilityPrivate && pitch.UserID != currentUserID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Pitch not found")
	}
	return pitch, nil
}

// generateAccessCode returns a random six-digit numeric code
func generateAccessCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
