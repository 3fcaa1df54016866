package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/opaq-social/backend/internal/repositories"
	"github.com/opaq-social/backend/pkg/aiclient"
	"github.com/opaq-social/backend/pkg/logger"
	"github.com/opaq-social/backend/pkg/websearch"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const manifestSourceLimit = 5

// ManifestHandler handles AI-assisted idea-exploration sessions.
// Opening a session gathers web sources for grounding; the search is
// best-effort and a failure only means the session opens ungrounded.
type ManifestHandler struct {
	manifestRepository repositories.ManifestRepository
	ai                 *aiclient.Client
	search             *websearch.Client
}

// NewManifestHandler creates a new ManifestHandler
func NewManifestHandler(
	manifestRepo repositories.ManifestRepository,
	ai *aiclient.Client,
	search *websearch.Client,
) *ManifestHandler {
	return &ManifestHandler{
		manifestRepository: manifestRepo,
		ai:                 ai,
		search:             search,
	}
}

// RegisterManifestRoutes registers manifest-related routes
func (h *ManifestHandler) RegisterManifestRoutes(g *echo.Group) {
	g.POST("/manifest/sessions", h.CreateSession)
	g.GET("/manifest/sessions", h.ListSessions)
	g.GET("/manifest/sessions/:id", h.GetSession)
	g.POST("/manifest/sessions/:id/turns", h.AddTurn)
}

// CreateSession opens a session on a topic: gathers web sources, asks
// the completion API for an opening exploration, and persists both
func (h *ManifestHandler) CreateSession(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateManifestSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	sources := h.gatherSources(ctx, req.Topic)

	prompt := fmt.Sprintf("Explore the idea %q. Outline its potential, open problems, and directions worth pursuing.", req.Topic)
	response, err := h.ai.Complete(ctx, prompt, sourceSnippets(sources))
	if err != nil {
		logger.Log.Error("completion failed on session open",
			zap.String("topic", req.Topic), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Idea exploration is temporarily unavailable")
	}

	session := &models.ManifestSession{
		UserID:  currentUserID,
		Topic:   req.Topic,
		Sources: sources,
		Turns: []models.ManifestTurn{{
			Prompt:    prompt,
			Response:  response,
			CreatedAt: time.Now(),
		}},
	}
	if err := h.manifestRepository.CreateSession(ctx, session); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, session)
}

// ListSessions lists the caller's sessions, most recently active first
func (h *ManifestHandler) ListSessions(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	sessions, err := h.manifestRepository.ListSessionsByUserID(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSession retrieves one session; owner only
func (h *ManifestHandler) GetSession(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	session, err := h.loadOwnedSession(c, currentUserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// AddTurn continues a session with a follow-up prompt; owner only.
// Earlier turns in the session ground the completion.
func (h *ManifestHandler) AddTurn(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.AddManifestTurnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Prompt cannot be empty")
	}

	session, err := h.loadOwnedSession(c, currentUserID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	grounding := lo.Map(session.Turns, func(t models.ManifestTurn, _ int) string {
		return t.Response
	})
	grounding = append(sourceSnippets(session.Sources), grounding...)

	response, err := h.ai.Complete(ctx, prompt, grounding)
	if err != nil {
		logger.Log.Error("completion failed on turn",
			zap.String("session_id", session.ID.Hex()), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "Idea exploration is temporarily unavailable")
	}

	updated, err := h.manifestRepository.AppendTurn(ctx, session.ID.Hex(), models.ManifestTurn{
		Prompt:    prompt,
		Response:  response,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

// loadOwnedSession fetches the session named in the path and checks
// ownership. Non-owners get 404, not 403, so session ids leak nothing.
func (h *ManifestHandler) loadOwnedSession(c echo.Context, currentUserID uint) (*models.ManifestSession, error) {
	session, err := h.manifestRepository.GetSessionByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Session not found")
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid session ID")
	}
	if session.UserID != currentUserID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}
	return session, nil
}

// gatherSources runs a best-effort web search for grounding material
func (h *ManifestHandler) gatherSources(ctx context.Context, topic string) []models.ManifestSource {
	results, err := h.search.Search(ctx, topic, manifestSourceLimit)
	if err != nil {
		logger.Log.Warn("source search failed, opening session ungrounded",
			zap.String("topic", topic), zap.Error(err))
		return nil
	}
	return lo.Map(results, func(r websearch.Result, _ int) models.ManifestSource {
		return models.ManifestSource{Title: r.Title, URL: r.URL}
	})
}

func sourceSnippets(sources []models.ManifestSource) []string {
	return lo.Map(sources, func(s models.ManifestSource, _ int) string {
		return s.Title + " " + s.URL
	})
}
