package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/opaq-social/backend/internal/repositories"
)

// PostInteractionHandler handles the like/save/view ledger for posts.
//
// like and save are idempotent sets: the request carries the target
// state, so resubmitting the same value is a no-op. view is cumulative:
// every submission counts. Stats in every response are recomputed from
// the ledger, never read from a cached counter.
type PostInteractionHandler struct {
	interactionRepository repositories.PostInteractionRepository
	postRepository        repositories.PostRepository
	discussionRepository  repositories.DiscussionRepository
}

// NewPostInteractionHandler creates a new PostInteractionHandler
func NewPostInteractionHandler(
	interactionRepo repositories.PostInteractionRepository,
	postRepo repositories.PostRepository,
	discussionRepo repositories.DiscussionRepository,
) *PostInteractionHandler {
	return &PostInteractionHandler{
		interactionRepository: interactionRepo,
		postRepository:        postRepo,
		discussionRepository:  discussionRepo,
	}
}

// RegisterPostInteractionRoutes registers interaction routes
func (h *PostInteractionHandler) RegisterPostInteractionRoutes(g *echo.Group) {
	g.POST("/posts/:id/interactions", h.Submit)
	g.GET("/posts/:id/interactions", h.Query)
}

// Submit records a like/save/view for the authenticated caller and
// returns the caller's ledger row plus fresh aggregate stats
func (h *PostInteractionHandler) Submit(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	postID := c.Param("id")

	var req models.SubmitInteractionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var record *models.PostInteraction
	var err error
	switch req.Action {
	case models.ActionView:
		record, err = h.interactionRepository.ApplyView(ctx, currentUserID, postID)
	default:
		// like/save default to true when value is omitted
		value := true
		if req.Value != nil {
			value = *req.Value
		}
		record, err = h.interactionRepository.ApplyFlag(ctx, currentUserID, postID, req.Action, value)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	stats, err := h.aggregateStats(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"interaction": record, "stats": stats})
}

// Query returns fresh aggregate stats plus, for authenticated callers,
// their own ledger row (zero-valued when none exists). Read-only.
func (h *PostInteractionHandler) Query(c echo.Context) error {
	postID := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	stats, err := h.aggregateStats(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	userInteraction := &models.PostInteraction{PostID: postID}
	if currentUserID := getUserIDFromContext(c); currentUserID != 0 {
		userInteraction.UserID = currentUserID
		record, err := h.interactionRepository.GetByUserAndPost(ctx, currentUserID, postID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if record != nil {
			userInteraction = record
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"stats": stats, "user_interaction": userInteraction})
}

// aggregateStats reduces the ledger and fills in the comment count
// from the discussion collection
func (h *PostInteractionHandler) aggregateStats(ctx context.Context, postID string) (*models.PostStats, error) {
	stats, err := h.interactionRepository.AggregateStats(ctx, postID)
	if err != nil {
		return nil, err
	}
	comments, err := h.discussionRepository.CountByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	stats.Comments = comments
	return stats, nil
}
