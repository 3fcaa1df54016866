package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/opaq-social/backend/internal/repositories"
	"github.com/samber/lo"
)

// DiscussionHandler handles threaded discussions on posts and their
// like ledger. Threading is exactly one level deep: a reply's parent
// must be a top-level discussion.
type DiscussionHandler struct {
	discussionRepository  repositories.DiscussionRepository
	interactionRepository repositories.DiscussionInteractionRepository
	postRepository        repositories.PostRepository
	userRepository        repositories.UserRepository
}

// NewDiscussionHandler creates a new DiscussionHandler
func NewDiscussionHandler(
	discussionRepo repositories.DiscussionRepository,
	interactionRepo repositories.DiscussionInteractionRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
) *DiscussionHandler {
	return &DiscussionHandler{
		discussionRepository:  discussionRepo,
		interactionRepository: interactionRepo,
		postRepository:        postRepo,
		userRepository:        userRepo,
	}
}

// RegisterDiscussionRoutes registers discussion-related routes
func (h *DiscussionHandler) RegisterDiscussionRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/discussions", h.CreateDiscussion)
	g.GET("/posts/:post_id/discussions", h.ListDiscussions)
	g.PUT("/discussions/:id", h.UpdateDiscussion)
	g.POST("/discussions/:id/pin", h.PinDiscussion)
	g.POST("/discussions/:id/heart", h.HeartDiscussion)
	g.POST("/discussions/:id/like", h.LikeDiscussion)
	g.DELETE("/discussions/:id", h.DeleteDiscussion)
}

// CreateDiscussion creates a top-level discussion or a reply
func (h *DiscussionHandler) CreateDiscussion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	postID := c.Param("post_id")

	var req models.CreateDiscussionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Discussion content cannot be empty")
	}

	ctx := c.Request().Context()
	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	discussion := &models.Discussion{
		PostID:  postID,
		UserID:  currentUserID,
		Content: content,
	}

	if req.ParentID != "" {
		parent, err := h.discussionRepository.GetByID(ctx, req.ParentID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "Parent discussion not found")
			}
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid parent discussion ID")
		}
		// a reply's parent must live on the same post
		if parent.PostID != postID {
			return echo.NewHTTPError(http.StatusNotFound, "Parent discussion not found")
		}
		// threading is one level deep: replies to replies are rejected
		if parent.IsReply() {
			return echo.NewHTTPError(http.StatusBadRequest, "Replies cannot be nested")
		}
		discussion.ParentID = &parent.ID
	}

	if err := h.discussionRepository.Create(ctx, discussion); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if discussion.ParentID != nil {
		if err := h.discussionRepository.IncrementRepliesCount(ctx, discussion.ParentID.Hex(), 1); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, h.enrichOne(discussion))
}

// ListDiscussions lists top-level discussions of a post, or the replies
// of one discussion when parent_id is supplied
func (h *DiscussionHandler) ListDiscussions(c echo.Context) error {
	postID := c.Param("post_id")
	ctx := c.Request().Context()

	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var parentID *string
	if raw := c.QueryParam("parent_id"); raw != "" {
		parentID = &raw
	}

	sort := c.QueryParam("sort")
	if sort == "" {
		sort = models.SortNewest
	}
	page, limit := parsePageParams(c)

	discussions, total, err := h.discussionRepository.List(ctx, postID, parentID, sort, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	enriched, err := h.enrichPage(ctx, discussions, getUserIDFromContext(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return c.JSON(http.StatusOK, echo.Map{
		"discussions": enriched,
		"pagination": models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// UpdateDiscussion edits a discussion's content; discussion author only
func (h *DiscussionHandler) UpdateDiscussion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	discussionID := c.Param("id")

	var req models.UpdateDiscussionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Discussion content cannot be empty")
	}

	ctx := c.Request().Context()
	discussion, err := h.getDiscussion(ctx, discussionID)
	if err != nil {
		return err
	}
	if discussion.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to edit this discussion")
	}

	updated, err := h.discussionRepository.UpdateContent(ctx, discussionID, content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.enrichOne(updated))
}

// PinDiscussion sets the pin flag; post author only, top-level only
func (h *DiscussionHandler) PinDiscussion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	discussionID := c.Param("id")

	var req models.PinDiscussionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	discussion, err := h.getDiscussion(ctx, discussionID)
	if err != nil {
		return err
	}
	if err := h.requirePostAuthor(ctx, discussion.PostID, currentUserID); err != nil {
		return err
	}
	if discussion.IsReply() {
		return echo.NewHTTPError(http.StatusBadRequest, "Replies cannot be pinned")
	}

	updated, err := h.discussionRepository.SetPinned(ctx, discussionID, *req.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.enrichOne(updated))
}

// HeartDiscussion toggles the post author's heart on a discussion.
// Unlike like/save this is a pure toggle: the caller sends no target
// state, the server flips the current one.
func (h *DiscussionHandler) HeartDiscussion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	discussionID := c.Param("id")
	ctx := c.Request().Context()

	discussion, err := h.getDiscussion(ctx, discussionID)
	if err != nil {
		return err
	}
	if err := h.requirePostAuthor(ctx, discussion.PostID, currentUserID); err != nil {
		return err
	}

	updated, err := h.discussionRepository.ToggleHearted(ctx, discussionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.enrichOne(updated))
}

// LikeDiscussion idempotently sets the caller's like on a discussion.
// The ledger write yields a ±1/0 delta which is applied atomically to
// the discussion's denormalized counter.
func (h *DiscussionHandler) LikeDiscussion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	discussionID := c.Param("id")

	var req models.LikeDiscussionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.getDiscussion(ctx, discussionID); err != nil {
		return err
	}

	delta, err := h.interactionRepository.SetLiked(ctx, currentUserID, discussionID, *req.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// the counter in the response must be post-write: a pre-write read
	// can under-report likes that landed concurrently
	var likes int64
	if delta != 0 {
		updated, err := h.discussionRepository.IncrementLikes(ctx, discussionID, delta)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		likes = updated.Likes
	} else {
		current, err := h.getDiscussion(ctx, discussionID)
		if err != nil {
			return err
		}
		likes = current.Likes
	}

	return c.JSON(http.StatusOK, echo.Map{"liked": *req.Value, "likes": likes})
}

// DeleteDiscussion deletes a discussion with its replies and all
// referencing ledger rows; discussion author or post author
func (h *DiscussionHandler) DeleteDiscussion(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	discussionID := c.Param("id")
	ctx := c.Request().Context()

	discussion, err := h.getDiscussion(ctx, discussionID)
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(ctx, discussion.PostID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if discussion.UserID != currentUserID && post.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this discussion")
	}

	// the id union must be computed before any row is removed so the
	// ledger cleanup covers the replies too
	replyIDs, err := h.discussionRepository.ReplyIDs(ctx, discussionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	ids := append([]string{discussionID}, replyIDs...)

	if _, err := h.discussionRepository.DeleteByIDs(ctx, ids); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.interactionRepository.DeleteByDiscussionIDs(ctx, ids); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if discussion.ParentID != nil {
		if err := h.discussionRepository.IncrementRepliesCount(ctx, discussion.ParentID.Hex(), -1); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.NoContent(http.StatusNoContent)
}

// getDiscussion fetches a discussion, translating repository errors
func (h *DiscussionHandler) getDiscussion(ctx context.Context, id string) (*models.Discussion, error) {
	discussion, err := h.discussionRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Discussion not found")
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid discussion ID")
	}
	return discussion, nil
}

// requirePostAuthor rejects callers that do not own the post
func (h *DiscussionHandler) requirePostAuthor(ctx context.Context, postID string, userID uint) error {
	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if post.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "Only the post author may do this")
	}
	return nil
}

// enrichOne attaches the author's public identity to a single discussion
func (h *DiscussionHandler) enrichOne(discussion *models.Discussion) *models.DiscussionWithAuthor {
	enriched := &models.DiscussionWithAuthor{Discussion: *discussion}
	if user, err := h.userRepository.GetUserByID(discussion.UserID); err == nil {
		enriched.Author = user.Public()
	}
	return enriched
}

// enrichPage attaches author identities and the caller's like state to a
// page of discussions using two batched lookups, never per-row queries
func (h *DiscussionHandler) enrichPage(ctx context.Context, discussions []models.Discussion, currentUserID uint) ([]*models.DiscussionWithAuthor, error) {
	authorIDs := lo.Uniq(lo.Map(discussions, func(d models.Discussion, _ int) uint {
		return d.UserID
	}))
	authors, err := h.userRepository.GetUsersByIDs(authorIDs)
	if err != nil {
		return nil, err
	}
	authorsByID := lo.SliceToMap(authors, func(u models.User) (uint, *models.PublicUser) {
		return u.ID, u.Public()
	})

	likedByID := map[string]bool{}
	if currentUserID != 0 {
		ids := lo.Map(discussions, func(d models.Discussion, _ int) string {
			return d.ID.Hex()
		})
		likedByID, err = h.interactionRepository.LikedSet(ctx, currentUserID, ids)
		if err != nil {
			return nil, err
		}
	}

	return lo.Map(discussions, func(d models.Discussion, _ int) *models.DiscussionWithAuthor {
		return &models.DiscussionWithAuthor{
			Discussion:  d,
			Author:      authorsByID[d.UserID],
			LikedByUser: likedByID[d.ID.Hex()],
		}
	}), nil
}
