package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/opaq-social/backend/internal/repositories"
	"github.com/opaq-social/backend/pkg/logger"
	"go.uber.org/zap"
)

// PostHandler handles HTTP requests related to Artwall posts
type PostHandler struct {
	postRepository                  repositories.PostRepository
	postInteractionRepository       repositories.PostInteractionRepository
	discussionRepository            repositories.DiscussionRepository
	discussionInteractionRepository repositories.DiscussionInteractionRepository
	userRepository                  repositories.UserRepository
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	postInteractionRepo repositories.PostInteractionRepository,
	discussionRepo repositories.DiscussionRepository,
	discussionInteractionRepo repositories.DiscussionInteractionRepository,
	userRepo repositories.UserRepository,
) *PostHandler {
	return &PostHandler{
		postRepository:                  postRepo,
		postInteractionRepository:       postInteractionRepo,
		discussionRepository:            discussionRepo,
		discussionInteractionRepository: discussionInteractionRepo,
		userRepository:                  userRepo,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetFeed)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/users/:id/posts", h.GetPostsByUser)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// CreatePost creates a new Artwall post
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post := &models.Post{
		UserID:   currentUserID,
		Title:    req.Title,
		Content:  req.Content,
		CoverURL: req.CoverURL,
		Tags:     req.Tags,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, post)
}

// GetFeed retrieves the Artwall feed with pagination
func (h *PostHandler) GetFeed(c echo.Context) error {
	page, limit := parsePageParams(c)
	posts, err := h.postRepository.GetAllPosts(c.Request().Context(), (page-1)*limit, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, posts)
}

// GetPost retrieves one post by id
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}
	return c.JSON(http.StatusOK, post)
}

// GetPostsByUser retrieves a user's posts
func (h *PostHandler) GetPostsByUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	page, limit := parsePageParams(c)
	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), uint(userID), (page-1)*limit, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, posts)
}

// UpdatePost updates an existing post; author only
func (h *PostHandler) UpdatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	postID := c.Param("id")

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}
	if post.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}

	if req.Title != "" {
		post.Title = req.Title
	}
	if req.Content != "" {
		post.Content = req.Content
	}
	if req.CoverURL != "" {
		post.CoverURL = req.CoverURL
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}

	if err := h.postRepository.UpdatePost(c.Request().Context(), postID, post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost deletes a post and cascades its discussions and both
// interaction ledgers; author only
func (h *PostHandler) DeletePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	postID := c.Param("id")
	ctx := c.Request().Context()

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}
	if post.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	// collect the discussion ids before deleting anything so the ledger
	// cleanup covers every row
	discussionIDs, err := h.discussionRepository.ListIDsByPostID(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.discussionInteractionRepository.DeleteByDiscussionIDs(ctx, discussionIDs); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if _, err := h.discussionRepository.DeleteByIDs(ctx, discussionIDs); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.postInteractionRepository.DeleteByPostID(ctx, postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	logger.Log.Info("post deleted",
		zap.String("post_id", postID),
		zap.Int("cascaded_discussions", len(discussionIDs)))
	return c.NoContent(http.StatusNoContent)
}

// parsePageParams reads page/limit query params with sane bounds
func parsePageParams(c echo.Context) (int64, int64) {
	page, err := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
