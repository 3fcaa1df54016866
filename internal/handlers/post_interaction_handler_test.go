package handlers

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type interactionEnv struct {
	e            *echo.Echo
	handler      *PostInteractionHandler
	posts        *fakePostRepo
	interactions *fakePostInteractionRepo
	discussions  *fakeDiscussionRepo
	postID       string
}

func newInteractionEnv(t *testing.T) *interactionEnv {
	t.Helper()
	env := &interactionEnv{
		e:            newTestEcho(),
		posts:        newFakePostRepo(),
		interactions: newFakePostInteractionRepo(),
		discussions:  newFakeDiscussionRepo(),
	}
	env.handler = NewPostInteractionHandler(env.interactions, env.posts, env.discussions)

	post := &models.Post{UserID: 1, Title: "morning sketch", Content: "ink on paper"}
	require.NoError(t, env.posts.CreatePost(t.Context(), post))
	env.postID = post.ID.Hex()
	return env
}

type interactionResponse struct {
	Interaction models.PostInteraction `json:"interaction"`
	Stats       models.PostStats       `json:"stats"`
}

func (env *interactionEnv) submit(t *testing.T, userID uint, body interface{}) (*interactionResponse, error) {
	t.Helper()
	c, rec := newJSONContext(env.e, http.MethodPost, "/", body)
	c.SetPath("/posts/:id/interactions")
	c.SetParamNames("id")
	c.SetParamValues(env.postID)
	if userID != 0 {
		asUser(c, userID)
	}
	if err := env.handler.Submit(c); err != nil {
		return nil, err
	}
	var resp interactionResponse
	decodeBody(t, rec, &resp)
	return &resp, nil
}

func TestSubmitLikeIsIdempotent(t *testing.T) {
	env := newInteractionEnv(t)

	value := true
	first, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionLike, Value: &value})
	require.NoError(t, err)
	assert.True(t, first.Interaction.Liked)
	assert.Equal(t, int64(1), first.Stats.Likes)
	require.NotNil(t, first.Interaction.LikedAt)
	firstLikedAt := *first.Interaction.LikedAt

	second, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionLike, Value: &value})
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Stats.Likes, "resubmitting the same value must not double-count")
	require.NotNil(t, second.Interaction.LikedAt)
	assert.Equal(t, firstLikedAt, *second.Interaction.LikedAt, "liked_at only moves on a false-to-true transition")
}

func TestSubmitLikeDefaultsToTrue(t *testing.T) {
	env := newInteractionEnv(t)

	resp, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionLike})
	require.NoError(t, err)
	assert.True(t, resp.Interaction.Liked)
	assert.Equal(t, int64(1), resp.Stats.Likes)
}

func TestSubmitUnlike(t *testing.T) {
	env := newInteractionEnv(t)

	on, off := true, false
	_, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionLike, Value: &on})
	require.NoError(t, err)

	resp, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionLike, Value: &off})
	require.NoError(t, err)
	assert.False(t, resp.Interaction.Liked)
	assert.Equal(t, int64(0), resp.Stats.Likes)
}

func TestSubmitViewsAreCumulative(t *testing.T) {
	env := newInteractionEnv(t)

	var resp *interactionResponse
	var err error
	for i := 0; i < 3; i++ {
		resp, err = env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionView})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), resp.Interaction.ViewCount)
	assert.Equal(t, int64(3), resp.Stats.Views)
}

func TestSubmitSaveDoesNotTouchLikes(t *testing.T) {
	env := newInteractionEnv(t)

	value := true
	resp, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionSave, Value: &value})
	require.NoError(t, err)
	assert.True(t, resp.Interaction.Saved)
	assert.False(t, resp.Interaction.Liked)
	assert.Equal(t, int64(1), resp.Stats.Saves)
	assert.Equal(t, int64(0), resp.Stats.Likes)
}

func TestSubmitRequiresAuth(t *testing.T) {
	env := newInteractionEnv(t)

	_, err := env.submit(t, 0, models.SubmitInteractionRequest{Action: models.ActionView})
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestSubmitRejectsUnknownAction(t *testing.T) {
	env := newInteractionEnv(t)

	_, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: "boost"})
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSubmitUnknownPost(t *testing.T) {
	env := newInteractionEnv(t)
	env.postID = "bbbbbbbbbbbbbbbbbbbbbbbb"

	_, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionView})
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestQueryAggregatesAcrossUsers(t *testing.T) {
	env := newInteractionEnv(t)

	on := true
	_, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionLike, Value: &on})
	require.NoError(t, err)
	_, err = env.submit(t, 3, models.SubmitInteractionRequest{Action: models.ActionLike, Value: &on})
	require.NoError(t, err)
	_, err = env.submit(t, 3, models.SubmitInteractionRequest{Action: models.ActionView})
	require.NoError(t, err)

	c, rec := newJSONContext(env.e, http.MethodGet, "/", nil)
	c.SetPath("/posts/:id/interactions")
	c.SetParamNames("id")
	c.SetParamValues(env.postID)
	asUser(c, 2)
	require.NoError(t, env.handler.Query(c))

	var resp struct {
		Stats           models.PostStats       `json:"stats"`
		UserInteraction models.PostInteraction `json:"user_interaction"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(2), resp.Stats.Likes)
	assert.Equal(t, int64(1), resp.Stats.Views)
	assert.True(t, resp.UserInteraction.Liked)
	assert.Equal(t, int64(0), resp.UserInteraction.ViewCount, "the caller's own row, not the aggregate")
}

func TestQueryAnonymousGetsZeroRecord(t *testing.T) {
	env := newInteractionEnv(t)

	on := true
	_, err := env.submit(t, 2, models.SubmitInteractionRequest{Action: models.ActionLike, Value: &on})
	require.NoError(t, err)

	c, rec := newJSONContext(env.e, http.MethodGet, "/", nil)
	c.SetPath("/posts/:id/interactions")
	c.SetParamNames("id")
	c.SetParamValues(env.postID)
	require.NoError(t, env.handler.Query(c))

	var resp struct {
		Stats           models.PostStats       `json:"stats"`
		UserInteraction models.PostInteraction `json:"user_interaction"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(1), resp.Stats.Likes, "stats are visible to anonymous callers")
	assert.False(t, resp.UserInteraction.Liked)
	assert.Zero(t, resp.UserInteraction.UserID)
}

func TestQueryCountsDiscussions(t *testing.T) {
	env := newInteractionEnv(t)

	require.NoError(t, env.discussions.Create(t.Context(), &models.Discussion{PostID: env.postID, UserID: 2, Content: "great piece"}))
	require.NoError(t, env.discussions.Create(t.Context(), &models.Discussion{PostID: env.postID, UserID: 3, Content: "agreed"}))

	c, rec := newJSONContext(env.e, http.MethodGet, "/", nil)
	c.SetPath("/posts/:id/interactions")
	c.SetParamNames("id")
	c.SetParamValues(env.postID)
	require.NoError(t, env.handler.Query(c))

	var resp struct {
		Stats models.PostStats `json:"stats"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(2), resp.Stats.Comments)
}
