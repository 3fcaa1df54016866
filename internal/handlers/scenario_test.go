package handlers

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPostLifecycleScenario walks one post through the full interaction
// flow: likes and saves on the post, a discussion with a reply, the post
// author's heart, and the cascade when the discussion is deleted.
func TestPostLifecycleScenario(t *testing.T) {
	e := newTestEcho()
	users := newFakeUserRepo()
	posts := newFakePostRepo()
	postLedger := newFakePostInteractionRepo()
	discussions := newFakeDiscussionRepo()
	discussionLedger := newFakeDiscussionInteractionRepo()

	interactionHandler := NewPostInteractionHandler(postLedger, posts, discussions)
	discussionHandler := NewDiscussionHandler(discussions, discussionLedger, posts, users)

	userA := &models.User{Username: "alba", DisplayName: "Alba", Email: "alba@example.com"}
	userB := &models.User{Username: "bren", DisplayName: "Bren", Email: "bren@example.com"}
	userC := &models.User{Username: "cleo", DisplayName: "Cleo", Email: "cleo@example.com"}
	for _, u := range []*models.User{userA, userB, userC} {
		require.NoError(t, users.CreateUser(u))
	}

	post := &models.Post{UserID: userA.ID, Title: "night market", Content: "oil on canvas"}
	require.NoError(t, posts.CreatePost(t.Context(), post))
	postID := post.ID.Hex()

	submit := func(userID uint, action string, value *bool) *interactionResponse {
		t.Helper()
		c, rec := newJSONContext(e, http.MethodPost, "/", models.SubmitInteractionRequest{Action: action, Value: value})
		c.SetPath("/posts/:id/interactions")
		c.SetParamNames("id")
		c.SetParamValues(postID)
		asUser(c, userID)
		require.NoError(t, interactionHandler.Submit(c))
		var resp interactionResponse
		decodeBody(t, rec, &resp)
		return &resp
	}
	discuss := func(userID uint, content, parentID string) *models.DiscussionWithAuthor {
		t.Helper()
		c, rec := newJSONContext(e, http.MethodPost, "/", models.CreateDiscussionRequest{Content: content, ParentID: parentID})
		c.SetPath("/posts/:post_id/discussions")
		c.SetParamNames("post_id")
		c.SetParamValues(postID)
		asUser(c, userID)
		require.NoError(t, discussionHandler.CreateDiscussion(c))
		var resp models.DiscussionWithAuthor
		decodeBody(t, rec, &resp)
		return &resp
	}
	onDiscussion := func(userID uint, id string, body interface{}, handler echo.HandlerFunc) error {
		t.Helper()
		c, _ := newJSONContext(e, http.MethodPost, "/", body)
		c.SetPath("/discussions/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		asUser(c, userID)
		return handler(c)
	}

	on := true
	resp := submit(userB.ID, models.ActionLike, &on)
	assert.Equal(t, int64(1), resp.Stats.Likes)

	resp = submit(userB.ID, models.ActionLike, &on)
	assert.Equal(t, int64(1), resp.Stats.Likes, "repeat like is a no-op")

	resp = submit(userC.ID, models.ActionSave, &on)
	assert.Equal(t, int64(1), resp.Stats.Saves)
	assert.Equal(t, int64(1), resp.Stats.Likes)

	d1 := discuss(userB.ID, "the lanterns glow", "")
	d2 := discuss(userC.ID, "best corner of the piece", d1.ID.Hex())

	parent, err := discussions.GetByID(t.Context(), d1.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), parent.RepliesCount)

	resp = submit(userB.ID, models.ActionView, nil)
	assert.Equal(t, int64(2), resp.Stats.Comments, "both discussion rows count")

	require.NoError(t, onDiscussion(userA.ID, d1.ID.Hex(), nil, discussionHandler.HeartDiscussion))
	hearted, err := discussions.GetByID(t.Context(), d1.ID.Hex())
	require.NoError(t, err)
	assert.True(t, hearted.IsHearted)

	err = onDiscussion(userC.ID, d1.ID.Hex(), nil, discussionHandler.HeartDiscussion)
	requireHTTPError(t, err, http.StatusForbidden)

	_, err = discussionLedger.SetLiked(t.Context(), userC.ID, d2.ID.Hex(), true)
	require.NoError(t, err)

	require.NoError(t, onDiscussion(userA.ID, d1.ID.Hex(), nil, discussionHandler.DeleteDiscussion))
	_, err = discussions.GetByID(t.Context(), d1.ID.Hex())
	assert.Error(t, err)
	_, err = discussions.GetByID(t.Context(), d2.ID.Hex())
	assert.Error(t, err)

	liked, err := discussionLedger.LikedSet(t.Context(), userC.ID, []string{d2.ID.Hex()})
	require.NoError(t, err)
	assert.Empty(t, liked)

	resp = submit(userB.ID, models.ActionView, nil)
	assert.Equal(t, int64(0), resp.Stats.Comments, "comment count falls with the cascade")
}
