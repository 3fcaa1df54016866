package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opaq-social/backend/internal/models"
	"github.com/opaq-social/backend/internal/repositories"
	"github.com/opaq-social/backend/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// In-memory repository fakes mirroring the storage semantics the real
// implementations guarantee: idempotent ledger writes, transition-only
// timestamps, counter deltas. Handler tests run against these.

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	return e
}

func newJSONContext(e *echo.Echo, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asUser(c echo.Context, userID uint) {
	c.Set("userID", userID)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

// fakeUserRepo

type fakeUserRepo struct {
	seq   uint
	users map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User)}
}

// CreateUser enforces the unique email/username indexes the real
// schema carries, surfacing the same error GORM would
func (r *fakeUserRepo) CreateUser(user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	r.seq++
	user.ID = r.seq
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetUserByID(id uint) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetUserByEmail(email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUsersByIDs(ids []uint) ([]models.User, error) {
	var users []models.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) UpdateUser(user *models.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) DeleteUser(id uint) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) SearchUsers(query string) ([]models.User, error) {
	q := strings.ToLower(query)
	var users []models.User
	for _, user := range r.users {
		if strings.Contains(strings.ToLower(user.Username), q) ||
			strings.Contains(strings.ToLower(user.DisplayName), q) {
			users = append(users, *user)
		}
	}
	return users, nil
}

// fakePostRepo

type fakePostRepo struct {
	posts map[string]*models.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*models.Post)}
}

func (r *fakePostRepo) CreatePost(_ context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID.Hex()] = post
	return nil
}

func (r *fakePostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return post, nil
}

func (r *fakePostRepo) GetPostsByUserID(_ context.Context, userID uint, _, _ int64) ([]models.Post, error) {
	var posts []models.Post
	for _, post := range r.posts {
		if post.UserID == userID {
			posts = append(posts, *post)
		}
	}
	return posts, nil
}

func (r *fakePostRepo) GetAllPosts(_ context.Context, _, _ int64) ([]models.Post, error) {
	var posts []models.Post
	for _, post := range r.posts {
		posts = append(posts, *post)
	}
	return posts, nil
}

func (r *fakePostRepo) UpdatePost(_ context.Context, id string, post *models.Post) error {
	if _, ok := r.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	r.posts[id] = post
	return nil
}

func (r *fakePostRepo) DeletePost(_ context.Context, id string) error {
	if _, ok := r.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

// fakePostInteractionRepo

type postLedgerKey struct {
	userID uint
	postID string
}

type fakePostInteractionRepo struct {
	rows map[postLedgerKey]*models.PostInteraction
}

func newFakePostInteractionRepo() *fakePostInteractionRepo {
	return &fakePostInteractionRepo{rows: make(map[postLedgerKey]*models.PostInteraction)}
}

func (r *fakePostInteractionRepo) row(userID uint, postID string) *models.PostInteraction {
	key := postLedgerKey{userID, postID}
	record, ok := r.rows[key]
	if !ok {
		record = &models.PostInteraction{
			UserID:    userID,
			PostID:    postID,
			CreatedAt: time.Now(),
		}
		r.rows[key] = record
	}
	return record
}

func (r *fakePostInteractionRepo) ApplyFlag(_ context.Context, userID uint, postID, action string, value bool) (*models.PostInteraction, error) {
	record := r.row(userID, postID)
	now := time.Now()
	record.UpdatedAt = now
	switch action {
	case models.ActionLike:
		if value && !record.Liked {
			record.LikedAt = &now
		}
		record.Liked = value
	case models.ActionSave:
		if value && !record.Saved {
			record.SavedAt = &now
		}
		record.Saved = value
	default:
		return nil, repositories.ErrUnknownAction
	}
	return record, nil
}

func (r *fakePostInteractionRepo) ApplyView(_ context.Context, userID uint, postID string) (*models.PostInteraction, error) {
	record := r.row(userID, postID)
	now := time.Now()
	record.Viewed = true
	record.ViewedAt = &now
	record.ViewCount++
	record.UpdatedAt = now
	return record, nil
}

func (r *fakePostInteractionRepo) GetByUserAndPost(_ context.Context, userID uint, postID string) (*models.PostInteraction, error) {
	record, ok := r.rows[postLedgerKey{userID, postID}]
	if !ok {
		return nil, nil
	}
	return record, nil
}

func (r *fakePostInteractionRepo) AggregateStats(_ context.Context, postID string) (*models.PostStats, error) {
	stats := &models.PostStats{}
	for key, record := range r.rows {
		if key.postID != postID {
			continue
		}
		if record.Liked {
			stats.Likes++
		}
		if record.Saved {
			stats.Saves++
		}
		stats.Views += record.ViewCount
	}
	return stats, nil
}

func (r *fakePostInteractionRepo) DeleteByPostID(_ context.Context, postID string) error {
	for key := range r.rows {
		if key.postID == postID {
			delete(r.rows, key)
		}
	}
	return nil
}

// fakeDiscussionRepo

type fakeDiscussionRepo struct {
	discussions map[string]*models.Discussion
}

func newFakeDiscussionRepo() *fakeDiscussionRepo {
	return &fakeDiscussionRepo{discussions: make(map[string]*models.Discussion)}
}

func (r *fakeDiscussionRepo) Create(_ context.Context, discussion *models.Discussion) error {
	discussion.ID = primitive.NewObjectID()
	discussion.Likes = 0
	discussion.RepliesCount = 0
	discussion.IsEdited = false
	discussion.IsPinned = false
	discussion.IsHearted = false
	discussion.CreatedAt = time.Now()
	discussion.UpdatedAt = discussion.CreatedAt
	r.discussions[discussion.ID.Hex()] = discussion
	return nil
}

// GetByID returns a snapshot, as a real document read would: callers
// holding one do not see writes that land after the read
func (r *fakeDiscussionRepo) GetByID(_ context.Context, id string) (*models.Discussion, error) {
	discussion, ok := r.discussions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	snapshot := *discussion
	return &snapshot, nil
}

func (r *fakeDiscussionRepo) List(_ context.Context, postID string, parentID *string, sortOrder string, page, limit int64) ([]models.Discussion, int64, error) {
	var matched []models.Discussion
	for _, d := range r.discussions {
		if d.PostID != postID {
			continue
		}
		if parentID == nil {
			if d.ParentID != nil {
				continue
			}
		} else if d.ParentID == nil || d.ParentID.Hex() != *parentID {
			continue
		}
		matched = append(matched, *d)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch sortOrder {
		case models.SortOldest:
			return a.CreatedAt.Before(b.CreatedAt)
		case models.SortTop:
			if a.Likes != b.Likes {
				return a.Likes > b.Likes
			}
		case models.SortReplies:
			if a.RepliesCount != b.RepliesCount {
				return a.RepliesCount > b.RepliesCount
			}
		default:
			if a.IsPinned != b.IsPinned {
				return a.IsPinned
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *fakeDiscussionRepo) UpdateContent(_ context.Context, id, content string) (*models.Discussion, error) {
	discussion, ok := r.discussions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	discussion.Content = content
	discussion.IsEdited = true
	discussion.UpdatedAt = time.Now()
	return discussion, nil
}

func (r *fakeDiscussionRepo) SetPinned(_ context.Context, id string, value bool) (*models.Discussion, error) {
	discussion, ok := r.discussions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	discussion.IsPinned = value
	discussion.UpdatedAt = time.Now()
	return discussion, nil
}

func (r *fakeDiscussionRepo) ToggleHearted(_ context.Context, id string) (*models.Discussion, error) {
	discussion, ok := r.discussions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	discussion.IsHearted = !discussion.IsHearted
	discussion.UpdatedAt = time.Now()
	return discussion, nil
}

func (r *fakeDiscussionRepo) IncrementLikes(_ context.Context, id string, delta int64) (*models.Discussion, error) {
	discussion, ok := r.discussions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	discussion.Likes += delta
	return discussion, nil
}

func (r *fakeDiscussionRepo) IncrementRepliesCount(_ context.Context, id string, delta int64) error {
	discussion, ok := r.discussions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	discussion.RepliesCount += delta
	return nil
}

func (r *fakeDiscussionRepo) ReplyIDs(_ context.Context, id string) ([]string, error) {
	var ids []string
	for _, d := range r.discussions {
		if d.ParentID != nil && d.ParentID.Hex() == id {
			ids = append(ids, d.ID.Hex())
		}
	}
	return ids, nil
}

func (r *fakeDiscussionRepo) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if _, ok := r.discussions[id]; ok {
			delete(r.discussions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeDiscussionRepo) CountByPostID(_ context.Context, postID string) (int64, error) {
	var count int64
	for _, d := range r.discussions {
		if d.PostID == postID {
			count++
		}
	}
	return count, nil
}

func (r *fakeDiscussionRepo) ListIDsByPostID(_ context.Context, postID string) ([]string, error) {
	var ids []string
	for _, d := range r.discussions {
		if d.PostID == postID {
			ids = append(ids, d.ID.Hex())
		}
	}
	return ids, nil
}

// fakeDiscussionInteractionRepo

type discussionLedgerKey struct {
	userID       uint
	discussionID string
}

type fakeDiscussionInteractionRepo struct {
	liked map[discussionLedgerKey]bool
}

func newFakeDiscussionInteractionRepo() *fakeDiscussionInteractionRepo {
	return &fakeDiscussionInteractionRepo{liked: make(map[discussionLedgerKey]bool)}
}

func (r *fakeDiscussionInteractionRepo) SetLiked(_ context.Context, userID uint, discussionID string, value bool) (int64, error) {
	key := discussionLedgerKey{userID, discussionID}
	old := r.liked[key]
	r.liked[key] = value
	switch {
	case old == value:
		return 0, nil
	case value:
		return 1, nil
	default:
		return -1, nil
	}
}

func (r *fakeDiscussionInteractionRepo) LikedSet(_ context.Context, userID uint, discussionIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(discussionIDs))
	for _, id := range discussionIDs {
		if r.liked[discussionLedgerKey{userID, id}] {
			result[id] = true
		}
	}
	return result, nil
}

func (r *fakeDiscussionInteractionRepo) DeleteByDiscussionIDs(_ context.Context, ids []string) error {
	for key := range r.liked {
		for _, id := range ids {
			if key.discussionID == id {
				delete(r.liked, key)
			}
		}
	}
	return nil
}

// fakePitchRepo

type pitchLedgerKey struct {
	pitchID uint
	userID  uint
}

type fakePitchRepo struct {
	seq          uint
	pitches      map[uint]*models.Pitch
	interactions map[pitchLedgerKey]*models.PitchInteraction
}

func newFakePitchRepo() *fakePitchRepo {
	return &fakePitchRepo{
		pitches:      make(map[uint]*models.Pitch),
		interactions: make(map[pitchLedgerKey]*models.PitchInteraction),
	}
}

func (r *fakePitchRepo) CreatePitch(pitch *models.Pitch) error {
	r.seq++
	pitch.ID = r.seq
	pitch.CreatedAt = time.Now()
	pitch.UpdatedAt = pitch.CreatedAt
	r.pitches[pitch.ID] = pitch
	return nil
}

func (r *fakePitchRepo) GetPitchByID(id uint) (*models.Pitch, error) {
	pitch, ok := r.pitches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pitch, nil
}

func (r *fakePitchRepo) ListPublicPitches(category string, offset, limit int) ([]models.Pitch, int64, error) {
	var matched []models.Pitch
	for _, pitch := range r.pitches {
		if pitch.Visibility != models.PitchVisibilityPublic {
			continue
		}
		if category != "" && pitch.Category != category {
			continue
		}
		matched = append(matched, *pitch)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakePitchRepo) ListPitchesByUserID(userID uint) ([]models.Pitch, error) {
	var pitches []models.Pitch
	for _, pitch := range r.pitches {
		if pitch.UserID == userID {
			pitches = append(pitches, *pitch)
		}
	}
	return pitches, nil
}

func (r *fakePitchRepo) UpdatePitch(pitch *models.Pitch) error {
	r.pitches[pitch.ID] = pitch
	return nil
}

func (r *fakePitchRepo) DeletePitch(id uint) error {
	delete(r.pitches, id)
	for key := range r.interactions {
		if key.pitchID == id {
			delete(r.interactions, key)
		}
	}
	return nil
}

func (r *fakePitchRepo) RecordView(pitchID, userID uint) (*models.PitchInteraction, error) {
	pitch, ok := r.pitches[pitchID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	key := pitchLedgerKey{pitchID, userID}
	now := time.Now()
	record, ok := r.interactions[key]
	if !ok {
		record = &models.PitchInteraction{PitchID: pitchID, UserID: userID}
		r.interactions[key] = record
	}
	if record.HasViewed == 0 {
		record.HasViewed = 1
		pitch.ViewsCount++
	}
	record.LastViewedAt = &now
	return record, nil
}

func (r *fakePitchRepo) ToggleLike(pitchID, userID uint) (bool, int64, error) {
	pitch, ok := r.pitches[pitchID]
	if !ok {
		return false, 0, gorm.ErrRecordNotFound
	}
	key := pitchLedgerKey{pitchID, userID}
	record, ok := r.interactions[key]
	if !ok {
		record = &models.PitchInteraction{PitchID: pitchID, UserID: userID}
		r.interactions[key] = record
	}
	if record.HasLiked == 0 {
		record.HasLiked = 1
		pitch.LikesCount++
	} else {
		record.HasLiked = 0
		pitch.LikesCount--
	}
	return record.HasLiked == 1, pitch.LikesCount, nil
}

func (r *fakePitchRepo) GetInteraction(pitchID, userID uint) (*models.PitchInteraction, error) {
	record, ok := r.interactions[pitchLedgerKey{pitchID, userID}]
	if !ok {
		return nil, nil
	}
	return record, nil
}
