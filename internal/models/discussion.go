package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Discussion sort orders accepted by the list endpoint
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortTop     = "top"
	SortReplies = "replies"
)

// Discussion is a threaded comment on a post, stored in MongoDB.
// ParentID is nil for a top-level discussion and must reference a
// top-level discussion for a reply; nesting is exactly one level deep.
// Likes and RepliesCount are denormalized counters kept consistent with
// the discussion-interaction ledger and the reply rows via atomic $inc.
type Discussion struct {
	ID           primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	PostID       string              `json:"post_id" bson:"post_id"`
	UserID       uint                `json:"user_id" bson:"user_id"`
	Content      string              `json:"content" bson:"content"`
	ParentID     *primitive.ObjectID `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Likes        int64               `json:"likes" bson:"likes"`
	RepliesCount int64               `json:"replies_count" bson:"replies_count"`
	IsEdited     bool                `json:"is_edited" bson:"is_edited"`
	IsPinned     bool                `json:"is_pinned" bson:"is_pinned"`
	IsHearted    bool                `json:"is_hearted" bson:"is_hearted"`
	CreatedAt    time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" bson:"updated_at"`
}

// IsReply reports whether the discussion is a reply to another discussion
func (d *Discussion) IsReply() bool {
	return d.ParentID != nil
}

// DiscussionWithAuthor is a discussion enriched with the author's public
// identity and, for authenticated callers, their own like state
type DiscussionWithAuthor struct {
	Discussion
	Author      *PublicUser `json:"author,omitempty"`
	LikedByUser bool        `json:"liked_by_user"`
}

// Pagination describes a page of a list response
type Pagination struct {
	Page       int64 `json:"page"`
	Limit      int64 `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// CreateDiscussionRequest defines the request body for creating a discussion
type CreateDiscussionRequest struct {
	Content  string `json:"content" validate:"required,max=2000"`
	ParentID string `json:"parent_id,omitempty"`
}

// UpdateDiscussionRequest defines the request body for editing a discussion
type UpdateDiscussionRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// PinDiscussionRequest defines the request body for pinning a discussion
type PinDiscussionRequest struct {
	Value *bool `json:"value" validate:"required"`
}

// LikeDiscussionRequest defines the request body for liking a discussion.
// Value is the target state (idempotent set, not a toggle).
type LikeDiscussionRequest struct {
	Value *bool `json:"value" validate:"required"`
}
