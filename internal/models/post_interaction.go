package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interaction actions accepted by the post ledger
const (
	ActionLike = "like"
	ActionSave = "save"
	ActionView = "view"
)

// PostInteraction is the per-(user, post) ledger row stored in MongoDB.
// At most one row exists per pair, enforced by a unique compound index.
// Rows are created lazily on first interaction and mutated in place.
type PostInteraction struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	PostID    string             `json:"post_id" bson:"post_id"`
	Liked     bool               `json:"liked" bson:"liked"`
	Saved     bool               `json:"saved" bson:"saved"`
	Viewed    bool               `json:"viewed" bson:"viewed"`
	ViewCount int64              `json:"view_count" bson:"view_count"` // cumulative, a user may re-view
	LikedAt   *time.Time         `json:"liked_at,omitempty" bson:"liked_at,omitempty"`
	SavedAt   *time.Time         `json:"saved_at,omitempty" bson:"saved_at,omitempty"`
	ViewedAt  *time.Time         `json:"viewed_at,omitempty" bson:"viewed_at,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// SubmitInteractionRequest defines the request body for submitting a post interaction.
// Value is the caller-supplied target state for like/save (idempotent set,
// not a toggle); it is ignored for view, which always counts.
type SubmitInteractionRequest struct {
	Action string `json:"action" validate:"required,oneof=like save view"`
	Value  *bool  `json:"value,omitempty"`
}
