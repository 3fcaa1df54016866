package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DiscussionInteraction is the per-(user, discussion) ledger row stored
// in MongoDB, unique per pair. It mirrors PostInteraction but carries a
// single boolean action.
type DiscussionInteraction struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       uint               `json:"user_id" bson:"user_id"`
	DiscussionID string             `json:"discussion_id" bson:"discussion_id"`
	Liked        bool               `json:"liked" bson:"liked"`
	LikedAt      *time.Time         `json:"liked_at,omitempty" bson:"liked_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
