package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is an Artwall entry stored in MongoDB.
//
// Posts carry no denormalized counters; every stat surfaced for a post
// is computed by aggregating the interaction ledger and the discussion
// collection at read time.
type Post struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content" bson:"content"`
	CoverURL  string             `json:"cover_url,omitempty" bson:"cover_url,omitempty"`
	Tags      []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// PostStats is the point-in-time aggregate for a post
type PostStats struct {
	Likes    int64 `json:"likes"`
	Saves    int64 `json:"saves"`
	Views    int64 `json:"views"`
	Comments int64 `json:"comments"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title    string   `json:"title" validate:"required,min=1,max=150"`
	Content  string   `json:"content" validate:"required,min=1"`
	CoverURL string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	Tags     []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=30"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Title    string   `json:"title,omitempty" validate:"omitempty,min=1,max=150"`
	Content  string   `json:"content,omitempty" validate:"omitempty,min=1"`
	CoverURL string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	Tags     []string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=30"`
}
