package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ManifestSource is a web reference gathered while opening a session
type ManifestSource struct {
	Title string `json:"title" bson:"title"`
	URL   string `json:"url" bson:"url"`
}

// ManifestTurn is one prompt/response exchange within a session
type ManifestTurn struct {
	Prompt    string    `json:"prompt" bson:"prompt"`
	Response  string    `json:"response" bson:"response"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ManifestSession is an AI-assisted idea-exploration session stored in MongoDB
type ManifestSession struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Topic     string             `json:"topic" bson:"topic"`
	Turns     []ManifestTurn     `json:"turns" bson:"turns"`
	Sources   []ManifestSource   `json:"sources,omitempty" bson:"sources,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreateManifestSessionRequest defines the request body for opening a session
type CreateManifestSessionRequest struct {
	Topic string `json:"topic" validate:"required,min=3,max=200"`
}

// AddManifestTurnRequest defines the request body for continuing a session
type AddManifestTurnRequest struct {
	Prompt string `json:"prompt" validate:"required,min=1,max=2000"`
}
