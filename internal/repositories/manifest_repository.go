package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/opaq-social/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ManifestRepository defines the interface for manifest session storage
type ManifestRepository interface {
	CreateSession(ctx context.Context, session *models.ManifestSession) error
	GetSessionByID(ctx context.Context, id string) (*models.ManifestSession, error)
	ListSessionsByUserID(ctx context.Context, userID uint) ([]models.ManifestSession, error)
	AppendTurn(ctx context.Context, id string, turn models.ManifestTurn) (*models.ManifestSession, error)
}

// MongoManifestRepository implements ManifestRepository for MongoDB
type MongoManifestRepository struct {
	collection *mongo.Collection
}

// NewMongoManifestRepository creates a new MongoManifestRepository
func NewMongoManifestRepository(db *mongo.Database) *MongoManifestRepository {
	return &MongoManifestRepository{collection: db.Collection("manifest_sessions")}
}

// CreateSession inserts a new manifest session
func (r *MongoManifestRepository) CreateSession(ctx context.Context, session *models.ManifestSession) error {
	session.ID = primitive.NewObjectID()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

// GetSessionByID retrieves a session by ID
func (r *MongoManifestRepository) GetSessionByID(ctx context.Context, id string) (*models.ManifestSession, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID format: %w", err)
	}

	var session models.ManifestSession
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListSessionsByUserID retrieves a user's sessions, newest first
func (r *MongoManifestRepository) ListSessionsByUserID(ctx context.Context, userID uint) ([]models.ManifestSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []models.ManifestSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// AppendTurn pushes a turn onto a session and returns the updated session
func (r *MongoManifestRepository) AppendTurn(ctx context.Context, id string, turn models.ManifestTurn) (*models.ManifestSession, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID format: %w", err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var session models.ManifestSession
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{
		"$push": bson.M{"turns": turn},
		"$set":  bson.M{"updated_at": time.Now()},
	}, opts).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}
