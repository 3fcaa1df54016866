package repositories

import (
	"context"
	"time"

	"github.com/opaq-social/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DiscussionInteractionRepository defines the interface for the
// per-(user, discussion) like ledger
type DiscussionInteractionRepository interface {
	SetLiked(ctx context.Context, userID uint, discussionID string, value bool) (int64, error)
	LikedSet(ctx context.Context, userID uint, discussionIDs []string) (map[string]bool, error)
	DeleteByDiscussionIDs(ctx context.Context, ids []string) error
}

// MongoDiscussionInteractionRepository implements
// DiscussionInteractionRepository for MongoDB
type MongoDiscussionInteractionRepository struct {
	collection *mongo.Collection
}

// NewMongoDiscussionInteractionRepository creates a new MongoDiscussionInteractionRepository
func NewMongoDiscussionInteractionRepository(db *mongo.Database) *MongoDiscussionInteractionRepository {
	return &MongoDiscussionInteractionRepository{collection: db.Collection("discussion_interactions")}
}

// EnsureIndexes creates the unique (user_id, discussion_id) index
func (r *MongoDiscussionInteractionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "discussion_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "discussion_id", Value: 1}}},
	})
	return err
}

// likeDelta is the counter delta for an idempotent set from old to new:
// zero when nothing changed, otherwise ±1. Guards the denormalized
// counter against double-increment when a caller resubmits the same value.
func likeDelta(old, target bool) int64 {
	switch {
	case old == target:
		return 0
	case target:
		return 1
	default:
		return -1
	}
}

// SetLiked idempotently sets the liked flag and returns the delta to
// apply to the discussion's denormalized like counter. The upsert
// returns the pre-image, so the delta is computed against an atomically
// observed prior state: of two racing submissions with the same value,
// only one can observe a transition.
func (r *MongoDiscussionInteractionRepository) SetLiked(ctx context.Context, userID uint, discussionID string, value bool) (int64, error) {
	now := time.Now()
	set := bson.M{"liked": value, "updated_at": now}
	if value {
		set["liked_at"] = now
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)
	var before models.DiscussionInteraction
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "discussion_id": discussionID},
		update,
		opts,
	).Decode(&before)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// no prior row: the upsert inserted one
			return likeDelta(false, value), nil
		}
		return 0, err
	}
	return likeDelta(before.Liked, value), nil
}

// LikedSet returns which of the given discussions the user has liked,
// in one batched query. Used to enrich a listing page without N+1 lookups.
func (r *MongoDiscussionInteractionRepository) LikedSet(ctx context.Context, userID uint, discussionIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(discussionIDs))
	if len(discussionIDs) == 0 {
		return liked, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"user_id":       userID,
		"discussion_id": bson.M{"$in": discussionIDs},
		"liked":         true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.DiscussionInteraction
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		liked[record.DiscussionID] = true
	}
	return liked, nil
}

// DeleteByDiscussionIDs removes every ledger row referencing the given
// discussions; part of the cascade when discussions are deleted
func (r *MongoDiscussionInteractionRepository) DeleteByDiscussionIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"discussion_id": bson.M{"$in": ids}})
	return err
}
