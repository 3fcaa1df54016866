package repositories

import (
	"context"
	"time"

	"github.com/opaq-social/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostInteractionRepository defines the interface for the post
// interaction ledger. Every write is a single atomic upsert keyed by
// (user_id, post_id); stats are always recomputed from the ledger,
// never cached on the post.
type PostInteractionRepository interface {
	ApplyFlag(ctx context.Context, userID uint, postID, action string, value bool) (*models.PostInteraction, error)
	ApplyView(ctx context.Context, userID uint, postID string) (*models.PostInteraction, error)
	GetByUserAndPost(ctx context.Context, userID uint, postID string) (*models.PostInteraction, error)
	AggregateStats(ctx context.Context, postID string) (*models.PostStats, error)
	DeleteByPostID(ctx context.Context, postID string) error
}

// MongoPostInteractionRepository implements PostInteractionRepository for MongoDB
type MongoPostInteractionRepository struct {
	collection *mongo.Collection
}

// NewMongoPostInteractionRepository creates a new MongoPostInteractionRepository
func NewMongoPostInteractionRepository(db *mongo.Database) *MongoPostInteractionRepository {
	return &MongoPostInteractionRepository{collection: db.Collection("post_interactions")}
}

// EnsureIndexes creates the unique (user_id, post_id) index that
// guarantees at most one ledger row per pair under concurrent upserts
func (r *MongoPostInteractionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// ledgerDefaults normalizes every field of the ledger row so an
// upserted document always carries the full fixed field set
func ledgerDefaults(now time.Time) bson.M {
	return bson.M{
		"liked":      bson.M{"$ifNull": bson.A{"$liked", false}},
		"saved":      bson.M{"$ifNull": bson.A{"$saved", false}},
		"viewed":     bson.M{"$ifNull": bson.A{"$viewed", false}},
		"view_count": bson.M{"$ifNull": bson.A{"$view_count", 0}},
		"created_at": bson.M{"$ifNull": bson.A{"$created_at", now}},
		"updated_at": now,
	}
}

// ApplyFlag idempotently sets the liked/saved flag to value. The write
// is a pipeline upsert so the liked_at/saved_at stamp only moves on a
// false-to-true transition; resubmitting the same value is a no-op
// apart from updated_at.
func (r *MongoPostInteractionRepository) ApplyFlag(ctx context.Context, userID uint, postID, action string, value bool) (*models.PostInteraction, error) {
	var field, tsField string
	switch action {
	case models.ActionLike:
		field, tsField = "liked", "liked_at"
	case models.ActionSave:
		field, tsField = "saved", "saved_at"
	default:
		return nil, ErrUnknownAction
	}

	now := time.Now()
	set := ledgerDefaults(now)
	set[field] = value
	if value {
		set[tsField] = bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$" + field, true}},
			"$" + tsField,
			now,
		}}
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var record models.PostInteraction
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "post_id": postID},
		bson.A{bson.M{"$set": set}},
		opts,
	).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ApplyView increments the cumulative view counter. Every call counts;
// views are not deduplicated at this layer.
func (r *MongoPostInteractionRepository) ApplyView(ctx context.Context, userID uint, postID string) (*models.PostInteraction, error) {
	now := time.Now()
	set := ledgerDefaults(now)
	set["viewed"] = true
	set["viewed_at"] = now
	set["view_count"] = bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$view_count", 0}}, 1}}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var record models.PostInteraction
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "post_id": postID},
		bson.A{bson.M{"$set": set}},
		opts,
	).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByUserAndPost retrieves a user's ledger row for a post.
// Returns (nil, nil) when no row exists; callers substitute a zero record.
func (r *MongoPostInteractionRepository) GetByUserAndPost(ctx context.Context, userID uint, postID string) (*models.PostInteraction, error) {
	var record models.PostInteraction
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID, "post_id": postID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// AggregateStats reduces all ledger rows for a post into the aggregate
// stats: likes = count(liked), saves = count(saved), views = sum(view_count).
// The comment count is filled in by the caller from the discussion collection.
func (r *MongoPostInteractionRepository) AggregateStats(ctx context.Context, postID string) (*models.PostStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"post_id": postID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"likes": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$liked", true}}, 1, 0}}},
			"saves": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$saved", true}}, 1, 0}}},
			"views": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$view_count", 0}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []models.PostStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.PostStats{}, nil
	}
	return &results[0], nil
}

// DeleteByPostID removes every ledger row for a post; used when the post is deleted
func (r *MongoPostInteractionRepository) DeleteByPostID(ctx context.Context, postID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"post_id": postID})
	return err
}
