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

// DiscussionRepository defines the interface for discussion data operations
type DiscussionRepository interface {
	Create(ctx context.Context, discussion *models.Discussion) error
	GetByID(ctx context.Context, id string) (*models.Discussion, error)
	List(ctx context.Context, postID string, parentID *string, sort string, page, limit int64) ([]models.Discussion, int64, error)
	UpdateContent(ctx context.Context, id, content string) (*models.Discussion, error)
	SetPinned(ctx context.Context, id string, value bool) (*models.Discussion, error)
	ToggleHearted(ctx context.Context, id string) (*models.Discussion, error)
	IncrementLikes(ctx context.Context, id string, delta int64) (*models.Discussion, error)
	IncrementRepliesCount(ctx context.Context, id string, delta int64) error
	ReplyIDs(ctx context.Context, id string) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	CountByPostID(ctx context.Context, postID string) (int64, error)
	ListIDsByPostID(ctx context.Context, postID string) ([]string, error)
}

// MongoDiscussionRepository implements DiscussionRepository for MongoDB
type MongoDiscussionRepository struct {
	collection *mongo.Collection
}

// NewMongoDiscussionRepository creates a new MongoDiscussionRepository
func NewMongoDiscussionRepository(db *mongo.Database) *MongoDiscussionRepository {
	return &MongoDiscussionRepository{collection: db.Collection("discussions")}
}

// EnsureIndexes creates the lookup indexes for listing and cascades
func (r *MongoDiscussionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
	})
	return err
}

// Create inserts a new discussion with zeroed counters and flags
func (r *MongoDiscussionRepository) Create(ctx context.Context, discussion *models.Discussion) error {
	discussion.ID = primitive.NewObjectID()
	discussion.Likes = 0
	discussion.RepliesCount = 0
	discussion.IsEdited = false
	discussion.IsPinned = false
	discussion.IsHearted = false
	discussion.CreatedAt = time.Now()
	discussion.UpdatedAt = discussion.CreatedAt
	_, err := r.collection.InsertOne(ctx, discussion)
	return err
}

// GetByID retrieves a discussion by ID
func (r *MongoDiscussionRepository) GetByID(ctx context.Context, id string) (*models.Discussion, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid discussion ID format: %w", err)
	}

	var discussion models.Discussion
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&discussion)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &discussion, nil
}

// sortSpec maps a sort order name to a Mongo sort document. Pinned-first
// only matters for the default order: replies cannot be pinned, so the
// flag is uniformly false below the top level.
func sortSpec(sort string) bson.D {
	switch sort {
	case models.SortOldest:
		return bson.D{{Key: "created_at", Value: 1}}
	case models.SortTop:
		return bson.D{{Key: "likes", Value: -1}, {Key: "created_at", Value: -1}}
	case models.SortReplies:
		return bson.D{{Key: "replies_count", Value: -1}, {Key: "created_at", Value: -1}}
	default: // models.SortNewest
		return bson.D{{Key: "is_pinned", Value: -1}, {Key: "created_at", Value: -1}}
	}
}

// List retrieves one page of discussions for a post. A nil parentID
// selects top-level discussions; a concrete value selects that
// discussion's replies. The total is counted over the same filter.
func (r *MongoDiscussionRepository) List(ctx context.Context, postID string, parentID *string, sort string, page, limit int64) ([]models.Discussion, int64, error) {
	filter := bson.M{"post_id": postID}
	if parentID == nil {
		filter["parent_id"] = nil
	} else {
		objID, err := primitive.ObjectIDFromHex(*parentID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid discussion ID format: %w", err)
		}
		filter["parent_id"] = objID
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(sortSpec(sort)).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var discussions []models.Discussion
	if err := cursor.All(ctx, &discussions); err != nil {
		return nil, 0, err
	}
	return discussions, total, nil
}

// findOneAndApply runs a FindOneAndUpdate returning the post-image
func (r *MongoDiscussionRepository) findOneAndApply(ctx context.Context, id string, update interface{}) (*models.Discussion, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid discussion ID format: %w", err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var discussion models.Discussion
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&discussion)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &discussion, nil
}

// UpdateContent replaces the content and marks the discussion edited
func (r *MongoDiscussionRepository) UpdateContent(ctx context.Context, id, content string) (*models.Discussion, error) {
	return r.findOneAndApply(ctx, id, bson.M{
		"$set": bson.M{"content": content, "is_edited": true, "updated_at": time.Now()},
	})
}

// SetPinned sets the pin flag to value
func (r *MongoDiscussionRepository) SetPinned(ctx context.Context, id string, value bool) (*models.Discussion, error) {
	return r.findOneAndApply(ctx, id, bson.M{
		"$set": bson.M{"is_pinned": value, "updated_at": time.Now()},
	})
}

// ToggleHearted flips the heart flag in a single atomic update
func (r *MongoDiscussionRepository) ToggleHearted(ctx context.Context, id string) (*models.Discussion, error) {
	return r.findOneAndApply(ctx, id, bson.A{bson.M{
		"$set": bson.M{"is_hearted": bson.M{"$not": "$is_hearted"}, "updated_at": time.Now()},
	}})
}

// IncrementLikes applies an atomic delta to the denormalized like counter
func (r *MongoDiscussionRepository) IncrementLikes(ctx context.Context, id string, delta int64) (*models.Discussion, error) {
	return r.findOneAndApply(ctx, id, bson.M{"$inc": bson.M{"likes": delta}})
}

// IncrementRepliesCount applies an atomic delta to the reply counter
func (r *MongoDiscussionRepository) IncrementRepliesCount(ctx context.Context, id string, delta int64) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid discussion ID format: %w", err)
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{"replies_count": delta}})
	return err
}

// ReplyIDs returns the ids of all direct replies of a discussion.
// Cascade deletes compute the id union before any row is removed so the
// ledger cleanup covers every affected discussion.
func (r *MongoDiscussionRepository) ReplyIDs(ctx context.Context, id string) ([]string, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid discussion ID format: %w", err)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"parent_id": objID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

// DeleteByIDs removes all discussions whose id is in ids
func (r *MongoDiscussionRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	objIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByPostID counts every discussion (top-level and replies) on a post
func (r *MongoDiscussionRepository) CountByPostID(ctx context.Context, postID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"post_id": postID})
}

// ListIDsByPostID returns the ids of every discussion on a post; used
// for the ledger cleanup when the post itself is deleted
func (r *MongoDiscussionRepository) ListIDsByPostID(ctx context.Context, postID string) ([]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"post_id": postID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

// toObjectIDs converts hex ids, rejecting the whole batch on a bad id
func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("invalid discussion ID format: %w", err)
		}
		objIDs = append(objIDs, objID)
	}
	return objIDs, nil
}
