package repositories

import (
	"testing"

	"github.com/opaq-social/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSortSpec(t *testing.T) {
	tests := []struct {
		sort string
		want bson.D
	}{
		{models.SortNewest, bson.D{{Key: "is_pinned", Value: -1}, {Key: "created_at", Value: -1}}},
		{models.SortOldest, bson.D{{Key: "created_at", Value: 1}}},
		{models.SortTop, bson.D{{Key: "likes", Value: -1}, {Key: "created_at", Value: -1}}},
		{models.SortReplies, bson.D{{Key: "replies_count", Value: -1}, {Key: "created_at", Value: -1}}},
		{"", bson.D{{Key: "is_pinned", Value: -1}, {Key: "created_at", Value: -1}}},
		{"garbage", bson.D{{Key: "is_pinned", Value: -1}, {Key: "created_at", Value: -1}}},
	}
	for _, tt := range tests {
		t.Run("sort="+tt.sort, func(t *testing.T) {
			assert.Equal(t, tt.want, sortSpec(tt.sort))
		})
	}
}
