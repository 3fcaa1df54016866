package repositories

import (
	"errors"
	"time"

	"github.com/opaq-social/backend/internal/models"
	"gorm.io/gorm"
)

// PitchRepository defines the interface for pitch data operations
type PitchRepository interface {
	CreatePitch(pitch *models.Pitch) error
	GetPitchByID(id uint) (*models.Pitch, error)
	ListPublicPitches(category string, offset, limit int) ([]models.Pitch, int64, error)
	ListPitchesByUserID(userID uint) ([]models.Pitch, error)
	UpdatePitch(pitch *models.Pitch) error
	DeletePitch(id uint) error
	RecordView(pitchID, userID uint) (*models.PitchInteraction, error)
	ToggleLike(pitchID, userID uint) (bool, int64, error)
	GetInteraction(pitchID, userID uint) (*models.PitchInteraction, error)
}

// PostgresPitchRepository implements PitchRepository for PostgreSQL
type PostgresPitchRepository struct {
	db *gorm.DB
}

// NewPostgresPitchRepository creates a new PostgresPitchRepository
func NewPostgresPitchRepository(db *gorm.DB) *PostgresPitchRepository {
	return &PostgresPitchRepository{db: db}
}

// CreatePitch creates a new pitch
func (r *PostgresPitchRepository) CreatePitch(pitch *models.Pitch) error {
	return r.db.Create(pitch).Error
}

// GetPitchByID retrieves a pitch by ID
func (r *PostgresPitchRepository) GetPitchByID(id uint) (*models.Pitch, error) {
	var pitch models.Pitch
	if err := r.db.First(&pitch, id).Error; err != nil {
		return nil, err
	}
	return &pitch, nil
}

// ListPublicPitches retrieves public pitches, newest first, with an
// optional category filter and a total count over the same filter
func (r *PostgresPitchRepository) ListPublicPitches(category string, offset, limit int) ([]models.Pitch, int64, error) {
	query := r.db.Model(&models.Pitch{}).Where("visibility = ?", models.PitchVisibilityPublic)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var pitches []models.Pitch
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&pitches).Error; err != nil {
		return nil, 0, err
	}
	return pitches, total, nil
}

// ListPitchesByUserID retrieves all pitches owned by a user
func (r *PostgresPitchRepository) ListPitchesByUserID(userID uint) ([]models.Pitch, error) {
	var pitches []models.Pitch
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&pitches).Error; err != nil {
		return nil, err
	}
	return pitches, nil
}

// UpdatePitch updates an existing pitch
func (r *PostgresPitchRepository) UpdatePitch(pitch *models.Pitch) error {
	return r.db.Save(pitch).Error
}

// DeletePitch deletes a pitch and its interaction rows
func (r *PostgresPitchRepository) DeletePitch(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pitch_id = ?", id).Delete(&models.PitchInteraction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Pitch{}, id).Error
	})
}

// RecordView records a view for a (pitch, user) pair. Pitch views count
// once per user: the first view creates the ledger row and increments
// views_count, a repeat view only refreshes last_viewed_at. Ledger write
// and counter increment commit or roll back together.
func (r *PostgresPitchRepository) RecordView(pitchID, userID uint) (*models.PitchInteraction, error) {
	var record models.PitchInteraction
	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Where("pitch_id = ? AND user_id = ?", pitchID, userID).First(&record).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = models.PitchInteraction{
				PitchID:      pitchID,
				UserID:       userID,
				HasViewed:    1,
				LastViewedAt: &now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case record.HasViewed == 0:
			record.HasViewed = 1
			record.LastViewedAt = &now
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		default:
			// already viewed: refresh the timestamp, no counter change
			record.LastViewedAt = &now
			return tx.Save(&record).Error
		}

		return tx.Model(&models.Pitch{}).Where("id = ?", pitchID).
			UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ToggleLike flips the has_liked flag and applies the matching ±1 to
// likes_count in the same transaction. Returns the new like state and
// the fresh counter.
func (r *PostgresPitchRepository) ToggleLike(pitchID, userID uint) (bool, int64, error) {
	var liked bool
	var likesCount int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var record models.PitchInteraction
		err := tx.Where("pitch_id = ? AND user_id = ?", pitchID, userID).First(&record).Error

		var delta int
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = models.PitchInteraction{PitchID: pitchID, UserID: userID, HasLiked: 1}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			delta = 1
		case err != nil:
			return err
		case record.HasLiked == 0:
			record.HasLiked = 1
			delta = 1
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		default:
			record.HasLiked = 0
			delta = -1
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		}
		liked = record.HasLiked == 1

		if err := tx.Model(&models.Pitch{}).Where("id = ?", pitchID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta)).Error; err != nil {
			return err
		}

		return tx.Model(&models.Pitch{}).Select("likes_count").
			Where("id = ?", pitchID).Scan(&likesCount).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likesCount, nil
}

// GetInteraction retrieves a user's interaction row for a pitch.
// Returns (nil, nil) when no row exists.
func (r *PostgresPitchRepository) GetInteraction(pitchID, userID uint) (*models.PitchInteraction, error) {
	var record models.PitchInteraction
	err := r.db.Where("pitch_id = ? AND user_id = ?", pitchID, userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
