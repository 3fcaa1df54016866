package models

import "time"

// PitchInteraction is the combined view/like ledger row for a pitch,
// unique per (pitch, user). HasViewed and HasLiked are 0/1 flags:
// pitch views count once per user, unlike the cumulative post ledger.
type PitchInteraction struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	PitchID      uint       `json:"pitch_id" gorm:"index;uniqueIndex:idx_pitch_user_interaction"`
	UserID       uint       `json:"user_id" gorm:"index;uniqueIndex:idx_pitch_user_interaction"`
	HasViewed    int        `json:"has_viewed"`
	HasLiked     int        `json:"has_liked"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
