package models

import "time"

// Pitch visibility values
const (
	PitchVisibilityPublic  = "public"
	PitchVisibilityPrivate = "private"
)

// Pitch is a Bloom marketplace idea stored in PostgreSQL.
// ViewsCount and LikesCount are denormalized counters kept consistent
// with the pitch_interactions rows; every delta is applied with an
// atomic UPDATE inside the same transaction as the ledger write.
type Pitch struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Content     string    `json:"content"`
	Category    string    `json:"category" gorm:"index"`
	FundingGoal int64     `json:"funding_goal"`
	FileCID     string    `json:"file_cid,omitempty"` // decentralized storage content id
	Visibility  string    `json:"visibility" gorm:"index;default:public"`
	ViewsCount  int64     `json:"views_count"`
	LikesCount  int64     `json:"likes_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreatePitchRequest defines the request body for creating a pitch
type CreatePitchRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=150"`
	Summary     string `json:"summary" validate:"required,min=1,max=300"`
	Content     string `json:"content" validate:"required,min=1"`
	Category    string `json:"category" validate:"required,min=1,max=50"`
	FundingGoal int64  `json:"funding_goal" validate:"omitempty,min=0"`
	Visibility  string `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
}

// UpdatePitchRequest defines the request body for updating a pitch
type UpdatePitchRequest struct {
	Title       string `json:"title,omitempty" validate:"omitempty,min=1,max=150"`
	Summary     string `json:"summary,omitempty" validate:"omitempty,min=1,max=300"`
	Content     string `json:"content,omitempty" validate:"omitempty,min=1"`
	Category    string `json:"category,omitempty" validate:"omitempty,min=1,max=50"`
	FundingGoal *int64 `json:"funding_goal,omitempty" validate:"omitempty,min=0"`
	Visibility  string `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
}

// RequestPitchAccessRequest defines the request body for requesting
// OTP access to a private pitch's file
type RequestPitchAccessRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyPitchAccessRequest defines the request body for redeeming an OTP
type VerifyPitchAccessRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}
