package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User is an OPAQ account stored in PostgreSQL
type User struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	Username    string `json:"username" gorm:"uniqueIndex"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Password    string `json:"-"` // bcrypt hash, never serialized
}

// PublicUser is the subset of User attached to discussions and posts
type PublicUser struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Public returns the user's public identity
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// SignupRequest defines the request body for registering a new account
type SignupRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=30,alphanum"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

// SigninRequest defines the request body for signing in
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest defines the request body for updating the caller's profile
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,min=1,max=50"`
	Bio         string `json:"bio,omitempty" validate:"omitempty,max=500"`
	AvatarURL   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
