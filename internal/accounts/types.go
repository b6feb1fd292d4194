package accounts

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultAvatar   = "default-avatar.png"
	DefaultTheme    = "light"
	DefaultLanguage = "zh-CN"

	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrConflict           = errors.New("user already exists")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrInvalidInput       = errors.New("invalid input")

	ErrEmailTaken    = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", ErrConflict)
)

// Settings are the per-user preferences.
type Settings struct {
	Theme         string `json:"theme"`
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
	AIModel       string `json:"aiModel"`
}

// User is the public view of an account. It never carries secrets.
type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Avatar     string     `json:"avatar"`
	IsVerified bool       `json:"isVerified"`
	Settings   Settings   `json:"settings"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CodeLoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	ResetToken string `json:"resetToken" validate:"required"`
	Password   string `json:"password" validate:"required,min=6"`
}

// SettingsUpdate carries optional preference changes.
type SettingsUpdate struct {
	Theme         *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	Language      *string `json:"language,omitempty" validate:"omitempty,oneof=zh-CN en-US"`
	Notifications *bool   `json:"notifications,omitempty"`
	AIModel       *string `json:"aiModel,omitempty"`
}

type UpdateProfileRequest struct {
	Username *string         `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	Avatar   *string         `json:"avatar,omitempty"`
	Settings *SettingsUpdate `json:"settings,omitempty"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type UpdateEmailRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}
