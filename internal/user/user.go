package user

import (
	"strings"
	"time"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
)

// User is a portal account. PasswordHash never serializes.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	HabboName    string    `json:"habbo_name" gorm:"column:habbo_name;uniqueIndex;not null"`
	Username     string    `json:"username" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Role         string    `json:"role" gorm:"not null"`
	ProfileImage *string   `json:"profile_image,omitempty" gorm:"column:profile_image"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}

// UserEntry is the admin listing row: account plus rank presentation fields.
type UserEntry struct {
	User            User    `json:"user"`
	RankDisplayName string  `json:"rank_display_name"`
	RankLevel       int     `json:"rank_level"`
	RankBadge       *string `json:"rank_badge,omitempty"`
}

type CreateUserDTO struct {
	HabboName string `json:"habbo_name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (dto CreateUserDTO) Validate() error {
	if strings.TrimSpace(dto.HabboName) == "" {
		return internal.NewValidationFieldError("habbo_name", "habbo name is required", internal.ErrCodeValidationFailed)
	}
	if len(dto.HabboName) > 32 {
		return internal.NewValidationFieldError("habbo_name", "habbo name must be at most 32 characters", internal.ErrCodeValidationFailed)
	}
	if err := auth.ValidatePasswordComplexity(dto.Password); err != nil {
		return err
	}
	if strings.TrimSpace(dto.Role) == "" {
		return internal.NewValidationFieldError("role", "role is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateUserDTO patches profile fields. Role changes go through the
// promotion path, not here.
type UpdateUserDTO struct {
	ProfileImage *string `json:"profile_image,omitempty"`
	Password     *string `json:"password,omitempty"`
}

func (dto UpdateUserDTO) Validate() error {
	if dto.Password != nil {
		if err := auth.ValidatePasswordComplexity(*dto.Password); err != nil {
			return err
		}
	}
	if dto.ProfileImage != nil && len(*dto.ProfileImage) > 255 {
		return internal.NewValidationFieldError("profile_image", "profile image path must be at most 255 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}
