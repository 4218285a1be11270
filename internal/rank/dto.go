package rank

import (
	"strings"

	"github.com/luchovc/agency-portal/internal"
)

type CreateRankDTO struct {
	Name               string   `json:"name"`
	DisplayName        string   `json:"display_name"`
	Level              int      `json:"level"`
	Permissions        []string `json:"permissions"`
	BadgeImage         *string  `json:"badge_image,omitempty"`
	CreditsTimeHours   int      `json:"credits_time_hours"`
	CreditsTimeMinutes int      `json:"credits_time_minutes"`
	CreditsPerInterval int64    `json:"credits_per_interval"`
	MaxSessionMinutes  *int     `json:"max_session_minutes,omitempty"`
	AutoComplete       bool     `json:"auto_complete"`
}

func (dto CreateRankDTO) Validate() error {
	if strings.TrimSpace(dto.Name) == "" {
		return internal.NewValidationFieldError("name", "rank name is required", internal.ErrCodeValidationFailed)
	}
	if strings.ContainsAny(dto.Name, " \t") {
		return internal.NewValidationFieldError("name", "rank name cannot contain whitespace", internal.ErrCodeValidationFailed)
	}
	if dto.Level < 0 {
		return internal.NewValidationFieldError("level", "level cannot be negative", internal.ErrCodeValidationFailed)
	}
	if dto.CreditsTimeHours < 0 || dto.CreditsTimeMinutes < 0 || dto.CreditsTimeMinutes > 59 {
		return internal.NewValidationFieldError("credits_time", "invalid credit interval", internal.ErrCodeValidationFailed)
	}
	if dto.CreditsPerInterval < 0 {
		return internal.NewValidationFieldError("credits_per_interval", "credits per interval cannot be negative", internal.ErrCodeValidationFailed)
	}
	if dto.MaxSessionMinutes != nil && *dto.MaxSessionMinutes < 1 {
		return internal.NewValidationFieldError("max_session_minutes", "max session duration must be at least 1 minute", internal.ErrCodeValidationFailed)
	}
	for _, tag := range dto.Permissions {
		if !IsKnownPermission(tag) {
			return internal.ErrInvalidPermission.WithDetails(map[string]string{"tag": tag})
		}
	}
	return nil
}

type UpdateRankDTO struct {
	DisplayName        *string   `json:"display_name,omitempty"`
	Level              *int      `json:"level,omitempty"`
	Permissions        *[]string `json:"permissions,omitempty"`
	BadgeImage         *string   `json:"badge_image,omitempty"`
	CreditsTimeHours   *int      `json:"credits_time_hours,omitempty"`
	CreditsTimeMinutes *int      `json:"credits_time_minutes,omitempty"`
	CreditsPerInterval *int64    `json:"credits_per_interval,omitempty"`
	MaxSessionMinutes  *int      `json:"max_session_minutes,omitempty"`
	AutoComplete       *bool     `json:"auto_complete,omitempty"`
}

func (dto UpdateRankDTO) Validate() error {
	if dto.Level != nil && *dto.Level < 0 {
		return internal.NewValidationFieldError("level", "level cannot be negative", internal.ErrCodeValidationFailed)
	}
	if dto.CreditsTimeMinutes != nil && (*dto.CreditsTimeMinutes < 0 || *dto.CreditsTimeMinutes > 59) {
		return internal.NewValidationFieldError("credits_time_minutes", "invalid credit interval", internal.ErrCodeValidationFailed)
	}
	if dto.CreditsTimeHours != nil && *dto.CreditsTimeHours < 0 {
		return internal.NewValidationFieldError("credits_time_hours", "invalid credit interval", internal.ErrCodeValidationFailed)
	}
	if dto.CreditsPerInterval != nil && *dto.CreditsPerInterval < 0 {
		return internal.NewValidationFieldError("credits_per_interval", "credits per interval cannot be negative", internal.ErrCodeValidationFailed)
	}
	if dto.Permissions != nil {
		for _, tag := range *dto.Permissions {
			if !IsKnownPermission(tag) {
				return internal.ErrInvalidPermission.WithDetails(map[string]string{"tag": tag})
			}
		}
	}
	return nil
}

type ChangeRoleDTO struct {
	UserID  int64  `json:"user_id"`
	NewRole string `json:"new_role"`
	Reason  string `json:"reason,omitempty"`
}

func (dto ChangeRoleDTO) Validate() error {
	if dto.UserID <= 0 {
		return internal.NewValidationFieldError("user_id", "user id is required", internal.ErrCodeValidationFailed)
	}
	if strings.TrimSpace(dto.NewRole) == "" {
		return internal.NewValidationFieldError("new_role", "new role is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
