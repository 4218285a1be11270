package sysconfig

import (
	"strings"
	"time"

	"github.com/luchovc/agency-portal/internal"
)

// Well-known config keys. The store accepts arbitrary keys; these are the
// ones the portal reads back.
const (
	KeySiteTitle          = "site_title"
	KeyLogoPath           = "logo_path"
	KeyTimeHours          = "time_hours"
	KeyTimeMinutes        = "time_minutes"
	KeyCreditsPerInterval = "credits_per_interval"
	KeyCreditsPerMinute   = "credits_per_minute"
	KeyCalculationType    = "calculation_type"
)

// ConfigEntry is one flat key/value setting.
type ConfigEntry struct {
	Key       string    `json:"key" gorm:"primaryKey;column:key"`
	Value     string    `json:"value" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (ConfigEntry) TableName() string {
	return "system_config"
}

// BusinessHour is the weekly schedule row, one per weekday (0 = Sunday).
type BusinessHour struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Weekday   int       `json:"weekday" gorm:"uniqueIndex;not null"`
	OpenTime  string    `json:"open_time" gorm:"column:open_time;not null;default:'00:00'"`
	CloseTime string    `json:"close_time" gorm:"column:close_time;not null;default:'00:00'"`
	Closed    bool      `json:"closed" gorm:"not null;default:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (BusinessHour) TableName() string {
	return "business_hours"
}

// SpecialDay overrides the weekly schedule for a single calendar date.
type SpecialDay struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Date        string    `json:"date" gorm:"uniqueIndex;not null"`
	OpenTime    string    `json:"open_time" gorm:"column:open_time;not null;default:'00:00'"`
	CloseTime   string    `json:"close_time" gorm:"column:close_time;not null;default:'00:00'"`
	Closed      bool      `json:"closed" gorm:"not null;default:false"`
	Description string    `json:"description" gorm:"not null;default:''"`
	Color       string    `json:"color" gorm:"not null;default:''"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (SpecialDay) TableName() string {
	return "special_days"
}

type UpdateConfigDTO struct {
	Values map[string]string `json:"values"`
}

func (dto UpdateConfigDTO) Validate() error {
	if len(dto.Values) == 0 {
		return internal.NewValidationFieldError("values", "at least one setting is required", internal.ErrCodeValidationFailed)
	}
	for key := range dto.Values {
		if strings.TrimSpace(key) == "" {
			return internal.NewValidationFieldError("values", "setting keys cannot be empty", internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

type BusinessHourDTO struct {
	Weekday   int    `json:"weekday"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	Closed    bool   `json:"closed"`
}

func (dto BusinessHourDTO) Validate() error {
	if dto.Weekday < 0 || dto.Weekday > 6 {
		return internal.NewValidationFieldError("weekday", "weekday must be between 0 and 6", internal.ErrCodeValidationFailed)
	}
	if !dto.Closed {
		if !validClockTime(dto.OpenTime) || !validClockTime(dto.CloseTime) {
			return internal.NewValidationFieldError("open_time", "times must use HH:MM format", internal.ErrCodeValidationFailed)
		}
	}
	return nil
}

type SpecialDayDTO struct {
	Date        string `json:"date"`
	OpenTime    string `json:"open_time"`
	CloseTime   string `json:"close_time"`
	Closed      bool   `json:"closed"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (dto SpecialDayDTO) Validate() error {
	if _, err := time.Parse("2006-01-02", dto.Date); err != nil {
		return internal.NewValidationFieldError("date", "date must use YYYY-MM-DD format", internal.ErrCodeValidationFailed)
	}
	if !dto.Closed {
		if !validClockTime(dto.OpenTime) || !validClockTime(dto.CloseTime) {
			return internal.NewValidationFieldError("open_time", "times must use HH:MM format", internal.ErrCodeValidationFailed)
		}
	}
	if len(dto.Description) > 255 {
		return internal.NewValidationFieldError("description", "description must be at most 255 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

func validClockTime(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil
}
