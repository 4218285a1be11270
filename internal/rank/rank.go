package rank

import (
	"encoding/json"
	"time"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/credits"
)

// Capability tags gating admin features. Permission sets are validated
// against this registry at write time; free-form tags are rejected.
const (
	PermManageUsers      = "manage_users"
	PermManageRanks      = "manage_ranks"
	PermManagePayments   = "manage_payments"
	PermManagePromotions = "manage_promotions"
	PermManageConfig     = "manage_config"
	PermManageSessions   = "manage_sessions"
	PermViewDashboard    = "view_dashboard"
	PermTrackTime        = "track_time"
)

var knownPermissions = map[string]bool{
	PermManageUsers:      true,
	PermManageRanks:      true,
	PermManagePayments:   true,
	PermManagePromotions: true,
	PermManageConfig:     true,
	PermManageSessions:   true,
	PermViewDashboard:    true,
	PermTrackTime:        true,
}

func IsKnownPermission(tag string) bool {
	return knownPermissions[tag]
}

func KnownPermissions() []string {
	tags := make([]string, 0, len(knownPermissions))
	for tag := range knownPermissions {
		tags = append(tags, tag)
	}
	return tags
}

// Rank is a named authorization tier with a numeric hierarchy level, a
// permission set and an optional per-rank credit rate that overrides the
// global one.
type Rank struct {
	ID                 int64      `json:"id" gorm:"primaryKey"`
	Name               string     `json:"name" gorm:"uniqueIndex;not null"`
	DisplayName        string     `json:"display_name" gorm:"column:display_name"`
	Level              int        `json:"level" gorm:"not null;default:0"`
	Permissions        string     `json:"-" gorm:"type:text;default:'[]'"`
	BadgeImage         *string    `json:"badge_image,omitempty" gorm:"column:badge_image"`
	CreditsTimeHours   int        `json:"credits_time_hours" gorm:"column:credits_time_hours;default:0"`
	CreditsTimeMinutes int        `json:"credits_time_minutes" gorm:"column:credits_time_minutes;default:0"`
	CreditsPerInterval int64      `json:"credits_per_interval" gorm:"column:credits_per_interval;default:0"`
	MaxSessionMinutes  *int       `json:"max_session_minutes,omitempty" gorm:"column:max_session_minutes"`
	AutoComplete       bool       `json:"auto_complete" gorm:"column:auto_complete;default:false"`
	CreatedAt          time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
	PermissionTags     []string   `json:"permissions" gorm:"-"`
	DeletedAt          *time.Time `json:"-" gorm:"-"`
}

func (Rank) TableName() string {
	return "ranks"
}

// DecodePermissions fills PermissionTags from the stored JSON set.
func (r *Rank) DecodePermissions() {
	var tags []string
	if err := json.Unmarshal([]byte(r.Permissions), &tags); err != nil || tags == nil {
		tags = []string{}
	}
	r.PermissionTags = tags
}

// EncodePermissions validates the tags and stores them as the JSON set.
func (r *Rank) EncodePermissions(tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	for _, tag := range tags {
		if !IsKnownPermission(tag) {
			return internal.ErrInvalidPermission.WithDetails(map[string]string{"tag": tag})
		}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	r.Permissions = string(raw)
	r.PermissionTags = tags
	return nil
}

// HasCreditOverride reports whether this rank configures its own interval
// rate.
func (r *Rank) HasCreditOverride() bool {
	return r.CreditsPerInterval > 0 && (r.CreditsTimeHours > 0 || r.CreditsTimeMinutes > 0)
}

// CreditRate returns the rank override when present, the global rate
// otherwise.
func (r *Rank) CreditRate(global credits.Rate) credits.Rate {
	if r.HasCreditOverride() {
		return credits.IntervalRate(r.CreditsTimeHours, r.CreditsTimeMinutes, r.CreditsPerInterval)
	}
	return global
}

// PromotionLog is an immutable audit row per role change.
type PromotionLog struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null"`
	ActorID   int64     `json:"actor_id" gorm:"column:actor_id;not null"`
	OldRole   string    `json:"old_role" gorm:"column:old_role;not null"`
	NewRole   string    `json:"new_role" gorm:"column:new_role;not null"`
	Reason    string    `json:"reason" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (PromotionLog) TableName() string {
	return "promotion_logs"
}
