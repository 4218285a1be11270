package timesession

import (
	"strings"
	"time"

	"github.com/luchovc/agency-portal/internal"
)

// Session status constants
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// TimeSession is one user's trackable unit of work time. TotalTime holds the
// seconds banked before the current run began; while active the live total is
// TotalTime + (now - StartTime). All arithmetic is UTC epoch seconds so the
// server and polling clients compute identical values.
type TimeSession struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	UserID      int64      `json:"user_id" gorm:"column:user_id;not null"`
	StartTime   time.Time  `json:"start_time" gorm:"column:start_time;not null"`
	Status      string     `json:"status" gorm:"not null;default:active"`
	TotalTime   int64      `json:"total_time" gorm:"column:total_time;not null;default:0"`
	EndTime     *time.Time `json:"end_time,omitempty" gorm:"column:end_time"`
	PauseTime   *time.Time `json:"pause_time,omitempty" gorm:"column:pause_time"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (TimeSession) TableName() string {
	return "time_sessions"
}

func (s *TimeSession) IsOpen() bool {
	return s.Status == StatusActive || s.Status == StatusPaused
}

// ElapsedAt returns the banked seconds as of now: live for active sessions,
// frozen for paused and completed ones.
func (s *TimeSession) ElapsedAt(now time.Time) int64 {
	if s.Status != StatusActive {
		return s.TotalTime
	}
	delta := now.UTC().Unix() - s.StartTime.UTC().Unix()
	if delta < 0 {
		delta = 0
	}
	return s.TotalTime + delta
}

// OpenSessionEntry is the admin dashboard row: an open session joined with
// the owner's identity and role.
type OpenSessionEntry struct {
	Session   TimeSession `json:"session"`
	HabboName string      `json:"habbo_name"`
	Role      string      `json:"role"`
}

// OverdueSession is an active session that exceeded its rank's maximum
// duration with auto-complete enabled.
type OverdueSession struct {
	Session           TimeSession
	MaxSessionMinutes int
}

type StartSessionDTO struct {
	Description *string `json:"description,omitempty"`
}

func (dto StartSessionDTO) Validate() error {
	if dto.Description != nil && len(strings.TrimSpace(*dto.Description)) > 500 {
		return internal.NewValidationFieldError("description", "description must be at most 500 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// SessionView is the polling payload: the session plus server-computed live
// totals.
type SessionView struct {
	Session        *TimeSession `json:"session"`
	ElapsedSeconds int64        `json:"elapsed_seconds"`
	Credits        int64        `json:"credits"`
}
