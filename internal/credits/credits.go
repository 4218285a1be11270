// Package credits converts accumulated work seconds into a credit amount
// using an admin-configured rate. One rounding rule applies everywhere:
// interval mode only pays fully completed windows (floor), per-minute mode
// rounds the continuous product. Live displays and payroll use the same
// arithmetic so a user never sees credits the ledger would not pay.
package credits

import (
	"math"

	"github.com/luchovc/agency-portal/internal"
)

const (
	ModeInterval  = "interval"
	ModePerMinute = "per_minute"
)

// Rate describes how seconds become credits. IntervalMinutes and
// CreditsPerInterval drive interval mode; CreditsPerMinute drives per-minute
// mode.
type Rate struct {
	Mode               string  `json:"mode"`
	IntervalMinutes    int     `json:"interval_minutes"`
	CreditsPerInterval int64   `json:"credits_per_interval"`
	CreditsPerMinute   float64 `json:"credits_per_minute"`
}

func (r Rate) Validate() error {
	switch r.Mode {
	case ModeInterval:
		if r.IntervalMinutes < 1 {
			return internal.NewValidationError("interval must be at least 1 minute", internal.ErrCodeValidationFailed)
		}
		if r.CreditsPerInterval < 0 {
			return internal.NewValidationError("credits per interval cannot be negative", internal.ErrCodeValidationFailed)
		}
	case ModePerMinute:
		if r.CreditsPerMinute < 0 {
			return internal.NewValidationError("credits per minute cannot be negative", internal.ErrCodeValidationFailed)
		}
	default:
		return internal.NewValidationError("calculation type must be interval or per_minute", internal.ErrCodeValidationFailed)
	}
	return nil
}

// IntervalRate builds an interval-mode rate from an hours/minutes window.
func IntervalRate(hours, minutes int, creditsPerInterval int64) Rate {
	window := hours*60 + minutes
	if window < 1 {
		window = 1
	}
	return Rate{
		Mode:               ModeInterval,
		IntervalMinutes:    window,
		CreditsPerInterval: creditsPerInterval,
	}
}

// Calculate returns the credits earned for totalSeconds of banked work time.
func Calculate(totalSeconds int64, r Rate) int64 {
	if totalSeconds <= 0 {
		return 0
	}

	switch r.Mode {
	case ModePerMinute:
		minutes := float64(totalSeconds) / 60.0
		return int64(math.Round(minutes * r.CreditsPerMinute))
	default:
		window := r.IntervalMinutes
		if window < 1 {
			window = 1
		}
		completedMinutes := totalSeconds / 60
		return (completedMinutes / int64(window)) * r.CreditsPerInterval
	}
}
