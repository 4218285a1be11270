package payroll

import (
	"time"

	"github.com/luchovc/agency-portal/internal"
)

// Payment statuses kept in Spanish because clients render and filter on the
// stored values.
const (
	StatusPending   = "PENDIENTE"
	StatusPaid      = "PAGADO"
	StatusCancelled = "CANCELADO"
	StatusProcessed = "PROCESADO"
)

// PaymentHistory is one ledger row. HabboName is snapshotted at creation so
// history stays readable after the user is deleted.
type PaymentHistory struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	UserID      int64      `json:"user_id" gorm:"column:user_id;not null"`
	HabboName   string     `json:"habbo_name" gorm:"column:habbo_name;not null"`
	Amount      int64      `json:"amount" gorm:"not null;default:0"`
	Status      string     `json:"status" gorm:"not null;default:PENDIENTE"`
	ProcessedBy *int64     `json:"processed_by,omitempty" gorm:"column:processed_by"`
	PaidAt      *time.Time `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (PaymentHistory) TableName() string {
	return "payment_history"
}

// Accrual is a user's completed, not yet paid, session time.
type Accrual struct {
	UserID       int64  `json:"user_id"`
	HabboName    string `json:"habbo_name"`
	Role         string `json:"role"`
	TotalSeconds int64  `json:"total_seconds"`
}

type MarkPaidDTO struct {
	UserID int64 `json:"user_id"`
}

func (dto MarkPaidDTO) Validate() error {
	if dto.UserID <= 0 {
		return internal.NewValidationFieldError("user_id", "user_id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
