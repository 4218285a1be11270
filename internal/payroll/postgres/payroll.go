package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/payroll"
)

// PaymentRepository implements the payroll.Repository interface using GORM
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) payroll.Repository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) ListAccruals() ([]*payroll.Accrual, error) {
	var accruals []*payroll.Accrual
	err := r.db.Raw(`
		SELECT u.id AS user_id, u.habbo_name, u.role, SUM(ts.total_time) AS total_seconds
		FROM time_sessions ts
		JOIN users u ON u.id = ts.user_id
		WHERE ts.status = 'completed'
		GROUP BY u.id, u.habbo_name, u.role
		HAVING SUM(ts.total_time) > 0
		ORDER BY u.habbo_name ASC`).Scan(&accruals).Error
	return accruals, err
}

func (r *PaymentRepository) GetAccrual(userID int64) (*payroll.Accrual, error) {
	var acc payroll.Accrual
	err := r.db.Raw(`
		SELECT u.id AS user_id, u.habbo_name, u.role, COALESCE(SUM(ts.total_time), 0) AS total_seconds
		FROM users u
		LEFT JOIN time_sessions ts ON ts.user_id = u.id AND ts.status = 'completed'
		WHERE u.id = ?
		GROUP BY u.id, u.habbo_name, u.role`, userID).Scan(&acc).Error
	if err != nil {
		return nil, err
	}
	if acc.UserID == 0 {
		return nil, internal.ErrUserNotFound
	}
	return &acc, nil
}

// UpsertPending keeps at most one PENDIENTE row per user; the partial unique
// index on (user_id) where status = 'PENDIENTE' backs the ON CONFLICT target.
func (r *PaymentRepository) UpsertPending(userID int64, habboName string, amount int64) error {
	return r.db.Exec(`
		INSERT INTO payment_history (user_id, habbo_name, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, 'PENDIENTE', now(), now())
		ON CONFLICT (user_id) WHERE status = 'PENDIENTE'
		DO UPDATE SET amount = EXCLUDED.amount, habbo_name = EXCLUDED.habbo_name, updated_at = now()`,
		userID, habboName, amount).Error
}

func (r *PaymentRepository) ListPending() ([]*payroll.PaymentHistory, error) {
	var pending []*payroll.PaymentHistory
	err := r.db.Where("status = ?", payroll.StatusPending).
		Order("habbo_name ASC").
		Find(&pending).Error
	return pending, err
}

// MarkPaid settles the latest pending row and deletes the user's completed
// sessions in one transaction. A non-positive stored amount is recomputed
// via amountFor from the completed-session total summed inside the
// transaction, so nothing finished after the last refresh goes unpaid.
func (r *PaymentRepository) MarkPaid(userID, actorID int64, amountFor func(totalSeconds int64) int64, paidAt time.Time) (*payroll.PaymentHistory, error) {
	var payment payroll.PaymentHistory

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
			SELECT * FROM payment_history
			WHERE user_id = ? AND status = 'PENDIENTE'
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE`, userID).Scan(&payment).Error
		if err != nil {
			return err
		}
		if payment.ID == 0 {
			return internal.ErrNoPendingPayment
		}

		amount := payment.Amount
		if amount <= 0 {
			var totalSeconds int64
			err := tx.Raw(`
				SELECT COALESCE(SUM(total_time), 0)
				FROM time_sessions
				WHERE user_id = ? AND status = 'completed'`, userID).Scan(&totalSeconds).Error
			if err != nil {
				return err
			}
			amount = amountFor(totalSeconds)
		}

		result := tx.Exec(`
			UPDATE payment_history
			SET status = 'PAGADO', amount = ?, processed_by = ?, paid_at = ?, updated_at = now()
			WHERE id = ? AND status = 'PENDIENTE'`,
			amount, actorID, paidAt, payment.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrNoPendingPayment
		}

		if err := tx.Exec(`DELETE FROM time_sessions WHERE user_id = ? AND status = 'completed'`, userID).Error; err != nil {
			return err
		}

		payment.Status = payroll.StatusPaid
		payment.Amount = amount
		payment.ProcessedBy = &actorID
		payment.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrNoPendingPayment
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ListHistory(limit, offset int) ([]*payroll.PaymentHistory, error) {
	var history []*payroll.PaymentHistory
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&history).Error
	return history, err
}

func (r *PaymentRepository) ClearAll() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM payment_history`).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM time_sessions`).Error
	})
}
