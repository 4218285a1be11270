package payroll

import (
	"context"
	"log/slog"
	"time"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/core/events"
	"github.com/luchovc/agency-portal/internal/credits"
)

// Repository defines the data access methods for the payment ledger.
// MarkPaid runs inside a single transaction on the implementation side.
type Repository interface {
	ListAccruals() ([]*Accrual, error)
	GetAccrual(userID int64) (*Accrual, error)
	UpsertPending(userID int64, habboName string, amount int64) error
	ListPending() ([]*PaymentHistory, error)
	MarkPaid(userID, actorID int64, amountFor func(totalSeconds int64) int64, paidAt time.Time) (*PaymentHistory, error)
	ListHistory(limit, offset int) ([]*PaymentHistory, error)
	ClearAll() error
}

// RateProvider resolves the credit rate for a role.
type RateProvider interface {
	RateForRole(role string) (credits.Rate, error)
}

type Service struct {
	repo   Repository
	rates  RateProvider
	bus    *events.EventBus
	logger *slog.Logger
	Now    func() time.Time
}

func NewService(repo Repository, rates RateProvider, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		rates:  rates,
		bus:    bus,
		logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// RefreshPending recomputes accrued credits from completed sessions and
// upserts one PENDIENTE row per user who earned anything, then returns the
// pending list. Users without accrual keep whatever row they already have.
func (s *Service) RefreshPending() ([]*PaymentHistory, error) {
	accruals, err := s.repo.ListAccruals()
	if err != nil {
		s.logger.Error("failed to list accruals", "error", err)
		return nil, internal.NewInternalError("failed to compute payroll", err)
	}

	for _, acc := range accruals {
		rate, err := s.rates.RateForRole(acc.Role)
		if err != nil {
			s.logger.Error("failed to resolve rate", "error", err, "role", acc.Role)
			continue
		}
		amount := credits.Calculate(acc.TotalSeconds, rate)
		if amount <= 0 {
			continue
		}
		if err := s.repo.UpsertPending(acc.UserID, acc.HabboName, amount); err != nil {
			s.logger.Error("failed to upsert pending payment", "error", err, "user_id", acc.UserID)
			return nil, internal.NewInternalError("failed to refresh payroll", err)
		}
	}

	pending, err := s.repo.ListPending()
	if err != nil {
		return nil, internal.NewInternalError("failed to list pending payments", err)
	}
	return pending, nil
}

// MarkPaid settles the user's latest pending payment. The stored amount wins
// when positive; a zero amount is recomputed inside the repository
// transaction from the completed sessions it is about to delete, so a
// session finishing between refresh and payment is still counted. Completed
// sessions are deleted in the same transaction so accrual restarts from
// zero. A second submission finds no PENDIENTE row and fails cleanly.
func (s *Service) MarkPaid(ctx context.Context, actorID int64, dto MarkPaidDTO) (*PaymentHistory, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	amountFor := func(totalSeconds int64) int64 { return 0 }
	if acc, err := s.repo.GetAccrual(dto.UserID); err == nil && acc != nil {
		if rate, err := s.rates.RateForRole(acc.Role); err == nil {
			amountFor = func(totalSeconds int64) int64 { return credits.Calculate(totalSeconds, rate) }
		}
	}

	payment, err := s.repo.MarkPaid(dto.UserID, actorID, amountFor, s.Now())
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to mark payment paid", "error", err, "user_id", dto.UserID)
		return nil, internal.NewInternalError("failed to mark payment paid", err)
	}

	_ = s.bus.Publish(ctx, events.NewPaymentMarkedPaidEvent(payment.ID, payment.UserID, actorID, payment.Amount))

	s.logger.Info("payment marked paid",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"amount", payment.Amount,
		"actor_id", actorID)
	return payment, nil
}

func (s *Service) History(limit, offset int) ([]*PaymentHistory, error) {
	history, err := s.repo.ListHistory(limit, offset)
	if err != nil {
		s.logger.Error("failed to list payment history", "error", err)
		return nil, internal.NewInternalError("failed to list payment history", err)
	}
	return history, nil
}

// ClearHistory wipes the ledger and every time session in one transaction.
func (s *Service) ClearHistory(actorID int64) error {
	if err := s.repo.ClearAll(); err != nil {
		s.logger.Error("failed to clear payment history", "error", err, "actor_id", actorID)
		return internal.NewInternalError("failed to clear payment history", err)
	}
	s.logger.Warn("payment history cleared", "actor_id", actorID)
	return nil
}
