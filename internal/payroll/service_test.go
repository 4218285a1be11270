package payroll_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/core/events"
	"github.com/luchovc/agency-portal/internal/credits"
	"github.com/luchovc/agency-portal/internal/payroll"
)

func TestPayroll(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payroll Suite")
}

// Mock repository for testing. MarkPaid mimics the transactional contract:
// either everything changes or nothing does.
type mockPaymentRepository struct {
	accruals map[int64]*payroll.Accrual
	payments map[int64]*payroll.PaymentHistory
	nextID   int64
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{
		accruals: make(map[int64]*payroll.Accrual),
		payments: make(map[int64]*payroll.PaymentHistory),
		nextID:   1,
	}
}

func (m *mockPaymentRepository) ListAccruals() ([]*payroll.Accrual, error) {
	var out []*payroll.Accrual
	for _, acc := range m.accruals {
		if acc.TotalSeconds > 0 {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) GetAccrual(userID int64) (*payroll.Accrual, error) {
	acc, ok := m.accruals[userID]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return acc, nil
}

func (m *mockPaymentRepository) UpsertPending(userID int64, habboName string, amount int64) error {
	for _, p := range m.payments {
		if p.UserID == userID && p.Status == payroll.StatusPending {
			p.Amount = amount
			p.HabboName = habboName
			return nil
		}
	}
	p := &payroll.PaymentHistory{
		ID:        m.nextID,
		UserID:    userID,
		HabboName: habboName,
		Amount:    amount,
		Status:    payroll.StatusPending,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepository) ListPending() ([]*payroll.PaymentHistory, error) {
	var out []*payroll.PaymentHistory
	for _, p := range m.payments {
		if p.Status == payroll.StatusPending {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) MarkPaid(userID, actorID int64, amountFor func(totalSeconds int64) int64, paidAt time.Time) (*payroll.PaymentHistory, error) {
	for _, p := range m.payments {
		if p.UserID != userID || p.Status != payroll.StatusPending {
			continue
		}
		if p.Amount <= 0 {
			var totalSeconds int64
			if acc, ok := m.accruals[userID]; ok {
				totalSeconds = acc.TotalSeconds
			}
			p.Amount = amountFor(totalSeconds)
		}
		p.Status = payroll.StatusPaid
		p.ProcessedBy = &actorID
		p.PaidAt = &paidAt
		if acc, ok := m.accruals[userID]; ok {
			acc.TotalSeconds = 0
		}
		return p, nil
	}
	return nil, internal.ErrNoPendingPayment
}

func (m *mockPaymentRepository) ListHistory(limit, offset int) ([]*payroll.PaymentHistory, error) {
	var out []*payroll.PaymentHistory
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPaymentRepository) ClearAll() error {
	m.payments = make(map[int64]*payroll.PaymentHistory)
	m.accruals = make(map[int64]*payroll.Accrual)
	return nil
}

type fixedRateProvider struct {
	rate credits.Rate
}

func (f fixedRateProvider) RateForRole(role string) (credits.Rate, error) {
	return f.rate, nil
}

var _ = Describe("PayrollService", func() {
	var (
		service *payroll.Service
		repo    *mockPaymentRepository
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockPaymentRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(logger)
		// 5 credits per hour
		service = payroll.NewService(repo, fixedRateProvider{rate: credits.IntervalRate(1, 0, 5)}, bus, logger)
		ctx = context.Background()
	})

	Describe("RefreshPending", func() {
		It("creates one pending row per earning user", func() {
			repo.accruals[1] = &payroll.Accrual{UserID: 1, HabboName: "Uno", Role: "miembro", TotalSeconds: 2 * 3600}
			repo.accruals[2] = &payroll.Accrual{UserID: 2, HabboName: "Dos", Role: "miembro", TotalSeconds: 3600}

			pending, err := service.RefreshPending()
			Expect(err).ToNot(HaveOccurred())
			Expect(pending).To(HaveLen(2))
		})

		It("updates the amount instead of duplicating rows", func() {
			repo.accruals[1] = &payroll.Accrual{UserID: 1, HabboName: "Uno", Role: "miembro", TotalSeconds: 3600}

			_, err := service.RefreshPending()
			Expect(err).ToNot(HaveOccurred())

			repo.accruals[1].TotalSeconds = 2 * 3600
			pending, err := service.RefreshPending()
			Expect(err).ToNot(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].Amount).To(Equal(int64(10)))
		})

		It("skips users below one full interval", func() {
			repo.accruals[1] = &payroll.Accrual{UserID: 1, HabboName: "Uno", Role: "miembro", TotalSeconds: 30 * 60}

			pending, err := service.RefreshPending()
			Expect(err).ToNot(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})
	})

	Describe("MarkPaid", func() {
		BeforeEach(func() {
			repo.accruals[1] = &payroll.Accrual{UserID: 1, HabboName: "Uno", Role: "miembro", TotalSeconds: 2 * 3600}
			_, err := service.RefreshPending()
			Expect(err).ToNot(HaveOccurred())
		})

		It("settles the pending payment with the stored amount", func() {
			payment, err := service.MarkPaid(ctx, 99, payroll.MarkPaidDTO{UserID: 1})
			Expect(err).ToNot(HaveOccurred())
			Expect(payment.Status).To(Equal(payroll.StatusPaid))
			Expect(payment.Amount).To(Equal(int64(10)))
			Expect(payment.ProcessedBy).ToNot(BeNil())
			Expect(*payment.ProcessedBy).To(Equal(int64(99)))
			Expect(payment.PaidAt).ToNot(BeNil())
		})

		It("fails cleanly on a second submission", func() {
			_, err := service.MarkPaid(ctx, 99, payroll.MarkPaidDTO{UserID: 1})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.MarkPaid(ctx, 99, payroll.MarkPaidDTO{UserID: 1})
			Expect(err).To(Equal(internal.ErrNoPendingPayment))
		})

		It("fails when the user never had a pending payment", func() {
			_, err := service.MarkPaid(ctx, 99, payroll.MarkPaidDTO{UserID: 42})
			Expect(err).To(Equal(internal.ErrNoPendingPayment))
		})

		It("recomputes a zero stored amount at payment time", func() {
			for _, p := range repo.payments {
				p.Amount = 0
			}

			payment, err := service.MarkPaid(ctx, 99, payroll.MarkPaidDTO{UserID: 1})
			Expect(err).ToNot(HaveOccurred())
			Expect(payment.Amount).To(Equal(int64(10)))
		})

		It("counts sessions completed after the last refresh in the recompute", func() {
			for _, p := range repo.payments {
				p.Amount = 0
			}
			// another hour finished between refresh and payment
			repo.accruals[1].TotalSeconds = 3 * 3600

			payment, err := service.MarkPaid(ctx, 99, payroll.MarkPaidDTO{UserID: 1})
			Expect(err).ToNot(HaveOccurred())
			Expect(payment.Amount).To(Equal(int64(15)))
		})

		It("rejects an invalid user id", func() {
			_, err := service.MarkPaid(ctx, 99, payroll.MarkPaidDTO{UserID: 0})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ClearHistory", func() {
		It("wipes the ledger", func() {
			repo.accruals[1] = &payroll.Accrual{UserID: 1, HabboName: "Uno", Role: "miembro", TotalSeconds: 3600}
			_, err := service.RefreshPending()
			Expect(err).ToNot(HaveOccurred())

			Expect(service.ClearHistory(99)).To(Succeed())

			history, err := service.History(50, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(history).To(BeEmpty())
		})
	})
})
