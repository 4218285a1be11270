package sysconfig_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/credits"
	"github.com/luchovc/agency-portal/internal/sysconfig"
)

func TestSysconfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sysconfig Suite")
}

// Mock repository for testing
type mockConfigRepository struct {
	values map[string]string
	hours  map[int]*sysconfig.BusinessHour
	days   map[int64]*sysconfig.SpecialDay
	nextID int64
}

func newMockConfigRepository() *mockConfigRepository {
	return &mockConfigRepository{
		values: make(map[string]string),
		hours:  make(map[int]*sysconfig.BusinessHour),
		days:   make(map[int64]*sysconfig.SpecialDay),
		nextID: 1,
	}
}

func (m *mockConfigRepository) GetAll() (map[string]string, error) {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *mockConfigRepository) Get(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockConfigRepository) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigRepository) ListBusinessHours() ([]*sysconfig.BusinessHour, error) {
	var out []*sysconfig.BusinessHour
	for _, h := range m.hours {
		out = append(out, h)
	}
	return out, nil
}

func (m *mockConfigRepository) UpsertBusinessHour(hour *sysconfig.BusinessHour) error {
	m.hours[hour.Weekday] = hour
	return nil
}

func (m *mockConfigRepository) ListSpecialDays() ([]*sysconfig.SpecialDay, error) {
	var out []*sysconfig.SpecialDay
	for _, d := range m.days {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockConfigRepository) CreateSpecialDay(day *sysconfig.SpecialDay) error {
	for _, d := range m.days {
		if d.Date == day.Date {
			return internal.NewConflictError("special day already exists for that date", internal.ErrCodeValidationFailed)
		}
	}
	day.ID = m.nextID
	m.nextID++
	m.days[day.ID] = day
	return nil
}

func (m *mockConfigRepository) DeleteSpecialDay(id int64) error {
	if _, ok := m.days[id]; !ok {
		return internal.ErrConfigNotFound
	}
	delete(m.days, id)
	return nil
}

var _ = Describe("ConfigService", func() {
	var (
		service *sysconfig.Service
		repo    *mockConfigRepository
	)

	BeforeEach(func() {
		repo = newMockConfigRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = sysconfig.NewService(repo, logger)
	})

	Describe("GlobalRate", func() {
		It("parses interval settings", func() {
			repo.values[sysconfig.KeyCalculationType] = credits.ModeInterval
			repo.values[sysconfig.KeyTimeHours] = "1"
			repo.values[sysconfig.KeyTimeMinutes] = "30"
			repo.values[sysconfig.KeyCreditsPerInterval] = "5"

			rate, err := service.GlobalRate()
			Expect(err).ToNot(HaveOccurred())
			Expect(rate.Mode).To(Equal(credits.ModeInterval))
			Expect(rate.IntervalMinutes).To(Equal(90))
			Expect(rate.CreditsPerInterval).To(Equal(int64(5)))
		})

		It("parses per-minute settings", func() {
			repo.values[sysconfig.KeyCalculationType] = credits.ModePerMinute
			repo.values[sysconfig.KeyCreditsPerMinute] = "0.25"

			rate, err := service.GlobalRate()
			Expect(err).ToNot(HaveOccurred())
			Expect(rate.Mode).To(Equal(credits.ModePerMinute))
			Expect(rate.CreditsPerMinute).To(Equal(0.25))
		})

		It("falls back to a one-hour zero-payout window when unset", func() {
			rate, err := service.GlobalRate()
			Expect(err).ToNot(HaveOccurred())
			Expect(rate.Mode).To(Equal(credits.ModeInterval))
			Expect(rate.IntervalMinutes).To(Equal(60))
			Expect(rate.CreditsPerInterval).To(Equal(int64(0)))
		})
	})

	Describe("Update", func() {
		It("persists plain settings", func() {
			values, err := service.Update(sysconfig.UpdateConfigDTO{Values: map[string]string{
				sysconfig.KeySiteTitle: "Agencia Estelar",
			}})
			Expect(err).ToNot(HaveOccurred())
			Expect(values[sysconfig.KeySiteTitle]).To(Equal("Agencia Estelar"))
		})

		It("rejects a rate change that would leave an invalid combination", func() {
			_, err := service.Update(sysconfig.UpdateConfigDTO{Values: map[string]string{
				sysconfig.KeyCalculationType:  credits.ModePerMinute,
				sysconfig.KeyCreditsPerMinute: "-1",
			}})
			Expect(err).To(HaveOccurred())
			Expect(repo.values).ToNot(HaveKey(sysconfig.KeyCalculationType))
		})

		It("validates the merged rate, not just the changed keys", func() {
			repo.values[sysconfig.KeyCalculationType] = credits.ModeInterval
			repo.values[sysconfig.KeyTimeHours] = "1"
			repo.values[sysconfig.KeyCreditsPerInterval] = "5"

			_, err := service.Update(sysconfig.UpdateConfigDTO{Values: map[string]string{
				sysconfig.KeyCreditsPerInterval: "-5",
			}})
			Expect(err).To(HaveOccurred())
			Expect(repo.values[sysconfig.KeyCreditsPerInterval]).To(Equal("5"))
		})

		It("rejects an empty update", func() {
			_, err := service.Update(sysconfig.UpdateConfigDTO{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Business hours", func() {
		It("upserts a weekday schedule", func() {
			hour, err := service.UpsertBusinessHour(sysconfig.BusinessHourDTO{
				Weekday:   1,
				OpenTime:  "16:00",
				CloseTime: "22:00",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(hour.Weekday).To(Equal(1))

			hours, err := service.ListBusinessHours()
			Expect(err).ToNot(HaveOccurred())
			Expect(hours).To(HaveLen(1))
		})

		It("rejects an out-of-range weekday", func() {
			_, err := service.UpsertBusinessHour(sysconfig.BusinessHourDTO{Weekday: 7, OpenTime: "16:00", CloseTime: "22:00"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects malformed times on open days", func() {
			_, err := service.UpsertBusinessHour(sysconfig.BusinessHourDTO{Weekday: 1, OpenTime: "4pm", CloseTime: "22:00"})
			Expect(err).To(HaveOccurred())
		})

		It("skips time validation on closed days", func() {
			_, err := service.UpsertBusinessHour(sysconfig.BusinessHourDTO{Weekday: 0, Closed: true})
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("Special days", func() {
		It("creates a calendar override", func() {
			day, err := service.CreateSpecialDay(sysconfig.SpecialDayDTO{
				Date:        "2025-12-25",
				Closed:      true,
				Description: "Navidad",
				Color:       "#ff0000",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(day.ID).ToNot(BeZero())
		})

		It("rejects a duplicate date", func() {
			_, err := service.CreateSpecialDay(sysconfig.SpecialDayDTO{Date: "2025-12-25", Closed: true})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.CreateSpecialDay(sysconfig.SpecialDayDTO{Date: "2025-12-25", Closed: true})
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("rejects a malformed date", func() {
			_, err := service.CreateSpecialDay(sysconfig.SpecialDayDTO{Date: "25/12/2025", Closed: true})
			Expect(err).To(HaveOccurred())
		})

		It("deletes an existing override", func() {
			day, err := service.CreateSpecialDay(sysconfig.SpecialDayDTO{Date: "2025-12-25", Closed: true})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeleteSpecialDay(day.ID)).To(Succeed())
			Expect(service.DeleteSpecialDay(day.ID)).To(Equal(internal.ErrConfigNotFound))
		})
	})
})
