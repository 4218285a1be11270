package sysconfig

import (
	"log/slog"
	"strconv"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/credits"
)

// Repository defines the data access methods for portal settings
type Repository interface {
	GetAll() (map[string]string, error)
	Get(key string) (string, error)
	Set(key, value string) error
	ListBusinessHours() ([]*BusinessHour, error)
	UpsertBusinessHour(hour *BusinessHour) error
	ListSpecialDays() ([]*SpecialDay, error)
	CreateSpecialDay(day *SpecialDay) error
	DeleteSpecialDay(id int64) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetAll() (map[string]string, error) {
	values, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("failed to load config", "error", err)
		return nil, internal.NewInternalError("failed to load config", err)
	}
	return values, nil
}

func (s *Service) Get(key string) (string, error) {
	value, err := s.repo.Get(key)
	if err != nil {
		return "", internal.ErrConfigNotFound
	}
	return value, nil
}

// Update writes each key/value pair; the global credit rate is validated as
// a whole before anything persists so a bad combination never lands.
func (s *Service) Update(dto UpdateConfigDTO) (map[string]string, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.validateRateChange(dto.Values); err != nil {
		return nil, err
	}

	for key, value := range dto.Values {
		if err := s.repo.Set(key, value); err != nil {
			s.logger.Error("failed to store config", "error", err, "key", key)
			return nil, internal.NewInternalError("failed to store config", err)
		}
	}

	s.logger.Info("config updated", "keys", len(dto.Values))
	return s.GetAll()
}

// GlobalRate parses the stored credit rate settings. Missing or malformed
// settings fall back to a 1-hour interval paying nothing, so time tracking
// keeps working while credits stay at zero until an admin configures rates.
func (s *Service) GlobalRate() (credits.Rate, error) {
	values, err := s.repo.GetAll()
	if err != nil {
		return credits.Rate{}, internal.NewInternalError("failed to load credit rate", err)
	}
	return rateFromValues(values), nil
}

func (s *Service) validateRateChange(changes map[string]string) error {
	touchesRate := false
	for _, key := range []string{KeyTimeHours, KeyTimeMinutes, KeyCreditsPerInterval, KeyCreditsPerMinute, KeyCalculationType} {
		if _, ok := changes[key]; ok {
			touchesRate = true
			break
		}
	}
	if !touchesRate {
		return nil
	}

	current, err := s.repo.GetAll()
	if err != nil {
		return internal.NewInternalError("failed to load config", err)
	}
	merged := make(map[string]string, len(current)+len(changes))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}
	return rateFromValues(merged).Validate()
}

func rateFromValues(values map[string]string) credits.Rate {
	if values[KeyCalculationType] == credits.ModePerMinute {
		perMinute, _ := strconv.ParseFloat(values[KeyCreditsPerMinute], 64)
		return credits.Rate{Mode: credits.ModePerMinute, CreditsPerMinute: perMinute}
	}

	hours, _ := strconv.Atoi(values[KeyTimeHours])
	minutes, _ := strconv.Atoi(values[KeyTimeMinutes])
	perInterval, _ := strconv.ParseInt(values[KeyCreditsPerInterval], 10, 64)
	if hours == 0 && minutes == 0 {
		hours = 1
	}
	return credits.IntervalRate(hours, minutes, perInterval)
}

func (s *Service) ListBusinessHours() ([]*BusinessHour, error) {
	hours, err := s.repo.ListBusinessHours()
	if err != nil {
		s.logger.Error("failed to list business hours", "error", err)
		return nil, internal.NewInternalError("failed to list business hours", err)
	}
	return hours, nil
}

func (s *Service) UpsertBusinessHour(dto BusinessHourDTO) (*BusinessHour, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	hour := &BusinessHour{
		Weekday:   dto.Weekday,
		OpenTime:  dto.OpenTime,
		CloseTime: dto.CloseTime,
		Closed:    dto.Closed,
	}
	if err := s.repo.UpsertBusinessHour(hour); err != nil {
		s.logger.Error("failed to store business hour", "error", err, "weekday", dto.Weekday)
		return nil, internal.NewInternalError("failed to store business hour", err)
	}
	return hour, nil
}

func (s *Service) ListSpecialDays() ([]*SpecialDay, error) {
	days, err := s.repo.ListSpecialDays()
	if err != nil {
		s.logger.Error("failed to list special days", "error", err)
		return nil, internal.NewInternalError("failed to list special days", err)
	}
	return days, nil
}

func (s *Service) CreateSpecialDay(dto SpecialDayDTO) (*SpecialDay, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	day := &SpecialDay{
		Date:        dto.Date,
		OpenTime:    dto.OpenTime,
		CloseTime:   dto.CloseTime,
		Closed:      dto.Closed,
		Description: dto.Description,
		Color:       dto.Color,
	}
	if err := s.repo.CreateSpecialDay(day); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to create special day", "error", err, "date", dto.Date)
		return nil, internal.NewInternalError("failed to create special day", err)
	}
	return day, nil
}

func (s *Service) DeleteSpecialDay(id int64) error {
	if err := s.repo.DeleteSpecialDay(id); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		s.logger.Error("failed to delete special day", "error", err, "id", id)
		return internal.NewInternalError("failed to delete special day", err)
	}
	return nil
}
