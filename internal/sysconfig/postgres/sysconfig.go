package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/sysconfig"
)

// ConfigRepository implements the sysconfig.Repository interface using GORM
type ConfigRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) sysconfig.Repository {
	return &ConfigRepository{db: db}
}

func (r *ConfigRepository) GetAll() (map[string]string, error) {
	var entries []sysconfig.ConfigEntry
	if err := r.db.Find(&entries).Error; err != nil {
		return nil, err
	}

	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[e.Key] = e.Value
	}
	return values, nil
}

func (r *ConfigRepository) Get(key string) (string, error) {
	var entry sysconfig.ConfigEntry
	err := r.db.Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", internal.ErrConfigNotFound
		}
		return "", err
	}
	return entry.Value, nil
}

func (r *ConfigRepository) Set(key, value string) error {
	return r.db.Exec(`
		INSERT INTO system_config (key, value, updated_at)
		VALUES (?, ?, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value).Error
}

func (r *ConfigRepository) ListBusinessHours() ([]*sysconfig.BusinessHour, error) {
	var hours []*sysconfig.BusinessHour
	err := r.db.Order("weekday ASC").Find(&hours).Error
	return hours, err
}

func (r *ConfigRepository) UpsertBusinessHour(hour *sysconfig.BusinessHour) error {
	return r.db.Exec(`
		INSERT INTO business_hours (weekday, open_time, close_time, closed, updated_at)
		VALUES (?, ?, ?, ?, now())
		ON CONFLICT (weekday)
		DO UPDATE SET open_time = EXCLUDED.open_time,
		              close_time = EXCLUDED.close_time,
		              closed = EXCLUDED.closed,
		              updated_at = now()`,
		hour.Weekday, hour.OpenTime, hour.CloseTime, hour.Closed).Error
}

func (r *ConfigRepository) ListSpecialDays() ([]*sysconfig.SpecialDay, error) {
	var days []*sysconfig.SpecialDay
	err := r.db.Order("date ASC").Find(&days).Error
	return days, err
}

func (r *ConfigRepository) CreateSpecialDay(day *sysconfig.SpecialDay) error {
	err := r.db.Create(day).Error
	if err != nil && isUniqueViolation(err) {
		return internal.NewConflictError("special day already exists for that date", internal.ErrCodeValidationFailed)
	}
	return err
}

func (r *ConfigRepository) DeleteSpecialDay(id int64) error {
	result := r.db.Delete(&sysconfig.SpecialDay{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrConfigNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
