package postgres

import (
	"database/sql"

	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/rank"
)

// RankRepository implements the rank.Repository interface using GORM
type RankRepository struct {
	db *gorm.DB
}

func NewRankRepository(db *gorm.DB) rank.Repository {
	return &RankRepository{db: db}
}

func (r *RankRepository) Create(rk *rank.Rank) error {
	return r.db.Create(rk).Error
}

func (r *RankRepository) GetByName(name string) (*rank.Rank, error) {
	var rk rank.Rank
	err := r.db.Where("name = ?", name).First(&rk).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrRankNotFound
		}
		return nil, err
	}
	return &rk, nil
}

func (r *RankRepository) List() ([]*rank.Rank, error) {
	var ranks []*rank.Rank
	err := r.db.Order("level DESC").Find(&ranks).Error
	return ranks, err
}

func (r *RankRepository) Update(rk *rank.Rank) error {
	return r.db.Save(rk).Error
}

func (r *RankRepository) Delete(name string) error {
	return r.db.Where("name = ?", name).Delete(&rank.Rank{}).Error
}

func (r *RankRepository) CountUsersWithRole(name string) (int64, error) {
	var count int64
	err := r.db.Raw(`SELECT COUNT(1) FROM users WHERE role = ?`, name).Scan(&count).Error
	return count, err
}

func (r *RankRepository) GetUserRole(userID int64) (string, string, error) {
	var role, habboName string
	row := r.db.Raw(`SELECT role, habbo_name FROM users WHERE id = ?`, userID).Row()
	if err := row.Scan(&role, &habboName); err != nil {
		if err == sql.ErrNoRows {
			return "", "", internal.ErrUserNotFound
		}
		return "", "", err
	}
	return role, habboName, nil
}

func (r *RankRepository) UpdateUserRole(userID int64, role string) error {
	result := r.db.Exec(`UPDATE users SET role = ?, updated_at = now() WHERE id = ?`, role, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *RankRepository) CreatePromotionLog(entry *rank.PromotionLog) error {
	return r.db.Create(entry).Error
}

func (r *RankRepository) ListPromotionLogs(limit, offset int) ([]*rank.PromotionLog, error) {
	var logs []*rank.PromotionLog
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, err
}
