package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/user"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) List() ([]*user.UserEntry, error) {
	rows, err := r.db.Raw(`
		SELECT u.id, u.habbo_name, u.username, u.role, u.profile_image,
		       u.created_at, u.updated_at,
		       COALESCE(rk.display_name, u.role), COALESCE(rk.level, 0), rk.badge_image
		FROM users u
		LEFT JOIN ranks rk ON rk.name = u.role
		ORDER BY COALESCE(rk.level, 0) DESC, u.habbo_name ASC`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*user.UserEntry
	for rows.Next() {
		var e user.UserEntry
		u := &e.User
		if err := rows.Scan(
			&u.ID, &u.HabboName, &u.Username, &u.Role, &u.ProfileImage,
			&u.CreatedAt, &u.UpdatedAt,
			&e.RankDisplayName, &e.RankLevel, &e.RankBadge,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var u user.User
	err := r.db.First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(u *user.User) error {
	err := r.db.Create(u).Error
	if err != nil && isUniqueViolation(err) {
		return internal.ErrHandleTaken
	}
	return err
}

func (r *UserRepository) Update(u *user.User) error {
	return r.db.Save(u).Error
}

// Delete removes the account and its session rows. Ledger rows stay; they
// carry their own habbo_name snapshot.
func (r *UserRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM time_sessions WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM session_invalidations WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM users WHERE id = ?`, id).Error
	})
}

func (r *UserRepository) RoleExists(name string) (bool, error) {
	var count int64
	err := r.db.Raw(`SELECT COUNT(1) FROM ranks WHERE name = ?`, name).Scan(&count).Error
	return count > 0, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
