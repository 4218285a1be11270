package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentials(habboName string) (int64, string, error) {
	var userID int64
	var passwordHash string
	query := `SELECT id, password_hash FROM users WHERE LOWER(habbo_name) = LOWER(?)`

	row := r.db.Raw(query, habboName).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if err == sql.ErrNoRows {
			return 0, "", internal.ErrUserNotFound
		}
		return 0, "", err
	}
	return userID, passwordHash, nil
}

func (r *Repository) GetActor(userID int64) (*auth.Actor, error) {
	var actor auth.Actor
	var permissionsJSON string

	query := `SELECT u.id, u.habbo_name, u.role, COALESCE(rk.level, 0), COALESCE(rk.permissions, '[]')
	          FROM users u
	          LEFT JOIN ranks rk ON rk.name = u.role
	          WHERE u.id = ?`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&actor.ID, &actor.HabboName, &actor.Role, &actor.Level, &permissionsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(permissionsJSON), &actor.Permissions); err != nil {
		// a corrupt permission blob must not lock the user out entirely
		actor.Permissions = []string{}
	}

	return &actor, nil
}

func (r *Repository) HandleExists(habboName string) (bool, error) {
	var count int64
	err := r.db.Raw(`SELECT COUNT(1) FROM users WHERE LOWER(habbo_name) = LOWER(?)`, habboName).
		Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) CreateUser(habboName, passwordHash, role string) (int64, error) {
	var userID int64
	query := `INSERT INTO users (habbo_name, username, password_hash, role, created_at, updated_at)
	          VALUES (?, ?, ?, ?, now(), now()) RETURNING id`

	row := r.db.Raw(query, habboName, habboName, passwordHash, role).Row()
	if err := row.Scan(&userID); err != nil {
		if isUniqueViolation(err) {
			return 0, internal.ErrHandleTaken
		}
		return 0, err
	}
	return userID, nil
}

func (r *Repository) GetInvalidationTime(userID int64) (*time.Time, error) {
	var invalidatedAt time.Time
	row := r.db.Raw(`SELECT invalidated_at FROM session_invalidations WHERE user_id = ?`, userID).Row()
	if err := row.Scan(&invalidatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &invalidatedAt, nil
}

func (r *Repository) MarkInvalidated(userID int64, at time.Time) error {
	return r.db.Exec(`INSERT INTO session_invalidations (user_id, invalidated_at)
	                  VALUES (?, ?)
	                  ON CONFLICT (user_id) DO UPDATE SET invalidated_at = EXCLUDED.invalidated_at`,
		userID, at).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
