package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/timesession"
)

// SessionRepository implements the timesession.Repository interface using GORM
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) timesession.Repository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *timesession.TimeSession) error {
	err := r.db.Create(session).Error
	if err != nil && isUniqueViolation(err) {
		return internal.ErrSessionAlreadyOpen
	}
	return err
}

func (r *SessionRepository) GetOpenByUserID(userID int64) (*timesession.TimeSession, error) {
	var session timesession.TimeSession
	err := r.db.Where("user_id = ? AND status IN ?", userID,
		[]string{timesession.StatusActive, timesession.StatusPaused}).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetLastCompleted(userID int64) (*timesession.TimeSession, error) {
	var session timesession.TimeSession
	err := r.db.Where("user_id = ? AND status = ?", userID, timesession.StatusCompleted).
		Order("end_time DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Transition updates are guarded by the current status so a stale client
// cannot re-apply a move that already happened.

func (r *SessionRepository) TransitionToPaused(id int64, totalTime int64, pausedAt time.Time) (bool, error) {
	result := r.db.Exec(`
		UPDATE time_sessions
		SET status = ?, total_time = ?, pause_time = ?, updated_at = now()
		WHERE id = ? AND status = ?`,
		timesession.StatusPaused, totalTime, pausedAt, id, timesession.StatusActive)
	return result.RowsAffected > 0, result.Error
}

func (r *SessionRepository) TransitionToActive(id int64, startTime time.Time) (bool, error) {
	result := r.db.Exec(`
		UPDATE time_sessions
		SET status = ?, start_time = ?, pause_time = NULL, updated_at = now()
		WHERE id = ? AND status = ?`,
		timesession.StatusActive, startTime, id, timesession.StatusPaused)
	return result.RowsAffected > 0, result.Error
}

func (r *SessionRepository) Complete(id int64, totalTime int64, endedAt time.Time) (bool, error) {
	result := r.db.Exec(`
		UPDATE time_sessions
		SET status = ?, total_time = ?, end_time = ?, pause_time = NULL, updated_at = now()
		WHERE id = ? AND status IN ?`,
		timesession.StatusCompleted, totalTime, endedAt, id,
		[]string{timesession.StatusActive, timesession.StatusPaused})
	return result.RowsAffected > 0, result.Error
}

func (r *SessionRepository) DeleteAllForUser(userID int64) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&timesession.TimeSession{})
	return result.RowsAffected, result.Error
}

func (r *SessionRepository) ListOpen() ([]*timesession.OpenSessionEntry, error) {
	rows, err := r.db.Raw(`
		SELECT ts.id, ts.user_id, ts.start_time, ts.status, ts.total_time,
		       ts.end_time, ts.pause_time, ts.description, ts.created_at, ts.updated_at,
		       u.habbo_name, u.role
		FROM time_sessions ts
		JOIN users u ON u.id = ts.user_id
		WHERE ts.status IN ('active', 'paused')
		ORDER BY ts.start_time ASC`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*timesession.OpenSessionEntry
	for rows.Next() {
		var e timesession.OpenSessionEntry
		s := &e.Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.StartTime, &s.Status, &s.TotalTime,
			&s.EndTime, &s.PauseTime, &s.Description, &s.CreatedAt, &s.UpdatedAt,
			&e.HabboName, &e.Role,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *SessionRepository) ListOverdue(now time.Time) ([]*timesession.OverdueSession, error) {
	rows, err := r.db.Raw(`
		SELECT ts.id, ts.user_id, ts.start_time, ts.status, ts.total_time,
		       ts.end_time, ts.pause_time, ts.description, ts.created_at, ts.updated_at,
		       rk.max_session_minutes
		FROM time_sessions ts
		JOIN users u ON u.id = ts.user_id
		JOIN ranks rk ON rk.name = u.role
		WHERE ts.status = 'active'
		  AND rk.auto_complete = TRUE
		  AND rk.max_session_minutes IS NOT NULL
		  AND ts.total_time + EXTRACT(EPOCH FROM (? - ts.start_time)) > rk.max_session_minutes * 60`,
		now).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overdue []*timesession.OverdueSession
	for rows.Next() {
		var o timesession.OverdueSession
		s := &o.Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.StartTime, &s.Status, &s.TotalTime,
			&s.EndTime, &s.PauseTime, &s.Description, &s.CreatedAt, &s.UpdatedAt,
			&o.MaxSessionMinutes,
		); err != nil {
			return nil, err
		}
		overdue = append(overdue, &o)
	}
	return overdue, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
