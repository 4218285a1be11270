package timesession

import (
	"context"
	"log/slog"
	"time"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/core/events"
	"github.com/luchovc/agency-portal/internal/credits"
)

// Repository defines the data access methods for time sessions. State
// transitions are conditional updates that report whether a row actually
// moved, so concurrent requests cannot double-apply a transition.
type Repository interface {
	Create(session *TimeSession) error
	GetOpenByUserID(userID int64) (*TimeSession, error)
	GetLastCompleted(userID int64) (*TimeSession, error)
	TransitionToPaused(id int64, totalTime int64, pausedAt time.Time) (bool, error)
	TransitionToActive(id int64, startTime time.Time) (bool, error)
	Complete(id int64, totalTime int64, endedAt time.Time) (bool, error)
	DeleteAllForUser(userID int64) (int64, error)
	ListOpen() ([]*OpenSessionEntry, error)
	ListOverdue(now time.Time) ([]*OverdueSession, error)
}

// RateProvider resolves the credit rate that applies to a role, rank
// override first, global config otherwise.
type RateProvider interface {
	RateForRole(role string) (credits.Rate, error)
}

// Service runs the session state machine. Now is swappable for tests; it
// always reads UTC.
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

// Start opens a session for the user. Accrued time survives stop cycles:
// the new session is seeded with the most recently completed session's
// total, so only a payment (which deletes completed sessions) resets it.
func (s *Service) Start(userID int64, dto StartSessionDTO) (*TimeSession, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if open, err := s.repo.GetOpenByUserID(userID); err == nil && open != nil {
		return nil, internal.ErrSessionAlreadyOpen
	}

	var seed int64
	if last, err := s.repo.GetLastCompleted(userID); err == nil && last != nil {
		seed = last.TotalTime
	}

	session := &TimeSession{
		UserID:      userID,
		StartTime:   s.Now(),
		Status:      StatusActive,
		TotalTime:   seed,
		Description: dto.Description,
	}

	if err := s.repo.Create(session); err != nil {
		// the partial unique index closes the race between concurrent starts
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeSessionAlreadyOpen {
			return nil, internal.ErrSessionAlreadyOpen
		}
		s.logger.Error("failed to create time session", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to start session", err)
	}

	s.logger.Info("session started", "session_id", session.ID, "user_id", userID, "seeded_seconds", seed)
	return session, nil
}

// Pause banks the elapsed time of the current run and freezes the session.
func (s *Service) Pause(userID int64) (*TimeSession, error) {
	open, err := s.openSession(userID)
	if err != nil {
		return nil, err
	}
	if open.Status != StatusActive {
		return nil, internal.ErrSessionNotActive
	}

	now := s.Now()
	total := open.ElapsedAt(now)

	moved, err := s.repo.TransitionToPaused(open.ID, total, now)
	if err != nil {
		s.logger.Error("failed to pause session", "error", err, "session_id", open.ID)
		return nil, internal.NewInternalError("failed to pause session", err)
	}
	if !moved {
		return nil, internal.ErrSessionNotActive
	}

	open.Status = StatusPaused
	open.TotalTime = total
	open.PauseTime = &now

	s.logger.Info("session paused", "session_id", open.ID, "user_id", userID, "total_time", total)
	return open, nil
}

// Resume restarts the clock; TotalTime already holds everything banked.
func (s *Service) Resume(userID int64) (*TimeSession, error) {
	open, err := s.openSession(userID)
	if err != nil {
		return nil, err
	}
	if open.Status != StatusPaused {
		return nil, internal.ErrSessionNotPaused
	}

	now := s.Now()
	moved, err := s.repo.TransitionToActive(open.ID, now)
	if err != nil {
		s.logger.Error("failed to resume session", "error", err, "session_id", open.ID)
		return nil, internal.NewInternalError("failed to resume session", err)
	}
	if !moved {
		return nil, internal.ErrSessionNotPaused
	}

	open.Status = StatusActive
	open.StartTime = now
	open.PauseTime = nil

	s.logger.Info("session resumed", "session_id", open.ID, "user_id", userID)
	return open, nil
}

// Stop completes the open session, banking the current run first when
// active.
func (s *Service) Stop(userID int64) (*TimeSession, error) {
	open, err := s.openSession(userID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	total := open.ElapsedAt(now)

	moved, err := s.repo.Complete(open.ID, total, now)
	if err != nil {
		s.logger.Error("failed to stop session", "error", err, "session_id", open.ID)
		return nil, internal.NewInternalError("failed to stop session", err)
	}
	if !moved {
		return nil, internal.ErrNoOpenSession
	}

	open.Status = StatusCompleted
	open.TotalTime = total
	open.EndTime = &now

	s.logger.Info("session stopped", "session_id", open.ID, "user_id", userID, "total_time", total)
	return open, nil
}

// Cancel deletes every session row the user has, open and completed alike.
// It is a full accrual reset, not an undo of the last start.
func (s *Service) Cancel(userID int64) (int64, error) {
	if _, err := s.openSession(userID); err != nil {
		return 0, err
	}

	deleted, err := s.repo.DeleteAllForUser(userID)
	if err != nil {
		s.logger.Error("failed to cancel sessions", "error", err, "user_id", userID)
		return 0, internal.NewInternalError("failed to cancel sessions", err)
	}

	s.logger.Info("sessions cancelled", "user_id", userID, "deleted", deleted)
	return deleted, nil
}

// Current returns the caller's open session with live totals, or nil when
// none is open.
func (s *Service) Current(userID int64, role string) (*SessionView, error) {
	open, err := s.repo.GetOpenByUserID(userID)
	if err != nil {
		s.logger.Error("failed to load open session", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to load open session", err)
	}
	if open == nil {
		return &SessionView{}, nil
	}

	now := s.Now()
	elapsed := open.ElapsedAt(now)

	var earned int64
	if rate, err := s.rates.RateForRole(role); err == nil {
		earned = credits.Calculate(elapsed, rate)
	}

	return &SessionView{Session: open, ElapsedSeconds: elapsed, Credits: earned}, nil
}

// ListOpen returns all open sessions with live totals for the admin
// dashboard.
func (s *Service) ListOpen() ([]*SessionView, error) {
	entries, err := s.repo.ListOpen()
	if err != nil {
		s.logger.Error("failed to list open sessions", "error", err)
		return nil, internal.NewInternalError("failed to list open sessions", err)
	}

	now := s.Now()
	views := make([]*SessionView, 0, len(entries))
	for _, entry := range entries {
		session := entry.Session
		elapsed := session.ElapsedAt(now)

		var earned int64
		if rate, err := s.rates.RateForRole(entry.Role); err == nil {
			earned = credits.Calculate(elapsed, rate)
		}

		views = append(views, &SessionView{
			Session:        &session,
			ElapsedSeconds: elapsed,
			Credits:        earned,
		})
	}
	return views, nil
}

// AutoCompleteOverdue stops active sessions that ran past their rank's
// maximum duration where the rank opted into auto-completion. Used by the
// sweep worker; the HTTP path never depends on it.
func (s *Service) AutoCompleteOverdue(ctx context.Context) (int, error) {
	now := s.Now()
	overdue, err := s.repo.ListOverdue(now)
	if err != nil {
		return 0, internal.NewInternalError("failed to list overdue sessions", err)
	}

	completed := 0
	for _, o := range overdue {
		total := o.Session.ElapsedAt(now)
		moved, err := s.repo.Complete(o.Session.ID, total, now)
		if err != nil {
			s.logger.Error("failed to auto-complete session", "error", err, "session_id", o.Session.ID)
			continue
		}
		if !moved {
			continue
		}
		completed++
		s.logger.Info("session auto-completed",
			"session_id", o.Session.ID,
			"user_id", o.Session.UserID,
			"total_time", total,
			"max_minutes", o.MaxSessionMinutes)
		_ = s.bus.Publish(ctx, events.NewSessionAutoCompletedEvent(o.Session.ID, o.Session.UserID, total))
	}
	return completed, nil
}

func (s *Service) openSession(userID int64) (*TimeSession, error) {
	open, err := s.repo.GetOpenByUserID(userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load open session", err)
	}
	if open == nil {
		return nil, internal.ErrNoOpenSession
	}
	return open, nil
}
