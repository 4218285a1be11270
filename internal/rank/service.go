package rank

import (
	"context"
	"log/slog"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
	"github.com/luchovc/agency-portal/internal/core/events"
)

// Repository defines the data access methods for ranks and promotions
type Repository interface {
	Create(rank *Rank) error
	GetByName(name string) (*Rank, error)
	List() ([]*Rank, error)
	Update(rank *Rank) error
	Delete(name string) error
	CountUsersWithRole(name string) (int64, error)
	GetUserRole(userID int64) (role string, habboName string, err error)
	UpdateUserRole(userID int64, role string) error
	CreatePromotionLog(entry *PromotionLog) error
	ListPromotionLogs(limit, offset int) ([]*PromotionLog, error)
}

type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

func (s *Service) CreateRank(dto CreateRankDTO) (*Rank, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByName(dto.Name); err == nil && existing != nil {
		return nil, internal.NewConflictError("rank already exists", internal.ErrCodeValidationFailed)
	}

	rank := &Rank{
		Name:               dto.Name,
		DisplayName:        dto.DisplayName,
		Level:              dto.Level,
		BadgeImage:         dto.BadgeImage,
		CreditsTimeHours:   dto.CreditsTimeHours,
		CreditsTimeMinutes: dto.CreditsTimeMinutes,
		CreditsPerInterval: dto.CreditsPerInterval,
		MaxSessionMinutes:  dto.MaxSessionMinutes,
		AutoComplete:       dto.AutoComplete,
	}
	if rank.DisplayName == "" {
		rank.DisplayName = dto.Name
	}
	if err := rank.EncodePermissions(dto.Permissions); err != nil {
		return nil, err
	}

	if err := s.repo.Create(rank); err != nil {
		s.logger.Error("failed to create rank", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create rank", err)
	}

	s.logger.Info("rank created", "name", rank.Name, "level", rank.Level)
	return rank, nil
}

func (s *Service) GetRank(name string) (*Rank, error) {
	rank, err := s.repo.GetByName(name)
	if err != nil {
		return nil, internal.ErrRankNotFound
	}
	rank.DecodePermissions()
	return rank, nil
}

func (s *Service) ListRanks() ([]*Rank, error) {
	ranks, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list ranks", "error", err)
		return nil, internal.NewInternalError("failed to list ranks", err)
	}
	for _, r := range ranks {
		r.DecodePermissions()
	}
	return ranks, nil
}

func (s *Service) UpdateRank(name string, dto UpdateRankDTO) (*Rank, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rank, err := s.repo.GetByName(name)
	if err != nil {
		return nil, internal.ErrRankNotFound
	}
	rank.DecodePermissions()

	if dto.DisplayName != nil {
		rank.DisplayName = *dto.DisplayName
	}
	if dto.Level != nil {
		rank.Level = *dto.Level
	}
	if dto.BadgeImage != nil {
		rank.BadgeImage = dto.BadgeImage
	}
	if dto.CreditsTimeHours != nil {
		rank.CreditsTimeHours = *dto.CreditsTimeHours
	}
	if dto.CreditsTimeMinutes != nil {
		rank.CreditsTimeMinutes = *dto.CreditsTimeMinutes
	}
	if dto.CreditsPerInterval != nil {
		rank.CreditsPerInterval = *dto.CreditsPerInterval
	}
	if dto.MaxSessionMinutes != nil {
		rank.MaxSessionMinutes = dto.MaxSessionMinutes
	}
	if dto.AutoComplete != nil {
		rank.AutoComplete = *dto.AutoComplete
	}
	if dto.Permissions != nil {
		if err := rank.EncodePermissions(*dto.Permissions); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(rank); err != nil {
		s.logger.Error("failed to update rank", "error", err, "name", name)
		return nil, internal.NewInternalError("failed to update rank", err)
	}

	s.logger.Info("rank updated", "name", name)
	return rank, nil
}

// DeleteRank refuses to remove a rank that still has users assigned.
func (s *Service) DeleteRank(name string) error {
	if _, err := s.repo.GetByName(name); err != nil {
		return internal.ErrRankNotFound
	}

	count, err := s.repo.CountUsersWithRole(name)
	if err != nil {
		return internal.NewInternalError("failed to count rank members", err)
	}
	if count > 0 {
		return internal.ErrRankInUse
	}

	if err := s.repo.Delete(name); err != nil {
		s.logger.Error("failed to delete rank", "error", err, "name", name)
		return internal.NewInternalError("failed to delete rank", err)
	}

	s.logger.Info("rank deleted", "name", name)
	return nil
}

// ChangeRole reassigns a user's rank under hierarchy rules: the actor cannot
// target themselves and, unless super_admin, must outrank both the target's
// current level and the new role's level. Every change appends an immutable
// promotion log row and invalidates the target's sessions.
func (s *Service) ChangeRole(ctx context.Context, actor *auth.Actor, dto ChangeRoleDTO) (*PromotionLog, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if actor.ID == dto.UserID {
		return nil, internal.ErrSelfPromotion
	}

	oldRole, habboName, err := s.repo.GetUserRole(dto.UserID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	newRank, err := s.repo.GetByName(dto.NewRole)
	if err != nil {
		return nil, internal.ErrRankNotFound
	}

	oldLevel := 0
	if oldRank, err := s.repo.GetByName(oldRole); err == nil {
		oldLevel = oldRank.Level
	}

	if !actor.IsSuperAdmin() {
		if actor.Level <= oldLevel || actor.Level <= newRank.Level {
			s.logger.Warn("role change denied by hierarchy",
				"actor_id", actor.ID,
				"actor_level", actor.Level,
				"target_level", oldLevel,
				"new_level", newRank.Level)
			return nil, internal.ErrHierarchyViolation
		}
	}

	reason := dto.Reason
	if reason == "" {
		switch {
		case newRank.Level > oldLevel:
			reason = "Ascenso de rango"
		case newRank.Level < oldLevel:
			reason = "Descenso de rango"
		default:
			reason = "Cambio de rango"
		}
	}

	if err := s.repo.UpdateUserRole(dto.UserID, newRank.Name); err != nil {
		s.logger.Error("failed to update user role", "error", err, "user_id", dto.UserID)
		return nil, internal.NewInternalError("failed to update user role", err)
	}

	entry := &PromotionLog{
		UserID:  dto.UserID,
		ActorID: actor.ID,
		OldRole: oldRole,
		NewRole: newRank.Name,
		Reason:  reason,
	}
	if err := s.repo.CreatePromotionLog(entry); err != nil {
		s.logger.Error("failed to write promotion log", "error", err, "user_id", dto.UserID)
		return nil, internal.NewInternalError("failed to write promotion log", err)
	}

	if err := s.bus.PublishSync(ctx, events.NewRoleChangedEvent(dto.UserID, actor.ID, oldRole, newRank.Name)); err != nil {
		// role already changed; invalidation is best effort
		s.logger.Warn("role change event handling failed", "error", err, "user_id", dto.UserID)
	}

	s.logger.Info("role changed",
		"user_id", dto.UserID,
		"habbo_name", habboName,
		"old_role", oldRole,
		"new_role", newRank.Name,
		"actor_id", actor.ID)
	return entry, nil
}

func (s *Service) ListPromotionLogs(limit, offset int) ([]*PromotionLog, error) {
	logs, err := s.repo.ListPromotionLogs(limit, offset)
	if err != nil {
		s.logger.Error("failed to list promotion logs", "error", err)
		return nil, internal.NewInternalError("failed to list promotion logs", err)
	}
	return logs, nil
}
