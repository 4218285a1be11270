package user

import (
	"log/slog"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
)

// Repository defines the data access methods for account administration
type Repository interface {
	List() ([]*UserEntry, error)
	GetByID(id int64) (*User, error)
	Create(user *User) error
	Update(user *User) error
	Delete(id int64) error
	RoleExists(name string) (bool, error)
}

type Service struct {
	repo       Repository
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func (s *Service) ListUsers() ([]*UserEntry, error) {
	entries, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}
	return entries, nil
}

func (s *Service) GetUser(id int64) (*User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

// CreateUser provisions an account directly. Unlike self-registration there
// is no motto verification step; the caller already passed an admin gate.
func (s *Service) CreateUser(dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.RoleExists(dto.Role)
	if err != nil {
		return nil, internal.NewInternalError("failed to check role", err)
	}
	if !exists {
		return nil, internal.ErrRankNotFound
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		HabboName:    dto.HabboName,
		Username:     dto.HabboName,
		PasswordHash: hash,
		Role:         dto.Role,
	}
	if err := s.repo.Create(u); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to create user", "error", err, "habbo_name", dto.HabboName)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created by admin", "user_id", u.ID, "habbo_name", u.HabboName, "role", u.Role)
	return u, nil
}

func (s *Service) UpdateUser(id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	if dto.ProfileImage != nil {
		u.ProfileImage = dto.ProfileImage
	}
	if dto.Password != nil {
		hash, err := auth.HashPassword(*dto.Password, s.bcryptCost)
		if err != nil {
			return nil, internal.NewInternalError("failed to hash password", err)
		}
		u.PasswordHash = hash
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", id, "password_reset", dto.Password != nil)
	return u, nil
}

// DeleteUser removes the account and its sessions. Payment rows survive
// because they carry a habbo_name snapshot.
func (s *Service) DeleteUser(actorID, id int64) error {
	if actorID == id {
		return internal.NewForbiddenError("no puedes eliminar tu propia cuenta", internal.ErrCodeSelfPromotion)
	}

	if _, err := s.repo.GetByID(id); err != nil {
		return internal.ErrUserNotFound
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", id, "actor_id", actorID)
	return nil
}
