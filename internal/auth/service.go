package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/core/events"
)

// Service is the main auth service with dependencies
type Service struct {
	repo          RepositoryAPI
	tokenGen      TokenGeneratorAPI
	issuer        *CodeIssuer
	mottoVerifier MottoVerifier
	cache         ActorCache
	logger        *slog.Logger
	bcryptCost    int
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, issuer *CodeIssuer, verifier MottoVerifier, cache ActorCache, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:          repo,
		tokenGen:      tokenGen,
		issuer:        issuer,
		mottoVerifier: verifier,
		cache:         cache,
		logger:        logger,
		bcryptCost:    bcryptCost,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	userID, storedHash, err := s.repo.GetCredentials(dto.HabboName)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(storedHash, dto.Password); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	return s.issueTokens(userID, dto.HabboName)
}

// IssueVerificationCode creates a one-time code the caller must place in the
// public motto of the claimed Habbo profile before registering.
func (s *Service) IssueVerificationCode(habboName string) (VerificationCode, error) {
	dto := VerificationCodeDTO{HabboName: habboName}
	if err := dto.Validate(); err != nil {
		return VerificationCode{}, err
	}

	taken, err := s.repo.HandleExists(habboName)
	if err != nil {
		return VerificationCode{}, internal.NewInternalError("failed to check handle", err)
	}
	if taken {
		return VerificationCode{}, internal.ErrHandleTaken
	}

	code, err := s.issuer.Issue(habboName)
	if err != nil {
		return VerificationCode{}, internal.NewInternalError("failed to issue verification code", err)
	}

	s.logger.Info("verification code issued", "habbo_name", habboName, "expires_at", code.ExpiresAt)
	return code, nil
}

// Register creates the user after proving control of the external identity:
// the issued code must appear verbatim in the profile motto, checked against
// the public API server-side. On success the session is auto-established.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	taken, err := s.repo.HandleExists(dto.HabboName)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to check handle", err)
	}
	if taken {
		return AuthTokens{}, internal.ErrHandleTaken
	}

	code, err := s.issuer.Peek(dto.HabboName)
	if err != nil {
		return AuthTokens{}, err
	}

	found, err := s.mottoVerifier.MottoContains(ctx, dto.HabboName, code)
	if err != nil {
		s.logger.Error("motto verification request failed", "error", err, "habbo_name", dto.HabboName)
		return AuthTokens{}, internal.NewInternalError("profile verification unavailable", err)
	}
	if !found {
		return AuthTokens{}, internal.ErrVerificationFailed
	}

	if err := s.issuer.Consume(dto.HabboName, dto.VerificationCode); err != nil {
		return AuthTokens{}, err
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to hash password", err)
	}

	userID, err := s.repo.CreateUser(dto.HabboName, hash, DefaultRole)
	if err != nil {
		// unique constraint closes the race between concurrent registrations
		if errors.Is(err, internal.ErrHandleTaken) {
			return AuthTokens{}, internal.ErrHandleTaken
		}
		s.logger.Error("failed to create user", "error", err, "habbo_name", dto.HabboName)
		return AuthTokens{}, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", userID, "habbo_name", dto.HabboName)
	return s.issueTokens(userID, dto.HabboName)
}

// CheckAvailability reports whether a habbo name is free to register.
func (s *Service) CheckAvailability(habboName string) (bool, error) {
	taken, err := s.repo.HandleExists(habboName)
	if err != nil {
		return false, internal.NewInternalError("failed to check handle", err)
	}
	return !taken, nil
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGen.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	usable, err := s.TokenUsable(claims.UserID, claims.IssuedAt.Time)
	if err != nil {
		return AuthTokens{}, err
	}
	if !usable {
		return AuthTokens{}, internal.ErrSessionInvalidated
	}

	return s.issueTokens(claims.UserID, claims.HabboName)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGen.ValidateToken(tokenString)
}

// GetActor loads the request-scoped authorization context, read-through the
// optional cache.
func (s *Service) GetActor(ctx context.Context, userID int64) (*Actor, error) {
	if s.cache != nil {
		if actor, ok := s.cache.Get(ctx, userID); ok {
			return actor, nil
		}
	}

	actor, err := s.repo.GetActor(userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, actor)
	}
	return actor, nil
}

// Logout sets the user's invalidation marker so every token issued before
// this moment, refresh tokens included, stops working. The cached actor is
// purged alongside.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.repo.MarkInvalidated(userID, time.Now().UTC()); err != nil {
		s.logger.Error("failed to invalidate sessions on logout", "error", err, "user_id", userID)
		return internal.NewInternalError("failed to log out", err)
	}
	if s.cache != nil {
		s.cache.Purge(ctx, userID)
	}

	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// TokenUsable reports whether a token issued at the given time predates the
// user's invalidation marker (set on role changes).
func (s *Service) TokenUsable(userID int64, issuedAt time.Time) (bool, error) {
	invalidatedAt, err := s.repo.GetInvalidationTime(userID)
	if err != nil {
		return false, internal.NewInternalError("failed to read invalidation marker", err)
	}
	if invalidatedAt == nil {
		return true, nil
	}
	return issuedAt.After(*invalidatedAt), nil
}

// RegisterEventHandlers wires role changes to session invalidation: existing
// tokens stop working and the cached actor is purged.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventRoleChanged, func(ctx context.Context, event events.Event) error {
		data, ok := event.Payload().(map[string]interface{})
		if !ok {
			return fmt.Errorf("unexpected payload for %s", event.EventType())
		}
		userID, ok := data["user_id"].(int64)
		if !ok {
			return fmt.Errorf("missing user_id in %s payload", event.EventType())
		}

		if err := s.repo.MarkInvalidated(userID, event.OccurredAt()); err != nil {
			return err
		}
		if s.cache != nil {
			s.cache.Purge(ctx, userID)
		}

		s.logger.Info("sessions invalidated after role change", "user_id", userID)
		return nil
	})
}

func (s *Service) issueTokens(userID int64, habboName string) (AuthTokens, error) {
	accessToken, err := s.tokenGen.GenerateAccessToken(userID, habboName)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate access token", err)
	}

	refreshToken, err := s.tokenGen.GenerateRefreshToken(userID, habboName)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate refresh token", err)
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, habboName string) (string, error) {
	return j.signed(userID, habboName, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID int64, habboName string) (string, error) {
	return j.signed(userID, habboName, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) signed(userID int64, habboName string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		HabboName: habboName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		// refresh tokens outlive the access TTL; pick the secret accordingly
		if claims, ok := token.Claims.(*Claims); ok {
			if claims.ExpiresAt != nil && claims.IssuedAt != nil &&
				claims.ExpiresAt.Sub(claims.IssuedAt.Time) > j.AccessTokenTTL {
				return j.RefreshTokenSecret, nil
			}
		}
		return j.AccessTokenSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}
