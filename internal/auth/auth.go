package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleSuperAdmin implicitly holds every permission regardless of the stored
// permission set.
const RoleSuperAdmin = "super_admin"

// DefaultRole is assigned to self-registered users.
const DefaultRole = "miembro"

type ctxKey string

const ContextActorKey ctxKey = "actor"

// Actor is the request-scoped authorization context: the authenticated user
// together with the rank attributes every guard decision needs. It is built
// once per request by the auth middleware instead of being re-derived page
// by page.
type Actor struct {
	ID          int64    `json:"id"`
	HabboName   string   `json:"habbo_name"`
	Role        string   `json:"role"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions,omitempty"`
}

func (a *Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

func (a *Actor) HasPermission(tag string) bool {
	if a.IsSuperAdmin() {
		return true
	}
	for _, p := range a.Permissions {
		if p == tag {
			return true
		}
	}
	return false
}

func (a *Actor) HasAnyPermission(tags []string) bool {
	for _, tag := range tags {
		if a.HasPermission(tag) {
			return true
		}
	}
	return false
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(ContextActorKey).(*Actor)
	return a, ok
}

func ContextWithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, a)
}

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	Register(ctx context.Context, dto RegisterDTO) (AuthTokens, error)
	IssueVerificationCode(habboName string) (VerificationCode, error)
	CheckAvailability(habboName string) (bool, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	Logout(ctx context.Context, userID int64) error
	GetActor(ctx context.Context, userID int64) (*Actor, error)
	TokenUsable(userID int64, issuedAt time.Time) (bool, error)
}

type RepositoryAPI interface {
	GetCredentials(habboName string) (userID int64, passwordHash string, err error)
	GetActor(userID int64) (*Actor, error)
	HandleExists(habboName string) (bool, error)
	CreateUser(habboName, passwordHash, role string) (int64, error)
	GetInvalidationTime(userID int64) (*time.Time, error)
	MarkInvalidated(userID int64, at time.Time) error
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID int64, habboName string) (string, error)
	GenerateRefreshToken(userID int64, habboName string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// ActorCache is an optional read-through cache for actors; a nil cache
// disables caching.
type ActorCache interface {
	Get(ctx context.Context, userID int64) (*Actor, bool)
	Set(ctx context.Context, actor *Actor)
	Purge(ctx context.Context, userID int64)
}

// MottoVerifier checks that a verification code appears in the public motto
// of an external Habbo profile.
type MottoVerifier interface {
	MottoContains(ctx context.Context, habboName, code string) (bool, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type VerificationCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Claims struct {
	UserID    int64  `json:"user_id"`
	HabboName string `json:"habbo_name"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
