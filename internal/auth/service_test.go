package auth_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

// Mock repository for testing
type mockAuthRepository struct {
	users         map[string]mockAccount
	invalidations map[int64]time.Time
	nextID        int64
}

type mockAccount struct {
	id           int64
	passwordHash string
	role         string
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		users:         make(map[string]mockAccount),
		invalidations: make(map[int64]time.Time),
		nextID:        1,
	}
}

func (m *mockAuthRepository) addUser(habboName, password string) int64 {
	hash, _ := auth.HashPassword(password, 4)
	acc := mockAccount{id: m.nextID, passwordHash: hash, role: auth.DefaultRole}
	m.nextID++
	m.users[strings.ToLower(habboName)] = acc
	return acc.id
}

func (m *mockAuthRepository) GetCredentials(habboName string) (int64, string, error) {
	acc, ok := m.users[strings.ToLower(habboName)]
	if !ok {
		return 0, "", errors.New("user not found")
	}
	return acc.id, acc.passwordHash, nil
}

func (m *mockAuthRepository) GetActor(userID int64) (*auth.Actor, error) {
	for name, acc := range m.users {
		if acc.id == userID {
			return &auth.Actor{ID: acc.id, HabboName: name, Role: acc.role, Level: 1}, nil
		}
	}
	return nil, internal.ErrUserNotFound
}

func (m *mockAuthRepository) HandleExists(habboName string) (bool, error) {
	_, ok := m.users[strings.ToLower(habboName)]
	return ok, nil
}

func (m *mockAuthRepository) CreateUser(habboName, passwordHash, role string) (int64, error) {
	key := strings.ToLower(habboName)
	if _, ok := m.users[key]; ok {
		return 0, internal.ErrHandleTaken
	}
	acc := mockAccount{id: m.nextID, passwordHash: passwordHash, role: role}
	m.nextID++
	m.users[key] = acc
	return acc.id, nil
}

func (m *mockAuthRepository) GetInvalidationTime(userID int64) (*time.Time, error) {
	at, ok := m.invalidations[userID]
	if !ok {
		return nil, nil
	}
	return &at, nil
}

func (m *mockAuthRepository) MarkInvalidated(userID int64, at time.Time) error {
	m.invalidations[userID] = at
	return nil
}

type mockTokenGenerator struct{}

func (mockTokenGenerator) GenerateAccessToken(userID int64, habboName string) (string, error) {
	return fmt.Sprintf("access-%d-%s", userID, habboName), nil
}

func (mockTokenGenerator) GenerateRefreshToken(userID int64, habboName string) (string, error) {
	return fmt.Sprintf("refresh-%d-%s", userID, habboName), nil
}

func (mockTokenGenerator) ValidateToken(tokenString string) (*auth.Claims, error) {
	return nil, internal.ErrInvalidToken
}

type mockActorCache struct {
	actors map[int64]*auth.Actor
	purged []int64
}

func newMockActorCache() *mockActorCache {
	return &mockActorCache{actors: make(map[int64]*auth.Actor)}
}

func (m *mockActorCache) Get(ctx context.Context, userID int64) (*auth.Actor, bool) {
	a, ok := m.actors[userID]
	return a, ok
}

func (m *mockActorCache) Set(ctx context.Context, actor *auth.Actor) {
	m.actors[actor.ID] = actor
}

func (m *mockActorCache) Purge(ctx context.Context, userID int64) {
	delete(m.actors, userID)
	m.purged = append(m.purged, userID)
}

// mockMottoVerifier simulates the public profile lookup. The motto is set per
// test to control whether the code appears in it.
type mockMottoVerifier struct {
	motto string
	err   error
}

func (m *mockMottoVerifier) MottoContains(ctx context.Context, habboName, code string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return strings.Contains(m.motto, code), nil
}

var _ = Describe("AuthService", func() {
	var (
		service  *auth.Service
		repo     *mockAuthRepository
		issuer   *auth.CodeIssuer
		verifier *mockMottoVerifier
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockAuthRepository()
		issuer = auth.NewCodeIssuer(10 * time.Minute)
		verifier = &mockMottoVerifier{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = auth.NewService(repo, mockTokenGenerator{}, issuer, verifier, nil, logger, 4)
		ctx = context.Background()
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			repo.addUser("Lucho", "Secreta1!")
		})

		It("returns tokens for valid credentials", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{HabboName: "Lucho", Password: "Secreta1!"})
			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())
			Expect(tokens.RefreshToken).ToNot(BeEmpty())
		})

		It("rejects a wrong password", func() {
			_, err := service.Authenticate(auth.LoginDTO{HabboName: "Lucho", Password: "otra"})
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("rejects an unknown user with the same error", func() {
			_, err := service.Authenticate(auth.LoginDTO{HabboName: "Nadie", Password: "Secreta1!"})
			Expect(err).To(Equal(internal.ErrInvalidCredentials))
		})

		It("rejects empty input before touching the repository", func() {
			_, err := service.Authenticate(auth.LoginDTO{})
			Expect(err).To(HaveOccurred())
			Expect(err).ToNot(Equal(internal.ErrInvalidCredentials))
		})
	})

	Describe("IssueVerificationCode", func() {
		It("issues a code for a free handle", func() {
			code, err := service.IssueVerificationCode("Nuevo")
			Expect(err).ToNot(HaveOccurred())
			Expect(code.Code).To(HaveLen(8))
			Expect(code.ExpiresAt).To(BeTemporally(">", time.Now()))
		})

		It("refuses when the handle is taken", func() {
			repo.addUser("Lucho", "Secreta1!")
			_, err := service.IssueVerificationCode("Lucho")
			Expect(err).To(Equal(internal.ErrHandleTaken))
		})
	})

	Describe("Register", func() {
		var code string

		register := func(name string) (auth.AuthTokens, error) {
			return service.Register(ctx, auth.RegisterDTO{
				HabboName:        name,
				Password:         "Secreta1!",
				ConfirmPassword:  "Secreta1!",
				VerificationCode: code,
			})
		}

		BeforeEach(func() {
			issued, err := service.IssueVerificationCode("Nuevo")
			Expect(err).ToNot(HaveOccurred())
			code = issued.Code
		})

		It("creates the account when the code is in the motto", func() {
			verifier.motto = "hola " + code
			tokens, err := register("Nuevo")
			Expect(err).ToNot(HaveOccurred())
			Expect(tokens.AccessToken).ToNot(BeEmpty())

			taken, err := repo.HandleExists("nuevo")
			Expect(err).ToNot(HaveOccurred())
			Expect(taken).To(BeTrue())
		})

		It("assigns the default role", func() {
			verifier.motto = code
			_, err := register("Nuevo")
			Expect(err).ToNot(HaveOccurred())
			Expect(repo.users["nuevo"].role).To(Equal(auth.DefaultRole))
		})

		It("fails when the motto does not contain the code", func() {
			verifier.motto = "sin codigo"
			_, err := register("Nuevo")
			Expect(err).To(Equal(internal.ErrVerificationFailed))
		})

		It("fails when the profile lookup is down", func() {
			verifier.err = errors.New("timeout")
			_, err := register("Nuevo")
			Expect(err).To(HaveOccurred())
			Expect(err).ToNot(Equal(internal.ErrVerificationFailed))
		})

		It("consumes the code on success", func() {
			verifier.motto = code
			_, err := register("Nuevo")
			Expect(err).ToNot(HaveOccurred())

			_, err = issuer.Peek("Nuevo")
			Expect(err).To(Equal(internal.ErrVerificationFailed))
		})

		It("fails when the handle was taken meanwhile", func() {
			repo.addUser("Nuevo", "Secreta1!")
			verifier.motto = code
			_, err := register("Nuevo")
			Expect(err).To(Equal(internal.ErrHandleTaken))
		})

		It("rejects a weak password before any external call", func() {
			_, err := service.Register(ctx, auth.RegisterDTO{
				HabboName:        "Nuevo",
				Password:         "corta",
				ConfirmPassword:  "corta",
				VerificationCode: code,
			})
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeWeakPassword))
		})

		It("rejects mismatched passwords", func() {
			_, err := service.Register(ctx, auth.RegisterDTO{
				HabboName:        "Nuevo",
				Password:         "Secreta1!",
				ConfirmPassword:  "Distinta1!",
				VerificationCode: code,
			})
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePasswordMismatch))
		})
	})

	Describe("CheckAvailability", func() {
		It("reports free handles", func() {
			free, err := service.CheckAvailability("Nadie")
			Expect(err).ToNot(HaveOccurred())
			Expect(free).To(BeTrue())
		})

		It("reports taken handles", func() {
			repo.addUser("Lucho", "Secreta1!")
			free, err := service.CheckAvailability("Lucho")
			Expect(err).ToNot(HaveOccurred())
			Expect(free).To(BeFalse())
		})
	})

	Describe("Logout", func() {
		var (
			cache  *mockActorCache
			userID int64
		)

		BeforeEach(func() {
			userID = repo.addUser("Lucho", "Secreta1!")
			cache = newMockActorCache()
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
			tokenGen := auth.NewJWTTokenGenerator("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
			service = auth.NewService(repo, tokenGen, issuer, verifier, cache, logger, 4)
		})

		It("stops refresh tokens issued before logout", func() {
			tokens, err := service.Authenticate(auth.LoginDTO{HabboName: "Lucho", Password: "Secreta1!"})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.Logout(ctx, userID)).To(Succeed())

			_, err = service.RefreshTokens(tokens.RefreshToken)
			Expect(err).To(Equal(internal.ErrSessionInvalidated))
		})

		It("marks earlier-issued tokens unusable", func() {
			issuedAt := time.Now()
			Expect(service.Logout(ctx, userID)).To(Succeed())

			usable, err := service.TokenUsable(userID, issuedAt)
			Expect(err).ToNot(HaveOccurred())
			Expect(usable).To(BeFalse())
		})

		It("purges the cached actor", func() {
			cache.Set(ctx, &auth.Actor{ID: userID, HabboName: "Lucho"})

			Expect(service.Logout(ctx, userID)).To(Succeed())

			_, ok := cache.Get(ctx, userID)
			Expect(ok).To(BeFalse())
			Expect(cache.purged).To(ContainElement(userID))
		})

		It("leaves freshly issued tokens working after re-login", func() {
			Expect(service.Logout(ctx, userID)).To(Succeed())
			time.Sleep(1100 * time.Millisecond)

			tokens, err := service.Authenticate(auth.LoginDTO{HabboName: "Lucho", Password: "Secreta1!"})
			Expect(err).ToNot(HaveOccurred())

			refreshed, err := service.RefreshTokens(tokens.RefreshToken)
			Expect(err).ToNot(HaveOccurred())
			Expect(refreshed.AccessToken).ToNot(BeEmpty())
		})
	})

	Describe("TokenUsable", func() {
		It("accepts tokens when no marker exists", func() {
			usable, err := service.TokenUsable(1, time.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(usable).To(BeTrue())
		})

		It("rejects tokens issued before the invalidation marker", func() {
			marker := time.Now()
			Expect(repo.MarkInvalidated(1, marker)).To(Succeed())

			usable, err := service.TokenUsable(1, marker.Add(-time.Minute))
			Expect(err).ToNot(HaveOccurred())
			Expect(usable).To(BeFalse())
		})

		It("accepts tokens issued after the marker", func() {
			marker := time.Now()
			Expect(repo.MarkInvalidated(1, marker)).To(Succeed())

			usable, err := service.TokenUsable(1, marker.Add(time.Minute))
			Expect(err).ToNot(HaveOccurred())
			Expect(usable).To(BeTrue())
		})
	})

	Describe("Password complexity", func() {
		It("accepts a compliant password", func() {
			Expect(auth.ValidatePasswordComplexity("Secreta1!")).To(Succeed())
		})

		It("rejects short passwords", func() {
			Expect(auth.ValidatePasswordComplexity("Ab1!")).ToNot(Succeed())
		})

		It("rejects passwords missing a character class", func() {
			Expect(auth.ValidatePasswordComplexity("secretas1!")).ToNot(Succeed())
			Expect(auth.ValidatePasswordComplexity("SECRETAS1!")).ToNot(Succeed())
			Expect(auth.ValidatePasswordComplexity("Secretas!!")).ToNot(Succeed())
			Expect(auth.ValidatePasswordComplexity("Secretas11")).ToNot(Succeed())
		})
	})
})
