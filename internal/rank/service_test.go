package rank_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
	"github.com/luchovc/agency-portal/internal/core/events"
	"github.com/luchovc/agency-portal/internal/rank"
)

func TestRank(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rank Suite")
}

// Mock repository for testing
type mockRankRepository struct {
	ranks      map[string]*rank.Rank
	userRoles  map[int64]string
	userNames  map[int64]string
	logs       []*rank.PromotionLog
	roleCounts map[string]int64
}

func newMockRankRepository() *mockRankRepository {
	return &mockRankRepository{
		ranks:      make(map[string]*rank.Rank),
		userRoles:  make(map[int64]string),
		userNames:  make(map[int64]string),
		roleCounts: make(map[string]int64),
	}
}

func (m *mockRankRepository) addRank(name string, level int) {
	rk := &rank.Rank{Name: name, DisplayName: name, Level: level, Permissions: "[]"}
	m.ranks[name] = rk
}

func (m *mockRankRepository) addUser(id int64, name, role string) {
	m.userRoles[id] = role
	m.userNames[id] = name
	m.roleCounts[role]++
}

func (m *mockRankRepository) Create(rk *rank.Rank) error {
	m.ranks[rk.Name] = rk
	return nil
}

func (m *mockRankRepository) GetByName(name string) (*rank.Rank, error) {
	rk, ok := m.ranks[name]
	if !ok {
		return nil, errors.New("rank not found")
	}
	return rk, nil
}

func (m *mockRankRepository) List() ([]*rank.Rank, error) {
	var out []*rank.Rank
	for _, rk := range m.ranks {
		out = append(out, rk)
	}
	return out, nil
}

func (m *mockRankRepository) Update(rk *rank.Rank) error {
	m.ranks[rk.Name] = rk
	return nil
}

func (m *mockRankRepository) Delete(name string) error {
	delete(m.ranks, name)
	return nil
}

func (m *mockRankRepository) CountUsersWithRole(name string) (int64, error) {
	return m.roleCounts[name], nil
}

func (m *mockRankRepository) GetUserRole(userID int64) (string, string, error) {
	role, ok := m.userRoles[userID]
	if !ok {
		return "", "", errors.New("user not found")
	}
	return role, m.userNames[userID], nil
}

func (m *mockRankRepository) UpdateUserRole(userID int64, role string) error {
	old := m.userRoles[userID]
	m.roleCounts[old]--
	m.userRoles[userID] = role
	m.roleCounts[role]++
	return nil
}

func (m *mockRankRepository) CreatePromotionLog(entry *rank.PromotionLog) error {
	entry.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, entry)
	return nil
}

func (m *mockRankRepository) ListPromotionLogs(limit, offset int) ([]*rank.PromotionLog, error) {
	return m.logs, nil
}

var _ = Describe("RankService", func() {
	var (
		service *rank.Service
		repo    *mockRankRepository
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockRankRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(logger)
		service = rank.NewService(repo, bus, logger)
		ctx = context.Background()

		repo.addRank("super_admin", 100)
		repo.addRank("gerente", 50)
		repo.addRank("operador", 30)
		repo.addRank("miembro", 1)

		repo.addUser(1, "Jefe", "super_admin")
		repo.addUser(2, "Mando", "gerente")
		repo.addUser(3, "Currito", "miembro")
	})

	Describe("ChangeRole", func() {
		manager := &auth.Actor{ID: 2, HabboName: "Mando", Role: "gerente", Level: 50}

		It("promotes a lower-ranked user to a lower rank", func() {
			entry, err := service.ChangeRole(ctx, manager, rank.ChangeRoleDTO{UserID: 3, NewRole: "operador"})
			Expect(err).ToNot(HaveOccurred())
			Expect(entry.OldRole).To(Equal("miembro"))
			Expect(entry.NewRole).To(Equal("operador"))
			Expect(entry.Reason).To(Equal("Ascenso de rango"))
			Expect(repo.userRoles[3]).To(Equal("operador"))
			Expect(repo.logs).To(HaveLen(1))
		})

		It("rejects assigning a role at the actor's own level", func() {
			_, err := service.ChangeRole(ctx, manager, rank.ChangeRoleDTO{UserID: 3, NewRole: "gerente"})
			Expect(err).To(Equal(internal.ErrHierarchyViolation))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("no puedes asignar un rol igual o superior al tuyo"))
			Expect(repo.userRoles[3]).To(Equal("miembro"))
			Expect(repo.logs).To(BeEmpty())
		})

		It("rejects targeting a user at or above the actor's level", func() {
			_, err := service.ChangeRole(ctx, manager, rank.ChangeRoleDTO{UserID: 1, NewRole: "miembro"})
			Expect(err).To(Equal(internal.ErrHierarchyViolation))
		})

		It("rejects self-target even for super admins", func() {
			boss := &auth.Actor{ID: 1, Role: "super_admin", Level: 100}
			_, err := service.ChangeRole(ctx, boss, rank.ChangeRoleDTO{UserID: 1, NewRole: "miembro"})
			Expect(err).To(Equal(internal.ErrSelfPromotion))
		})

		It("lets super admins bypass the hierarchy check", func() {
			boss := &auth.Actor{ID: 1, Role: "super_admin", Level: 100}
			entry, err := service.ChangeRole(ctx, boss, rank.ChangeRoleDTO{UserID: 2, NewRole: "miembro"})
			Expect(err).ToNot(HaveOccurred())
			Expect(entry.Reason).To(Equal("Descenso de rango"))
		})

		It("fails for an unknown target role", func() {
			_, err := service.ChangeRole(ctx, manager, rank.ChangeRoleDTO{UserID: 3, NewRole: "fantasma"})
			Expect(err).To(Equal(internal.ErrRankNotFound))
		})

		It("keeps a caller-provided reason", func() {
			boss := &auth.Actor{ID: 1, Role: "super_admin", Level: 100}
			entry, err := service.ChangeRole(ctx, boss, rank.ChangeRoleDTO{UserID: 3, NewRole: "operador", Reason: "Buen desempeño"})
			Expect(err).ToNot(HaveOccurred())
			Expect(entry.Reason).To(Equal("Buen desempeño"))
		})
	})

	Describe("CreateRank", func() {
		It("rejects unknown permission tags", func() {
			_, err := service.CreateRank(rank.CreateRankDTO{
				Name:        "auditor",
				Level:       10,
				Permissions: []string{"launch_rockets"},
			})
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidPermission))
		})

		It("stores validated permissions", func() {
			created, err := service.CreateRank(rank.CreateRankDTO{
				Name:        "auditor",
				Level:       10,
				Permissions: []string{rank.PermViewDashboard, rank.PermTrackTime},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(created.PermissionTags).To(ConsistOf(rank.PermViewDashboard, rank.PermTrackTime))
		})
	})

	Describe("DeleteRank", func() {
		It("refuses to delete a rank with members", func() {
			err := service.DeleteRank("miembro")
			Expect(err).To(Equal(internal.ErrRankInUse))
		})

		It("deletes an empty rank", func() {
			Expect(service.DeleteRank("operador")).To(Succeed())
			_, err := repo.GetByName("operador")
			Expect(err).To(HaveOccurred())
		})
	})
})
