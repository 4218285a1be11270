package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal/auth"
	"github.com/luchovc/agency-portal/internal/rank"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the baseline ranks, config and admin user",
	Long:  `Seed the database with the default rank ladder, portal settings, business hours and an initial super admin account.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"payment_history", "time_sessions", "promotion_logs", "session_invalidations", "special_days", "business_hours", "system_config", "users", "ranks"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		seedRanks(db)
		seedAdminUser(db, cfg.Security.BCryptCost)
		seedConfig(db)
		seedBusinessHours(db)

		fmt.Println("Seeding completed")
	},
}

func seedRanks(db *gorm.DB) {
	allPerms := `["manage_users","manage_ranks","manage_payments","manage_promotions","manage_config","manage_sessions","view_dashboard","track_time"]`

	ranks := []struct {
		Name        string
		DisplayName string
		Level       int
		Permissions string
	}{
		{auth.RoleSuperAdmin, "Super Administrador", 100, allPerms},
		{"administrador", "Administrador", 90, allPerms},
		{"gerente", "Gerente", 50, fmt.Sprintf(`[%q,%q,%q,%q]`, rank.PermManagePromotions, rank.PermManageSessions, rank.PermViewDashboard, rank.PermTrackTime)},
		{auth.DefaultRole, "Miembro", 1, fmt.Sprintf(`[%q]`, rank.PermTrackTime)},
	}

	for _, rk := range ranks {
		var exists int
		if err := db.Raw("SELECT 1 FROM ranks WHERE name = ?", rk.Name).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec(
			"INSERT INTO ranks (name, display_name, level, permissions, created_at, updated_at) VALUES (?, ?, ?, ?, now(), now())",
			rk.Name, rk.DisplayName, rk.Level, rk.Permissions).Error; err != nil {
			log.Fatalf("failed to insert rank %s: %v", rk.Name, err)
		}
		fmt.Println("Seeded rank:", rk.Name)
	}
}

func seedAdminUser(db *gorm.DB, bcryptCost int) {
	adminName := "PortalAdmin"

	var exists int
	if err := db.Raw("SELECT 1 FROM users WHERE LOWER(habbo_name) = LOWER(?)", adminName).Row().Scan(&exists); err == nil {
		fmt.Println("admin user already exists:", adminName)
		return
	}

	hash, err := auth.HashPassword("ChangeMe123!", bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}

	if err := db.Exec(
		"INSERT INTO users (habbo_name, username, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, now(), now())",
		adminName, adminName, hash, auth.RoleSuperAdmin).Error; err != nil {
		log.Fatalf("failed to insert admin user: %v", err)
	}
	fmt.Println("Seeded admin user:", adminName)
}

func seedConfig(db *gorm.DB) {
	defaults := map[string]string{
		"site_title":           "Agency Portal",
		"logo_path":            "",
		"calculation_type":     "interval",
		"time_hours":           "1",
		"time_minutes":         "0",
		"credits_per_interval": "5",
		"credits_per_minute":   "0",
	}

	for key, value := range defaults {
		if err := db.Exec(
			"INSERT INTO system_config (key, value, updated_at) VALUES (?, ?, now()) ON CONFLICT (key) DO NOTHING",
			key, value).Error; err != nil {
			log.Fatalf("failed to seed config %s: %v", key, err)
		}
	}
	fmt.Println("Seeded default config")
}

func seedBusinessHours(db *gorm.DB) {
	for weekday := 0; weekday <= 6; weekday++ {
		if err := db.Exec(
			"INSERT INTO business_hours (weekday, open_time, close_time, closed, updated_at) VALUES (?, '16:00', '22:00', false, now()) ON CONFLICT (weekday) DO NOTHING",
			weekday).Error; err != nil {
			log.Fatalf("failed to seed business hours for weekday %d: %v", weekday, err)
		}
	}
	fmt.Println("Seeded business hours")
}
