package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
	authpg "github.com/luchovc/agency-portal/internal/auth/postgres"
	"github.com/luchovc/agency-portal/internal/cache"
	"github.com/luchovc/agency-portal/internal/core/events"
	"github.com/luchovc/agency-portal/internal/habbo"
	"github.com/luchovc/agency-portal/internal/payroll"
	payrollpg "github.com/luchovc/agency-portal/internal/payroll/postgres"
	"github.com/luchovc/agency-portal/internal/rank"
	rankpg "github.com/luchovc/agency-portal/internal/rank/postgres"
	"github.com/luchovc/agency-portal/internal/sysconfig"
	sysconfigpg "github.com/luchovc/agency-portal/internal/sysconfig/postgres"
	"github.com/luchovc/agency-portal/internal/timesession"
	timesessionpg "github.com/luchovc/agency-portal/internal/timesession/postgres"
	"github.com/luchovc/agency-portal/internal/transport/rest"
	"github.com/luchovc/agency-portal/internal/user"
	userpg "github.com/luchovc/agency-portal/internal/user/postgres"
	"github.com/luchovc/agency-portal/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	GormDB   *gorm.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Sessions *timesession.Service
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	lg := logger.L()
	bus := events.NewEventBus(lg)

	// Optional redis actor cache; nil client disables caching
	var actorCache auth.ActorCache
	if config.Redis.Enabled {
		if client := cache.NewRedisClient(config.Redis); client != nil {
			actorCache = cache.NewActorCache(client, config.Redis.ActorTTL, lg)
		}
	}

	// Auth
	authRepo := authpg.NewRepository(gormDB)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	codeIssuer := auth.NewCodeIssuer(config.Habbo.CodeTTL)
	habboClient := habbo.NewClient(config.Habbo.ProfileAPIURL, config.Habbo.RequestTimeout, lg)
	authService := auth.NewService(authRepo, tokenGen, codeIssuer, habboClient, actorCache, lg, config.Security.BCryptCost)
	authService.RegisterEventHandlers(bus)

	// Settings and rates
	configRepo := sysconfigpg.NewConfigRepository(gormDB)
	configService := sysconfig.NewService(configRepo, lg)

	rankRepo := rankpg.NewRankRepository(gormDB)
	rankService := rank.NewService(rankRepo, bus, lg)
	rateResolver := rank.NewRateResolver(rankRepo, configService)

	// Time tracking and payroll
	sessionRepo := timesessionpg.NewSessionRepository(gormDB)
	sessionService := timesession.NewService(sessionRepo, rateResolver, bus, lg)

	payrollRepo := payrollpg.NewPaymentRepository(gormDB)
	payrollService := payroll.NewService(payrollRepo, rateResolver, bus, lg)

	// User administration
	userRepo := userpg.NewUserRepository(gormDB)
	userService := user.NewService(userRepo, lg, config.Security.BCryptCost)

	handlers := rest.Handlers{
		Auth:      auth.NewHandler(authService),
		Session:   timesession.NewHandler(sessionService),
		Payroll:   payroll.NewHandler(payrollService),
		Rank:      rank.NewHandler(rankService),
		User:      user.NewHandler(userService),
		Sysconfig: sysconfig.NewHandler(configService),
	}

	return &Dependencies{
		Config:   config,
		DB:       db,
		GormDB:   gormDB,
		Router:   chi.NewRouter(),
		Handlers: handlers,
		Sessions: sessionService,
		Logger:   lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
