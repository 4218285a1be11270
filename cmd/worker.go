package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/luchovc/agency-portal/internal/core/events"
	"github.com/luchovc/agency-portal/internal/rank"
	rankpg "github.com/luchovc/agency-portal/internal/rank/postgres"
	"github.com/luchovc/agency-portal/internal/sysconfig"
	sysconfigpg "github.com/luchovc/agency-portal/internal/sysconfig/postgres"
	"github.com/luchovc/agency-portal/internal/timesession"
	timesessionpg "github.com/luchovc/agency-portal/internal/timesession/postgres"
	"github.com/luchovc/agency-portal/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers, like the session sweep that closes overrun time sessions.`,
}

var sessionWorkerCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Start the session sweep worker",
	Long:  `Periodically auto-completes active sessions that ran past their rank's maximum duration.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSessionWorker()
	},
}

var sweepInterval time.Duration

func startSessionWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orm: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewEventBus(lg)
	bus.Subscribe(events.EventSessionAutoCompleted, func(ctx context.Context, event events.Event) error {
		lg.Info("session auto-completed by sweep", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})

	configService := sysconfig.NewService(sysconfigpg.NewConfigRepository(gormDB), lg)
	rankRepo := rankpg.NewRankRepository(gormDB)
	rateResolver := rank.NewRateResolver(rankRepo, configService)
	sessionService := timesession.NewService(timesessionpg.NewSessionRepository(gormDB), rateResolver, bus, lg)

	interval := cfg.Worker.SweepInterval
	if sweepInterval > 0 {
		interval = sweepInterval
	}
	if interval <= 0 {
		interval = time.Minute
	}

	lg.Info("session sweep worker started", "interval", interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			completed, err := sessionService.AutoCompleteOverdue(ctx)
			if err != nil {
				lg.Error("session sweep failed", "error", err)
				continue
			}
			if completed > 0 {
				lg.Info("session sweep finished", "completed", completed)
			}
		case sig := <-sigChan:
			lg.Info("received signal, shutting down session worker", "signal", sig)
			return
		}
	}
}

func init() {
	sessionWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "Sweep interval (overrides config)")
	workerCmd.AddCommand(sessionWorkerCmd)
}
