package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admin-mirror/internal/config"
	"admin-mirror/internal/db"
	"admin-mirror/internal/logging"
	"admin-mirror/internal/mirror"
	"admin-mirror/internal/store"
)

// Headless mirror worker: keeps the cache warm and runs the duplicate sweep
// without serving the lookup API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_worker", "service", "admin-mirror-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DBDSN == "" {
		logger.Error("db_dsn_required")
		os.Exit(1)
	}

	// Connect to PostgreSQL (with retry)
	var dbConn *db.DB
	for i := 0; i < 5; i++ {
		dbConn, err = db.New(ctx, cfg.DBDSN)
		if err == nil {
			break
		}
		logger.Warn("db_connect_retry", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	adminService := mirror.New(logger, mirror.Stores{
		Accounts: store.NewPostgresAccounts(dbConn.Pool),
		Origins:  store.NewPostgresOrigins(dbConn.Pool),
		Auths:    store.NewPostgresAuths(dbConn.Pool),
		Ponies:   store.NewPostgresPonies(dbConn.Pool),
		Events:   store.NewPostgresEvents(dbConn.Pool),
	}, &logOnlyMerger{log: logger}, mirror.Config{
		PollInterval:   cfg.PollInterval,
		StartStagger:   cfg.StartStagger,
		CounterTimeout: cfg.CounterTimeout,
	})
	adminService.Start()

	sweep := mirror.NewSweepJob(logger, adminService, cfg.SweepInterval)
	sweep.Start()

	logger.Info("worker_started")

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	sweep.Stop()
	adminService.Stop()
	dbConn.Close()
	logger.Info("db_closed")

	logger.Info("worker_stopped")
}

type logOnlyMerger struct {
	log *slog.Logger
}

func (m *logOnlyMerger) MergeAccounts(ctx context.Context, keepID, mergeID, reason string, allowAdmin, creatingDuplicates bool) error {
	m.log.Info("merge_decision", "keep", keepID, "merge", mergeID, "reason", reason)
	return nil
}
