package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admin-mirror/internal/api"
	"admin-mirror/internal/config"
	"admin-mirror/internal/db"
	"admin-mirror/internal/logging"
	"admin-mirror/internal/mirror"
	"admin-mirror/internal/redis"
	"admin-mirror/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_service", "service", "admin-mirror", "http_addr", cfg.HTTPAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, dbConn := buildStores(ctx, logger, cfg)
	if dbConn != nil {
		defer dbConn.Close()
	}

	var redisClient *redis.Client
	if cfg.RedisDSN != "" {
		redisClient, err = redis.New(cfg.RedisDSN)
		if err != nil {
			logger.Warn("redis_connect_failed", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	merger := buildMerger(logger)

	adminService := mirror.New(logger, stores, merger, mirror.Config{
		PollInterval:   cfg.PollInterval,
		StartStagger:   cfg.StartStagger,
		CounterTimeout: cfg.CounterTimeout,
	})
	adminService.Start()
	defer adminService.Stop()

	sweep := mirror.NewSweepJob(logger, adminService, cfg.SweepInterval)
	sweep.Start()
	defer sweep.Stop()

	server := api.NewServer(logger, adminService, sweep, redisClient, cfg)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("service_started")

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", "error", err)
	}

	logger.Info("service_stopped")
}

// buildStores connects Postgres when DB_DSN is set, otherwise falls back to
// the in-memory store (development only).
func buildStores(ctx context.Context, logger *slog.Logger, cfg config.Config) (mirror.Stores, *db.DB) {
	if cfg.DBDSN == "" {
		logger.Warn("no_db_dsn_using_memory_store")
		return mirror.Stores{
			Accounts: store.NewMemoryAccounts(),
			Origins:  store.NewMemoryOrigins(),
			Auths:    store.NewMemoryAuths(),
			Ponies:   store.NewMemoryPonies(),
			Events:   store.NewMemoryEvents(),
		}, nil
	}

	var dbConn *db.DB
	var err error
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

	return mirror.Stores{
		Accounts: store.NewPostgresAccounts(dbConn.Pool),
		Origins:  store.NewPostgresOrigins(dbConn.Pool),
		Auths:    store.NewPostgresAuths(dbConn.Pool),
		Ponies:   store.NewPostgresPonies(dbConn.Pool),
		Events:   store.NewPostgresEvents(dbConn.Pool),
	}, dbConn
}

// buildMerger returns the account-consolidation collaborator. With
// MERGE_ENDPOINT set, merges are delegated to the game-server workflow over
// HTTP; otherwise decisions are only logged.
func buildMerger(logger *slog.Logger) mirror.Merger {
	endpoint := os.Getenv("MERGE_ENDPOINT")
	if endpoint == "" {
		logger.Warn("no_merge_endpoint_logging_only")
		return &logMerger{log: logger}
	}
	return &httpMerger{
		log:      logger,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type logMerger struct {
	log *slog.Logger
}

func (m *logMerger) MergeAccounts(ctx context.Context, keepID, mergeID, reason string, allowAdmin, creatingDuplicates bool) error {
	m.log.Info("merge_decision", "keep", keepID, "merge", mergeID, "reason", reason)
	return nil
}

type httpMerger struct {
	log      *slog.Logger
	endpoint string
	client   *http.Client
}

func (m *httpMerger) MergeAccounts(ctx context.Context, keepID, mergeID, reason string, allowAdmin, creatingDuplicates bool) error {
	body, err := json.Marshal(map[string]any{
		"keep":               keepID,
		"merge":              mergeID,
		"reason":             reason,
		"allowAdmin":         allowAdmin,
		"creatingDuplicates": creatingDuplicates,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("merge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("merge endpoint returned %d", resp.StatusCode)
	}
	return nil
}
