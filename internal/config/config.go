package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDSN    string
	RedisDSN string
	HTTPAddr string
	LogLevel string

	// raw secret kept in-memory only; never log this
	AdminSecretKey string
	CORSOrigins    []string

	PollInterval   time.Duration
	StartStagger   time.Duration
	CounterTimeout time.Duration
	SweepInterval  time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		DBDSN:          os.Getenv("DB_DSN"),
		RedisDSN:       getenvDefault("REDIS_DSN", "redis://localhost:6379/0"),
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:       getenvDefault("LOG_LEVEL", "info"),
		AdminSecretKey: getenvDefault("ADMIN_SECRET_KEY", ""),
		PollInterval:   getenvMillis("POLL_INTERVAL_MS", time.Second),
		StartStagger:   getenvMillis("START_STAGGER_MS", 100*time.Millisecond),
		CounterTimeout: getenvMillis("COUNTER_TIMEOUT_MS", time.Hour),
		SweepInterval:  getenvMillis("DUPLICATE_SWEEP_INTERVAL_MS", time.Hour),
	}

	// An empty DB_DSN is allowed: the service then runs against the
	// in-memory store, which is only useful for development and tests.

	corsOrigins := getenvDefault("CORS_ORIGINS", "")
	if corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(corsOrigins, ",")
		for i := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
		}
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000"} // default
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvMillis(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
