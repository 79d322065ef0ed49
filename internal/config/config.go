package config

import (
	"os"
	"strconv"
	"time"

	"github.com/jjenkins/lottosync/internal/service"
)

// Config holds all application configuration.
type Config struct {
	DatabaseURL string
	Port        string
	Log         LogConfig
	Scraper     ScraperConfig
}

// LogConfig controls where log lines go.
type LogConfig struct {
	// Verbose echoes log lines to stdout/stderr. Ignored when File is
	// empty; the console is then always used.
	Verbose bool // default: true

	// File receives every log line when set.
	File string
}

// ScraperConfig controls the upstream crawl.
type ScraperConfig struct {
	BaseURL   string
	UserAgent string

	// RequestDelay is the pause before every request. Never below
	// service.MinRequestDelay.
	RequestDelay time.Duration // default: 2s

	RequestTimeout time.Duration // default: 30s

	// BatchSize is the number of draws per ingest transaction.
	BatchSize int // default: 100

	// CacheFile holds the candidates of the last crawl until they are ingested.
	CacheFile string // default: data/candidates.json
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        envOr("PORT", "8080"),
		Log: LogConfig{
			Verbose: envBoolOr("DRAWSYNC_VERBOSE", true),
			File:    os.Getenv("DRAWSYNC_LOG_FILE"),
		},
		Scraper: ScraperConfig{
			BaseURL:        envOr("DRAWSYNC_BASE_URL", service.DefaultBaseURL),
			UserAgent:      envOr("DRAWSYNC_USER_AGENT", service.DefaultUserAgent),
			RequestDelay:   envDurationOr("DRAWSYNC_REQUEST_DELAY", service.MinRequestDelay),
			RequestTimeout: envDurationOr("DRAWSYNC_REQUEST_TIMEOUT", 30*time.Second),
			BatchSize:      envIntOr("DRAWSYNC_BATCH_SIZE", service.DefaultBatchSize),
			CacheFile:      envOr("DRAWSYNC_CACHE_FILE", "data/candidates.json"),
		},
	}

	if cfg.Scraper.RequestDelay < service.MinRequestDelay {
		cfg.Scraper.RequestDelay = service.MinRequestDelay
	}
	if cfg.Scraper.BatchSize <= 0 {
		cfg.Scraper.BatchSize = service.DefaultBatchSize
	}

	return cfg
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
