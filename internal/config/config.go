// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/jobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting (inbound, per client IP)
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// OpenDota
	OpenDotaBaseURL string
	// Minimum spacing between consecutive outbound OpenDota calls. The free
	// tier enforces a per-minute ceiling; 1.1s keeps us under it with margin.
	OpenDotaInterval time.Duration

	// Interactive fetch: parse-job polling
	PollInterval    time.Duration
	PollMaxAttempts int

	// Backfill job
	BackfillEnabled     bool
	BackfillInterval    time.Duration
	BackfillBatchSize   int
	BackfillCooldown    time.Duration // wait after a parse request before harvesting
	BackfillRequestLag  time.Duration // wait after match creation before requesting a parse
	BackfillWindow      time.Duration // matches older than this are abandoned
	BackfillMaxAttempts int

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		OpenDotaBaseURL:  envOr("OPENDOTA_BASE_URL", "https://api.opendota.com/api"),
		OpenDotaInterval: envDuration("OPENDOTA_MIN_INTERVAL", 1100*time.Millisecond),

		PollInterval:    envDuration("PARSE_POLL_INTERVAL", 4*time.Second),
		PollMaxAttempts: envInt("PARSE_POLL_MAX_ATTEMPTS", 45),

		BackfillEnabled:     envBool("BACKFILL_ENABLED", true),
		BackfillInterval:    envDuration("BACKFILL_INTERVAL", 10*time.Minute),
		BackfillBatchSize:   envInt("BACKFILL_BATCH_SIZE", 5),
		BackfillCooldown:    envDuration("BACKFILL_COOLDOWN", 5*time.Minute),
		BackfillRequestLag:  envDuration("BACKFILL_REQUEST_LAG", 45*time.Minute),
		BackfillWindow:      envDuration("BACKFILL_WINDOW", 48*time.Hour),
		BackfillMaxAttempts: envInt("BACKFILL_MAX_ATTEMPTS", 5),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
