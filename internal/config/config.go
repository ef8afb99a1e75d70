// Package config loads service configuration from environment variables and
// optional .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	CORSOrigin  string

	Transactions TransactionsConfig
	RateLimit    RateLimitConfig
}

// TransactionsConfig bounds the transaction API surface.
type TransactionsConfig struct {
	// MaxPerListRequest caps both the list page size and the bulk batch size.
	MaxPerListRequest int
	// MaxFilterRangeDays bounds a fully specified from/to filter range.
	MaxFilterRangeDays int
	// MaxDescriptionLength bounds the free-text description.
	MaxDescriptionLength int
}

// RateLimitConfig configures the per-user write limiter.
type RateLimitConfig struct {
	WriteMax    int
	WriteWindow time.Duration
}

// Load reads configuration from the environment, loading a .env file first
// when one is present (or the explicitly given path).
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:        envOr("PORT", "8080"),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
		Transactions: TransactionsConfig{
			MaxPerListRequest:    intEnv("TX_MAX_PER_LIST", 100),
			MaxFilterRangeDays:   intEnv("TX_MAX_FILTER_RANGE_DAYS", 365),
			MaxDescriptionLength: intEnv("TX_MAX_DESCRIPTION_LENGTH", 250),
		},
		RateLimit: RateLimitConfig{
			WriteMax:    intEnv("RATE_LIMIT_WRITE_MAX", 60),
			WriteWindow: time.Duration(intEnv("RATE_LIMIT_WRITE_WINDOW_SECONDS", 60)) * time.Second,
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
