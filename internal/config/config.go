// Package config reads application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	StorePath   string // YAML store location, empty means the default path
	DatabaseURL string // when set, postgres is used instead of the YAML store
	LogLevel    string
	Environment string
	CronSpec    string // watch mode recompute schedule
	MaxCycles   int
}

// Load reads configuration from environment variables and a .env file
// if one is present. godotenv never overrides variables already set in
// the environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		StorePath:   os.Getenv("FINTRACK_STORE"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MaxCycles:   recurrence.DefaultMaxCycles,
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("FINTRACK_LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("FINTRACK_ENV"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpec = os.Getenv("FINTRACK_CRON")
	if cfg.CronSpec == "" {
		cfg.CronSpec = "0 * * * *" // hourly
	}

	if raw := os.Getenv("FINTRACK_MAX_CYCLES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid FINTRACK_MAX_CYCLES %q", raw)
		}
		cfg.MaxCycles = n
	}

	return cfg, nil
}
