// Package config loads process settings from the environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	StoreBackend        string
	DatabaseURL         string
	SQLitePath          string
	ServerPort          string
	AllowedOrigins      string
	JWTSecret           string
	TrackingWarningDays int
	LowStockThreshold   int
}

// Load reads a .env file if present, then the environment. Variables already set in the
// environment take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		StoreBackend:   strings.ToLower(strings.TrimSpace(getenv("STORE_BACKEND"))),
		DatabaseURL:    getenv("DATABASE_URL"),
		SQLitePath:     getenv("SQLITE_PATH"),
		ServerPort:     getenv("SERVER_PORT"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS"),
		JWTSecret:      getenv("JWT_SECRET"),
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendPostgres
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "stockledger.db"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	var err error
	if cfg.TrackingWarningDays, err = intVar(getenv, "TRACKING_WARNING_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.LowStockThreshold, err = intVar(getenv, "LOW_STOCK_THRESHOLD", 0); err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case BackendSQLite, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want postgres, sqlite or memory)", cfg.StoreBackend)
	}

	if cfg.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET is not set, API authentication is disabled")
	}
	return cfg, nil
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}
