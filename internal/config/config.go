package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the process configuration, loaded from the environment.
type Config struct {
	// Database
	DBPath string

	// Web server
	Bind string

	// Session
	JWTSecret     string
	TokenDuration time.Duration

	// Offline payment reconciliation
	GatewayURL    string
	SweepInterval time.Duration
}

// Load reads configuration from the environment, with a .env file as a
// non-fatal fallback.
func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:     getEnvDefault("DB_PATH", "./data/roomledger.db"),
		Bind:       getEnvDefault("BIND", "0.0.0.0:8080"),
		JWTSecret:  getEnvDefault("JWT_SECRET", "dev-only-change-me"),
		GatewayURL: os.Getenv("GATEWAY_URL"),
	}

	var err error
	cfg.TokenDuration, err = parseDuration("TOKEN_DURATION", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval, err = parseDuration("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 5m: %w", key, err)
	}
	return d, nil
}
