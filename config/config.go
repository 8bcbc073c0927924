// Package config loads runtime settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/billbatista/brofinance/api"
	"github.com/joho/godotenv"
)

const (
	EnvAPIURL      = "BROFINANCE_API_URL"
	EnvStateFile   = "BROFINANCE_STATE_FILE"
	EnvProfile     = "BROFINANCE_PROFILE"
	EnvDatabaseURL = "DATABASE_URL"
	EnvLogLevel    = "BROFINANCE_LOG_LEVEL"
	EnvHTTPTimeout = "BROFINANCE_HTTP_TIMEOUT"
	EnvFakeSecret  = "BROFINANCE_FAKE_SECRET"
)

type Config struct {
	APIURL string
	// StateFile holds the cached tokens and user when no database is set.
	StateFile string
	// Profile keeps several logins apart in the same database.
	Profile     string
	DatabaseURL string
	LogLevel    slog.Level
	// HTTPTimeout of zero means requests only end with their context.
	HTTPTimeout time.Duration
	FakeSecret  string
}

// Load reads .env from the working directory when there is one, then the
// environment. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		APIURL:      strings.TrimRight(getenv(EnvAPIURL, api.DefaultBaseURL), "/"),
		StateFile:   os.Getenv(EnvStateFile),
		Profile:     getenv(EnvProfile, "default"),
		DatabaseURL: os.Getenv(EnvDatabaseURL),
		FakeSecret:  os.Getenv(EnvFakeSecret),
	}

	if cfg.StateFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("locating config dir, set %s: %w", EnvStateFile, err)
		}
		cfg.StateFile = filepath.Join(dir, "brofinance", "state.json")
	}

	level, err := ParseLevel(os.Getenv(EnvLogLevel))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if raw := os.Getenv(EnvHTTPTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid %s %q", EnvHTTPTimeout, raw)
		}
		cfg.HTTPTimeout = d
	}
	return cfg, nil
}

// ParseLevel accepts debug, info, warn and error. Empty is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid %s %q", EnvLogLevel, s)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
