package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/billbatista/brofinance/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIURL, EnvStateFile, EnvProfile, EnvDatabaseURL, EnvLogLevel, EnvHTTPTimeout, EnvFakeSecret} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, api.DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, "default", cfg.Profile)
	assert.Equal(t, "state.json", filepath.Base(cfg.StateFile))
	assert.Equal(t, "brofinance", filepath.Base(filepath.Dir(cfg.StateFile)))
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIURL, "https://bro.example.com/api/v1/")
	t.Setenv(EnvStateFile, "/var/lib/bro/state.json")
	t.Setenv(EnvProfile, "casa")
	t.Setenv(EnvDatabaseURL, "postgres://localhost/bro")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvHTTPTimeout, "15s")
	t.Setenv(EnvFakeSecret, "shh")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, Config{
		APIURL:      "https://bro.example.com/api/v1",
		StateFile:   "/var/lib/bro/state.json",
		Profile:     "casa",
		DatabaseURL: "postgres://localhost/bro",
		LogLevel:    slog.LevelDebug,
		HTTPTimeout: 15 * time.Second,
		FakeSecret:  "shh",
	}, cfg)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"log level", EnvLogLevel, "loud"},
		{"timeout", EnvHTTPTimeout, "soon"},
		{"negative timeout", EnvHTTPTimeout, "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvStateFile, "/tmp/state.json")
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStateFile, "/tmp/s.json")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BROFINANCE_PROFILE=depto\n"), 0o600))
	t.Chdir(dir)
	// godotenv never overrides variables that are already set, even empty.
	require.NoError(t, os.Unsetenv(EnvProfile))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "depto", cfg.Profile)
}

func TestLoad_NoDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStateFile, "/tmp/s.json")
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.NoError(t, err)
}
