package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 60*time.Second, cfg.Backend.StepTimeout)
	assert.Equal(t, "statistics_orphan_finder_cache", cfg.Cache.Key)
	assert.Equal(t, 12*time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, 300*time.Millisecond, cfg.UI.SearchDebounce)
	assert.Equal(t, 24, cfg.UI.HistogramHours)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative url", func(c *Config) { c.Backend.BaseURL = "/api" }, "backend.base_url"},
		{"zero step timeout", func(c *Config) { c.Backend.StepTimeout = 0 }, "backend.step_timeout"},
		{"empty cache key", func(c *Config) { c.Cache.Key = "" }, "cache.key"},
		{"zero max age", func(c *Config) { c.Cache.MaxAge = 0 }, "cache.max_age"},
		{"odd histogram hours", func(c *Config) { c.UI.HistogramHours = 12 }, "ui.histogram_hours"},
		{"zero refresh interval", func(c *Config) { c.MCP.RefreshInterval = 0 }, "mcp.refresh_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoad_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
backend:
  base_url: http://ha.lan:8123
  step_timeout: 90s
cache:
  max_age: 6h
ui:
  histogram_hours: 48
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("ORPHAN_BACKEND_TOKEN", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://ha.lan:8123", cfg.Backend.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Backend.StepTimeout)
	assert.Equal(t, "secret", cfg.Backend.Token)
	assert.Equal(t, 6*time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, 48, cfg.UI.HistogramHours)
	// untouched keys fall back to env-default
	assert.Equal(t, 30*time.Second, cfg.Backend.RequestTimeout)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("ORPHAN_BACKEND_URL", "https://ha.example.com")
	t.Setenv("ORPHAN_HISTOGRAM_HOURS", "168")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://ha.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 168, cfg.UI.HistogramHours)
}

func TestLoad_InvalidRejected(t *testing.T) {
	t.Setenv("ORPHAN_HISTOGRAM_HOURS", "7")

	_, err := Load("")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "ui.histogram_hours", cfgErr.Field)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
