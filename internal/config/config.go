// Package config loads the orphan finder configuration from YAML and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	UI      UIConfig      `yaml:"ui"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// BackendConfig points at the statistics orphan finder HTTP endpoint.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"        env:"ORPHAN_BACKEND_URL"     env-default:"http://homeassistant.local:8123"`
	Token          string        `yaml:"token"           env:"ORPHAN_BACKEND_TOKEN"`
	StepTimeout    time.Duration `yaml:"step_timeout"    env:"ORPHAN_STEP_TIMEOUT"    env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"ORPHAN_REQUEST_TIMEOUT" env-default:"30s"`
}

// CacheConfig controls the local snapshot cache.
type CacheConfig struct {
	Path         string        `yaml:"path"           env:"ORPHAN_CACHE_PATH"           env-default:"orphanfinder.duckdb"`
	Key          string        `yaml:"key"            env:"ORPHAN_CACHE_KEY"            env-default:"statistics_orphan_finder_cache"`
	MaxAge       time.Duration `yaml:"max_age"        env:"ORPHAN_CACHE_MAX_AGE"        env-default:"12h"`
	MaxBytes     int64         `yaml:"max_bytes"      env:"ORPHAN_CACHE_MAX_BYTES"      env-default:"5242880"`
	MinFreeBytes uint64        `yaml:"min_free_bytes" env:"ORPHAN_CACHE_MIN_FREE_BYTES" env-default:"16777216"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"ORPHAN_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"ORPHAN_LOG_FORMAT" env-default:"text"`
	File   string `yaml:"file"   env:"ORPHAN_LOG_FILE"`
}

// UIConfig holds terminal panel settings.
type UIConfig struct {
	SearchDebounce time.Duration `yaml:"search_debounce" env:"ORPHAN_SEARCH_DEBOUNCE" env-default:"300ms"`
	HistogramHours int           `yaml:"histogram_hours" env:"ORPHAN_HISTOGRAM_HOURS" env-default:"24"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	ServerName      string        `yaml:"server_name"      env:"ORPHAN_MCP_NAME"             env-default:"orphanfinder"`
	ServerVersion   string        `yaml:"server_version"   env:"ORPHAN_MCP_VERSION"          env-default:"1.0.0"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"ORPHAN_MCP_REFRESH_INTERVAL" env-default:"15m"`
}

// Default returns the built-in defaults without reading the environment.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:        "http://homeassistant.local:8123",
			StepTimeout:    60 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Path:         "orphanfinder.duckdb",
			Key:          "statistics_orphan_finder_cache",
			MaxAge:       12 * time.Hour,
			MaxBytes:     5 << 20,
			MinFreeBytes: 16 << 20,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		UI: UIConfig{
			SearchDebounce: 300 * time.Millisecond,
			HistogramHours: 24,
		},
		MCP: MCPConfig{
			ServerName:      "orphanfinder",
			ServerVersion:   "1.0.0",
			RefreshInterval: 15 * time.Minute,
		},
	}
}

// Load reads path (YAML) when given, otherwise the environment only.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration and returns a *ConfigError on the first problem.
func (c Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "backend.base_url", Message: "must be an absolute URL"}
	}
	if c.Backend.StepTimeout <= 0 {
		return &ConfigError{Field: "backend.step_timeout", Message: "must be positive"}
	}
	if c.Backend.RequestTimeout <= 0 {
		return &ConfigError{Field: "backend.request_timeout", Message: "must be positive"}
	}
	if c.Cache.Key == "" {
		return &ConfigError{Field: "cache.key", Message: "must not be empty"}
	}
	if c.Cache.MaxAge <= 0 {
		return &ConfigError{Field: "cache.max_age", Message: "must be positive"}
	}
	if c.Cache.MaxBytes <= 0 {
		return &ConfigError{Field: "cache.max_bytes", Message: "must be positive"}
	}
	switch c.UI.HistogramHours {
	case 24, 48, 168:
	default:
		return &ConfigError{Field: "ui.histogram_hours", Message: "must be 24, 48 or 168"}
	}
	if c.UI.SearchDebounce < 0 {
		return &ConfigError{Field: "ui.search_debounce", Message: "must not be negative"}
	}
	if c.MCP.RefreshInterval <= 0 {
		return &ConfigError{Field: "mcp.refresh_interval", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
