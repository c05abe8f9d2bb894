// Package config manages gop4tg daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete gop4tg configuration.
type Config struct {
	API       APIConfig       `koanf:"api"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
	Dataplane DataplaneConfig `koanf:"dataplane"`
}

// APIConfig holds the REST API server configuration.
type APIConfig struct {
	// Addr is the HTTP listen address (e.g., ":8000").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9101").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// DataplaneConfig holds the connection parameters of the on-box dataplane
// agent that programs the ASIC.
type DataplaneConfig struct {
	// Addr is the base address of the agent (e.g., "127.0.0.1:8001").
	Addr string `koanf:"addr"`

	// RequestTimeout bounds each request to the agent.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RetryMax is the retry count for idempotent agent requests
	// (statistics and port reads). Traffic-gen start/stop is never retried.
	RetryMax int `koanf:"retry_max"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
//
// The dataplane agent listens on localhost: the daemon runs on the switch
// CPU next to it, never across the management network.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Addr: ":8000",
		},
		Metrics: MetricsConfig{
			Addr: ":9101",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Dataplane: DataplaneConfig{
			Addr:           "127.0.0.1:8001",
			RequestTimeout: 10 * time.Second,
			RetryMax:       3,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for gop4tg configuration.
// Variables are named GOP4TG_<section>_<key>, e.g., GOP4TG_API_ADDR.
const envPrefix = "GOP4TG_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (GOP4TG_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	GOP4TG_API_ADDR        -> api.addr
//	GOP4TG_METRICS_ADDR    -> metrics.addr
//	GOP4TG_METRICS_PATH    -> metrics.path
//	GOP4TG_LOG_LEVEL       -> log.level
//	GOP4TG_LOG_FORMAT      -> log.format
//	GOP4TG_DATAPLANE_ADDR  -> dataplane.addr
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	// GOP4TG_API_ADDR -> api.addr (strip prefix, lowercase, _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms GOP4TG_API_ADDR -> api.addr.
// Strips the GOP4TG_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"api.addr":                  defaults.API.Addr,
		"metrics.addr":              defaults.Metrics.Addr,
		"metrics.path":              defaults.Metrics.Path,
		"log.level":                 defaults.Log.Level,
		"log.format":                defaults.Log.Format,
		"dataplane.addr":            defaults.Dataplane.Addr,
		"dataplane.request_timeout": defaults.Dataplane.RequestTimeout.String(),
		"dataplane.retry_max":       defaults.Dataplane.RetryMax,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyAPIAddr indicates the API listen address is empty.
	ErrEmptyAPIAddr = errors.New("api.addr must not be empty")

	// ErrEmptyDataplaneAddr indicates the dataplane agent address is empty.
	ErrEmptyDataplaneAddr = errors.New("dataplane.addr must not be empty")

	// ErrInvalidRequestTimeout indicates the agent request timeout is invalid.
	ErrInvalidRequestTimeout = errors.New("dataplane.request_timeout must be > 0")

	// ErrInvalidRetryMax indicates a negative retry count.
	ErrInvalidRetryMax = errors.New("dataplane.retry_max must be >= 0")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.API.Addr == "" {
		return ErrEmptyAPIAddr
	}

	if cfg.Dataplane.Addr == "" {
		return ErrEmptyDataplaneAddr
	}

	if cfg.Dataplane.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}

	if cfg.Dataplane.RetryMax < 0 {
		return ErrInvalidRetryMax
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
