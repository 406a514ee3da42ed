// Package config provides configuration loading for imxin.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then IMXIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds the complete imxin configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Storage       StorageConfig       `koanf:"storage"`
	Flow          FlowConfig          `koanf:"flow"`
	Insight       InsightConfig       `koanf:"insight"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects where drafts and logs are kept.
type StorageConfig struct {
	Backend string `koanf:"backend"` // memory, file or sqlite
	Path    string `koanf:"path"`    // directory for file, database file for sqlite
}

// FlowConfig tunes the check-in flow.
type FlowConfig struct {
	CenteringDelay time.Duration `koanf:"centering_delay"`
	Timezone       string        `koanf:"timezone"` // IANA name or "Local"; used for daily buckets
}

// Location resolves Timezone.
func (f FlowConfig) Location() (*time.Location, error) {
	if f.Timezone == "" || f.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(f.Timezone)
}

// InsightConfig holds the chat-completions endpoint used for reflections.
type InsightConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URL         string        `koanf:"url"`
	APIKey      Secret        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	RateLimit   float64       `koanf:"rate_limit"` // requests per second
	HistorySize int           `koanf:"history_size"`
	RulesFile   string        `koanf:"rules_file"` // extra scrub rules (TOML)
}

// LoggingConfig is the subset of logging settings exposed in the config file.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Protocol        string `koanf:"protocol"` // grpc or http
	Insecure        bool   `koanf:"insecure"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path required for %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q (must be memory, file or sqlite)", c.Storage.Backend)
	}

	if c.Flow.CenteringDelay <= 0 || c.Flow.CenteringDelay > time.Minute {
		return fmt.Errorf("centering delay must be in (0, 1m], got %s", c.Flow.CenteringDelay)
	}
	if _, err := c.Flow.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Flow.Timezone, err)
	}

	if c.Insight.Enabled {
		u, err := url.Parse(c.Insight.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("insight url must be an http(s) URL, got %q", c.Insight.URL)
		}
		if c.Insight.Model == "" {
			return errors.New("insight model required when insight is enabled")
		}
	}
	if c.Insight.Temperature < 0 || c.Insight.Temperature > 2 {
		return fmt.Errorf("insight temperature must be in [0, 2], got %v", c.Insight.Temperature)
	}
	if c.Insight.Timeout <= 0 {
		return errors.New("insight timeout must be positive")
	}
	if c.Insight.RateLimit <= 0 {
		return errors.New("insight rate limit must be positive")
	}
	if c.Insight.HistorySize < 0 || c.Insight.HistorySize > 10 {
		return fmt.Errorf("insight history size must be in [0, 10], got %d", c.Insight.HistorySize)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Observability.EnableTelemetry {
		if c.Observability.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
		if c.Observability.Protocol != "grpc" && c.Observability.Protocol != "http" {
			return fmt.Errorf("telemetry protocol must be 'grpc' or 'http', got %q", c.Observability.Protocol)
		}
	}

	return nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
