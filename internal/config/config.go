// Package config provides configuration loading and management for plotd.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/plotconfig/internal/types"
)

// Config represents the complete plotd configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Session  SessionConfig  `yaml:"session"`
	Editor   EditorConfig   `yaml:"editor"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port int `yaml:"port"`
}

// CatalogConfig configures where the dataset catalog comes from
type CatalogConfig struct {
	// Seed is the CUE file the catalog is loaded from
	Seed string `yaml:"seed"`
	// DSN is an optional SQLite DSN; the seed is imported into it and the
	// server reads from SQLite instead of memory
	DSN string `yaml:"dsn"`
}

// SessionConfig configures editor session expiry
type SessionConfig struct {
	MaxAge          time.Duration `yaml:"max_age"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// EditorConfig configures the dimension resolvers
type EditorConfig struct {
	// DefaultAxisMode is the initial axis mode of unconstrained dimensions
	DefaultAxisMode types.AxisMode `yaml:"default_axis_mode"`
	// DiscardStale drops resolve results overtaken by a newer cycle (default: true)
	DiscardStale *bool `yaml:"discard_stale"`
}

// SnapshotConfig configures completed-configuration storage
type SnapshotConfig struct {
	// DSN is an optional SQLite DSN (empty = in-memory store)
	DSN string `yaml:"dsn"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Catalog: CatalogConfig{
			Seed: "catalog.cue",
		},
		Session: SessionConfig{
			MaxAge:          24 * time.Hour,
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Editor: EditorConfig{
			DefaultAxisMode: types.AxisSingle,
			DiscardStale:    types.Bool(true),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Catalog.Seed == "" {
		return fmt.Errorf("catalog.seed is required")
	}
	switch c.Editor.DefaultAxisMode {
	case types.AxisSingle, types.AxisAggregate:
	default:
		return fmt.Errorf("editor.default_axis_mode must be %q or %q", types.AxisSingle, types.AxisAggregate)
	}
	if c.Session.MaxAge < 0 || c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session timeouts must not be negative")
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session.cleanup_interval must be positive")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DiscardStale reports whether stale resolve results are dropped.
func (c *Config) DiscardStale() bool {
	return c.Editor.DiscardStale == nil || *c.Editor.DiscardStale
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}

	if other.Catalog.Seed != "" {
		c.Catalog.Seed = other.Catalog.Seed
	}
	if other.Catalog.DSN != "" {
		c.Catalog.DSN = other.Catalog.DSN
	}

	if other.Session.MaxAge != 0 {
		c.Session.MaxAge = other.Session.MaxAge
	}
	if other.Session.IdleTimeout != 0 {
		c.Session.IdleTimeout = other.Session.IdleTimeout
	}
	if other.Session.CleanupInterval != 0 {
		c.Session.CleanupInterval = other.Session.CleanupInterval
	}

	if other.Editor.DefaultAxisMode != "" {
		c.Editor.DefaultAxisMode = other.Editor.DefaultAxisMode
	}
	if other.Editor.DiscardStale != nil {
		c.Editor.DiscardStale = types.Bool(*other.Editor.DiscardStale)
	}

	if other.Snapshot.DSN != "" {
		c.Snapshot.DSN = other.Snapshot.DSN
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
