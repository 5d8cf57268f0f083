// Package config provides configuration loading for workflowd.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/meikuraledutech/workflow/repository"
	"github.com/meikuraledutech/workflow/simulator"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// Config holds the full daemon configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Store     StoreConfig      `yaml:"store"`
	Simulator simulator.Config `yaml:"simulator"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// StoreConfig selects where custom workflows are persisted.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Key    string `yaml:"key"`

	// BadgerDir is the badger data directory. Empty means in-memory.
	BadgerDir string `yaml:"badger_dir"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `yaml:"database_url"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":3000"},
		Store: StoreConfig{
			Driver: StoreMemory,
			Key:    repository.DefaultKey,
		},
		Simulator: simulator.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a file onto the defaults and applies
// environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // path comes from the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("DATABASE_URL"); val != "" {
		cfg.Store.DatabaseURL = val
	}
	if val := os.Getenv("WORKFLOW_LISTEN"); val != "" {
		cfg.Server.Listen = val
	}
	if val := os.Getenv("WORKFLOW_STORE"); val != "" {
		cfg.Store.Driver = val
	}
	if val := os.Getenv("WORKFLOW_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}

// Validate checks the configuration and normalizes case.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server configuration: listen address is empty")
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store configuration: %w", err)
	}
	if err := validateSimulator(c.Simulator); err != nil {
		return fmt.Errorf("simulator configuration: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	return nil
}

// Validate checks the store driver and its required settings.
func (c *StoreConfig) Validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Key == "" {
		c.Key = repository.DefaultKey
	}
	switch c.Driver {
	case StoreMemory, StoreBadger:
		return nil
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("driver %q requires database_url or DATABASE_URL", c.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unknown driver %q (want memory, badger or postgres)", c.Driver)
	}
}

func validateSimulator(c simulator.Config) error {
	if r := c.SuccessRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("success_rate %v outside [0, 1]", *r)
	}
	if c.LayerInterval < 0 || c.ResolveDelay < 0 || c.CompletionBuffer < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// Validate checks the level and format.
func (c *LoggingConfig) Validate() error {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	if c.Level == "" {
		c.Level = "info"
	}
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Level)
	}

	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "" {
		c.Format = "text"
	}
	switch c.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
}

// NewLogger builds a slog.Logger writing to w.
func (c LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
