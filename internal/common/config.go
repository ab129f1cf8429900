// Package common provides shared utilities for Kestrel
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for Kestrel
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Engine      EngineConfig  `toml:"engine"`
	Data        DataConfig    `toml:"data"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"` // backtest submissions per second
	RateBurst int     `toml:"rate_burst"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	Path string `toml:"path"` // BadgerHold data directory
}

// EngineConfig holds simulation engine configuration.
type EngineConfig struct {
	Commission   string `toml:"commission"`    // flat commission per fill, decimal string
	MaxParallel  int    `toml:"max_parallel"`  // concurrent backtest runs in a batch
	DefaultsFrom string `toml:"defaults_from"` // reserved
}

// GetCommission parses the flat commission, defaulting to 5.
func (c *EngineConfig) GetCommission() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Commission))
	if err != nil {
		return decimal.NewFromInt(5)
	}
	return d
}

// DataConfig holds bar ingestion configuration.
type DataConfig struct {
	ImportDir string `toml:"import_dir"` // directory of .ind CSV files imported at startup
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: 2,
			RateBurst: 5,
		},
		Storage: StorageConfig{
			Path: "data/kestrel",
		},
		Engine: EngineConfig{
			Commission:  "5",
			MaxParallel: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KESTREL_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("KESTREL_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("KESTREL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("KESTREL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("KESTREL_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "kestrel")
	}

	if commission := os.Getenv("KESTREL_COMMISSION"); commission != "" {
		config.Engine.Commission = commission
	}

	if dir := os.Getenv("KESTREL_IMPORT_DIR"); dir != "" {
		config.Data.ImportDir = dir
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
