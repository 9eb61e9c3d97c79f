// Package config loads application configuration from defaults, an optional
// YAML file, and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" yaml:"read_timeout"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" yaml:"write_timeout"`
}

// DatabaseConfig selects the persistence backend. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN string `env:"DATABASE_URL" yaml:"dsn"`
}

// LoggingConfig mirrors pkg/logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" yaml:"level"`
	Format     string `env:"LOG_FORMAT" yaml:"format"`
	Output     string `env:"LOG_OUTPUT" yaml:"output"`
	FilePrefix string `env:"LOG_FILE_PREFIX" yaml:"file_prefix"`
}

// StockConfig controls the scheduled stock resynchronization pass. An empty
// cron spec disables it.
type StockConfig struct {
	ResyncCron string `env:"STOCK_RESYNC_CRON" yaml:"resync_cron"`
}

// RateLimitConfig controls the HTTP token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" yaml:"requests_per_second"`
	Burst             int     `env:"RATE_LIMIT_BURST" yaml:"burst"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Stock     StockConfig     `yaml:"stock"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
	}
}

// Load builds the configuration. When CONFIG_FILE points at a YAML file its
// values override the defaults, and environment variables override both.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}
