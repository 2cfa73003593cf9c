// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} environment expansion
//  2. Environment variables (fallback)
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/reconware/pos-reconcile-backend/internal/domain/model"
)

// Config represents the entire application configuration.
type Config struct {
	Storage        StorageConfig        `yaml:"storage"`
	Server         ServerConfig         `yaml:"server"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// StorageConfig holds database configuration.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ReconciliationConfig holds the default matching tolerances. Sessions may
// override any of these per request.
type ReconciliationConfig struct {
	ToleranceAmount         float64 `yaml:"tolerance_amount"`
	TolerancePercent        float64 `yaml:"tolerance_percent"`
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrEnv loads config.yaml if present, otherwise falls back to
// environment variables.
func LoadOrEnv() *Config {
	if _, err := os.Stat("config.yaml"); err == nil {
		if cfg, err := Load("config.yaml"); err == nil {
			return cfg
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := defaults()
	cfg.Storage.DatabasePath = getEnv("RECON_DB_PATH", cfg.Storage.DatabasePath)
	cfg.Server.Port = getEnvInt("RECON_PORT", cfg.Server.Port)
	cfg.Observability.Logging.Level = getEnv("RECON_LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("RECON_LOG_FORMAT", cfg.Observability.Logging.Format)
	return cfg
}

// Options converts the configured tolerances into session options, keeping
// the engine defaults for anything left unset.
func (c *Config) Options() model.Options {
	opts := model.DefaultOptions()
	if c.Reconciliation.ToleranceAmount > 0 {
		opts.ToleranceAmount = decimal.NewFromFloat(c.Reconciliation.ToleranceAmount)
	}
	if c.Reconciliation.TolerancePercent > 0 {
		opts.TolerancePercent = decimal.NewFromFloat(c.Reconciliation.TolerancePercent)
	}
	if c.Reconciliation.NameSimilarityThreshold > 0 {
		opts.NameSimilarityThreshold = c.Reconciliation.NameSimilarityThreshold
	}
	return opts
}

func defaults() *Config {
	return &Config{
		Storage: StorageConfig{DatabasePath: "reconcile.db"},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
