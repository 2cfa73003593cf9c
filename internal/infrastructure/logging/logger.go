// Package logging provides structured logging built on slog.
package logging

import (
	"log/slog"
	"os"

	"github.com/reconware/pos-reconcile-backend/internal/infrastructure/config"
)

// NewLogger creates a structured logger based on config.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// NewLoggerWithSystem creates a logger scoped to one subsystem
// (e.g. "api", "reconcile", "storage").
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	return NewLogger(cfg).With("system", system)
}
