// Package logging builds the slog loggers shared by all redscan components.
// Components receive a *slog.Logger and scope it with
// logger.With("component", ...).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/probelab/redscan/internal/config"
)

// New constructs a slog.Logger from logging configuration.
// Unknown levels fall back to info; unknown formats fall back to text.
func New(cfg config.LoggingConfig) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter constructs a slog.Logger writing to w. Used by tests to
// capture output.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// parseLevel maps a config level string to a slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
