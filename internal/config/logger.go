package config

import (
	"io"
	"log/slog"
)

// NewLogger returns a slog.Logger writing to w in the configured format.
// Logs go to stderr in the CLI so stdout carries only records.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if cfg != nil {
		if l, err := ParseLevel(cfg.LogLevel); err == nil {
			level = l
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
