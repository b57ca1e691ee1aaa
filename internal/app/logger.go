package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger from LOG_FORMAT. JSON output is
// meant for deployed environments; anything else falls back to the text
// handler for local reading.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
