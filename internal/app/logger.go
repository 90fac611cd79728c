package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process-wide structured logger. Production gets
// JSON output for log shipping, everything else a readable text handler.
func NewLogger(cfg Config) *slog.Logger {
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler).With(slog.String("service", "cnhd"))
}
