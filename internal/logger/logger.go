package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger: JSON lines in production, text otherwise.
func New(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	switch env {
	case "production", "prod":
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}
