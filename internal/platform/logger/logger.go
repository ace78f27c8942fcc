// Package logger constructs the process-wide slog logger. Every service and
// middleware receives a *slog.Logger through its constructor; nothing logs
// through package-level state.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON logger in production and a text logger otherwise.
func New(production bool) *slog.Logger {
	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}
