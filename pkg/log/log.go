// Package log owns the process-wide slog configuration shared by the
// procflow binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

const serviceName = "procflow"

// Setup installs a stderr text handler at the requested level and tags every
// record with the service name. Unknown levels fall back to info.
func Setup(logLevel string) {
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler).With("service", serviceName))
}

// WithModule returns a child of the default logger scoped to one module of
// the engine, e.g. "api" or "orchestrator".
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
