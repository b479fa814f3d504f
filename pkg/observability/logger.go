package observability

import (
	"log/slog"
	"os"
)

var defaultLogger *slog.Logger

func init() {
	// Default to JSON handler for production-like environments
	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		switch v {
		case "debug", "DEBUG":
			level = slog.LevelDebug
		case "warn", "WARN":
			level = slog.LevelWarn
		case "error", "ERROR":
			level = slog.LevelError
		}
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Logger returns the default logger
func Logger() *slog.Logger {
	return defaultLogger
}

// Component returns a child logger tagged with a component field, so every
// line a subsystem emits can be filtered by origin.
func Component(name string) *slog.Logger {
	return defaultLogger.With("component", name)
}

// Info logs at Info level
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Error logs at Error level
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}
