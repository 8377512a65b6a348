package internal

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the service logger: human-readable text handler in
// development, JSON for log shippers everywhere else. Every line carries
// the service name so shared log pipelines can filter on it.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}

	var handler slog.Handler
	if env == "development" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("service", "devismail")
}

// parseLogLevel maps the LOG_LEVEL value to a slog level, defaulting to
// info for anything unrecognized.
func parseLogLevel(level string) slog.Level {
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
