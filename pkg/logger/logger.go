// Package logger wraps slog with the small surface the application needs:
// leveled structured logging, a process-wide instance for places without
// dependency injection, and request-scoped child loggers.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Config controls handler construction.
type Config struct {
	// Level is the minimum severity to emit: debug, info, warn or error.
	Level string
	// JSON selects the JSON handler; text otherwise.
	JSON bool
	// Output defaults to os.Stderr when nil.
	Output io.Writer
	// AddSource attaches file:line to every record.
	AddSource bool
}

// DefaultConfig is the production baseline: info-level JSON to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		JSON:   true,
		Output: os.Stderr,
	}
}

// Logger embeds slog.Logger so call sites use Info/Warn/Error directly.
type Logger struct {
	*slog.Logger
	config Config
}

var global *Logger

func parseLevel(s string) slog.Level {
	switch s {
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

// New builds a logger from config. The first logger created becomes the
// global one unless SetGlobal overrides it later.
func New(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := &Logger{Logger: slog.New(handler), config: config}
	if global == nil {
		global = l
	}
	return l
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(l *Logger) {
	global = l
}

// GetGlobal returns the process-wide logger. It is nil until the first New
// or SetGlobal call.
func GetGlobal() *Logger {
	return global
}

// LogError emits an error record with the error string as a field.
func (l *Logger) LogError(err error, msg string, args ...any) {
	l.Error(msg, append([]any{"error", err.Error()}, args...)...)
}

// WithRequestID returns a child logger tagged with the request id.
func (l *Logger) WithRequestID(requestID string) *Logger {
	if requestID == "" {
		return l
	}
	return &Logger{Logger: l.With("request_id", requestID), config: l.config}
}

// WithUserID returns a child logger tagged with the acting user.
func (l *Logger) WithUserID(userID string) *Logger {
	if userID == "" {
		return l
	}
	return &Logger{Logger: l.With("user_id", userID), config: l.config}
}

// LogRequest records one completed HTTP request.
func (l *Logger) LogRequest(method, path string, status int, latency time.Duration) {
	l.Info("request completed",
		"method", method,
		"path", path,
		"status", status,
		"latency_ms", latency.Milliseconds(),
	)
}
