// internal/logger/logger.go
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with service context
type Logger struct {
	service string
	logger  *slog.Logger
}

// New creates a new logger instance for a service
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger writing key=value lines to w at the given level
func NewWithWriter(service string, w io.Writer, level string) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{
		service: service,
		logger:  slog.New(handler).With("service", service),
	}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return NewWithWriter("discard", io.Discard, "error")
}

// With returns a logger that adds keyvals to every record
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{service: l.service, logger: l.logger.With(keyvals...)}
}

// Info logs an info message
func (l *Logger) Info(message string, keyvals ...interface{}) {
	l.logger.Info(message, keyvals...)
}

// Error logs an error message
func (l *Logger) Error(message string, keyvals ...interface{}) {
	l.logger.Error(message, keyvals...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, keyvals ...interface{}) {
	l.logger.Warn(message, keyvals...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, keyvals ...interface{}) {
	l.logger.Debug(message, keyvals...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, keyvals ...interface{}) {
	l.logger.Error(message, keyvals...)
	os.Exit(1)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
