// Package log wraps log/slog with a component attribute so every line
// identifies the subsystem that produced it.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger carries a component name into every record.
type Logger struct {
	*slog.Logger
	component string
}

// ParseLevel maps a LOG_LEVEL-style string to a slog level, defaulting
// to info for unknown values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New creates a logger writing text records to stdout at level.
func New(level slog.Level, component string) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler), component: component}
}

// NewFromEnv builds a logger honoring the LOG_LEVEL variable.
func NewFromEnv(component string) *Logger {
	return New(ParseLevel(os.Getenv("LOG_LEVEL")), component)
}

// WithComponent returns a logger labeled with a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

// With returns a logger with extra attributes attached.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// Component returns the logger's component name.
func (l *Logger) Component() string { return l.component }

func (l *Logger) attrs(args []any) []any {
	return append([]any{"component", l.component}, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.attrs(args)...) }
func (l *Logger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.attrs(args)...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.attrs(args)...) }
func (l *Logger) Error(msg string, args ...any) { l.Logger.Error(msg, l.attrs(args)...) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.Logger.DebugContext(ctx, msg, l.attrs(args)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Logger.InfoContext(ctx, msg, l.attrs(args)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.Logger.WarnContext(ctx, msg, l.attrs(args)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Logger.ErrorContext(ctx, msg, l.attrs(args)...)
}

// SetDefault installs l as the process-wide slog default so packages
// logging through slog directly share the same handler.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
