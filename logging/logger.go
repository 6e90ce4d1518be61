package logging

import (
	"log/slog"
	"os"
)

// Logger defines the minimal structured logging interface used throughout the
// execution core. Args are alternating key/value pairs in the slog style.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewJSONLogger creates a Logger writing JSON lines to stdout at the given
// level. Suitable default for services.
func NewJSONLogger(level slog.Level) Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return NewSlogAdapter(slog.New(h))
}

// NoOpLogger discards all log messages. Useful for testing or when logging is
// disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// With returns a Logger that attaches the given key/value pairs to every
// entry. Loggers without native attribute support fall back to prefixing the
// args on each call.
func With(l Logger, args ...any) Logger {
	if sa, ok := l.(*SlogAdapter); ok {
		return &SlogAdapter{Logger: sa.Logger.With(args...)}
	}
	return &prefixed{l: l, args: args}
}

type prefixed struct {
	l    Logger
	args []any
}

func (p *prefixed) merge(args []any) []any {
	out := make([]any, 0, len(p.args)+len(args))
	out = append(out, p.args...)
	return append(out, args...)
}

func (p *prefixed) Debug(msg string, args ...any) { p.l.Debug(msg, p.merge(args)...) }
func (p *prefixed) Info(msg string, args ...any)  { p.l.Info(msg, p.merge(args)...) }
func (p *prefixed) Warn(msg string, args ...any)  { p.l.Warn(msg, p.merge(args)...) }
func (p *prefixed) Error(msg string, args ...any) { p.l.Error(msg, p.merge(args)...) }
