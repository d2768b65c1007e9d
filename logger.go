package taskpool

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// Field represents a structured logging field
type Field struct {
	Key   string
	Value any
}

// Logger defines the interface for logging within the pool. Implementations
// must be safe for concurrent use; the pool logs from worker goroutines.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)
	With(fields ...Field) Logger
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger so callers can route
// pool logs into their own logging setup.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

// NewDefaultLogger returns the logger used when no Logger is configured:
// zerolog writing to stderr at info level with timestamps.
func NewDefaultLogger() Logger {
	zl := zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	ev := l.zl.Debug()
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

func (l *zerologLogger) Info(ctx context.Context, msg string, fields ...Field) {
	ev := l.zl.Info()
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

func (l *zerologLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	ev := l.zl.Warn()
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

func (l *zerologLogger) Error(ctx context.Context, msg string, err error, fields ...Field) {
	ev := l.zl.Error().Err(err)
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

// With returns a new logger instance with the provided fields attached to
// every subsequent entry.
func (l *zerologLogger) With(fields ...Field) Logger {
	zc := l.zl.With()
	for _, f := range fields {
		zc = zc.Interface(f.Key, f.Value)
	}
	return &zerologLogger{zl: zc.Logger()}
}

// nopLogger discards everything. Useful in tests and benchmarks.
type nopLogger struct{}

// NewNopLogger returns a Logger that discards all entries.
func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(context.Context, string, ...Field)        {}
func (nopLogger) Info(context.Context, string, ...Field)         {}
func (nopLogger) Warn(context.Context, string, ...Field)         {}
func (nopLogger) Error(context.Context, string, error, ...Field) {}
func (nopLogger) With(...Field) Logger                           { return nopLogger{} }
