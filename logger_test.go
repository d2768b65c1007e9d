package taskpool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type logEntry struct {
	level  string
	msg    string
	err    error
	fields []Field
}

func (e logEntry) field(key string) (any, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// recordingLogger captures every entry so tests can assert on what the pool
// logged.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, err error, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, err: err, fields: fields})
}

func (l *recordingLogger) find(level, msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func (l *recordingLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

func (l *recordingLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.add("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.add("info", msg, nil, fields)
}

func (l *recordingLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.add("warn", msg, nil, fields)
}

func (l *recordingLogger) Error(_ context.Context, msg string, err error, fields ...Field) {
	l.add("error", msg, err, fields)
}

func (l *recordingLogger) With(fields ...Field) Logger {
	return &boundRecorder{rec: l, with: fields}
}

type boundRecorder struct {
	rec  *recordingLogger
	with []Field
}

func (b *boundRecorder) merge(fields []Field) []Field {
	out := make([]Field, 0, len(b.with)+len(fields))
	out = append(out, b.with...)
	out = append(out, fields...)
	return out
}

func (b *boundRecorder) Debug(_ context.Context, msg string, fields ...Field) {
	b.rec.add("debug", msg, nil, b.merge(fields))
}

func (b *boundRecorder) Info(_ context.Context, msg string, fields ...Field) {
	b.rec.add("info", msg, nil, b.merge(fields))
}

func (b *boundRecorder) Warn(_ context.Context, msg string, fields ...Field) {
	b.rec.add("warn", msg, nil, b.merge(fields))
}

func (b *boundRecorder) Error(_ context.Context, msg string, err error, fields ...Field) {
	b.rec.add("error", msg, err, b.merge(fields))
}

func (b *boundRecorder) With(fields ...Field) Logger {
	return &boundRecorder{rec: b.rec, with: b.merge(fields)}
}

func TestZerologLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf)).With(
		Field{Key: "component", Value: "taskpool"},
	)

	logger.Info(context.Background(), "pool started", Field{Key: "workers", Value: 4})
	logger.Error(context.Background(), "task failed", errors.New("boom"), Field{Key: "task", Value: "clean"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)

	var started map[string]any
	assert.NoError(t, json.Unmarshal([]byte(lines[0]), &started))
	assert.Equal(t, "info", started["level"])
	assert.Equal(t, "pool started", started["message"])
	assert.Equal(t, "taskpool", started["component"])
	assert.Equal(t, float64(4), started["workers"])

	var failed map[string]any
	assert.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))
	assert.Equal(t, "error", failed["level"])
	assert.Equal(t, "boom", failed["error"])
	assert.Equal(t, "clean", failed["task"])
}

func TestDefaultLoggerSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	logger.Debug(context.Background(), "worker started")
	assert.Empty(t, buf.String())
}
