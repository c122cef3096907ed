package log

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T, level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(level)
	l, err := New(Config{Component: ComponentHTTP, Core: core})
	require.NoError(t, err)
	return l, logs
}

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := New(Config{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.Equal(t, ComponentApp, l.Component())
	}

	_, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "parse log level")

	_, err = New(Config{Level: "info", Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")
}

func TestLogger_AddsComponent(t *testing.T) {
	l, logs := newObserved(t, zapcore.DebugLevel)

	l.InfoContext(context.Background(), "hello", "k", "v")
	l.WithComponent(ComponentAuth).WarnContext(context.Background(), "careful")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "hello", entries[0].Message)
	assert.Equal(t, ComponentHTTP, entries[0].ContextMap()[FieldComponent])
	assert.Equal(t, "v", entries[0].ContextMap()["k"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, ComponentAuth, entries[1].ContextMap()[FieldComponent])
}

func TestLogger_LevelFilter(t *testing.T) {
	l, logs := newObserved(t, zapcore.InfoLevel)
	l.DebugContext(context.Background(), "hidden")
	l.ErrorContext(context.Background(), "shown")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestStructuredLogger_HTTPEndLevels(t *testing.T) {
	l, logs := newObserved(t, zapcore.DebugLevel)
	sl := NewStructuredLogger(l)
	r := httptest.NewRequest(http.MethodGet, "/api/expenses?limit=2", nil)

	sl.LogHTTPEnd(context.Background(), r, "req_1", http.StatusOK, 3, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), r, "req_2", http.StatusNotFound, 3, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), r, "req_3", http.StatusInternalServerError, 3, "10.0.0.1")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req_1", fields[FieldRequestID])
	assert.Equal(t, "limit=2", fields[FieldQuery])
	assert.Equal(t, true, fields[FieldSuccess])
}

func TestStructuredLogger_LogError(t *testing.T) {
	l, logs := newObserved(t, zapcore.DebugLevel)
	NewStructuredLogger(l).LogError(context.Background(), "insert failed", errors.New("disk full"),
		ErrorTypeDatabase, "bulk_create", NewFields().WithOwner("alice"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "disk full", fields[FieldError])
	assert.Equal(t, ErrorTypeDatabase, fields[FieldErrorType])
	assert.Equal(t, "alice", fields[FieldOwnerID])
	assert.Equal(t, "bulk_create", fields[FieldOperation])
}

func TestContextMiddleware(t *testing.T) {
	l, logs := newObserved(t, zapcore.DebugLevel)

	var got *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req_42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req_42", logs.All()[0].ContextMap()[FieldRequestID])

	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}
