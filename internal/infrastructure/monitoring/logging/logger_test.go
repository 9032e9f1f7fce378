package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: LevelInfo, Format: format, OutputPaths: []string{"stdout"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_EmptyOutputPaths(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewLogger_DefaultsOutput(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestConvenienceConstructors(t *testing.T) {
	assert.NotNil(t, NewDefaultLogger())
	assert.NotNil(t, NewDevelopmentLogger())
	assert.NotNil(t, NewNopLogger())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("Error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	l.Debug("hidden")
	l.Info("parsed", String("notation", "CCBr"), Int("carbons", 2), Float64("ea", 15.5),
		Bool("cached", false), Duration("took", time.Millisecond), Strings("groups", []string{"alkyl-halide"}))
	l.Warn("slow")
	l.Error("failed", Err(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "parsed", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "CCBr", ctx["notation"])
	assert.Equal(t, int64(2), ctx["carbons"])
	assert.Equal(t, 15.5, ctx["ea"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestZapLogger_WithContextAddsRequestID(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	l.WithContext(ctx).Info("handled")
	l.WithContext(context.Background()).Info("plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0].ContextMap()[RequestIDKey])
	_, ok := entries[1].ContextMap()[RequestIDKey]
	assert.False(t, ok)
}

func TestZapLogger_WithAndWithError(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	child := l.With(String("component", "scorer")).WithError(errors.New("bad row"))
	child.Info("validated")
	l.Info("parent untouched")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "scorer", entries[0].ContextMap()["component"])
	assert.Equal(t, "bad row", entries[0].ContextMap()["error"])
	assert.Empty(t, entries[1].ContextMap())
}

func TestZapLogger_Named(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	l.Named("http").Named("reactions").Info("ok")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "http.reactions", logs.All()[0].LoggerName)
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestRequestIDFromContext_Nil(t *testing.T) {
	//nolint:staticcheck
	assert.Empty(t, RequestIDFromContext(nil))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.WithContext(context.Background()))
	assert.Equal(t, l, l.WithError(errors.New("e")))
	assert.Equal(t, l, l.Named("n"))
	assert.NoError(t, l.Sync())
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	custom, _ := newObserved(zapcore.InfoLevel)
	SetDefault(custom)
	assert.Equal(t, custom, Default())

	SetDefault(nil)
	assert.Equal(t, custom, Default())
}
