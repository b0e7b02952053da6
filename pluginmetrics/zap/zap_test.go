//go:build unit

package zap

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	logpkg "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(level)

	return NewWithCore(core), observed
}

func newBufferedLogger(level zapcore.Level) (*Logger, *strings.Builder) {
	buf := &strings.Builder{}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(buf), level)

	return NewWithCore(core), buf
}

func TestLoggerNilReceiverFallsBackToNop(t *testing.T) {
	var nilLogger *Logger

	assert.NotPanics(t, func() {
		nilLogger.Log(context.Background(), logpkg.LevelError, "message")
		nilLogger.With(logpkg.String("k", "v")).Log(context.Background(), logpkg.LevelInfo, "message")
	})
}

func TestLogDispatchesLevels(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)
	ctx := context.Background()

	logger.Log(ctx, logpkg.LevelDebug, "debug message")
	logger.Log(ctx, logpkg.LevelInfo, "info message", logpkg.String("entity_id", "acme.lang"))
	logger.Log(ctx, logpkg.LevelWarn, "warn message")
	logger.Log(ctx, logpkg.LevelError, "error message", logpkg.Err(errors.New("boom")))
	logger.Log(ctx, logpkg.Level(99), "fallback message")

	entries := observed.All()
	require.Len(t, entries, 5)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "acme.lang", entries[1].ContextMap()["entity_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[4].Level)
}

func TestLogAppendsTraceIdentifiers(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.Log(ctx, logpkg.LevelInfo, "correlated")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, traceID.String(), entries[0].ContextMap()["trace_id"])
	assert.Equal(t, spanID.String(), entries[0].ContextMap()["span_id"])
}

func TestFieldsKeepTypesAndAreSanitized(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)

	logger.Log(context.Background(), logpkg.LevelInfo, "typed",
		logpkg.String("entity_id", "acme\nforged"),
		logpkg.Int("keys", 3),
		logpkg.Bool("applied", true),
		logpkg.Err(errors.New("line1\nline2")),
		logpkg.Err(nil),
	)

	entries := observed.All()
	require.Len(t, entries, 1)

	ctxMap := entries[0].ContextMap()
	assert.NotContains(t, ctxMap["entity_id"], "\n")
	assert.Equal(t, int64(3), ctxMap["keys"])
	assert.Equal(t, true, ctxMap["applied"])
	assert.NotContains(t, ctxMap["error"], "\n")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	logger, observed := newObservedLogger(zapcore.DebugLevel)
	child := logger.With(logpkg.String("component", "exporter"))

	logger.Log(context.Background(), logpkg.LevelInfo, "parent")
	child.Log(context.Background(), logpkg.LevelInfo, "child")

	entries := observed.All()
	require.Len(t, entries, 2)

	_, parentHas := entries[0].ContextMap()["component"]
	assert.False(t, parentHas)
	assert.Equal(t, "exporter", entries[1].ContextMap()["component"])
}

func TestEnabledFollowsCoreLevel(t *testing.T) {
	logger, _ := newObservedLogger(zapcore.WarnLevel)

	assert.True(t, logger.Enabled(logpkg.LevelError))
	assert.True(t, logger.Enabled(logpkg.LevelWarn))
	assert.False(t, logger.Enabled(logpkg.LevelInfo))
	assert.False(t, logger.Enabled(logpkg.LevelDebug))
}

func TestSyncHonoursCancelledContext(t *testing.T) {
	logger, _ := newObservedLogger(zapcore.DebugLevel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, logger.Sync(ctx), context.Canceled)
	assert.NoError(t, logger.Sync(context.Background()))
}

func TestMessageNewlineInjectionStaysOnOneLine(t *testing.T) {
	logger, buf := newBufferedLogger(zapcore.DebugLevel)

	logger.Log(context.Background(), logpkg.LevelWarn,
		"Request hover failed\n{\"level\":\"error\",\"msg\":\"forged entry\"}")
	_ = logger.Sync(context.Background())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Environment: EnvironmentProduction})
	require.Error(t, err)

	_, _, err = New(Config{Environment: "moon", OTelLibraryName: "pluginmetrics"})
	require.Error(t, err)

	_, _, err = New(Config{Environment: EnvironmentProduction, OTelLibraryName: "pluginmetrics", Level: "loud"})
	require.Error(t, err)
}

func TestNewResolvesLevelByEnvironment(t *testing.T) {
	t.Parallel()

	logger, level, err := New(Config{Environment: EnvironmentLocal, OTelLibraryName: "pluginmetrics"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.Equal(t, zapcore.DebugLevel, logger.Level().Level())

	_, level, err = New(Config{Environment: EnvironmentProduction, OTelLibraryName: "pluginmetrics"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level.Level())

	_, level, err = New(Config{Environment: EnvironmentProduction, OTelLibraryName: "pluginmetrics", Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level.Level())
}

func TestNewWritesToRotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pluginmetrics.log")

	logger, _, err := New(Config{
		Environment:     EnvironmentProduction,
		OTelLibraryName: "pluginmetrics",
		FilePath:        path,
	})
	require.NoError(t, err)

	logger.Log(context.Background(), logpkg.LevelInfo, "to file")
	require.NoError(t, logger.Sync(context.Background()))

	assert.FileExists(t, path)
}
