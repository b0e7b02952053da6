//go:build unit

package log

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		expected    Level
		expectError bool
	}{
		{name: "debug", input: "debug", expected: LevelDebug},
		{name: "info", input: "info", expected: LevelInfo},
		{name: "warn", input: "warn", expected: LevelWarn},
		{name: "warning alias", input: "warning", expected: LevelWarn},
		{name: "error", input: "error", expected: LevelError},
		{name: "uppercase", input: "INFO", expected: LevelInfo},
		{name: "padded", input: "  debug ", expected: LevelDebug},
		{name: "fatal is not supported", input: "fatal", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			level, err := ParseLevel(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestStringFieldIsSanitized(t *testing.T) {
	t.Parallel()

	field := String("entity_id", "acme.lang\n{\"level\":\"error\"}")

	value, ok := field.Value.(string)
	require.True(t, ok)
	assert.NotContains(t, value, "\n")
	assert.Contains(t, value, `\n`)
}

func TestSanitizeStringTruncatesLongValues(t *testing.T) {
	t.Parallel()

	out := SanitizeString(strings.Repeat("x", maxLoggedValueLength+100))

	assert.True(t, strings.HasSuffix(out, "...[truncated]"))
	assert.Len(t, out, maxLoggedValueLength+len("...[truncated]"))
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	logger := NewNop()

	assert.NotPanics(t, func() {
		logger.Log(context.Background(), LevelError, "dropped", Err(errors.New("boom")))
	})
	assert.False(t, logger.Enabled(LevelError))
	assert.Equal(t, logger, logger.With(String("k", "v")))
	assert.Equal(t, logger, logger.WithGroup("group"))
	assert.NoError(t, logger.Sync(context.Background()))
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.IsType(t, NopLogger{}, OrNop(nil))

	var typedNil *recordingLogger
	assert.IsType(t, NopLogger{}, OrNop(typedNil))

	existing := &recordingLogger{}
	assert.Same(t, existing, OrNop(existing))
}

type recordingLogger struct {
	NopLogger
	enabled bool
	entries []Field
}

func (r *recordingLogger) Enabled(_ Level) bool { return r.enabled }

func (r *recordingLogger) Log(_ context.Context, _ Level, _ string, fields ...Field) {
	r.entries = append(r.entries, fields...)
}

func TestSafeError(t *testing.T) {
	t.Parallel()

	t.Run("production logs only the error type", func(t *testing.T) {
		t.Parallel()

		rec := &recordingLogger{enabled: true}
		SafeError(context.Background(), rec, "publish failed", errors.New("secret dsn"), true)

		require.Len(t, rec.entries, 1)
		assert.Equal(t, "error_type", rec.entries[0].Key)
		assert.Equal(t, "*errors.errorString", rec.entries[0].Value)
	})

	t.Run("non production logs the error", func(t *testing.T) {
		t.Parallel()

		rec := &recordingLogger{enabled: true}
		err := errors.New("boom")
		SafeError(context.Background(), rec, "publish failed", err, false)

		require.Len(t, rec.entries, 1)
		assert.Equal(t, err, rec.entries[0].Value)
	})

	t.Run("nil error and disabled logger are ignored", func(t *testing.T) {
		t.Parallel()

		rec := &recordingLogger{enabled: false}
		SafeError(context.Background(), rec, "x", errors.New("boom"), false)
		SafeError(context.Background(), rec, "x", nil, false)
		SafeError(context.Background(), nil, "x", errors.New("boom"), false)

		assert.Empty(t, rec.entries)
	})
}
