package log

import (
	"context"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
)

// NopLogger discards everything. The zero value is ready to use.
type NopLogger struct{}

var _ Logger = NopLogger{}

// NewNop returns a NopLogger.
//
//nolint:ireturn
func NewNop() Logger {
	return NopLogger{}
}

// Log implements Logger.
func (NopLogger) Log(context.Context, Level, string, ...Field) {}

// With implements Logger.
//
//nolint:ireturn
func (n NopLogger) With(...Field) Logger { return n }

// WithGroup implements Logger.
//
//nolint:ireturn
func (n NopLogger) WithGroup(string) Logger { return n }

// Enabled reports false for every level, so callers skip building fields.
func (NopLogger) Enabled(Level) bool { return false }

// Sync implements Logger.
func (NopLogger) Sync(context.Context) error { return nil }

// OrNop returns logger unless it is nil or a typed nil pointer.
//
//nolint:ireturn
func OrNop(logger Logger) Logger {
	if nilcheck.Interface(logger) {
		return NopLogger{}
	}

	return logger
}
