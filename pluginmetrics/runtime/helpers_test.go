//go:build unit

package runtime

import (
	"context"
	"sync"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
)

type logEntry struct {
	level  log.Level
	msg    string
	fields []log.Field
}

type testLogger struct {
	log.NopLogger
	mu      sync.Mutex
	entries []logEntry
}

func newTestLogger() *testLogger {
	return &testLogger{}
}

func (l *testLogger) Enabled(log.Level) bool { return true }

func (l *testLogger) Log(_ context.Context, level log.Level, msg string, fields ...log.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *testLogger) wasPanicLogged() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.level == log.LevelError && e.msg == "panic recovered" {
			return true
		}
	}

	return false
}

func (l *testLogger) field(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		for _, f := range e.fields {
			if f.Key == key {
				return f.Value, true
			}
		}
	}

	return nil, false
}
