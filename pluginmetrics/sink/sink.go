package sink

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
)

// ErrNilSink is returned when a wrapper is built around a nil sink.
var ErrNilSink = errors.New("sink: nil sink")

// Sink receives the latest rendered exposition text.
type Sink interface {
	SetMetrics(ctx context.Context, text string) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, text string) error

// SetMetrics implements Sink.
func (f Func) SetMetrics(ctx context.Context, text string) error {
	return f(ctx, text)
}

type published struct {
	text string
	at   time.Time
}

// Memory keeps the most recent text in memory.
type Memory struct {
	latest atomic.Pointer[published]
	now    func() time.Time
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// SetMetrics implements Sink.
func (m *Memory) SetMetrics(_ context.Context, text string) error {
	m.latest.Store(&published{text: text, at: m.now()})

	return nil
}

// Text returns the last published text, or "" before the first publish.
func (m *Memory) Text() string {
	if p := m.latest.Load(); p != nil {
		return p.text
	}

	return ""
}

// UpdatedAt returns when the text was last replaced, and false before the first publish.
func (m *Memory) UpdatedAt() (time.Time, bool) {
	if p := m.latest.Load(); p != nil {
		return p.at, true
	}

	return time.Time{}, false
}

// Tee publishes to every sink and joins their errors.
type Tee struct {
	sinks []Sink
}

// NewTee drops nil sinks and returns a Tee over the rest.
func NewTee(sinks ...Sink) *Tee {
	kept := make([]Sink, 0, len(sinks))

	for _, s := range sinks {
		if !nilcheck.Interface(s) {
			kept = append(kept, s)
		}
	}

	return &Tee{sinks: kept}
}

// SetMetrics implements Sink. Every sink is attempted even when an earlier one fails.
func (t *Tee) SetMetrics(ctx context.Context, text string) error {
	var errs []error

	for i, s := range t.sinks {
		if err := s.SetMetrics(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
