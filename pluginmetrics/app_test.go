//go:build unit

package pluginmetrics

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingApp struct {
	runs atomic.Int32
	err  error
}

func (a *countingApp) Run(*Launcher) error {
	a.runs.Add(1)

	return a.err
}

func TestLauncher_RunsEveryApp(t *testing.T) {
	t.Parallel()

	exporter := &countingApp{}
	server := &countingApp{err: errors.New("listen failed")}

	l := NewLauncher(WithLogger(log.NewNop()), RunApp("exporter", exporter), RunApp("server", server))

	err := l.RunWithError()
	require.Error(t, err)
	assert.ErrorContains(t, err, "server: listen failed")
	assert.Equal(t, int32(1), exporter.runs.Load())
	assert.Equal(t, int32(1), server.runs.Load())
}

func TestLauncher_Errors(t *testing.T) {
	t.Parallel()

	var nilLauncher *Launcher
	assert.ErrorIs(t, nilLauncher.RunWithError(), ErrNilLauncher)
	assert.ErrorIs(t, nilLauncher.Add("x", &countingApp{}), ErrNilLauncher)

	assert.ErrorIs(t, NewLauncher().RunWithError(), ErrLoggerNil)

	l := NewLauncher(WithLogger(log.NewNop()))
	assert.ErrorIs(t, l.Add(" ", &countingApp{}), ErrEmptyApp)

	var nilApp *countingApp
	assert.ErrorIs(t, l.Add("exporter", nilApp), ErrNilApp)

	require.NoError(t, l.Add("exporter", &countingApp{}))
	assert.ErrorIs(t, l.Add("exporter", &countingApp{}), ErrDuplicateApp)
	assert.NoError(t, l.RunWithError())

	bad := NewLauncher(WithLogger(log.NewNop()), RunApp("", &countingApp{}))
	err := bad.RunWithError()
	require.ErrorIs(t, err, ErrConfigFailed)
	assert.ErrorIs(t, err, ErrEmptyApp)
}
