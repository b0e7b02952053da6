//go:build unit

package opentelemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeTelemetry_Validation(t *testing.T) {
	t.Parallel()

	_, err := InitializeTelemetry(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilTelemetryConfig)

	_, err = InitializeTelemetry(context.Background(), &TelemetryConfig{ServiceName: "svc"})
	assert.ErrorIs(t, err, ErrMissingLibraryName)

	_, err = InitializeTelemetry(context.Background(), &TelemetryConfig{LibraryName: "lib", EnableTelemetry: true})
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestInitializeTelemetry_Disabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tl, err := InitializeTelemetry(ctx, &TelemetryConfig{
		LibraryName:    "pluginmetrics",
		ServiceName:    "pluginmetricsd",
		ServiceVersion: "test",
		DeploymentEnv:  "local",
	})
	require.NoError(t, err)

	require.NotNil(t, tl.MetricsFactory)
	require.NotNil(t, tl.Logger)
	assert.NoError(t, tl.MetricsFactory.RecordExport(ctx, "published", 1.5, 3))

	_, span := tl.Tracer().Start(ctx, "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, tl.Shutdown(ctx))
}

func TestShutdown_NilTelemetry(t *testing.T) {
	t.Parallel()

	var tl *Telemetry
	assert.NoError(t, tl.Shutdown(context.Background()))
}
