//go:build unit

package runtime

import (
	"context"
	"testing"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Not parallel: the panic metrics instance is process-wide.
func TestPanicMetrics_RecordedOnRecovery(t *testing.T) {
	ResetPanicMetrics()
	t.Cleanup(ResetPanicMetrics)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	factory, err := metrics.NewMetricsFactory(provider.Meter("test"), nil)
	require.NoError(t, err)

	InitPanicMetrics(factory, nil)
	require.NotNil(t, GetPanicMetrics())

	func() {
		defer RecoverAndLogWithContext(context.Background(), newTestLogger(), "exporter", "tick")

		panic("boom")
	}()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != panicRecoveredMetric.Name {
				continue
			}

			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}

	assert.Equal(t, int64(1), total)
}

func TestInitPanicMetrics_NilFactoryIsIgnored(t *testing.T) {
	ResetPanicMetrics()
	t.Cleanup(ResetPanicMetrics)

	InitPanicMetrics(nil, nil)
	assert.Nil(t, GetPanicMetrics())

	var pm *PanicMetrics
	assert.NotPanics(t, func() { pm.RecordPanicRecovered(context.Background(), "a", "b") })
}
