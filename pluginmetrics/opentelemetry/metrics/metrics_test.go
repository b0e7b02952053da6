//go:build unit

package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestFactory(t *testing.T) (*MetricsFactory, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	factory, err := NewMetricsFactory(provider.Meter("test"), nil)
	require.NoError(t, err)

	return factory, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}

	return metricdata.Metrics{}, false
}

func TestNewMetricsFactory_NilMeter(t *testing.T) {
	t.Parallel()

	factory, err := NewMetricsFactory(nil, nil)
	require.ErrorIs(t, err, ErrNilMeter)
	assert.Nil(t, factory)
}

func TestCounter_IsCached(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)
	ctx := context.Background()

	first, err := factory.Counter(MetricCompensationAnomalies)
	require.NoError(t, err)
	second, err := factory.Counter(MetricCompensationAnomalies)
	require.NoError(t, err)

	assert.Equal(t, first.counter, second.counter)

	require.NoError(t, first.AddOne(ctx))
	require.NoError(t, second.Add(ctx, 2))

	m, ok := findMetric(collect(t, reader), MetricCompensationAnomalies.Name)
	require.True(t, ok)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestRecordCompensationAnomaly_LabelsReason(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)
	ctx := context.Background()

	require.NoError(t, factory.RecordCompensationAnomaly(ctx, "missing_key"))
	require.NoError(t, factory.RecordCompensationAnomaly(ctx, "missing_key"))
	require.NoError(t, factory.RecordCompensationAnomaly(ctx, "zero_counter"))

	m, ok := findMetric(collect(t, reader), MetricCompensationAnomalies.Name)
	require.True(t, ok)

	sum := m.Data.(metricdata.Sum[int64])
	values := map[string]int64{}

	for _, dp := range sum.DataPoints {
		reason, _ := dp.Attributes.Value(attribute.Key("reason"))
		values[reason.AsString()] = dp.Value
	}

	assert.Equal(t, map[string]int64{"missing_key": 2, "zero_counter": 1}, values)
}

func TestRecordExport(t *testing.T) {
	t.Parallel()

	factory, reader := newTestFactory(t)
	ctx := context.Background()

	require.NoError(t, factory.RecordExport(ctx, "published", 4.5, 7))

	rm := collect(t, reader)

	counter, ok := findMetric(rm, MetricExports.Name)
	require.True(t, ok)
	assert.Equal(t, int64(1), counter.Data.(metricdata.Sum[int64]).DataPoints[0].Value)

	histogram, ok := findMetric(rm, MetricExportDuration.Name)
	require.True(t, ok)

	hist := histogram.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 4.5, hist.DataPoints[0].Sum, 1e-9)

	gauge, ok := findMetric(rm, MetricExportedKeys.Name)
	require.True(t, ok)
	assert.Equal(t, int64(7), gauge.Data.(metricdata.Gauge[int64]).DataPoints[0].Value)
}

func TestNopFactory(t *testing.T) {
	t.Parallel()

	factory := NewNopFactory()
	ctx := context.Background()

	assert.NoError(t, factory.RecordCorrelationDropped(ctx, "unmatched"))
	assert.NoError(t, factory.RecordExport(ctx, "empty", 0, 0))
}

func TestBuilders_NilInstrument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.ErrorIs(t, (&CounterBuilder{}).AddOne(ctx), ErrNilCounter)
	assert.ErrorIs(t, (&GaugeBuilder{}).Set(ctx, 1), ErrNilGauge)
	assert.ErrorIs(t, (&HistogramBuilder{}).Record(ctx, 1), ErrNilHistogram)
}

func TestHistogramCacheKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "latency", histogramCacheKey("latency", nil))
	assert.Equal(t, "latency:1,5,10", histogramCacheKey("latency", []float64{10, 1, 5}))
}
