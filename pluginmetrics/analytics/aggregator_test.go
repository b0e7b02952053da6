//go:build unit

package analytics

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	pmzap "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/zap"
)

var hover = Key{EntityID: "acme.lang", Operation: "hover"}

func TestRecord_Counts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	outcomes := []bool{true, false, true, true, false, true, true}
	wantSuccess := uint64(0)

	for _, ok := range outcomes {
		agg.Record(ctx, hover, ok, 1)

		if ok {
			wantSuccess++
		}
	}

	rec, ok := agg.Get(hover)
	require.True(t, ok)
	assert.Equal(t, uint64(len(outcomes)), rec.TotalRequests)
	assert.Equal(t, wantSuccess, rec.SuccessfulResponses)
}

func TestRecord_RunningMeanEqualsArithmeticMean(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	latencies := []float64{12.5, 3, 0, 250, 41.25, 7, 7, 1e-3}
	sum := 0.0

	for _, l := range latencies {
		agg.Record(ctx, hover, true, l)
		sum += l
	}

	rec, _ := agg.Get(hover)
	assert.InDelta(t, sum/float64(len(latencies)), rec.AvgLatency, 1e-9)
}

func TestRecord_InvalidLatencyIsClamped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	agg.Record(ctx, hover, true, -5)
	agg.Record(ctx, hover, true, math.NaN())
	agg.Record(ctx, hover, true, math.Inf(1))
	agg.Record(ctx, hover, true, 30)

	rec, _ := agg.Get(hover)
	assert.InDelta(t, 7.5, rec.AvgLatency, 1e-9)
}

func TestRecord_BlankEntityCreatesNoKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	agg.Record(ctx, Key{EntityID: "", Operation: "m"}, true, 10)
	agg.Record(ctx, Key{EntityID: "  ", Operation: "m"}, true, 10)
	agg.Compensate(ctx, Key{Operation: "m"})
	assert.False(t, agg.Correct(ctx, Key{Operation: "m"}))

	assert.Zero(t, agg.Len())
	assert.Empty(t, agg.Snapshot())
	assert.Zero(t, agg.Anomalies())
}

func TestCompensate_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	agg.Record(ctx, hover, true, 20)
	agg.Compensate(ctx, hover)

	rec, ok := agg.Get(hover)
	require.True(t, ok)
	assert.Equal(t, Record{}, rec)
	assert.Zero(t, agg.Anomalies())
}

func TestCompensate_Clamping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing key is not created", func(t *testing.T) {
		t.Parallel()

		agg := New()
		agg.Compensate(ctx, hover)

		rec, ok := agg.Get(hover)
		assert.False(t, ok)
		assert.Equal(t, Record{}, rec)
		assert.Equal(t, uint64(1), agg.Anomalies())
	})

	t.Run("zero state stays at zero", func(t *testing.T) {
		t.Parallel()

		agg := New()
		agg.Record(ctx, hover, true, 1)
		agg.Compensate(ctx, hover)
		agg.Compensate(ctx, hover)
		agg.Compensate(ctx, hover)

		rec, _ := agg.Get(hover)
		assert.Equal(t, uint64(0), rec.TotalRequests)
		assert.Equal(t, uint64(0), rec.SuccessfulResponses)
		assert.Equal(t, uint64(2), agg.Anomalies())
	})

	t.Run("failures only keeps invariant", func(t *testing.T) {
		t.Parallel()

		agg := New()
		agg.Record(ctx, hover, false, 1)
		agg.Record(ctx, hover, false, 1)
		agg.Compensate(ctx, hover)

		rec, _ := agg.Get(hover)
		assert.Equal(t, uint64(1), rec.TotalRequests)
		assert.Equal(t, uint64(0), rec.SuccessfulResponses)
		assert.Equal(t, uint64(1), agg.Anomalies())
	})
}

func TestCorrect_AcmeHoverScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	for range 9 {
		agg.Record(ctx, hover, true, 10)
	}

	agg.Record(ctx, hover, false, 50)
	require.True(t, agg.Correct(ctx, hover))

	rec, _ := agg.Get(hover)
	assert.Equal(t, uint64(10), rec.TotalRequests)
	assert.Equal(t, uint64(8), rec.SuccessfulResponses)
	assert.InDelta(t, 14.0, rec.AvgLatency, 1e-9)
}

func TestCorrect_NothingToRetract(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()
	unknown := Key{EntityID: "acme.lang", Operation: "unknown"}

	assert.False(t, agg.Correct(ctx, unknown))

	rec, ok := agg.Get(unknown)
	require.True(t, ok)
	assert.Equal(t, Record{}, rec)
	assert.Equal(t, uint64(1), agg.Anomalies())
}

func TestConcurrentMutations_PreserveInvariant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	const workers, perWorker = 8, 500

	var wg sync.WaitGroup

	for w := range workers {
		wg.Add(2)

		go func() {
			defer wg.Done()

			for range perWorker {
				agg.Record(ctx, hover, true, float64(w))
			}
		}()

		go func() {
			defer wg.Done()

			for range perWorker / 5 {
				agg.Correct(ctx, hover)

				for _, s := range agg.Snapshot() {
					assert.LessOrEqual(t, s.SuccessfulResponses, s.TotalRequests)
				}
			}
		}()
	}

	wg.Wait()

	rec, _ := agg.Get(hover)
	assert.Equal(t, uint64(workers*perWorker), rec.TotalRequests)
	assert.Equal(t, rec.TotalRequests-rec.SuccessfulResponses, uint64(workers*perWorker/5)-agg.Anomalies())
}

func TestSnapshot_SortedCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	agg.Record(ctx, Key{EntityID: "b.ext", Operation: "hover"}, true, 1)
	agg.Record(ctx, Key{EntityID: "a.ext", Operation: "rename"}, true, 1)
	agg.Record(ctx, Key{EntityID: "a.ext", Operation: "completion"}, false, 1)

	snap := agg.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, Key{EntityID: "a.ext", Operation: "completion"}, snap[0].Key)
	assert.Equal(t, Key{EntityID: "a.ext", Operation: "rename"}, snap[1].Key)
	assert.Equal(t, Key{EntityID: "b.ext", Operation: "hover"}, snap[2].Key)

	snap[0].TotalRequests = 99

	rec, _ := agg.Get(snap[0].Key)
	assert.Equal(t, uint64(1), rec.TotalRequests)
}

func TestReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	agg := New()

	agg.Record(ctx, hover, true, 1)
	agg.Compensate(ctx, Key{EntityID: "x", Operation: "y"})
	agg.Reset()

	assert.Zero(t, agg.Len())
	assert.Zero(t, agg.Anomalies())
	assert.Empty(t, agg.Snapshot())
}

func TestRecord_SuccessRatio(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Record{}.SuccessRatio())
	assert.InDelta(t, 0.8, Record{TotalRequests: 10, SuccessfulResponses: 8}.SuccessRatio(), 1e-12)
}

func TestAnomaly_LoggedAndCounted(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	factory, err := metrics.NewMetricsFactory(provider.Meter("test"), nil)
	require.NoError(t, err)

	agg := New(WithLogger(pmzap.NewWithCore(core)), WithMetricsFactory(factory))
	agg.Compensate(context.Background(), hover)

	entries := logs.FilterMessage("compensation anomaly").All()
	require.Len(t, entries, 1)
	assert.Equal(t, AnomalyMissingKey, entries[0].ContextMap()["reason"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	assert.Equal(t, metrics.MetricCompensationAnomalies.Name, rm.ScopeMetrics[0].Metrics[0].Name)
}
