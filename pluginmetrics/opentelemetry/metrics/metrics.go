package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MetricsFactory creates OpenTelemetry instruments on first use and caches them
// by name. It is safe for concurrent use.
type MetricsFactory struct {
	meter      metric.Meter
	counters   sync.Map // string -> metric.Int64Counter
	gauges     sync.Map // string -> metric.Int64Gauge
	histograms sync.Map // string -> metric.Float64Histogram
	logger     log.Logger
}

// ErrNilMeter indicates that a nil OTEL meter was provided.
var ErrNilMeter = errors.New("metric meter cannot be nil")

// Metric describes an instrument.
type Metric struct {
	Name        string
	Description string
	Unit        string
	// Buckets are histogram boundaries; ignored for other kinds.
	Buckets []float64
}

// DefaultLatencyBuckets are export cycle boundaries in milliseconds.
var DefaultLatencyBuckets = []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}

// NewMetricsFactory creates a new MetricsFactory instance.
func NewMetricsFactory(meter metric.Meter, logger log.Logger) (*MetricsFactory, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	return &MetricsFactory{
		meter:  meter,
		logger: log.OrNop(logger),
	}, nil
}

// NewNopFactory returns a MetricsFactory backed by OpenTelemetry's no-op meter.
func NewNopFactory() *MetricsFactory {
	return &MetricsFactory{
		meter:  noop.NewMeterProvider().Meter("nop"),
		logger: log.NewNop(),
	}
}

// Counter returns a builder for the counter described by m.
func (f *MetricsFactory) Counter(m Metric) (*CounterBuilder, error) {
	counter, err := f.getOrCreateCounter(m)
	if err != nil {
		return nil, err
	}

	return &CounterBuilder{counter: counter, name: m.Name}, nil
}

// Gauge returns a builder for the gauge described by m.
func (f *MetricsFactory) Gauge(m Metric) (*GaugeBuilder, error) {
	gauge, err := f.getOrCreateGauge(m)
	if err != nil {
		return nil, err
	}

	return &GaugeBuilder{gauge: gauge, name: m.Name}, nil
}

// Histogram returns a builder for the histogram described by m. Nil buckets
// default to DefaultLatencyBuckets.
func (f *MetricsFactory) Histogram(m Metric) (*HistogramBuilder, error) {
	if m.Buckets == nil {
		m.Buckets = DefaultLatencyBuckets
	}

	histogram, err := f.getOrCreateHistogram(m)
	if err != nil {
		return nil, err
	}

	return &HistogramBuilder{histogram: histogram, name: m.Name}, nil
}

func (f *MetricsFactory) getOrCreateCounter(m Metric) (metric.Int64Counter, error) {
	return loadOrCreate(f, &f.counters, "counter", m.Name, func() (metric.Int64Counter, error) {
		return f.meter.Int64Counter(m.Name, metric.WithDescription(m.Description), metric.WithUnit(m.Unit))
	})
}

func (f *MetricsFactory) getOrCreateGauge(m Metric) (metric.Int64Gauge, error) {
	return loadOrCreate(f, &f.gauges, "gauge", m.Name, func() (metric.Int64Gauge, error) {
		return f.meter.Int64Gauge(m.Name, metric.WithDescription(m.Description), metric.WithUnit(m.Unit))
	})
}

// getOrCreateHistogram keys the cache by name and buckets so different bucket
// configurations yield different instruments.
func (f *MetricsFactory) getOrCreateHistogram(m Metric) (metric.Float64Histogram, error) {
	return loadOrCreate(f, &f.histograms, "histogram", histogramCacheKey(m.Name, m.Buckets), func() (metric.Float64Histogram, error) {
		opts := []metric.Float64HistogramOption{metric.WithDescription(m.Description), metric.WithUnit(m.Unit)}
		if m.Buckets != nil {
			opts = append(opts, metric.WithExplicitBucketBoundaries(m.Buckets...))
		}

		return f.meter.Float64Histogram(m.Name, opts...)
	})
}

// loadOrCreate returns the cached instrument for key or creates and caches
// one. Concurrent creators agree on the first stored instrument.
func loadOrCreate[T any](f *MetricsFactory, cache *sync.Map, kind, key string, create func() (T, error)) (T, error) {
	var zero T

	if cached, ok := cache.Load(key); ok {
		return assertInstrument[T](cached, kind, key)
	}

	created, err := create()
	if err != nil {
		f.logger.Log(context.Background(), log.LevelError, "failed to create "+kind+" metric",
			log.String("metric_name", key),
			log.Err(err),
		)

		return zero, fmt.Errorf("create %s %q: %w", kind, key, err)
	}

	actual, _ := cache.LoadOrStore(key, created)

	return assertInstrument[T](actual, kind, key)
}

func assertInstrument[T any](v any, kind, key string) (T, error) {
	instrument, ok := v.(T)
	if !ok {
		var zero T

		return zero, fmt.Errorf("%s cache contains invalid type for %q", kind, key)
	}

	return instrument, nil
}

func histogramCacheKey(name string, buckets []float64) string {
	if len(buckets) == 0 {
		return name
	}

	sortedBuckets := make([]float64, len(buckets))
	copy(sortedBuckets, buckets)
	sort.Float64s(sortedBuckets)

	bucketStrings := make([]string, len(sortedBuckets))
	for i, b := range sortedBuckets {
		bucketStrings[i] = strconv.FormatFloat(b, 'g', -1, 64)
	}

	return fmt.Sprintf("%s:%s", name, strings.Join(bucketStrings, ","))
}
