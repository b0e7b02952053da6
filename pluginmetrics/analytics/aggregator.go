package analytics

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
)

// Anomaly reasons reported on the compensation anomaly counter.
const (
	AnomalyMissingKey       = "missing_key"
	AnomalyZeroCounter      = "zero_counter"
	AnomalyNothingToRetract = "nothing_to_retract"
)

type entry struct {
	mu  sync.Mutex
	rec Record
}

// Aggregator is the single owner of the aggregate store.
type Aggregator struct {
	entries   sync.Map // Key -> *entry
	size      atomic.Int64
	anomalies atomic.Uint64
	logger    log.Logger
	factory   *metrics.MetricsFactory
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used to report anomalies.
func WithLogger(logger log.Logger) Option {
	return func(a *Aggregator) {
		if !nilcheck.Interface(logger) {
			a.logger = logger
		}
	}
}

// WithMetricsFactory reports anomalies on pluginmetrics_compensation_anomalies_total.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(a *Aggregator) {
		if factory != nil {
			a.factory = factory
		}
	}
}

// New returns an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		logger:  log.NewNop(),
		factory: metrics.NewNopFactory(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

func (a *Aggregator) load(key Key) (*entry, bool) {
	v, ok := a.entries.Load(key)
	if !ok {
		return nil, false
	}

	return v.(*entry), true
}

func (a *Aggregator) loadOrCreate(key Key) *entry {
	if e, ok := a.load(key); ok {
		return e
	}

	v, loaded := a.entries.LoadOrStore(key, &entry{})
	if !loaded {
		a.size.Add(1)
	}

	return v.(*entry)
}

// Record counts one request for key. A blank entity id is ignored and creates no key.
func (a *Aggregator) Record(_ context.Context, key Key, success bool, latencyMillis float64) {
	if nilcheck.Blank(key.EntityID) {
		return
	}

	latency := normalizeLatency(latencyMillis)

	e := a.loadOrCreate(key)

	e.mu.Lock()
	e.rec.observe(success, latency)
	e.mu.Unlock()
}

// Compensate retracts one previously recorded success. Missing keys are not
// created; counters already at zero are clamped. Both cases count an anomaly.
func (a *Aggregator) Compensate(ctx context.Context, key Key) {
	if nilcheck.Blank(key.EntityID) {
		return
	}

	e, ok := a.load(key)
	if !ok {
		a.anomaly(ctx, key, AnomalyMissingKey)

		return
	}

	e.mu.Lock()
	clamped := e.rec.TotalRequests == 0 || e.rec.SuccessfulResponses == 0

	if e.rec.TotalRequests > 0 {
		e.rec.TotalRequests--
	}

	if e.rec.SuccessfulResponses > 0 {
		e.rec.SuccessfulResponses--
	}

	if e.rec.TotalRequests == 0 {
		e.rec.AvgLatency = 0
	}
	e.mu.Unlock()

	if clamped {
		a.anomaly(ctx, key, AnomalyZeroCounter)
	}
}

// Correct reclassifies one recorded success of key as a failure: a failure
// record at zero latency followed by Compensate, applied under one key lock.
// TotalRequests and AvgLatency are unchanged; SuccessfulResponses drops by one.
// When there is no success to retract the key is still created and an anomaly is counted.
func (a *Aggregator) Correct(ctx context.Context, key Key) bool {
	if nilcheck.Blank(key.EntityID) {
		return false
	}

	e := a.loadOrCreate(key)

	e.mu.Lock()
	retracted := e.rec.SuccessfulResponses > 0
	if retracted {
		e.rec.SuccessfulResponses--
	}
	e.mu.Unlock()

	if !retracted {
		a.anomaly(ctx, key, AnomalyNothingToRetract)
	}

	return retracted
}

// Get returns a copy of key's record.
func (a *Aggregator) Get(key Key) (Record, bool) {
	e, ok := a.load(key)
	if !ok {
		return Record{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.rec, true
}

// Snapshot returns a copy of every record sorted by entity then operation.
// Each record is internally consistent; records of different keys may be
// captured at slightly different instants.
func (a *Aggregator) Snapshot() []Sample {
	out := make([]Sample, 0, a.Len())

	a.entries.Range(func(k, v any) bool {
		e := v.(*entry)

		e.mu.Lock()
		rec := e.rec
		e.mu.Unlock()

		out = append(out, Sample{Key: k.(Key), Record: rec})

		return true
	})

	slices.SortFunc(out, func(x, y Sample) int { return compareKeys(x.Key, y.Key) })

	return out
}

// Len returns the number of keys in the store.
func (a *Aggregator) Len() int {
	return int(a.size.Load())
}

// Anomalies returns how many compensations were clamped or orphaned.
func (a *Aggregator) Anomalies() uint64 {
	return a.anomalies.Load()
}

// Reset empties the store and the anomaly count.
func (a *Aggregator) Reset() {
	a.entries.Range(func(k, _ any) bool {
		if _, loaded := a.entries.LoadAndDelete(k); loaded {
			a.size.Add(-1)
		}

		return true
	})

	a.anomalies.Store(0)
}

func (a *Aggregator) anomaly(ctx context.Context, key Key, reason string) {
	a.anomalies.Add(1)

	a.logger.Log(ctx, log.LevelWarn, "compensation anomaly",
		log.String("entity_id", key.EntityID),
		log.String("operation", key.Operation),
		log.String("reason", reason),
	)

	if err := a.factory.RecordCompensationAnomaly(ctx, reason); err != nil {
		a.logger.Log(ctx, log.LevelWarn, "failed to record compensation anomaly metric", log.Err(err))
	}
}
