package correlator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
)

// ErrNilCorrector is returned when a Correlator is built without a corrector.
var ErrNilCorrector = errors.New("correlator: corrector is nil")

// Drop reasons reported on the dropped-correlation counter.
const (
	ReasonFiltered  = "filtered"
	ReasonUnmatched = "unmatched"
)

// UnmatchedPolicy decides what happens to error text the classifier cannot attribute.
type UnmatchedPolicy int

const (
	// FallbackUnknown corrects the entity's "unknown" bucket.
	FallbackUnknown UnmatchedPolicy = iota
	// DropUnmatched skips the correction and counts the line as dropped.
	DropUnmatched
)

// String returns the policy name.
func (p UnmatchedPolicy) String() string {
	switch p {
	case FallbackUnknown:
		return "fallback_unknown"
	case DropUnmatched:
		return "drop_unmatched"
	default:
		return "invalid"
	}
}

// ParseUnmatchedPolicy maps a configuration value to a policy.
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fallback_unknown", "unknown":
		return FallbackUnknown, true
	case "drop_unmatched", "drop":
		return DropUnmatched, true
	default:
		return FallbackUnknown, false
	}
}

// Corrector applies a correction to a key. *analytics.Aggregator satisfies it.
type Corrector interface {
	Correct(ctx context.Context, key analytics.Key) bool
}

// Outcome describes what ReportErrorText did with a line.
type Outcome struct {
	Operation string
	Applied   bool
	Dropped   string
}

// Correlator attributes error text to operations.
type Correlator struct {
	corrector  Corrector
	classifier Classifier
	policy     UnmatchedPolicy
	linePrefix string
	logger     log.Logger
	factory    *metrics.MetricsFactory
	dropped    atomic.Uint64
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithClassifier replaces the default "Request ... failed" classifier.
func WithClassifier(c Classifier) Option {
	return func(cr *Correlator) {
		if !nilcheck.Interface(c) {
			cr.classifier = c
		}
	}
}

// WithUnmatchedPolicy sets the policy for text the classifier cannot attribute.
func WithUnmatchedPolicy(p UnmatchedPolicy) Option {
	return func(cr *Correlator) {
		cr.policy = p
	}
}

// WithLinePrefix ignores messages that do not start with prefix, e.g. "[Error".
func WithLinePrefix(prefix string) Option {
	return func(cr *Correlator) {
		cr.linePrefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(cr *Correlator) {
		if !nilcheck.Interface(logger) {
			cr.logger = logger
		}
	}
}

// WithMetricsFactory reports drops on pluginmetrics_correlations_dropped_total.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(cr *Correlator) {
		if factory != nil {
			cr.factory = factory
		}
	}
}

// New returns a Correlator that applies corrections through corrector.
func New(corrector Corrector, opts ...Option) (*Correlator, error) {
	if nilcheck.Interface(corrector) {
		return nil, ErrNilCorrector
	}

	cr := &Correlator{
		corrector:  corrector,
		classifier: DefaultClassifier(),
		policy:     FallbackUnknown,
		logger:     log.NewNop(),
		factory:    metrics.NewNopFactory(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cr)
		}
	}

	return cr, nil
}

// ReportErrorText attributes message to an operation of entityID and corrects
// that key. A blank entity id is ignored.
func (c *Correlator) ReportErrorText(ctx context.Context, entityID, message string) Outcome {
	if nilcheck.Blank(entityID) {
		return Outcome{}
	}

	if c.linePrefix != "" && !strings.HasPrefix(strings.TrimLeft(message, " \t"), c.linePrefix) {
		return c.drop(ctx, entityID, ReasonFiltered)
	}

	op, ok := c.classifier.Classify(message)
	if !ok {
		if c.policy == DropUnmatched {
			return c.drop(ctx, entityID, ReasonUnmatched)
		}

		op = constant.UnknownOperation
	}

	applied := c.corrector.Correct(ctx, analytics.Key{EntityID: entityID, Operation: op})

	if c.logger.Enabled(log.LevelDebug) {
		c.logger.Log(ctx, log.LevelDebug, "error text correlated",
			log.String("entity_id", entityID),
			log.String("operation", op),
			log.Bool("applied", applied),
		)
	}

	return Outcome{Operation: op, Applied: applied}
}

// Dropped returns how many lines were filtered or left unattributed.
func (c *Correlator) Dropped() uint64 {
	return c.dropped.Load()
}

// Policy returns the configured unmatched policy.
func (c *Correlator) Policy() UnmatchedPolicy {
	return c.policy
}

func (c *Correlator) drop(ctx context.Context, entityID, reason string) Outcome {
	c.dropped.Add(1)

	if err := c.factory.RecordCorrelationDropped(ctx, reason); err != nil {
		c.logger.Log(ctx, log.LevelWarn, "failed to record dropped correlation metric", log.Err(err))
	}

	if c.logger.Enabled(log.LevelDebug) {
		c.logger.Log(ctx, log.LevelDebug, "error text dropped",
			log.String("entity_id", entityID),
			log.String("reason", reason),
		)
	}

	return Outcome{Dropped: reason}
}
