package exporter

import (
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/backoff"
	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/exposition"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
	"go.opentelemetry.io/otel/trace"
)

// Config holds exporter settings.
type Config struct {
	// Interval between exports.
	Interval time.Duration
	// ExportOnStart runs one export as soon as the loop starts.
	ExportOnStart bool
	// PublishRetry bounds retries of a failing sink within one tick.
	PublishRetry backoff.Policy
	// PublishTimeout bounds one tick's publish, retries included. Zero means no timeout.
	PublishTimeout time.Duration
}

// DefaultConfig returns the default export settings.
func DefaultConfig() Config {
	return Config{
		Interval:       constant.DefaultExportInterval,
		PublishRetry:   backoff.DefaultPolicy(),
		PublishTimeout: 10 * time.Second,
	}
}

func (cfg *Config) normalize() {
	defaults := DefaultConfig()

	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}

	if cfg.PublishRetry.Attempts < 1 {
		cfg.PublishRetry.Attempts = 1
	}

	if cfg.PublishTimeout < 0 {
		cfg.PublishTimeout = 0
	}
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithInterval sets the export interval.
func WithInterval(interval time.Duration) Option {
	return func(e *Exporter) {
		e.cfg.Interval = interval
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(e *Exporter) {
		e.cfg = cfg
	}
}

// WithExportOnStart runs one export when the loop starts.
func WithExportOnStart(enabled bool) Option {
	return func(e *Exporter) {
		e.cfg.ExportOnStart = enabled
	}
}

// WithPublishRetry sets the publish retry policy.
func WithPublishRetry(policy backoff.Policy) Option {
	return func(e *Exporter) {
		e.cfg.PublishRetry = policy
	}
}

// WithRenderer replaces the default exposition renderer.
func WithRenderer(r *exposition.Renderer) Option {
	return func(e *Exporter) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Exporter) {
		if !nilcheck.Interface(logger) {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for export spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Exporter) {
		if !nilcheck.Interface(tracer) {
			e.tracer = tracer
		}
	}
}

// WithMetricsFactory records export cycles on the pluginmetrics_export* instruments.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(e *Exporter) {
		if factory != nil {
			e.factory = factory
		}
	}
}
