package metrics

import (
	"context"

	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
)

// Pre-configured instruments describing the aggregation core itself.
var (
	// MetricCompensationAnomalies counts compensations that hit a zero counter or a missing key.
	MetricCompensationAnomalies = Metric{
		Name:        constant.MetricCompensationAnomaliesTotal,
		Unit:        "1",
		Description: "Compensations clamped at zero or applied to a missing key.",
	}

	// MetricCorrelationsDropped counts error lines that did not produce a correction.
	MetricCorrelationsDropped = Metric{
		Name:        constant.MetricCorrelationsDroppedTotal,
		Unit:        "1",
		Description: "Side-channel error lines that were filtered or could not be classified.",
	}

	// MetricExports counts exporter cycles by outcome.
	MetricExports = Metric{
		Name:        constant.MetricExportsTotal,
		Unit:        "1",
		Description: "Exporter cycles by outcome (published, empty, failed).",
	}

	// MetricExportDuration measures an exporter cycle.
	MetricExportDuration = Metric{
		Name:        constant.MetricExportDuration,
		Unit:        "ms",
		Description: "Time taken to snapshot, render and publish the aggregate state.",
	}

	// MetricExportedKeys records how many keys the last cycle rendered.
	MetricExportedKeys = Metric{
		Name:        constant.MetricExportedKeys,
		Unit:        "{key}",
		Description: "Number of (entity, operation) keys rendered in the last export.",
	}
)

// RecordCompensationAnomaly increments the anomaly counter for the given reason.
func (f *MetricsFactory) RecordCompensationAnomaly(ctx context.Context, reason string) error {
	b, err := f.Counter(MetricCompensationAnomalies)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{"reason": constant.SanitizeMetricLabel(reason)}).AddOne(ctx)
}

// RecordCorrelationDropped increments the dropped-correlation counter for the given reason.
func (f *MetricsFactory) RecordCorrelationDropped(ctx context.Context, reason string) error {
	b, err := f.Counter(MetricCorrelationsDropped)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{"reason": constant.SanitizeMetricLabel(reason)}).AddOne(ctx)
}

// RecordExport records one exporter cycle: outcome counter, duration and rendered key count.
func (f *MetricsFactory) RecordExport(ctx context.Context, outcome string, durationMillis float64, keys int64) error {
	labels := map[string]string{"outcome": constant.SanitizeMetricLabel(outcome)}

	counter, err := f.Counter(MetricExports)
	if err != nil {
		return err
	}

	if err := counter.WithLabels(labels).AddOne(ctx); err != nil {
		return err
	}

	histogram, err := f.Histogram(MetricExportDuration)
	if err != nil {
		return err
	}

	if err := histogram.WithLabels(labels).Record(ctx, durationMillis); err != nil {
		return err
	}

	gauge, err := f.Gauge(MetricExportedKeys)
	if err != nil {
		return err
	}

	return gauge.Set(ctx, keys)
}
