package constant

import "time"

// UnknownOperation is the bucket used when an operation name cannot be determined.
const UnknownOperation = "unknown"

// Exposition defaults.
const (
	// DefaultSuccessMetricName is the gauge family carrying success percentages.
	DefaultSuccessMetricName = "language_server_metrics"
	// DefaultSuccessMetricHelp describes DefaultSuccessMetricName.
	DefaultSuccessMetricHelp = "Percentage of successful language requests"
	// DefaultLatencyMetricName is the gauge family carrying average latencies.
	DefaultLatencyMetricName = "language_server_avg_latency_ms"
	// DefaultLatencyMetricHelp describes DefaultLatencyMetricName.
	DefaultLatencyMetricHelp = "Average latency of language requests in milliseconds"
	// ExpositionContentType is the content type of the text exposition format.
	ExpositionContentType = "text/plain; version=0.0.4; charset=utf-8"
	// DefaultExportInterval is how often the exporter renders the aggregate state.
	DefaultExportInterval = 30 * time.Second
)

// Exposition label names.
const (
	LabelEntityID  = "id"
	LabelOperation = "method"
)

// MaxMetricLabelLength caps self-telemetry label values to prevent cardinality explosion.
// Exposition labels are never truncated: two entities sharing a prefix must stay distinct.
const MaxMetricLabelLength = 64

// Self-telemetry metric names.
const (
	// MetricPanicRecoveredTotal is the counter metric for recovered panics.
	MetricPanicRecoveredTotal = "panic_recovered_total"
	// MetricCompensationAnomaliesTotal counts clamped or orphaned compensations.
	MetricCompensationAnomaliesTotal = "pluginmetrics_compensation_anomalies_total"
	// MetricCorrelationsDroppedTotal counts error lines that produced no correction.
	MetricCorrelationsDroppedTotal = "pluginmetrics_correlations_dropped_total"
	// MetricExportsTotal counts exporter cycles by outcome.
	MetricExportsTotal = "pluginmetrics_exports_total"
	// MetricExportDuration records exporter cycle latency.
	MetricExportDuration = "pluginmetrics_export_duration_ms"
	// MetricExportedKeys records how many keys the last cycle rendered.
	MetricExportedKeys = "pluginmetrics_exported_keys"
)

// SanitizeMetricLabel truncates a label value to MaxMetricLabelLength.
func SanitizeMetricLabel(value string) string {
	if len(value) > MaxMetricLabelLength {
		return value[:MaxMetricLabelLength]
	}

	return value
}
