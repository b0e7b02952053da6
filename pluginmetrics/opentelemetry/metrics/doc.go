// Package metrics provides a caching factory for the OpenTelemetry instruments
// plugin-metrics uses to observe itself (anomalies, dropped correlations,
// exporter cycles, recovered panics).
//
// These instruments describe the health of the aggregation core; the
// per-plugin success and latency figures are published through the exposition
// text instead.
package metrics
