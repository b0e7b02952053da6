// Package opentelemetry sets up the trace, metric and log providers used by
// the daemon. With telemetry disabled the providers are still created, so
// instruments and spans work locally without a collector.
package opentelemetry
