// Package log defines the logging interface and typed fields used by every
// plugin-metrics component.
//
// Adapters (such as the zap package) implement Logger so the aggregator,
// correlator, and exporter never depend on a concrete backend.
package log
