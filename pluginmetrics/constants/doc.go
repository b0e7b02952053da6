// Package constant holds names shared across plugin-metrics packages:
// sentinel operation names, exposition defaults, and self-telemetry metric names.
package constant
