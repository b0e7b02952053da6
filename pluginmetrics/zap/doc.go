// Package zap adapts go.uber.org/zap to the plugin-metrics log.Logger contract.
//
// The adapter tees every entry into the OpenTelemetry log bridge, stamps
// trace/span ids carried by the context, and can write to a rotating file.
package zap
