package runtime

import (
	"context"
	"sync/atomic"

	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
)

// PanicMetrics records recovered panics through a MetricsFactory.
type PanicMetrics struct {
	factory *metrics.MetricsFactory
	logger  log.Logger
}

var panicRecoveredMetric = metrics.Metric{
	Name:        constant.MetricPanicRecoveredTotal,
	Unit:        "1",
	Description: "Total number of recovered panics",
}

var panicMetricsInstance atomic.Pointer[PanicMetrics]

// InitPanicMetrics installs the process-wide panic counter. The first non-nil
// factory wins; later calls are no-ops.
func InitPanicMetrics(factory *metrics.MetricsFactory, logger log.Logger) {
	if factory == nil {
		return
	}

	panicMetricsInstance.CompareAndSwap(nil, &PanicMetrics{factory: factory, logger: log.OrNop(logger)})
}

// GetPanicMetrics returns the installed PanicMetrics, or nil.
func GetPanicMetrics() *PanicMetrics {
	return panicMetricsInstance.Load()
}

// ResetPanicMetrics clears the installed instance. Intended for tests.
func ResetPanicMetrics() {
	panicMetricsInstance.Store(nil)
}

// RecordPanicRecovered increments panic_recovered_total.
func (pm *PanicMetrics) RecordPanicRecovered(ctx context.Context, component, goroutineName string) {
	if pm == nil || pm.factory == nil {
		return
	}

	counter, err := pm.factory.Counter(panicRecoveredMetric)
	if err != nil {
		pm.logger.Log(ctx, log.LevelWarn, "failed to create panic metric counter", log.Err(err))

		return
	}

	err = counter.
		WithLabels(map[string]string{
			"component":      constant.SanitizeMetricLabel(component),
			"goroutine_name": constant.SanitizeMetricLabel(goroutineName),
		}).
		AddOne(ctx)
	if err != nil {
		pm.logger.Log(ctx, log.LevelWarn, "failed to record panic metric", log.Err(err))
	}
}

func recordPanicMetric(ctx context.Context, component, goroutineName string) {
	if pm := GetPanicMetrics(); pm != nil {
		pm.RecordPanicRecovered(ctx, component, goroutineName)
	}
}
