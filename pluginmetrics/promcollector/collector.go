// Package promcollector exposes the aggregate store as a prometheus.Collector
// so it can be served by promhttp next to the process's own Go metrics.
package promcollector

import (
	"errors"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/exposition"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNilSource is returned when the collector has nothing to read from.
var ErrNilSource = errors.New("promcollector: source is nil")

// Source is the read side of the aggregate store.
type Source interface {
	Snapshot() []analytics.Sample
}

// Collector emits one success gauge, and optionally one latency gauge, per key
// with recorded requests.
type Collector struct {
	source  Source
	success *prometheus.Desc
	latency *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// New builds a Collector using the family names of cfg.
func New(source Source, cfg exposition.Config) (*Collector, error) {
	if nilcheck.Interface(source) {
		return nil, ErrNilSource
	}

	// Reuse the renderer's validation and defaults.
	r, err := exposition.NewRenderer(cfg)
	if err != nil {
		return nil, err
	}

	cfg = r.Config()
	labels := []string{constant.LabelEntityID, constant.LabelOperation}

	c := &Collector{
		source:  source,
		success: prometheus.NewDesc(cfg.SuccessName, cfg.SuccessHelp, labels, nil),
	}

	if cfg.IncludeLatency {
		c.latency = prometheus.NewDesc(cfg.LatencyName, cfg.LatencyHelp, labels, nil)
	}

	return c, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.success

	if c.latency != nil {
		ch <- c.latency
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source.Snapshot() {
		if s.TotalRequests == 0 {
			continue
		}

		ch <- constGauge(c.success, s.SuccessRatio()*100, s.Key)

		if c.latency != nil {
			ch <- constGauge(c.latency, s.AvgLatency, s.Key)
		}
	}
}

func constGauge(desc *prometheus.Desc, value float64, key analytics.Key) prometheus.Metric {
	m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, value, key.EntityID, key.Operation)
	if err != nil {
		return prometheus.NewInvalidMetric(desc, err)
	}

	return m
}
