//go:build unit

package exposition

import (
	"testing"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(entity, op string, total, ok uint64, avg float64) analytics.Sample {
	return analytics.Sample{
		Key:    analytics.Key{EntityID: entity, Operation: op},
		Record: analytics.Record{TotalRequests: total, SuccessfulResponses: ok, AvgLatency: avg},
	}
}

func TestRender_DefaultFamilies(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer(DefaultConfig())
	require.NoError(t, err)

	text, rendered := r.Render([]analytics.Sample{
		sample("acme.lang", "hover", 10, 8, 14),
		sample("acme.lang", "unknown", 0, 0, 0),
		sample("beta.lang", "completion", 3, 1, 2.5),
	})

	expected := `# HELP language_server_metrics Percentage of successful language requests
# TYPE language_server_metrics gauge
language_server_metrics{id="acme.lang" method="hover"} 80
language_server_metrics{id="beta.lang" method="completion"} 33.33333333333333
# HELP language_server_avg_latency_ms Average latency of language requests in milliseconds
# TYPE language_server_avg_latency_ms gauge
language_server_avg_latency_ms{id="acme.lang" method="hover"} 14
language_server_avg_latency_ms{id="beta.lang" method="completion"} 2.5
`

	assert.Equal(t, expected, text)
	assert.Equal(t, 2, rendered)
}

func TestRender_SuccessOnly(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer(Config{IncludeLatency: false})
	require.NoError(t, err)

	text, rendered := r.Render([]analytics.Sample{sample("acme.lang", "hover", 4, 4, 1)})

	assert.Equal(t, "# HELP language_server_metrics Percentage of successful language requests\n"+
		"# TYPE language_server_metrics gauge\n"+
		"language_server_metrics{id=\"acme.lang\" method=\"hover\"} 100\n", text)
	assert.Equal(t, 1, rendered)
}

func TestRender_ZeroTotalsOnlyHeaders(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer(Config{})
	require.NoError(t, err)

	text, rendered := r.Render([]analytics.Sample{sample("acme.lang", "hover", 0, 0, 0)})

	assert.Zero(t, rendered)
	assert.NotContains(t, text, `id="acme.lang"`)
	assert.Contains(t, text, "# TYPE language_server_metrics gauge\n")
}

func TestRender_EscapesLabelValues(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer(Config{})
	require.NoError(t, err)

	text, _ := r.Render([]analytics.Sample{sample(`we"ird\ext`, "multi\nline", 1, 1, 0)})

	assert.Contains(t, text, `language_server_metrics{id="we\"ird\\ext" method="multi\nline"} 100`)
}

func TestNewRenderer_InvalidNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "leading digit", cfg: Config{SuccessName: "9metrics"}},
		{name: "dash", cfg: Config{SuccessName: "language-server"}},
		{name: "bad latency name", cfg: Config{LatencyName: "avg latency", IncludeLatency: true}},
		{name: "duplicate families", cfg: Config{SuccessName: "plugins", LatencyName: "plugins", IncludeLatency: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRenderer(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidMetricName)
		})
	}

	_, err := NewRenderer(Config{LatencyName: "avg latency", IncludeLatency: false})
	assert.NoError(t, err)
}
