package exposition

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/safe"
)

// ErrInvalidMetricName is returned for family names outside [a-zA-Z_:][a-zA-Z0-9_:]*.
var ErrInvalidMetricName = errors.New("exposition: invalid metric name")

var metricNameRegex = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Config names the rendered families.
type Config struct {
	SuccessName    string
	SuccessHelp    string
	LatencyName    string
	LatencyHelp    string
	IncludeLatency bool
}

// DefaultConfig renders both the success and the latency family.
func DefaultConfig() Config {
	return Config{
		SuccessName:    constant.DefaultSuccessMetricName,
		SuccessHelp:    constant.DefaultSuccessMetricHelp,
		LatencyName:    constant.DefaultLatencyMetricName,
		LatencyHelp:    constant.DefaultLatencyMetricHelp,
		IncludeLatency: true,
	}
}

func (cfg *Config) normalize() {
	defaults := DefaultConfig()

	if cfg.SuccessName == "" {
		cfg.SuccessName = defaults.SuccessName
	}

	if cfg.SuccessHelp == "" {
		cfg.SuccessHelp = defaults.SuccessHelp
	}

	if cfg.LatencyName == "" {
		cfg.LatencyName = defaults.LatencyName
	}

	if cfg.LatencyHelp == "" {
		cfg.LatencyHelp = defaults.LatencyHelp
	}
}

// Renderer turns snapshots into exposition text.
type Renderer struct {
	cfg Config
}

// NewRenderer validates cfg after filling blank fields with defaults.
func NewRenderer(cfg Config) (*Renderer, error) {
	cfg.normalize()

	if !metricNameRegex.MatchString(cfg.SuccessName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetricName, cfg.SuccessName)
	}

	if cfg.IncludeLatency {
		if !metricNameRegex.MatchString(cfg.LatencyName) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMetricName, cfg.LatencyName)
		}

		if cfg.LatencyName == cfg.SuccessName {
			return nil, fmt.Errorf("%w: latency and success families share %q", ErrInvalidMetricName, cfg.LatencyName)
		}
	}

	return &Renderer{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (r *Renderer) Config() Config {
	return r.cfg
}

// Render writes every family header followed by one line per sample with
// TotalRequests > 0. It returns the text and the number of keys rendered.
func (r *Renderer) Render(samples []analytics.Sample) (string, int) {
	var sb strings.Builder

	writeHeader(&sb, r.cfg.SuccessName, r.cfg.SuccessHelp)

	rendered := 0

	for _, s := range samples {
		pct, err := safe.Percentage(s.SuccessfulResponses, s.TotalRequests)
		if err != nil {
			continue
		}

		writeLine(&sb, r.cfg.SuccessName, s.Key, pct.String())

		rendered++
	}

	if r.cfg.IncludeLatency {
		writeHeader(&sb, r.cfg.LatencyName, r.cfg.LatencyHelp)

		for _, s := range samples {
			if s.TotalRequests == 0 {
				continue
			}

			writeLine(&sb, r.cfg.LatencyName, s.Key, strconv.FormatFloat(s.AvgLatency, 'f', -1, 64))
		}
	}

	return sb.String(), rendered
}

func writeHeader(sb *strings.Builder, name, help string) {
	sb.WriteString("# HELP ")
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(strings.ReplaceAll(help, "\n", " "))
	sb.WriteString("\n# TYPE ")
	sb.WriteString(name)
	sb.WriteString(" gauge\n")
}

func writeLine(sb *strings.Builder, name string, key analytics.Key, value string) {
	sb.WriteString(name)
	sb.WriteString(`{` + constant.LabelEntityID + `="`)
	sb.WriteString(labelEscaper.Replace(key.EntityID))
	sb.WriteString(`" ` + constant.LabelOperation + `="`)
	sb.WriteString(labelEscaper.Replace(key.Operation))
	sb.WriteString(`"} `)
	sb.WriteString(value)
	sb.WriteByte('\n')
}
