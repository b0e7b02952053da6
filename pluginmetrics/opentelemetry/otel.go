package opentelemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNilTelemetryConfig indicates that a nil config was provided.
	ErrNilTelemetryConfig = errors.New("telemetry config cannot be nil")
	// ErrMissingLibraryName indicates that LibraryName is blank.
	ErrMissingLibraryName = errors.New("telemetry library name is required")
	// ErrMissingEndpoint indicates telemetry is enabled without a collector endpoint.
	ErrMissingEndpoint = errors.New("telemetry collector endpoint is required when telemetry is enabled")
)

// TelemetryConfig configures the providers.
type TelemetryConfig struct {
	LibraryName               string
	ServiceName               string
	ServiceVersion            string
	DeploymentEnv             string
	CollectorExporterEndpoint string
	EnableTelemetry           bool
	Logger                    log.Logger
}

// Telemetry holds the providers and the self-metrics factory built on them.
type Telemetry struct {
	TelemetryConfig
	TracerProvider *sdktrace.TracerProvider
	MetricProvider *sdkmetric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	MetricsFactory *metrics.MetricsFactory
	shutdown       []func(context.Context) error
}

func (tl *TelemetryConfig) newResource() *sdkresource.Resource {
	return sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(tl.ServiceName),
		semconv.ServiceVersion(tl.ServiceVersion),
		semconv.DeploymentEnvironmentName(tl.DeploymentEnv),
		semconv.TelemetrySDKLanguageGo,
	)
}

// Tracer returns a tracer named after the library.
func (tl *Telemetry) Tracer() trace.Tracer {
	return tl.TracerProvider.Tracer(tl.LibraryName)
}

// Shutdown flushes and stops every provider and exporter.
func (tl *Telemetry) Shutdown(ctx context.Context) error {
	if tl == nil {
		return nil
	}

	var errs []error

	for _, fn := range tl.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// InitializeTelemetry builds the providers and installs them globally. With
// EnableTelemetry false, local providers without exporters are returned.
func InitializeTelemetry(ctx context.Context, cfg *TelemetryConfig) (*Telemetry, error) {
	if cfg == nil {
		return nil, ErrNilTelemetryConfig
	}

	if nilcheck.Blank(cfg.LibraryName) {
		return nil, ErrMissingLibraryName
	}

	l := log.OrNop(cfg.Logger)
	r := cfg.newResource()

	if !cfg.EnableTelemetry {
		l.Log(ctx, log.LevelWarn, "telemetry turned off")

		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(r))
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(r))
		lp := sdklog.NewLoggerProvider(sdklog.WithResource(r))

		return newTelemetry(cfg, l, tp, mp, lp, mp.Shutdown, tp.Shutdown, lp.Shutdown)
	}

	if nilcheck.Blank(cfg.CollectorExporterEndpoint) {
		return nil, ErrMissingEndpoint
	}

	l.Log(ctx, log.LevelInfo, "initializing telemetry", log.String("endpoint", cfg.CollectorExporterEndpoint))

	tExp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.CollectorExporterEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("can't initialize tracer exporter: %w", err)
	}

	mExp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.CollectorExporterEndpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("can't initialize metric exporter: %w", err)
	}

	lExp, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpoint(cfg.CollectorExporterEndpoint), otlploggrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("can't initialize logger exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(r),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(mExp)),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(tExp),
		sdktrace.WithResource(r),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(r),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(lExp)),
	)

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)
	global.SetLoggerProvider(lp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	// Providers flush into their exporters, so they go first.
	return newTelemetry(cfg, l, tp, mp, lp,
		mp.Shutdown, tp.Shutdown, lp.Shutdown,
		tExp.Shutdown, mExp.Shutdown, lExp.Shutdown,
	)
}

func newTelemetry(
	cfg *TelemetryConfig,
	l log.Logger,
	tp *sdktrace.TracerProvider,
	mp *sdkmetric.MeterProvider,
	lp *sdklog.LoggerProvider,
	shutdown ...func(context.Context) error,
) (*Telemetry, error) {
	factory, err := metrics.NewMetricsFactory(mp.Meter(cfg.LibraryName), l)
	if err != nil {
		return nil, fmt.Errorf("can't initialize metrics factory: %w", err)
	}

	tcfg := *cfg
	tcfg.Logger = l

	return &Telemetry{
		TelemetryConfig: tcfg,
		TracerProvider:  tp,
		MetricProvider:  mp,
		LoggerProvider:  lp,
		MetricsFactory:  factory,
		shutdown:        shutdown,
	}, nil
}
