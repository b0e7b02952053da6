package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/backoff"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/correlator"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/exporter"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/exposition"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/instrument"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	pmhttp "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/net/http"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/net/http/ratelimit"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/opentelemetry"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/promcollector"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/runtime"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/server"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/sink"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const selfPublishOperation = "sink.publish"

// Service is the assembled daemon.
type Service struct {
	cfg        Config
	logger     log.Logger
	telemetry  *opentelemetry.Telemetry
	aggregator *analytics.Aggregator
	correlator *correlator.Correlator
	memory     *sink.Memory
	breakers   []*sink.Breaker
	redis      redis.UniversalClient
	mqtt       mqtt.Client
	exporter   *exporter.Exporter
	app        *fiber.App
	server     *server.ServerManager
}

// NewService wires every component from cfg. The caller owns logger.
func NewService(ctx context.Context, cfg Config, logger log.Logger) (*Service, error) {
	logger = log.OrNop(logger)

	telemetry, err := opentelemetry.InitializeTelemetry(ctx, &opentelemetry.TelemetryConfig{
		LibraryName:               "pluginmetrics",
		ServiceName:               cfg.ServiceName,
		ServiceVersion:            cfg.ServiceVersion,
		DeploymentEnv:             cfg.EnvName,
		CollectorExporterEndpoint: cfg.OtelEndpoint,
		EnableTelemetry:           cfg.EnableTelemetry,
		Logger:                    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	runtime.InitPanicMetrics(telemetry.MetricsFactory, logger)

	svc := &Service{cfg: cfg, logger: logger, telemetry: telemetry}

	if err := svc.wire(ctx); err != nil {
		svc.release(ctx)

		return nil, err
	}

	return svc, nil
}

// wire builds the components after telemetry. On error the caller releases
// whatever clients were already opened.
func (svc *Service) wire(ctx context.Context) error {
	cfg, logger, telemetry := svc.cfg, svc.logger, svc.telemetry
	factory := telemetry.MetricsFactory

	var err error

	svc.aggregator = analytics.New(
		analytics.WithLogger(logger),
		analytics.WithMetricsFactory(factory),
	)

	policy, _ := correlator.ParseUnmatchedPolicy(cfg.UnmatchedPolicy)

	svc.correlator, err = correlator.New(svc.aggregator,
		correlator.WithUnmatchedPolicy(policy),
		correlator.WithLinePrefix(cfg.ErrorLinePrefix),
		correlator.WithLogger(logger),
		correlator.WithMetricsFactory(factory),
	)
	if err != nil {
		return err
	}

	target, err := svc.buildSink(ctx)
	if err != nil {
		return err
	}

	expoCfg := exposition.Config{
		SuccessName:    cfg.SuccessMetricName,
		SuccessHelp:    cfg.SuccessMetricHelp,
		LatencyName:    cfg.LatencyMetricName,
		LatencyHelp:    cfg.LatencyMetricHelp,
		IncludeLatency: cfg.IncludeLatency,
	}

	renderer, err := exposition.NewRenderer(expoCfg)
	if err != nil {
		return err
	}

	svc.exporter, err = exporter.New(svc.aggregator, target,
		exporter.WithConfig(exporter.Config{
			Interval:       cfg.ExportInterval,
			ExportOnStart:  cfg.ExportOnStart,
			PublishRetry:   backoff.DefaultPolicy(),
			PublishTimeout: cfg.PublishTimeout,
		}),
		exporter.WithRenderer(renderer),
		exporter.WithLogger(logger),
		exporter.WithTracer(telemetry.Tracer()),
		exporter.WithMetricsFactory(factory),
	)
	if err != nil {
		return err
	}

	collector, err := promcollector.New(svc.aggregator, expoCfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := pmhttp.NewHandler(svc.aggregator, svc.correlator, svc.memory, svc.status, logger)
	if err != nil {
		return err
	}

	var storage fiber.Storage
	if svc.redis != nil {
		storage = ratelimit.NewRedisStorage(svc.redis)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Max:       cfg.IngestRateLimit,
		Window:    cfg.IngestRateWindow,
		KeyHeader: cfg.IngestRateKeyHeader,
	}, storage)

	svc.app = pmhttp.NewApp(handler, registry, logger, pmhttp.WithIngestMiddleware(limiter))

	svc.server = server.NewServerManager(logger).
		WithHTTPServer(svc.app, cfg.ServerAddress).
		WithShutdownTimeout(cfg.ShutdownTimeout).
		WithShutdownHook("exporter", svc.shutdownExporter).
		WithShutdownHook("clients", svc.closeClients).
		WithShutdownHook("telemetry", telemetry.Shutdown)

	return nil
}

// release closes clients and flushes telemetry after a failed wiring.
func (svc *Service) release(ctx context.Context) {
	if err := errors.Join(svc.closeClients(ctx), svc.telemetry.Shutdown(ctx)); err != nil {
		svc.logger.Log(ctx, log.LevelWarn, "release after failed startup", log.Err(err))
	}
}

// buildSink always publishes to memory for GET /metrics. A redis address and
// an MQTT broker each add a remote sink behind its own circuit breaker.
func (svc *Service) buildSink(ctx context.Context) (sink.Sink, error) {
	svc.memory = sink.NewMemory()

	sinks := []sink.Sink{svc.memory}

	if svc.cfg.RedisAddress != "" {
		remote, err := svc.newRedisSink(ctx)
		if err != nil {
			return nil, err
		}

		guarded, err := svc.guard("redis-sink", remote)
		if err != nil {
			return nil, err
		}

		sinks = append(sinks, guarded)
	}

	if svc.cfg.MQTTBroker != "" {
		remote, err := svc.newMQTTSink(ctx)
		if err != nil {
			return nil, err
		}

		guarded, err := svc.guard("mqtt-sink", remote)
		if err != nil {
			return nil, err
		}

		sinks = append(sinks, guarded)
	}

	var target sink.Sink = svc.memory
	if len(sinks) > 1 {
		target = sink.NewTee(sinks...)
	}

	if svc.cfg.SelfEntityID == "" {
		return target, nil
	}

	ins, err := instrument.New(svc.aggregator,
		instrument.WithLogger(svc.logger),
		instrument.WithTracer(svc.telemetry.Tracer()),
	)
	if err != nil {
		return nil, err
	}

	return sink.Func(func(ctx context.Context, text string) error {
		_, err := instrument.Call(ctx, ins, svc.cfg.SelfEntityID, selfPublishOperation,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, target.SetMetrics(ctx, text)
			})

		return err
	}), nil
}

func (svc *Service) guard(name string, next sink.Sink) (*sink.Breaker, error) {
	cfg := sink.DefaultBreakerConfig()
	cfg.Name = name

	b, err := sink.NewBreaker(next, cfg, svc.logger)
	if err != nil {
		return nil, err
	}

	svc.breakers = append(svc.breakers, b)

	return b, nil
}

func (svc *Service) newRedisSink(ctx context.Context) (*sink.Redis, error) {
	svc.redis = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{svc.cfg.RedisAddress},
		Password: svc.cfg.RedisPassword,
		DB:       svc.cfg.RedisDB,
	})

	if err := backoff.Retry(ctx, backoff.DefaultPolicy(), func(ctx context.Context) error {
		return svc.redis.Ping(ctx).Err()
	}); err != nil {
		svc.logger.Log(ctx, log.LevelWarn, "redis unreachable at startup, publishes go through the breaker",
			log.String("address", svc.cfg.RedisAddress),
			log.Err(err),
		)
	}

	return sink.NewRedis(svc.redis, sink.RedisConfig{
		Key:     svc.cfg.RedisKey,
		TTL:     svc.cfg.RedisTTL,
		Channel: svc.cfg.RedisChannel,
	})
}

func (svc *Service) newMQTTSink(ctx context.Context) (*sink.MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(svc.cfg.MQTTBroker).
		SetClientID(svc.cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	svc.mqtt = mqtt.NewClient(opts)

	token := svc.mqtt.Connect()
	if !token.WaitTimeout(svc.cfg.PublishTimeout) {
		svc.logger.Log(ctx, log.LevelWarn, "mqtt broker not connected yet, client keeps retrying",
			log.String("broker", svc.cfg.MQTTBroker),
		)
	} else if err := token.Error(); err != nil {
		svc.logger.Log(ctx, log.LevelWarn, "mqtt broker unreachable at startup, publishes go through the breaker",
			log.String("broker", svc.cfg.MQTTBroker),
			log.Err(err),
		)
	}

	return sink.NewMQTT(svc.mqtt, sink.MQTTConfig{
		Topic:    svc.cfg.MQTTTopic,
		QoS:      svc.cfg.MQTTQoS,
		Retained: true,
		Timeout:  svc.cfg.PublishTimeout,
	})
}

func (svc *Service) status() fiber.Map {
	last := svc.exporter.LastResult()

	status := fiber.Map{
		"keys":               svc.aggregator.Len(),
		"anomalies":          svc.aggregator.Anomalies(),
		"dropped":            svc.correlator.Dropped(),
		"unmatched_policy":   svc.correlator.Policy().String(),
		"exporter_running":   svc.exporter.Running(),
		"last_export":        last.Outcome,
		"export_interval_ms": svc.exporter.Interval().Milliseconds(),
	}

	for _, b := range svc.breakers {
		status[b.Name()] = b.State()
	}

	return status
}

// shutdownExporter stops the loop and publishes one final snapshot.
func (svc *Service) shutdownExporter(ctx context.Context) error {
	if err := svc.exporter.Shutdown(ctx); err != nil {
		return err
	}

	return svc.exporter.ExportOnce(ctx).Err
}

func (svc *Service) closeClients(context.Context) error {
	if svc.mqtt != nil {
		svc.mqtt.Disconnect(250)
	}

	if svc.redis == nil {
		return nil
	}

	return svc.redis.Close()
}

// Run starts the exporter and HTTP server and blocks until shutdown.
func (svc *Service) Run() error {
	return pluginmetrics.NewLauncher(
		pluginmetrics.WithLogger(svc.logger),
		pluginmetrics.RunApp("exporter", svc.exporter),
		pluginmetrics.RunApp("http", svc.server),
	).RunWithError()
}
