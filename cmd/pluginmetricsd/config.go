package main

import (
	"fmt"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics"
	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/correlator"
	pmhttp "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/net/http"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/sink"
)

// Config is the daemon configuration, read from the environment.
type Config struct {
	EnvName        string `env:"ENV_NAME" validate:"required,oneof=production staging development local"`
	ServiceName    string `env:"SERVICE_NAME" validate:"required"`
	ServiceVersion string `env:"SERVICE_VERSION"`
	LogLevel       string `env:"LOG_LEVEL"`
	LogFile        string `env:"LOG_FILE"`

	ServerAddress   string        `env:"SERVER_ADDRESS" validate:"required"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	ExportInterval time.Duration `env:"EXPORT_INTERVAL" validate:"gt=0"`
	ExportOnStart  bool          `env:"EXPORT_ON_START"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" validate:"gt=0"`
	// SelfEntityID, when set, records the daemon's own publish outcomes under that entity.
	SelfEntityID string `env:"SELF_ENTITY_ID"`

	SuccessMetricName string `env:"SUCCESS_METRIC_NAME" validate:"required,metric_name"`
	SuccessMetricHelp string `env:"SUCCESS_METRIC_HELP"`
	LatencyMetricName string `env:"LATENCY_METRIC_NAME" validate:"required,metric_name"`
	LatencyMetricHelp string `env:"LATENCY_METRIC_HELP"`
	IncludeLatency    bool   `env:"INCLUDE_LATENCY"`

	IngestRateLimit     int           `env:"INGEST_RATE_LIMIT" validate:"gte=0"`
	IngestRateWindow    time.Duration `env:"INGEST_RATE_WINDOW" validate:"gte=0"`
	IngestRateKeyHeader string        `env:"INGEST_RATE_KEY_HEADER"`

	UnmatchedPolicy string `env:"UNMATCHED_POLICY"`
	ErrorLinePrefix string `env:"ERROR_LINE_PREFIX"`

	RedisAddress  string        `env:"REDIS_ADDRESS"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" validate:"gte=0"`
	RedisKey      string        `env:"REDIS_KEY"`
	RedisTTL      time.Duration `env:"REDIS_TTL" validate:"gte=0"`
	RedisChannel  string        `env:"REDIS_CHANNEL"`

	MQTTBroker   string `env:"MQTT_BROKER"`
	MQTTClientID string `env:"MQTT_CLIENT_ID"`
	MQTTTopic    string `env:"MQTT_TOPIC"`
	MQTTQoS      uint8  `env:"MQTT_QOS" validate:"lte=2"`

	EnableTelemetry bool   `env:"ENABLE_TELEMETRY"`
	OtelEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func defaultConfig() Config {
	redisCfg := sink.DefaultRedisConfig()
	mqttCfg := sink.DefaultMQTTConfig()

	return Config{
		EnvName:           "local",
		ServiceName:       "pluginmetricsd",
		LogLevel:          "info",
		ServerAddress:     ":9464",
		ShutdownTimeout:   30 * time.Second,
		ExportInterval:    constant.DefaultExportInterval,
		ExportOnStart:     false,
		PublishTimeout:    10 * time.Second,
		SuccessMetricName: constant.DefaultSuccessMetricName,
		SuccessMetricHelp: constant.DefaultSuccessMetricHelp,
		LatencyMetricName: constant.DefaultLatencyMetricName,
		LatencyMetricHelp: constant.DefaultLatencyMetricHelp,
		IncludeLatency:    true,
		IngestRateWindow:  time.Minute,
		UnmatchedPolicy:   correlator.FallbackUnknown.String(),
		RedisKey:          redisCfg.Key,
		RedisTTL:          redisCfg.TTL,
		MQTTClientID:      "pluginmetricsd",
		MQTTTopic:         mqttCfg.Topic,
		MQTTQoS:           mqttCfg.QoS,
	}
}

// loadConfig applies the environment over the defaults and validates the result.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	if err := pluginmetrics.SetConfigFromEnvVars(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := pmhttp.ValidateStruct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	if _, ok := correlator.ParseUnmatchedPolicy(cfg.UnmatchedPolicy); !ok {
		return Config{}, fmt.Errorf("invalid config: unknown UNMATCHED_POLICY %q", cfg.UnmatchedPolicy)
	}

	if cfg.EnableTelemetry && cfg.OtelEndpoint == "" {
		return Config{}, fmt.Errorf("invalid config: OTEL_EXPORTER_OTLP_ENDPOINT is required when ENABLE_TELEMETRY is set")
	}

	return cfg, nil
}
