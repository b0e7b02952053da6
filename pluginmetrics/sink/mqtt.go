package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	// ErrNilMQTTClient is returned when NewMQTT receives a nil client.
	ErrNilMQTTClient = errors.New("sink: mqtt client is nil")
	// ErrMQTTTimeout is returned when the broker does not acknowledge in time.
	ErrMQTTTimeout = errors.New("sink: mqtt publish timed out")
)

// MQTTPublisher is the part of mqtt.Client the sink needs.
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTConfig controls how the text is published.
type MQTTConfig struct {
	Topic string
	QoS   byte
	// Retained keeps the latest text on the broker for late subscribers.
	Retained bool
	// Timeout bounds the wait for the broker acknowledgement when ctx has no deadline.
	Timeout time.Duration
}

// DefaultMQTTConfig publishes retained at QoS 1.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Topic:    "pluginmetrics/exposition",
		QoS:      1,
		Retained: true,
		Timeout:  10 * time.Second,
	}
}

// MQTT publishes the text to a broker topic.
type MQTT struct {
	client MQTTPublisher
	cfg    MQTTConfig
}

// NewMQTT returns an MQTT sink. Blank or out-of-range settings fall back to defaults.
func NewMQTT(client MQTTPublisher, cfg MQTTConfig) (*MQTT, error) {
	if nilcheck.Interface(client) {
		return nil, ErrNilMQTTClient
	}

	defaults := DefaultMQTTConfig()

	if cfg.Topic == "" {
		cfg.Topic = defaults.Topic
	}

	if cfg.QoS > 2 {
		cfg.QoS = defaults.QoS
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &MQTT{client: client, cfg: cfg}, nil
}

// SetMetrics implements Sink.
func (m *MQTT) SetMetrics(ctx context.Context, text string) error {
	timeout := m.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	token := m.client.Publish(m.cfg.Topic, m.cfg.QoS, m.cfg.Retained, []byte(text))

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt sink %q: %w", m.cfg.Topic, ctx.Err())
	case <-time.After(timeout):
		return fmt.Errorf("mqtt sink %q: %w", m.cfg.Topic, ErrMQTTTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt sink %q: %w", m.cfg.Topic, err)
	}

	return nil
}
