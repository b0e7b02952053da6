package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNilRedisClient is returned when NewRedis receives a nil client.
var ErrNilRedisClient = errors.New("sink: redis client is nil")

// RedisConfig controls where the exposition text is stored.
type RedisConfig struct {
	// Key holds the latest text.
	Key string
	// TTL expires the key if the exporter stops publishing. Zero keeps it forever.
	TTL time.Duration
	// Channel, when set, receives a PUBLISH of the text after each store.
	Channel string
}

// DefaultRedisConfig expires the stored text after three default export intervals.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Key: "pluginmetrics:exposition",
		TTL: 90 * time.Second,
	}
}

// Redis stores the text under a key, optionally notifying subscribers.
type Redis struct {
	client redis.UniversalClient
	cfg    RedisConfig
}

// NewRedis returns a Redis sink. A blank key falls back to the default.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) (*Redis, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}

	if cfg.Key == "" {
		cfg.Key = DefaultRedisConfig().Key
	}

	if cfg.TTL < 0 {
		cfg.TTL = 0
	}

	return &Redis{client: client, cfg: cfg}, nil
}

// SetMetrics implements Sink. SET and PUBLISH run in one pipeline transaction.
func (r *Redis) SetMetrics(ctx context.Context, text string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.cfg.Key, text, r.cfg.TTL)

		if r.cfg.Channel != "" {
			pipe.Publish(ctx, r.cfg.Channel, text)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("redis sink %q: %w", r.cfg.Key, err)
	}

	return nil
}

// Fetch reads the stored text. A missing key yields "" and no error.
func (r *Redis) Fetch(ctx context.Context) (string, error) {
	text, err := r.client.Get(ctx, r.cfg.Key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("redis sink %q: %w", r.cfg.Key, err)
	}

	return text, nil
}
