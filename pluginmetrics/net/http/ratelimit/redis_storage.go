package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "pluginmetrics:ratelimit:"
	scanBatchSize = 100
)

// RedisStorage implements fiber.Storage on a go-redis client.
type RedisStorage struct {
	client redis.UniversalClient
}

// NewRedisStorage returns nil when client is nil.
func NewRedisStorage(client redis.UniversalClient) *RedisStorage {
	if nilcheck.Interface(client) {
		return nil
	}

	return &RedisStorage{client: client}
}

// Get returns nil, nil when the key does not exist.
func (storage *RedisStorage) Get(key string) ([]byte, error) {
	if storage == nil {
		return nil, nil
	}

	val, err := storage.client.Get(context.Background(), keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	return val, nil
}

// Set stores val under key. Zero exp means no expiration; an empty key or value is ignored.
func (storage *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if storage == nil || key == "" || len(val) == 0 {
		return nil
	}

	if err := storage.client.Set(context.Background(), keyPrefix+key, val, exp).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes key. A missing key is not an error.
func (storage *RedisStorage) Delete(key string) error {
	if storage == nil {
		return nil
	}

	if err := storage.client.Del(context.Background(), keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}

	return nil
}

// Reset deletes every rate limit key.
func (storage *RedisStorage) Reset() error {
	if storage == nil {
		return nil
	}

	ctx := context.Background()

	var cursor uint64

	for {
		keys, next, err := storage.client.Scan(ctx, cursor, keyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}

		if len(keys) > 0 {
			if err := storage.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis batch delete: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close is a no-op; the client belongs to the caller.
func (*RedisStorage) Close() error {
	return nil
}
