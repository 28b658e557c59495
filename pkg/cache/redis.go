package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"taskhub/internal/core/apperror"
	"taskhub/pkg/logger"
)

// RedisConfig holds cache backend connection configuration.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration

	// ConnectRetries bounds the exponential-backoff retry loop during
	// connection establishment.
	ConnectRetries int

	// ScanBatch is the COUNT hint for prefix scans.
	ScanBatch int64
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(addr string) RedisConfig {
	return RedisConfig{
		Addr:           addr,
		DialTimeout:    5 * time.Second,
		ReadTimeout:    3 * time.Second,
		ConnectRetries: 5,
		ScanBatch:      200,
	}
}

// RedisBackend implements Backend on go-redis.
type RedisBackend struct {
	client    *redis.Client
	scanBatch int64
}

// ConnectRedis establishes the cache backend connection, retrying with
// exponential backoff (2^attempt seconds) up to cfg.ConnectRetries.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	if cfg.ScanBatch <= 0 {
		cfg.ScanBatch = 200
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.ConnectRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			logger.Warn(ctx, "cache connection failed, retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperror.NewUnavailable("redis", ctx.Err())
			}
		}

		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cfg.DialTimeout,
			ReadTimeout: cfg.ReadTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			lastErr = err
			continue
		}
		return &RedisBackend{client: client, scanBatch: cfg.ScanBatch}, nil
	}

	return nil, apperror.NewUnavailable("redis", lastErr)
}

// Get returns the payload and whether the key was present.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores the payload with the given TTL.
func (b *RedisBackend) Set(ctx context.Context, key, payload string, ttl time.Duration) error {
	return b.client.Set(ctx, key, payload, ttl).Err()
}

// Delete removes keys.
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return b.client.Del(ctx, keys...).Result()
}

// ScanPrefix enumerates keys with the given prefix via SCAN. The scan is
// cursor-based and concurrent writes may be missed; callers accept that.
func (b *RedisBackend) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, prefix+"*", b.scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// TTL returns the remaining lifetime of a key.
func (b *RedisBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	return b.client.TTL(ctx, key).Result()
}

// Exists reports whether the key is present.
func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrBy atomically adjusts an integer value.
func (b *RedisBackend) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return b.client.IncrBy(ctx, key, delta).Result()
}

// Ping issues a PING round-trip.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
