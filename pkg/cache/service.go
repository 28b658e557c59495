package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"taskhub/internal/core/apperror"
	"taskhub/pkg/logger"
)

// DefaultTTL is applied when a caller passes ttl <= 0.
const DefaultTTL = 5 * time.Minute

// Service is the fail-soft cache layer. Every operation swallows backend
// errors: reads degrade to misses, writes and deletes report false/zero.
// A cache failure must never surface as an error to a caller; the durable
// store stays authoritative.
type Service struct {
	backend    Backend
	log        *logger.Logger
	defaultTTL time.Duration
	group      singleflight.Group
}

// Option configures the Service.
type Option func(*Service)

// WithDefaultTTL overrides the TTL used when callers pass ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) { s.defaultTTL = ttl }
}

// NewService creates the cache layer over a backend.
func NewService(backend Backend, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		backend:    backend,
		log:        log.WithComponent("cache"),
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRaw returns the stored payload; false on miss and on any backend error.
func (s *Service) GetRaw(ctx context.Context, key string) (string, bool) {
	payload, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Debugw("cache read failed, treating as miss", "key", key, "error", err)
		return "", false
	}
	return payload, ok
}

// SetRaw stores a payload; false on backend error, never raises.
func (s *Service) SetRaw(ctx context.Context, key, payload string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.backend.Set(ctx, key, payload, ttl); err != nil {
		s.log.Warnw("cache write failed", "key", key, "error", err)
		return false
	}
	return true
}

// Delete removes keys; false on backend error.
func (s *Service) Delete(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	if _, err := s.backend.Delete(ctx, keys...); err != nil {
		s.log.Warnw("cache delete failed", "keys", keys, "error", err)
		return false
	}
	return true
}

// DeleteByPrefix removes every key under the prefix and returns how many
// were deleted. The sweep is enumerate-then-delete and NOT atomic: a key
// written concurrently with the sweep may survive it. That eventual-
// consistency gap is accepted; the entry expires by TTL at the latest.
func (s *Service) DeleteByPrefix(ctx context.Context, prefix string) int {
	keys, err := s.backend.ScanPrefix(ctx, prefix)
	if err != nil {
		s.log.Warnw("cache prefix scan failed", "prefix", prefix, "error", err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	n, err := s.backend.Delete(ctx, keys...)
	if err != nil {
		s.log.Warnw("cache prefix delete failed", "prefix", prefix, "error", err)
		return 0
	}
	return int(n)
}

// TTL returns the remaining lifetime of a key; false on miss or error.
func (s *Service) TTL(ctx context.Context, key string) (time.Duration, bool) {
	d, err := s.backend.TTL(ctx, key)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// Exists reports key presence; false on backend error.
func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		return false
	}
	return ok
}

// Increment adjusts a counter; false on backend error.
func (s *Service) Increment(ctx context.Context, key string, delta int64) (int64, bool) {
	n, err := s.backend.IncrBy(ctx, key, delta)
	if err != nil {
		s.log.Debugw("cache increment failed", "key", key, "error", err)
		return 0, false
	}
	return n, true
}

// Decrement adjusts a counter downward; false on backend error.
func (s *Service) Decrement(ctx context.Context, key string, delta int64) (int64, bool) {
	return s.Increment(ctx, key, -delta)
}

// HealthCheck issues a trivial backend round-trip.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return apperror.NewUnavailable("cache", err)
	}
	return nil
}

// Close releases the backend.
func (s *Service) Close() error {
	return s.backend.Close()
}

// --- Typed operations ---

// Get deserializes a cached value. A corrupt or missing entry, or any
// backend error, is a miss.
func Get[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var value T
	payload, ok := s.GetRaw(ctx, key)
	if !ok {
		return value, false
	}
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		s.log.Debugw("cache entry corrupt, treating as miss", "key", key, "error", err)
		return value, false
	}
	return value, true
}

// Set serializes a value into canonical JSON before storage.
func Set[T any](ctx context.Context, s *Service, key string, value T, ttl time.Duration) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Warnw("cache value not serializable", "key", key, "error", err)
		return false
	}
	return s.SetRaw(ctx, key, string(payload), ttl)
}

// GetOrSet is the cache-aside primitive. On hit it returns the cached
// value without invoking producer. On miss, or on any cache backend
// failure, it invokes producer — the authoritative computation — and
// returns its result; the subsequent cache write is best-effort.
// Concurrent callers sharing a key coalesce onto a single in-flight
// producer run via singleflight, so each caller observes exactly one
// producer invocation's result.
func GetOrSet[T any](ctx context.Context, s *Service, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	if value, ok := Get[T](ctx, s, key); ok {
		return value, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the key while we waited.
		if value, ok := Get[T](ctx, s, key); ok {
			return value, nil
		}
		value, err := producer(ctx)
		if err != nil {
			return value, err
		}
		Set(ctx, s, key, value, ttl)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
