// Package cache provides the best-effort cache layer: a key/TTL backend
// abstraction, a Redis and an in-memory implementation, and the fail-soft
// cache-aside service built on top of them.
//
// The cache is never the system of record. Reads degrade to misses on any
// backend failure, writes are best-effort, and mutations invalidate by
// deleting keys rather than rewriting them.
package cache

import (
	"context"
	"time"
)

// Backend is the operation contract this layer requires of a key/TTL
// value store. Implementations return plain Go types so the service layer
// and tests stay client-agnostic.
type Backend interface {
	// Get returns the payload and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the payload with the given TTL (0 means no expiry).
	Set(ctx context.Context, key, payload string, ttl time.Duration) error

	// Delete removes keys, returning how many existed.
	Delete(ctx context.Context, keys ...string) (int64, error)

	// ScanPrefix enumerates keys with the given prefix.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	// TTL returns the remaining lifetime; negative when absent or without expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// IncrBy atomically adjusts an integer value, creating it at zero.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// Ping issues a trivial round-trip for health checking.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
