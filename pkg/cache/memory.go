package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TTL sentinels following the Redis convention, so both backends report
// absence and missing expiry identically.
const (
	TTLKeyAbsent = -2 * time.Second
	TTLNoExpiry  = -1 * time.Second
)

// MemoryBackend is an in-process Backend for tests and single-node
// development. Entries expire by TTL; a janitor goroutine removes stale
// entries between reads.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stop    chan struct{}
	closed  bool
}

type memoryEntry struct {
	payload   string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryBackend creates an in-memory backend with a background janitor.
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go b.janitor(cleanupInterval)
	return b
}

func (b *MemoryBackend) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			b.mu.Lock()
			for k, e := range b.entries {
				if e.expired(now) {
					delete(b.entries, k)
				}
			}
			b.mu.Unlock()
		case <-b.stop:
			return
		}
	}
}

// Get returns the payload and whether the key was present.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok || e.expired(time.Now()) {
		return "", false, nil
	}
	return e.payload, true, nil
}

// Set stores the payload with the given TTL.
func (b *MemoryBackend) Set(ctx context.Context, key, payload string, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	b.mu.Lock()
	b.entries[key] = memoryEntry{payload: payload, expiresAt: expiresAt}
	b.mu.Unlock()
	return nil
}

// Delete removes keys, returning how many existed.
func (b *MemoryBackend) Delete(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	now := time.Now()
	b.mu.Lock()
	for _, key := range keys {
		if e, ok := b.entries[key]; ok {
			if !e.expired(now) {
				n++
			}
			delete(b.entries, key)
		}
	}
	b.mu.Unlock()
	return n, nil
}

// ScanPrefix enumerates live keys with the given prefix.
func (b *MemoryBackend) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	now := time.Now()
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	for k, e := range b.entries {
		if strings.HasPrefix(k, prefix) && !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// TTL returns the remaining lifetime; TTLKeyAbsent when the key is
// missing or expired, TTLNoExpiry when it never expires.
func (b *MemoryBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	now := time.Now()
	if !ok || e.expired(now) {
		return TTLKeyAbsent, nil
	}
	if e.expiresAt.IsZero() {
		return TTLNoExpiry, nil
	}
	return e.expiresAt.Sub(now), nil
}

// Exists reports whether the key is present.
func (b *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := b.Get(ctx, key)
	return ok, err
}

// IncrBy adjusts an integer value, creating it at zero.
func (b *MemoryBackend) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var current int64
	if e, ok := b.entries[key]; ok && !e.expired(time.Now()) {
		parsed, err := strconv.ParseInt(e.payload, 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}
	current += delta
	prev := b.entries[key]
	b.entries[key] = memoryEntry{payload: strconv.FormatInt(current, 10), expiresAt: prev.expiresAt}
	return current, nil
}

// Ping always succeeds while the backend is open.
func (b *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor and drops all entries.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.stop)
		b.entries = make(map[string]memoryEntry)
	}
	return nil
}
