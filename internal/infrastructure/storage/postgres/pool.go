// Package postgres provides the PostgreSQL durable-store infrastructure.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskhub/internal/core/apperror"
	"taskhub/pkg/logger"
)

// Querier is the minimal query surface repositories need. It is satisfied
// by *pgxpool.Pool and by pgx.Tx, and lets tests substitute a double.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// ConnectRetries bounds the exponential-backoff retry loop during
	// connection establishment. Per-query failures are never retried.
	ConnectRetries int
}

// DefaultPoolConfig returns sensible defaults for production.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:               dsn,
		MaxConns:          25,
		MinConns:          5,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectRetries:    5,
	}
}

// Pool wraps pgxpool.Pool to provide a clean handle with health-check and
// graceful close. It is constructed once at startup and passed explicitly
// into repositories.
type Pool struct {
	*pgxpool.Pool
}

// Connect establishes a pooled connection, retrying with exponential
// backoff (2^attempt seconds) up to cfg.ConnectRetries. On exhaustion it
// returns a fatal BACKEND_UNAVAILABLE error: the service cannot serve
// without its store.
func Connect(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.ConnectRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			logger.Warn(ctx, "database connection failed, retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperror.NewUnavailable("postgres", ctx.Err())
			}
		}

		pool, err := newPool(ctx, cfg)
		if err == nil {
			return pool, nil
		}
		lastErr = err
	}

	return nil, apperror.NewUnavailable("postgres", lastErr)
}

func newPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// Application name shows up in pg_stat_activity for debugging
		_, err := conn.Exec(ctx, "SET application_name = 'taskhub'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck issues a trivial round-trip query.
// Used by the readiness boundary.
func (p *Pool) HealthCheck(ctx context.Context) error {
	if p.Pool == nil {
		return apperror.NewUnavailable("postgres", nil)
	}
	var one int
	if err := p.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return apperror.NewUnavailable("postgres", err)
	}
	return nil
}

// Close drains the pool and releases all connections.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// Stats returns current pool statistics for observability.
type Stats struct {
	TotalConns      int32
	AcquiredConns   int32
	IdleConns       int32
	MaxConns        int32
	AcquireCount    int64
	AcquireDuration time.Duration
}

// GetStats extracts statistics from the pool.
func (p *Pool) GetStats() Stats {
	stat := p.Stat()
	return Stats{
		TotalConns:      stat.TotalConns(),
		AcquiredConns:   stat.AcquiredConns(),
		IdleConns:       stat.IdleConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration(),
	}
}

// LogStats logs pool statistics.
func (p *Pool) LogStats(ctx context.Context) {
	stats := p.GetStats()
	logger.Info(ctx, "database pool stats",
		"total", stats.TotalConns,
		"acquired", stats.AcquiredConns,
		"idle", stats.IdleConns,
		"max", stats.MaxConns,
	)
}
