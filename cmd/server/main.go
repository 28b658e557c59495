// Package main is the entry point for the taskhub service.
// It wires the long-lived store and cache handles once at startup and
// passes them explicitly into repositories and services; nothing is
// reached through ambient globals.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"taskhub/internal/core/appctx"
	"taskhub/internal/domain"
	"taskhub/internal/domain/invalidation"
	"taskhub/internal/domain/task"
	"taskhub/internal/domain/user"
	"taskhub/internal/infrastructure/storage/postgres"
	"taskhub/pkg/cache"
	"taskhub/pkg/logger"
)

// services is the composition root: every wired service the transport
// boundary will serve.
type services struct {
	users *user.Service
	tasks *task.Service
}

func wireServices(pool *postgres.Pool, cacheService *cache.Service, log *logger.Logger, cacheTTL time.Duration) *services {
	userRepo := postgres.NewUserRepo(pool)
	taskRepo := postgres.NewTaskRepo(pool)
	invalidator := invalidation.NewCoordinator(cacheService, log)

	return &services{
		users: user.NewService(user.ServiceConfig{
			Repo:        userRepo,
			Cache:       cacheService,
			Invalidator: invalidator,
			CacheTTL:    cacheTTL,
		}),
		tasks: task.NewService(task.ServiceConfig{
			Repo:        taskRepo,
			Users:       userRepo,
			Cache:       cacheService,
			Invalidator: invalidator,
			CacheTTL:    cacheTTL,
		}),
	}
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Startup logs share one trace so pool/cache retries correlate.
	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())
	log.WithContext(ctx).Info("starting taskhub server")

	// --- Durable store ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 25))
	poolCfg.MinConns = int32(getEnvInt("DB_MIN_CONNS", 5))
	poolCfg.ConnectRetries = getEnvInt("DB_CONNECT_RETRIES", 5)

	pool, err := postgres.Connect(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Infow("database connection established",
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
	)

	// --- Cache backend ---
	redisCfg := cache.DefaultRedisConfig(getEnv("REDIS_ADDR", "localhost:6379"))
	redisCfg.Password = getEnv("REDIS_PASSWORD", "")
	redisCfg.DB = getEnvInt("REDIS_DB", 0)
	redisCfg.ConnectRetries = getEnvInt("REDIS_CONNECT_RETRIES", 5)

	var backend cache.Backend
	backend, err = cache.ConnectRedis(ctx, redisCfg)
	if err != nil {
		// The cache is advisory: run degraded on an in-process backend
		// rather than refuse to start.
		log.Warnw("cache backend unavailable, using in-memory fallback", "error", err)
		backend = cache.NewMemoryBackend(time.Minute)
	}

	cacheTTL := getEnvDuration("CACHE_TTL", 5*time.Minute)
	cacheService := cache.NewService(backend, log, cache.WithDefaultTTL(cacheTTL))
	defer cacheService.Close()

	// --- Repositories & services ---
	svcs := wireServices(pool, cacheService, log, cacheTTL)

	// Startup readiness check of both handles, then a read through the
	// full service stack to prove the wiring end to end.
	if err := pool.HealthCheck(ctx); err != nil {
		log.Fatalw("database health check failed", "error", err)
	}
	if err := cacheService.HealthCheck(ctx); err != nil {
		log.Warnw("cache health check failed, serving degraded", "error", err)
	}
	if total, err := svcs.users.Count(ctx, domain.ListOptions{}); err != nil {
		log.Fatalw("startup read check failed", "error", err)
	} else {
		log.Infow("taskhub server ready", "users", total)
	}

	// Periodic readiness probe while serving
	probeCtx, stopProbe := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(poolCfg.HealthCheckPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := pool.HealthCheck(probeCtx); err != nil {
					log.Errorw("database health check failed", "error", err)
				}
				if err := cacheService.HealthCheck(probeCtx); err != nil {
					log.Warnw("cache health check failed", "error", err)
				}
			case <-probeCtx.Done():
				return
			}
		}
	}()

	// --- Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	grace := getEnvDuration("SHUTDOWN_GRACE", 15*time.Second)
	log.Infow("shutting down", "grace", grace)
	stopProbe()

	// In-flight calls hold pool connections; give them the grace period
	// before the deferred Close tears the handles down.
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if pool.GetStats().AcquiredConns == 0 {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pool.LogStats(ctx)
	log.Info("taskhub server stopped")
}

// --- Env helpers ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Printf("required environment variable %s is not set\n", key)
		os.Exit(1)
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
