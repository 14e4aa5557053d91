package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/cartera-salud/glosas/internal/glosas"
	glosasdb "github.com/cartera-salud/glosas/internal/glosas/db"
	"github.com/cartera-salud/glosas/internal/platform/cache"
	"github.com/cartera-salud/glosas/internal/platform/db"
)

// Runtime holds the connections and the report service shared by the binaries.
type Runtime struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Queries *glosasdb.Queries
	Service *glosas.Service
}

// NewRuntime connects to PostgreSQL, selects the cache backend and builds the
// report service. A failing Redis degrades to the in-memory cache.
func NewRuntime(ctx context.Context, cfg *Config, logger *slog.Logger, registerer prometheus.Registerer, appName string) (*Runtime, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, ApplicationName: appName})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Pool: pool, Queries: glosasdb.New(pool).WithTable(cfg.GlosasTable)}

	var store glosas.Store
	switch cfg.CacheBackend {
	case CacheRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, using memory cache", slog.Any("error", err))
			store = glosas.NewMemoryStore(cfg.CacheMaxEntries)
			break
		}
		rt.Redis = client
		store = glosas.NewRedisStore(client)
	case CacheMemory:
		store = glosas.NewMemoryStore(cfg.CacheMaxEntries)
	}

	var reportCache *glosas.Cache
	if store != nil {
		reportCache = glosas.NewCache(store, cfg.CacheTTL, logger)
	}
	rt.Service = glosas.NewService(rt.Queries, reportCache, logger, glosas.NewMetrics(registerer), glosas.ServiceConfig{
		ItemsTTL:    cfg.CacheTTL,
		RangeTTL:    cfg.RangeCacheTTL,
		EntityLimit: cfg.EntityLimit,
		PerPage:     cfg.PageSize,
	})
	logger.Info("report service ready", slog.String("cache_backend", cfg.CacheBackend), slog.String("table", cfg.GlosasTable))
	return rt, nil
}

// Close releases the connections.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var err error
	if rt.Redis != nil {
		if closeErr := rt.Redis.Close(); closeErr != nil {
			err = fmt.Errorf("close redis: %w", closeErr)
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
	return err
}
