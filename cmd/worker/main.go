package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cartera-salud/glosas/internal/app"
	jobmetrics "github.com/cartera-salud/glosas/internal/jobs"
	"github.com/cartera-salud/glosas/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.LoadDotEnv(); err != nil {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.CacheBackend != app.CacheRedis {
		slog.Default().Warn("worker warms a process-local cache; set CACHE_BACKEND=redis to share it", slog.String("cache_backend", cfg.CacheBackend))
	}

	logger := app.NewLogger(cfg)

	rt, err := app.NewRuntime(ctx, cfg, logger, prometheus.DefaultRegisterer, "glosas-worker")
	if err != nil {
		logger.Error("init runtime", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	warmupJob := jobs.NewCacheWarmupJob(rt.Service, logger, metrics)
	integrityJob := jobs.NewIntegrityCheckJob(rt.Service, logger, metrics)

	warmupTask, err := jobs.NewCacheWarmupTask(12)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewIntegrityCheckTask(30)
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskIntegrityCheck, Handler: integrityJob.Handle},
		},
		Cron:        schedule(cfg, warmupTask, integrityTask),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

const integrityCron = "0 6 * * *"

// schedule lists the periodic tasks. A scheduled warmup stays unique for one
// cache lifetime so slow runs never pile up.
func schedule(cfg *app.Config, warmup, integrity *asynq.Task) []jobs.CronRegistration {
	return []jobs.CronRegistration{
		{Spec: cfg.WarmupCron, Task: warmup, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Unique(cfg.CacheTTL)}},
		{Spec: integrityCron, Task: integrity, Options: []asynq.Option{asynq.MaxRetry(1)}},
	}
}
