package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/cartera-salud/glosas/internal/glosas"
	jobmetrics "github.com/cartera-salud/glosas/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	defaultWarmupMonths = 12
	warmupParallelism   = 3
	warmupSlotTimeout   = 45 * time.Second
)

// ReportWarmer is the part of the report service the warmup drives.
type ReportWarmer interface {
	DateRange(ctx context.Context) (glosas.DateRange, error)
	Analyze(ctx context.Context, window glosas.Window) (glosas.Stats, error)
}

// CacheWarmupJob pre-populates the loader cache for the windows the
// dashboard opens with.
type CacheWarmupJob struct {
	Reports ReportWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(reports ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes cache warmup tasks.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	return j.Run(ctx, payload.Months)
}

// Run warms the date range, the unwindowed slot, the current month and the
// trailing months.
func (j *CacheWarmupJob) Run(ctx context.Context, months int) (resultErr error) {
	if months <= 0 {
		months = defaultWarmupMonths
	}
	tracker := j.metrics().Track(TaskCacheWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("months", months))
	logger.Info("starting cache warmup")
	start := time.Now()

	if _, err := j.Reports.DateRange(ctx); err != nil {
		logger.Error("warm date range", slog.Any("error", err))
		return err
	}

	windows := WarmupWindows(j.now(), months)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupParallelism)
	for _, window := range windows {
		g.Go(func() error {
			slotCtx, cancel := context.WithTimeout(gctx, warmupSlotTimeout)
			defer cancel()
			if _, err := j.Reports.Analyze(slotCtx, window); err != nil {
				logger.Error("warm window", slog.String("window", window.String()), slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	j.metrics().AddWarmed(len(windows) + 1)
	logger.Info("completed cache warmup", slog.Int("slots", len(windows)+1), slog.Duration("duration", time.Since(start)))
	return nil
}

// WarmupWindows lists the windows warmed for a reference day: all data, the
// month to date and the trailing months up to today.
func WarmupWindows(now time.Time, months int) []glosas.Window {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return []glosas.Window{
		{},
		{From: monthStart, To: today},
		{From: today.AddDate(0, -months, 0), To: today},
	}
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CacheWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
