package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cartera-salud/glosas/internal/glosas"
	jobmetrics "github.com/cartera-salud/glosas/internal/jobs"
)

const defaultIntegrityDays = 30

// Classifier runs the classification of a window.
type Classifier interface {
	Classify(ctx context.Context, window glosas.Window) (glosas.Classification, error)
}

// IntegrityCheckJob classifies a trailing window on a schedule so a broken
// partition surfaces without waiting for a dashboard request.
type IntegrityCheckJob struct {
	Reports Classifier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewIntegrityCheckJob wires dependencies for the integrity handler.
func NewIntegrityCheckJob(reports Classifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityCheckJob {
	return &IntegrityCheckJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes integrity check tasks. A violation is logged and counted
// but does not fail the task.
func (j *IntegrityCheckJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("integrity check: handler not configured")
	}
	var payload IntegrityCheckPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Days <= 0 {
		payload.Days = defaultIntegrityDays
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIntegrityCheck)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := time.Now().UTC()
	if j.clock != nil {
		now = j.clock()
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	window := glosas.Window{From: today.AddDate(0, 0, -payload.Days), To: today}

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskIntegrityCheck), slog.String("window", window.String()))

	c, err := j.Reports.Classify(ctx, window)
	if err != nil {
		logger.Error("integrity check load", slog.Any("error", err))
		return err
	}
	metrics.ObserveCheck(c.IntegrityOK)
	if !c.IntegrityOK {
		logger.Warn("integrity check failed", slog.Int("total_invoices", c.TotalInvoices), slog.Int("categorized", c.Categorized))
		return nil
	}
	logger.Info("integrity check passed", slog.Int("total_invoices", c.TotalInvoices))
	return nil
}
