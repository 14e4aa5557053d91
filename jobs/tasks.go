package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarmup precomputes the cached loads behind the dashboard.
	TaskCacheWarmup = "glosas:cache_warmup"
	// TaskIntegrityCheck classifies a trailing window and reports violations.
	TaskIntegrityCheck = "glosas:integrity_check"
)

// CacheWarmupPayload selects how many trailing months to warm. Zero means the
// default of 12.
type CacheWarmupPayload struct {
	Months int `json:"months"`
}

// IntegrityCheckPayload selects the trailing window size in days. Zero means
// the default of 30.
type IntegrityCheckPayload struct {
	Days int `json:"days"`
}

// NewCacheWarmupTask constructs a warmup task.
func NewCacheWarmupTask(months int) (*asynq.Task, error) {
	data, err := json.Marshal(CacheWarmupPayload{Months: months})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}

// NewIntegrityCheckTask constructs an integrity check task.
func NewIntegrityCheckTask(days int) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityCheckPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityCheck, data), nil
}
