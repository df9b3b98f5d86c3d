package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/agora-civic/agora/internal/audit"
	jobmetrics "github.com/agora-civic/agora/internal/jobs"
)

// AuditPurgeJob removes audit entries older than the retention window.
type AuditPurgeJob struct {
	Recorder  *audit.Recorder
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Retention time.Duration
	clock     func() time.Time
}

// NewAuditPurgeJob initialises the retention sweep handler.
func NewAuditPurgeJob(recorder *audit.Recorder, logger *slog.Logger, metrics *jobmetrics.Metrics, retention time.Duration) *AuditPurgeJob {
	return &AuditPurgeJob{
		Recorder:  recorder,
		Logger:    logger,
		Metrics:   metrics,
		Retention: retention,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one retention sweep.
func (j *AuditPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("audit purge: handler not configured")
	}
	var payload AuditPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.Retention
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	tracker := j.metrics().Track(TaskAuditPurge)
	cutoff := j.now().Add(-retention)
	removed, err := j.Recorder.Purge(ctx, cutoff)
	if err != nil {
		j.logger().Error("audit purge failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddPurged(removed)
	j.logger().Info("audit purge completed",
		slog.Time("cutoff", cutoff),
		slog.Int64("removed", removed),
	)
	return tracker.End(nil)
}

func (j *AuditPurgeJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *AuditPurgeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AuditPurgeJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
