package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/agora-civic/agora/internal/audit"
	jobmetrics "github.com/agora-civic/agora/internal/jobs"
)

// Enqueuer submits follow-up tasks from inside a job. *Client satisfies it.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// AnomalyDigestJob mails operators when logins carried role labels the portal
// does not recognise. Affected accounts already run demoted to USER; the mail
// exists so someone fixes the identity backend.
type AnomalyDigestJob struct {
	Recorder *audit.Recorder
	Enqueue  Enqueuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	OpsEmail string
	clock    func() time.Time
}

// NewAnomalyDigestJob initialises the digest handler.
func NewAnomalyDigestJob(recorder *audit.Recorder, enqueue Enqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics, opsEmail string) *AnomalyDigestJob {
	return &AnomalyDigestJob{
		Recorder: recorder,
		Enqueue:  enqueue,
		Logger:   logger,
		Metrics:  metrics,
		OpsEmail: opsEmail,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one digest run.
func (j *AnomalyDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("anomaly digest: handler not configured")
	}
	var payload AnomalyDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := payload.Window
	if window <= 0 {
		window = 24 * time.Hour
	}

	tracker := j.Metrics.Track(TaskAnomalyDigest)
	since := j.now().Add(-window)
	count, err := j.Recorder.CountSince(ctx, audit.ActionRoleAnomaly, since)
	if err != nil {
		j.logger().Error("anomaly digest count failed", slog.Any("error", err))
		return tracker.End(err)
	}
	if count == 0 {
		j.logger().Info("anomaly digest: nothing to report", slog.Time("since", since))
		return tracker.End(nil)
	}

	recent, err := j.Recorder.ListRecent(ctx, 50)
	if err != nil {
		j.logger().Error("anomaly digest list failed", slog.Any("error", err))
		return tracker.End(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d login(s) since %s carried an unrecognised role label.\n", count, since.Format(time.RFC3339))
	b.WriteString("These accounts are treated as USER until the label is fixed.\n\n")
	for _, e := range recent {
		if e.Action != audit.ActionRoleAnomaly || e.At.Before(since) {
			continue
		}
		label, _ := e.Meta["label"].(string)
		fmt.Fprintf(&b, "- %s  account=%s  label=%q\n", e.At.Format(time.RFC3339), e.ActorID, label)
	}

	if j.Enqueue == nil || j.OpsEmail == "" {
		j.logger().Warn("anomaly digest has no mail target", slog.Int64("count", count))
		return tracker.End(nil)
	}
	_, err = j.Enqueue.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      j.OpsEmail,
		Subject: fmt.Sprintf("[agora] %d role anomalies in the last %s", count, window),
		Body:    b.String(),
	})
	if err != nil {
		j.logger().Error("anomaly digest enqueue failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("anomaly digest sent", slog.Int64("count", count), slog.String("to", j.OpsEmail))
	return tracker.End(nil)
}

func (j *AnomalyDigestJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *AnomalyDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
