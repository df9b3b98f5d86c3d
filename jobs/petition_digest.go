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

	"github.com/agora-civic/agora/internal/backend"
	jobmetrics "github.com/agora-civic/agora/internal/jobs"
)

// PetitionLister is the slice of the backend client the digest needs.
type PetitionLister interface {
	ListPetitions(ctx context.Context, token string, page int) (*backend.Page[backend.Petition], error)
}

// PetitionDigestJob mails operators a summary of open petitions whose
// deadline falls inside the horizon. Runs with a service token since no user
// session exists in the worker.
type PetitionDigestJob struct {
	Backend      PetitionLister
	ServiceToken string
	Enqueue      Enqueuer
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	OpsEmail     string
	clock        func() time.Time
}

// NewPetitionDigestJob initialises the petition digest handler.
func NewPetitionDigestJob(client PetitionLister, serviceToken string, enqueue Enqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics, opsEmail string) *PetitionDigestJob {
	return &PetitionDigestJob{
		Backend:      client,
		ServiceToken: serviceToken,
		Enqueue:      enqueue,
		Logger:       logger,
		Metrics:      metrics,
		OpsEmail:     opsEmail,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one digest run.
func (j *PetitionDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("petition digest: handler not configured")
	}
	var payload PetitionDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	horizon := payload.Horizon
	if horizon <= 0 {
		horizon = 7 * 24 * time.Hour
	}

	tracker := j.Metrics.Track(TaskPetitionDigest)
	if j.Backend == nil {
		return tracker.End(errors.New("petition digest: backend not configured"))
	}

	now := j.now()
	limit := now.Add(horizon)
	var closing []backend.Petition
	for page := 1; ; page++ {
		res, err := j.Backend.ListPetitions(ctx, j.ServiceToken, page)
		if err != nil {
			j.logger().Error("petition digest list failed", slog.Any("error", err))
			return tracker.End(err)
		}
		for _, p := range res.Items {
			if p.Status != "open" {
				continue
			}
			if p.Deadline.After(now) && p.Deadline.Before(limit) {
				closing = append(closing, p)
			}
		}
		if len(res.Items) == 0 || res.PerPage <= 0 || page*res.PerPage >= res.Total {
			break
		}
	}

	if len(closing) == 0 {
		j.logger().Info("petition digest: nothing closing soon")
		return tracker.End(nil)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d petition(s) close before %s:\n\n", len(closing), limit.Format("2006-01-02"))
	for _, p := range closing {
		fmt.Fprintf(&b, "- %s (%d signatures, closes %s)\n", p.Title, p.Signatures, p.Deadline.Format("2006-01-02"))
	}

	if j.Enqueue == nil || j.OpsEmail == "" {
		j.logger().Warn("petition digest has no mail target", slog.Int("count", len(closing)))
		return tracker.End(nil)
	}
	if _, err := j.Enqueue.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      j.OpsEmail,
		Subject: fmt.Sprintf("[agora] %d petitions closing within %s", len(closing), horizon),
		Body:    b.String(),
	}); err != nil {
		j.logger().Error("petition digest enqueue failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("petition digest sent", slog.Int("count", len(closing)), slog.String("to", j.OpsEmail))
	return tracker.End(nil)
}

func (j *PetitionDigestJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *PetitionDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
