package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskAuditPurge removes audit entries past the retention window.
	TaskAuditPurge = "audit:purge"
	// TaskAnomalyDigest mails a summary of unknown role labels seen at login.
	TaskAnomalyDigest = "authz:anomaly_digest"
	// TaskPetitionDigest mails a summary of petitions closing soon.
	TaskPetitionDigest = "petitions:digest"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// AuditPurgePayload overrides the retention window for a single run. A zero
// Retention falls back to the configured default.
type AuditPurgePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditPurgeTask constructs the retention sweep task.
func NewAuditPurgeTask(payload AuditPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, data), nil
}

// AnomalyDigestPayload bounds the lookback window for the digest.
type AnomalyDigestPayload struct {
	Window time.Duration `json:"window"`
}

// NewAnomalyDigestTask constructs the role-anomaly digest task.
func NewAnomalyDigestTask(payload AnomalyDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnomalyDigest, data), nil
}

// PetitionDigestPayload bounds how far ahead the digest looks for deadlines.
type PetitionDigestPayload struct {
	Horizon time.Duration `json:"horizon"`
}

// NewPetitionDigestTask constructs the petition digest task.
func NewPetitionDigestTask(payload PetitionDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPetitionDigest, data), nil
}

// MakeSendEmailHandler processes TaskTypeSendEmail tasks through the mailer.
func MakeSendEmailHandler(mailer *Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			if logger != nil {
				logger.Error("send email failed", slog.String("to", payload.To), slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
		}
		return nil
	}
}
