package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-civic/agora/internal/backend"
	jobmetrics "github.com/agora-civic/agora/internal/jobs"
)

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

type stubEnqueuer struct {
	sent []SendEmailPayload
	err  error
}

func (s *stubEnqueuer) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, payload)
	return &asynq.TaskInfo{}, nil
}

type stubPetitions struct {
	items []backend.Petition
}

func (s *stubPetitions) ListPetitions(ctx context.Context, token string, page int) (*backend.Page[backend.Petition], error) {
	return &backend.Page[backend.Petition]{
		Items:   s.items,
		Total:   len(s.items),
		Page:    page,
		PerPage: len(s.items),
	}, nil
}

func TestAuditPurgeWithoutStoreSucceeds(t *testing.T) {
	job := NewAuditPurgeJob(nil, nil, testMetrics(), time.Hour)
	task, err := NewAuditPurgeTask(AuditPurgePayload{})
	require.NoError(t, err)

	assert.NoError(t, job.Handle(context.Background(), task))
}

func TestAuditPurgeRejectsGarbagePayload(t *testing.T) {
	job := NewAuditPurgeJob(nil, nil, testMetrics(), time.Hour)
	task := asynq.NewTask(TaskAuditPurge, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAnomalyDigestNothingToReportSendsNoMail(t *testing.T) {
	enq := &stubEnqueuer{}
	job := NewAnomalyDigestJob(nil, enq, nil, testMetrics(), "ops@example.org")
	task, err := NewAnomalyDigestTask(AnomalyDigestPayload{Window: time.Hour})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Empty(t, enq.sent)
}

func TestPetitionDigestMailsClosingPetitions(t *testing.T) {
	now := time.Now().UTC()
	lister := &stubPetitions{items: []backend.Petition{
		{Title: "Fix the bridge", Status: "open", Signatures: 120, Deadline: now.Add(48 * time.Hour)},
		{Title: "Already closed", Status: "closed", Deadline: now.Add(24 * time.Hour)},
		{Title: "Far future", Status: "open", Deadline: now.Add(30 * 24 * time.Hour)},
		{Title: "Expired", Status: "open", Deadline: now.Add(-time.Hour)},
	}}
	enq := &stubEnqueuer{}
	job := NewPetitionDigestJob(lister, "service-token", enq, nil, testMetrics(), "ops@example.org")

	task, err := NewPetitionDigestTask(PetitionDigestPayload{Horizon: 7 * 24 * time.Hour})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, enq.sent, 1)
	mail := enq.sent[0]
	assert.Equal(t, "ops@example.org", mail.To)
	assert.Contains(t, mail.Body, "Fix the bridge")
	assert.Contains(t, mail.Body, "120 signatures")
	assert.NotContains(t, mail.Body, "Already closed")
	assert.NotContains(t, mail.Body, "Far future")
	assert.NotContains(t, mail.Body, "Expired")
}

func TestPetitionDigestNoTargetSkipsMail(t *testing.T) {
	now := time.Now().UTC()
	lister := &stubPetitions{items: []backend.Petition{
		{Title: "Fix the bridge", Status: "open", Deadline: now.Add(time.Hour)},
	}}
	job := NewPetitionDigestJob(lister, "service-token", nil, nil, testMetrics(), "")

	task, err := NewPetitionDigestTask(PetitionDigestPayload{Horizon: 24 * time.Hour})
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}

func TestMailerFormatsMessage(t *testing.T) {
	mailer := NewMailer("127.0.0.1", 1025, "no-reply@agora.local")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	mailer.send = func(addr, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, mailer.Send(context.Background(), "ops@example.org", "Hello", "Body text"))
	assert.Equal(t, "127.0.0.1:1025", gotAddr)
	assert.Equal(t, "no-reply@agora.local", gotFrom)
	assert.Equal(t, []string{"ops@example.org"}, gotTo)

	msg := string(gotMsg)
	assert.True(t, strings.Contains(msg, "Subject: Hello\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\nBody text\r\n"))
}

func TestMailerRejectsEmptyRecipient(t *testing.T) {
	mailer := NewMailer("127.0.0.1", 1025, "no-reply@agora.local")
	assert.Error(t, mailer.Send(context.Background(), "", "s", "b"))
}

func TestNilMailerDropsMail(t *testing.T) {
	var mailer *Mailer
	assert.NoError(t, mailer.Send(context.Background(), "ops@example.org", "s", "b"))
}
