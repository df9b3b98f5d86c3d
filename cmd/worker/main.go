package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/agora-civic/agora/internal/app"
	"github.com/agora-civic/agora/internal/audit"
	"github.com/agora-civic/agora/internal/backend"
	jobmetrics "github.com/agora-civic/agora/internal/jobs"
	"github.com/agora-civic/agora/internal/platform/db"
	"github.com/agora-civic/agora/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	recorder := audit.NewRecorder(pool)
	metrics := jobmetrics.NewMetrics(nil)
	mailer := jobs.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)

	client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	purgeJob := jobs.NewAuditPurgeJob(recorder, logger, metrics, cfg.AuditRetention)
	anomalyJob := jobs.NewAnomalyDigestJob(recorder, client, logger, metrics, cfg.OpsEmail)

	var petitionJob *jobs.PetitionDigestJob
	if cfg.BackendServiceToken != "" {
		backendClient := backend.New(cfg.BackendURL, cfg.BackendTimeout)
		petitionJob = jobs.NewPetitionDigestJob(backendClient, cfg.BackendServiceToken, client, logger, metrics, cfg.OpsEmail)
	} else {
		logger.Warn("BACKEND_SERVICE_TOKEN not set, petition digest disabled")
	}

	purgeTask, err := jobs.NewAuditPurgeTask(jobs.AuditPurgePayload{})
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}
	anomalyTask, err := jobs.NewAnomalyDigestTask(jobs.AnomalyDigestPayload{})
	if err != nil {
		logger.Error("build anomaly digest task", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskTypeSendEmail, Handler: jobs.MakeSendEmailHandler(mailer, logger)},
		{Type: jobs.TaskAuditPurge, Handler: purgeJob.Handle},
		{Type: jobs.TaskAnomalyDigest, Handler: anomalyJob.Handle},
	}
	cron := []jobs.CronRegistration{
		{Spec: "30 2 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "0 7 * * *", Task: anomalyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
	}
	if petitionJob != nil {
		petitionTask, err := jobs.NewPetitionDigestTask(jobs.PetitionDigestPayload{})
		if err != nil {
			logger.Error("build petition digest task", slog.Any("error", err))
			os.Exit(1)
		}
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskPetitionDigest, Handler: petitionJob.Handle})
		cron = append(cron, jobs.CronRegistration{Spec: "0 8 * * 1", Task: petitionTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
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
