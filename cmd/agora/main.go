package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/agora-civic/agora/internal/app"
	"github.com/agora-civic/agora/internal/audit"
	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/backend"
	"github.com/agora-civic/agora/internal/console"
	"github.com/agora-civic/agora/internal/guard"
	"github.com/agora-civic/agora/internal/identity"
	"github.com/agora-civic/agora/internal/observability"
	"github.com/agora-civic/agora/internal/platform/cache"
	"github.com/agora-civic/agora/internal/platform/db"
	"github.com/agora-civic/agora/internal/portal"
	"github.com/agora-civic/agora/internal/shared"
	"github.com/agora-civic/agora/internal/view"
	"github.com/agora-civic/agora/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "agora_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	recorder := audit.NewRecorder(dbpool)
	metrics := observability.NewMetrics()

	var provider identity.Provider
	if cfg.IdentityURL != "" {
		provider = identity.NewRemoteProvider(cfg.IdentityURL, cfg.IdentityTimeout)
	} else {
		logger.Warn("IDENTITY_URL not set, using local accounts table")
		provider = identity.NewLocalProvider(dbpool)
	}

	codec := authn.NewTokenCodec(cfg.TokenSecret, cfg.TokenCookie, cfg.TokenTTL, cfg.IsProduction())
	mapper := authn.NewMapper(authz.Default(), logger, recorder, metrics)
	g := guard.New(codec, logger, recorder, metrics)

	backendClient := backend.New(cfg.BackendURL, cfg.BackendTimeout)

	authHandler := authn.NewHandler(logger, provider, mapper, codec, sessionManager, csrfManager, templates, recorder, metrics)
	portalHandler := portal.NewHandler(logger, backendClient, g, templates, csrfManager)
	consoleHandler := console.NewHandler(logger, backendClient, g, templates, csrfManager, recorder)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guard:          g,
		AuthHandler:    authHandler,
		PortalHandler:  portalHandler,
		ConsoleHandler: consoleHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
