package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mendaur/mendaur-admin/internal/app"
	"github.com/mendaur/mendaur-admin/internal/approval"
	"github.com/mendaur/mendaur-admin/internal/auth"
	"github.com/mendaur/mendaur-admin/internal/content"
	"github.com/mendaur/mendaur-admin/internal/dashboard"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	"github.com/mendaur/mendaur-admin/internal/notify"
	"github.com/mendaur/mendaur-admin/internal/observability"
	"github.com/mendaur/mendaur-admin/internal/platform/cache"
	"github.com/mendaur/mendaur-admin/internal/platform/db"
	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
	"github.com/mendaur/mendaur-admin/jobs"
	"github.com/mendaur/mendaur-admin/report"
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

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Error("ensure schema", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("PG_DSN not set, approval history and audit trail disabled")
	}

	metrics := observability.NewMetrics()

	sessionManager := shared.NewSessionManager(redisClient, "mendaur_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	client := gateway.NewClient(gateway.Options{
		BaseURL:  cfg.BackendBaseURL,
		Timeout:  cfg.BackendTimeout,
		Fallback: cfg.FixturesEnabled(),
		Logger:   logger,
		Metrics:  metrics,
	})
	if client.FallbackEnabled() {
		logger.Info("fixture fallback enabled", slog.String("env", cfg.AppEnv))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authStore := auth.NewStore(logger)
	rbacMiddleware := rbac.Middleware{Resolve: auth.Resolve, Logger: logger}
	guard := shared.NewSubmissionGuard(redisClient, cfg.SubmissionTTL)
	notifier := notify.New(client, jobClient, logger)

	statsCache := cache.NewJSON(redisClient, "mendaur:stats", cfg.StatsCacheTTL)
	snapshots := approval.NewRedisSnapshots(cache.NewJSON(redisClient, "mendaur:snapshots", cfg.SnapshotTTL))

	hooks := []approval.Hook{
		approval.NotificationHook(notifier),
		approval.MetricsHook(metrics),
		approval.InvalidateHook(statsCache),
	}
	var auditor content.Auditor
	var recorder *shared.ApprovalRecorder
	if pool != nil {
		recorder = shared.NewApprovalRecorder(pool, logger)
		hooks = append(hooks, approval.RecordHook(recorder))
		auditor = shared.NewAuditLogger(pool)
	}

	approvalService := approval.NewService(client, snapshots, guard, logger, hooks...)
	if recorder != nil {
		approvalService.UseHistory(recorder)
	}
	contentService := content.NewService(client, auditor, guard, logger)

	reportClient := report.NewClient(cfg.GotenbergURL, 0)
	dashboardService := dashboard.NewService(client, statsCache, reportClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthStore:        authStore,
		AuthHandler:      auth.NewHandler(logger, authStore, client, sessionManager, csrfManager),
		ApprovalHandler:  approval.NewHandler(logger, approvalService, rbacMiddleware),
		ContentHandler:   content.NewHandler(logger, contentService, rbacMiddleware),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		ReportHandler:    report.NewHandler(reportClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	poller := dashboard.NewPoller(dashboardService, cfg.BackendServiceToken, cfg.StatsRefreshInterval, logger)
	go poller.Run(ctx)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
