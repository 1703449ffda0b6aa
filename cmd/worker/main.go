package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mendaur/mendaur-admin/internal/app"
	"github.com/mendaur/mendaur-admin/internal/gateway"
	jobmetrics "github.com/mendaur/mendaur-admin/internal/jobs"
	"github.com/mendaur/mendaur-admin/jobs"
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

	if cfg.BackendServiceToken == "" {
		logger.Error("BACKEND_SERVICE_TOKEN is required to deliver notifications")
		os.Exit(1)
	}

	// Redelivery always targets the live backend; fixtures would swallow the write.
	client := gateway.NewClient(gateway.Options{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
		Logger:  logger,
	})

	deliverJob := jobs.NewNotificationDeliverJob(client, cfg.BackendServiceToken, logger, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNotificationDeliver, Handler: deliverJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
