package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/app"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/cache"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/platform/db"
	"github.com/iransamarasekara/cnh-distributors-sub000/internal/reports"
	"github.com/iransamarasekara/cnh-distributors-sub000/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	reportSvc := reports.NewService(logger, reports.NewRepository(pool), redisClient, cfg.ReportCacheTTL)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockIntegrity, Handler: jobs.NewStockIntegrityHandler(logger, pool)},
			{Type: jobs.TaskReportsWarmup, Handler: jobs.NewReportsWarmupHandler(logger, reportSvc)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: jobs.NewStockIntegrityTask()},
			{Spec: "*/15 * * * *", Task: jobs.NewReportsWarmupTask()},
		},
	})
	if err != nil {
		logger.Error("worker setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
