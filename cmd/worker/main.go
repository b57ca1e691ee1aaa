package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/futuisp/payscore/internal/analytics"
	"github.com/futuisp/payscore/internal/app"
	jobmetrics "github.com/futuisp/payscore/internal/jobs"
	"github.com/futuisp/payscore/internal/platform/cache"
	"github.com/futuisp/payscore/internal/platform/db"
	"github.com/futuisp/payscore/jobs"
)

func main() {
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	analyticsRepo := analytics.NewRepository(pool)
	analyticsCache := analytics.NewCache(redisClient)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache, logger, analytics.Options{
		MinInvoices:   cfg.ScoreMinInvoices,
		AnomalyPolicy: analytics.AnomalyPolicy(cfg.AnomalyPolicy),
		ReportTTL:     cfg.ReportCacheTTL,
		HistoryTTL:    cfg.HistoryCacheTTL,
	})

	warmJob := jobs.NewRankingWarmJob(analyticsService, logger, jobmetrics.NewMetrics(nil))

	warmTask, err := jobs.NewRankingWarmTask(jobs.RankingWarmPayload{})
	if err != nil {
		logger.Error("build warm task", slog.Any("error", err))
		os.Exit(1)
	}

	interval := cfg.RankingWarmInterval
	if interval < time.Minute {
		interval = time.Minute
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRankingWarm, Handler: warmJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{
				Spec:    fmt.Sprintf("@every %s", interval),
				Task:    warmTask,
				Options: []asynq.Option{asynq.MaxRetry(3)},
			},
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
