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

	"github.com/futuisp/payscore/internal/analytics"
	analytichttp "github.com/futuisp/payscore/internal/analytics/http"
	"github.com/futuisp/payscore/internal/app"
	"github.com/futuisp/payscore/internal/observability"
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
		logger.Warn("redis unavailable, serving without cache", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	analyticsCache := analytics.NewCache(redisClient)
	analyticsCache.SetLookupObserver(func(hit bool) {
		outcome := "miss"
		if hit {
			outcome = "hit"
		}
		metrics.ObserveCache(outcome)
	})
	if err := analyticsCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	analyticsRepo := analytics.NewRepository(pool)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache, logger, analytics.Options{
		MinInvoices:   cfg.ScoreMinInvoices,
		AnomalyPolicy: analytics.AnomalyPolicy(cfg.AnomalyPolicy),
		ReportTTL:     cfg.ReportCacheTTL,
		HistoryTTL:    cfg.HistoryCacheTTL,
		OnAnomalies:   metrics.ObserveAnomalies,
	})
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             pool,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

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
