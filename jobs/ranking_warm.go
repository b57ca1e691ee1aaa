package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/futuisp/payscore/internal/analytics"
	jobmetrics "github.com/futuisp/payscore/internal/jobs"
)

const (
	defaultWarmPages   = 3
	defaultWarmPerPage = 50
	warmRunTimeout     = 60 * time.Second
)

// RankingSource is the slice of the analytics service the warm job needs.
type RankingSource interface {
	Ranking(ctx context.Context, query analytics.RankingQuery) (analytics.RankingPage, error)
	TierSummary(ctx context.Context) (analytics.TierSummary, error)
}

// RankingWarmJob pre-populates the ranking and tier-summary caches so the
// first dashboard request after an invalidation does not pay the full
// classification cost.
type RankingWarmJob struct {
	Analytics RankingSource
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewRankingWarmJob wires dependencies for the warm handler.
func NewRankingWarmJob(analyticsSvc RankingSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *RankingWarmJob {
	return &RankingWarmJob{Analytics: analyticsSvc, Logger: logger, Metrics: metrics}
}

// Handle processes ranking warm tasks.
func (j *RankingWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("ranking warm: handler not configured")
	}
	var payload RankingWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Pages <= 0 {
		payload.Pages = defaultWarmPages
	}
	if payload.PerPage <= 0 {
		payload.PerPage = defaultWarmPerPage
	}

	tracker := j.metrics().Track(TaskRankingWarm)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	runCtx, cancel := context.WithTimeout(ctx, warmRunTimeout)
	defer cancel()

	logger := j.logger().With(slog.Int("pages", payload.Pages), slog.Int("per_page", payload.PerPage))
	logger.Info("starting ranking warm run")
	start := time.Now()

	warmed := 0
	for _, order := range []string{analytics.OrderBest, analytics.OrderWorst} {
		for page := 1; page <= payload.Pages; page++ {
			result, err := j.Analytics.Ranking(runCtx, analytics.RankingQuery{
				Page:    page,
				PerPage: payload.PerPage,
				Order:   order,
			})
			if err != nil {
				resultErr = err
				logger.Error("warm ranking page", slog.String("order", order), slog.Int("page", page), slog.Any("error", err))
				return resultErr
			}
			warmed++
			if len(result.Customers) < payload.PerPage {
				break
			}
		}
	}
	j.metrics().AddWarmed("ranking", warmed)

	if _, err := j.Analytics.TierSummary(runCtx); err != nil {
		resultErr = err
		logger.Error("warm tier summary", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddWarmed("tier_summary", 1)

	logger.Info("completed ranking warm run",
		slog.Int("pages_warmed", warmed),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *RankingWarmJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *RankingWarmJob) logger() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
