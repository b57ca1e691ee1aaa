package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DataSource is the slice of storage the service depends on.
type DataSource interface {
	InvoiceRows(ctx context.Context, from, to time.Time, zoneID *int64) ([]InvoiceRow, error)
	CustomerInvoiceRows(ctx context.Context, customerID int64) ([]InvoiceRow, error)
	CustomerPeriodCounts(ctx context.Context, minInvoices int, search string, from, to *time.Time) ([]CustomerPeriodCounts, error)
}

// Options carries the tunables the engine needs. They are injected at
// construction so tests can vary thresholds freely; components never reach
// for global settings.
type Options struct {
	// MinInvoices is the floor below which a customer cannot be tiered or
	// ranked.
	MinInvoices int
	// AnomalyPolicy decides whether data anomalies abort reports or are
	// absorbed as PENDING.
	AnomalyPolicy AnomalyPolicy
	// ReportTTL caches monthly, annual and ranking reports.
	ReportTTL time.Duration
	// HistoryTTL caches per-customer histories.
	HistoryTTL time.Duration
	// OnAnomalies, when set, observes the number of data anomalies absorbed
	// per report under the lenient policy.
	OnAnomalies func(count int)
}

// Service computes payment-behavior reports, reading through the cache.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	repo   DataSource
	cache  *Cache
	logger *slog.Logger
	opts   Options
}

// NewService wires the data source with the cache helper.
func NewService(repo DataSource, cache *Cache, logger *slog.Logger, opts Options) *Service {
	if opts.AnomalyPolicy == "" {
		opts.AnomalyPolicy = AnomalyLenient
	}
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = 5 * time.Minute
	}
	if opts.HistoryTTL <= 0 {
		opts.HistoryTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, opts: opts}
}

// MonthlyMetrics aggregates invoices issued in [from, to) into per-period
// counts, amounts and percentages.
func (s *Service) MonthlyMetrics(ctx context.Context, from, to time.Time, zoneID *int64) (MonthlyMetrics, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.InvoiceRows(ctx, from, to, zoneID)
		if err != nil {
			return nil, err
		}
		records, err := s.classify(rows)
		if err != nil {
			return nil, err
		}
		return BuildMonthlyMetrics(from.Format("2006-01"), zoneID, records), nil
	}

	var metrics MonthlyMetrics
	if err := s.fetch(ctx, keyMonthly(from, to, zoneID), s.opts.ReportTTL, &metrics, loader); err != nil {
		return MonthlyMetrics{}, err
	}
	return metrics, nil
}

// AnnualReport groups one calendar year's invoices by month and adds a
// year-wide summary.
func (s *Service) AnnualReport(ctx context.Context, year int, zoneID *int64) (AnnualReport, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	loader := func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.InvoiceRows(ctx, from, to, zoneID)
		if err != nil {
			return nil, err
		}
		records, err := s.classify(rows)
		if err != nil {
			return nil, err
		}
		return BuildAnnualReport(year, zoneID, records), nil
	}

	var report AnnualReport
	if err := s.fetch(ctx, keyAnnual(year, zoneID), s.opts.ReportTTL, &report, loader); err != nil {
		return AnnualReport{}, err
	}
	return report, nil
}

// CustomerHistory scores one customer's complete invoice history.
func (s *Service) CustomerHistory(ctx context.Context, customerID int64) (CustomerHistory, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.CustomerInvoiceRows(ctx, customerID)
		if err != nil {
			return nil, err
		}
		records, err := s.classify(rows)
		if err != nil {
			return nil, err
		}
		return BuildCustomerHistory(customerID, records, s.opts.MinInvoices), nil
	}

	var history CustomerHistory
	if err := s.fetch(ctx, keyHistory(customerID), s.opts.HistoryTTL, &history, loader); err != nil {
		return CustomerHistory{}, err
	}
	return history, nil
}

// Ranking produces the filtered, sorted, paginated leaderboard.
func (s *Service) Ranking(ctx context.Context, query RankingQuery) (RankingPage, error) {
	query = query.normalized()
	loader := func(ctx context.Context) (interface{}, error) {
		counts, err := s.repo.CustomerPeriodCounts(ctx, s.opts.MinInvoices, query.Search, query.From, query.To)
		if err != nil {
			return nil, err
		}
		return Rank(counts, query, s.opts.MinInvoices), nil
	}

	var page RankingPage
	if err := s.fetch(ctx, keyRanking(query), s.opts.ReportTTL, &page, loader); err != nil {
		return RankingPage{}, err
	}
	if page.Customers == nil {
		page.Customers = []RankingRow{}
	}
	return page, nil
}

// TopCustomers classifies one issue-date window [From, To) and returns the
// best or worst scoring customers up to the query limit.
func (s *Service) TopCustomers(ctx context.Context, query TopCustomersQuery) (TopCustomersReport, error) {
	query = query.normalized()
	loader := func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.InvoiceRows(ctx, query.From, query.To, nil)
		if err != nil {
			return nil, err
		}
		records, err := s.classify(rows)
		if err != nil {
			return nil, err
		}
		return BuildTopCustomers(records, query, s.opts.MinInvoices), nil
	}

	var report TopCustomersReport
	if err := s.fetch(ctx, keyTopCustomers(query), s.opts.ReportTTL, &report, loader); err != nil {
		return TopCustomersReport{}, err
	}
	if report.Customers == nil {
		report.Customers = []TopCustomerRow{}
	}
	return report, nil
}

// TierSummary computes the population-wide tier distribution through the
// ranking engine in unlimited mode.
func (s *Service) TierSummary(ctx context.Context) (TierSummary, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		counts, err := s.repo.CustomerPeriodCounts(ctx, s.opts.MinInvoices, "", nil, nil)
		if err != nil {
			return nil, err
		}
		page := Rank(counts, RankingQuery{Order: OrderWorst, Unlimited: true}, s.opts.MinInvoices)
		return SummarizeTiers(page.Customers), nil
	}

	var summary TierSummary
	if err := s.fetch(ctx, keyTierSummary(), s.opts.ReportTTL, &summary, loader); err != nil {
		return TierSummary{}, err
	}
	return summary, nil
}

// PurgeCache removes cached reports matching the glob pattern, defaulting to
// every payscore key.
func (s *Service) PurgeCache(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		pattern = "payscore:*"
	}
	return s.cache.PurgePattern(ctx, pattern)
}

// InvalidateCache bumps the global cache version.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) classify(rows []InvoiceRow) ([]InvoiceAnalysis, error) {
	records, anomalies, err := ClassifyRows(rows, s.opts.AnomalyPolicy)
	if err != nil {
		return nil, err
	}
	if anomalies > 0 {
		s.logger.Warn("absorbed payment-date anomalies", slog.Int("count", anomalies))
		if s.opts.OnAnomalies != nil {
			s.opts.OnAnomalies(anomalies)
		}
	}
	return records, nil
}

func (s *Service) fetch(ctx context.Context, keyBase string, ttl time.Duration, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return fmt.Errorf("analytics: build cache key: %w", err)
	}
	return s.cache.FetchJSON(ctx, key, ttl, dest, loader)
}
