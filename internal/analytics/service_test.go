package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/futuisp/payscore/internal/scoring"
)

type mockRepo struct {
	invoiceRows   []InvoiceRow
	invoiceCalls  int
	lastZone      *int64
	customerRows  []InvoiceRow
	customerCalls int
	counts        []CustomerPeriodCounts
	countsCalls   int
	lastSearch    string
	lastMin       int
	lastFrom      *time.Time
	lastTo        *time.Time
}

func (m *mockRepo) InvoiceRows(ctx context.Context, from, to time.Time, zoneID *int64) ([]InvoiceRow, error) {
	m.invoiceCalls++
	m.lastZone = zoneID
	return m.invoiceRows, nil
}

func (m *mockRepo) CustomerInvoiceRows(ctx context.Context, customerID int64) ([]InvoiceRow, error) {
	m.customerCalls++
	return m.customerRows, nil
}

func (m *mockRepo) CustomerPeriodCounts(ctx context.Context, minInvoices int, search string, from, to *time.Time) ([]CustomerPeriodCounts, error) {
	m.countsCalls++
	m.lastMin = minInvoices
	m.lastSearch = search
	m.lastFrom = from
	m.lastTo = to
	return m.counts, nil
}

func newTestService(t *testing.T, repo DataSource) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client), nil, Options{MinInvoices: 2})
}

func TestMonthlyMetricsCaches(t *testing.T) {
	issued := date(2024, time.October, 3)
	repo := &mockRepo{invoiceRows: []InvoiceRow{
		rawRow(1, issued, 5, 15),
		rawRow(2, issued, 25, 15),
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	from := date(2024, time.October, 1)
	to := date(2024, time.November, 1)

	metrics, err := svc.MonthlyMetrics(ctx, from, to, nil)
	require.NoError(t, err)
	require.Equal(t, "2024-10", metrics.Period)
	require.Equal(t, 2, metrics.TotalInvoices)
	require.Equal(t, 1, metrics.Metrics[scoring.PeriodOptimal].Count)
	require.Equal(t, 1, metrics.Metrics[scoring.PeriodCritical].Count)
	require.Equal(t, 1, repo.invoiceCalls)

	// Second call is served from cache.
	again, err := svc.MonthlyMetrics(ctx, from, to, nil)
	require.NoError(t, err)
	require.Equal(t, metrics, again)
	require.Equal(t, 1, repo.invoiceCalls)

	// Bumping the version forces a reload.
	require.NoError(t, svc.InvalidateCache(ctx))
	_, err = svc.MonthlyMetrics(ctx, from, to, nil)
	require.NoError(t, err)
	require.Equal(t, 2, repo.invoiceCalls)
}

func TestMonthlyMetricsEmptyRange(t *testing.T) {
	svc := newTestService(t, &mockRepo{})
	metrics, err := svc.MonthlyMetrics(context.Background(), date(2024, time.April, 1), date(2024, time.May, 1), nil)
	require.NoError(t, err)
	require.Equal(t, 0, metrics.TotalInvoices)
	for _, period := range scoring.Periods() {
		require.Equal(t, 0.0, metrics.Metrics[period].Percentage)
	}
}

func TestAnnualReportGroupsByMonth(t *testing.T) {
	repo := &mockRepo{invoiceRows: []InvoiceRow{
		rawRow(1, date(2024, time.January, 4), 5, 15),
		rawRow(2, date(2024, time.June, 4), 12, 15),
	}}
	svc := newTestService(t, repo)

	report, err := svc.AnnualReport(context.Background(), 2024, nil)
	require.NoError(t, err)
	require.Equal(t, 2024, report.Year)
	require.Equal(t, []string{"2024-01", "2024-06"}, report.Months())
	require.Equal(t, 2, report.Summary.TotalInvoices)
}

func TestCustomerHistoryNoData(t *testing.T) {
	svc := newTestService(t, &mockRepo{})
	history, err := svc.CustomerHistory(context.Background(), 77)
	require.NoError(t, err)
	require.Equal(t, int64(77), history.CustomerID)
	require.Nil(t, history.Score)
}

func TestCustomerHistoryScoresLifetime(t *testing.T) {
	repo := &mockRepo{customerRows: []InvoiceRow{
		rawRow(1, date(2023, time.March, 1), 3, 15),
		rawRow(2, date(2024, time.March, 1), 3, 15),
	}}
	svc := newTestService(t, repo)

	history, err := svc.CustomerHistory(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, history.Score)
	require.Equal(t, 100.0, history.Score.Score)
	require.Equal(t, scoring.TierLow, history.Score.RiskTier)
	require.Len(t, history.InvoicesByMonth, 2)
	require.Equal(t, 1, repo.customerCalls)
}

func TestRankingPassesFloorAndSearch(t *testing.T) {
	repo := &mockRepo{counts: []CustomerPeriodCounts{
		customer(1, "Ana Pérez", 4, 0, 0, 0),
	}}
	svc := newTestService(t, repo)

	page, err := svc.Ranking(context.Background(), RankingQuery{Search: "ana"})
	require.NoError(t, err)
	require.Equal(t, 2, repo.lastMin)
	require.Equal(t, "ana", repo.lastSearch)
	require.Equal(t, 1, page.TotalCustomers)
	require.Equal(t, 1, page.Page)
	require.Equal(t, defaultPerPage, page.PerPage)
}

func TestRankingEmptyPopulation(t *testing.T) {
	svc := newTestService(t, &mockRepo{})
	page, err := svc.Ranking(context.Background(), RankingQuery{})
	require.NoError(t, err)
	require.Equal(t, 0, page.TotalCustomers)
	require.Equal(t, 0, page.TotalPages)
	require.NotNil(t, page.Customers)
	require.Empty(t, page.Customers)
}

func TestRankingDateWindow(t *testing.T) {
	repo := &mockRepo{counts: []CustomerPeriodCounts{
		customer(1, "Ana Pérez", 4, 0, 0, 0),
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Ranking(ctx, RankingQuery{})
	require.NoError(t, err)
	require.Nil(t, repo.lastFrom)
	require.Equal(t, 1, repo.countsCalls)

	from := date(2024, time.January, 1)
	to := date(2024, time.July, 1)
	_, err = svc.Ranking(ctx, RankingQuery{From: &from, To: &to})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFrom)
	require.Equal(t, from, *repo.lastFrom)
	require.Equal(t, to, *repo.lastTo)
	// A windowed query never shares a cache entry with the lifetime one.
	require.Equal(t, 2, repo.countsCalls)
}

func TestTopCustomersCaches(t *testing.T) {
	issued := date(2024, time.March, 5)
	punctual := issued.AddDate(0, 0, 4)
	late := issued.AddDate(0, 0, 28)
	repo := &mockRepo{invoiceRows: []InvoiceRow{
		{InvoiceID: 1, CustomerID: 1, CustomerName: "Ana", IssueDate: issued, CutoffDays: 15, FirstPaymentDate: &punctual, InvoiceState: scoring.StatePaid, TotalAmount: 30, PaidAmount: 30, ZoneID: 2},
		{InvoiceID: 2, CustomerID: 1, CustomerName: "Ana", IssueDate: issued, CutoffDays: 15, FirstPaymentDate: &punctual, InvoiceState: scoring.StatePaid, TotalAmount: 30, PaidAmount: 30, ZoneID: 2},
		{InvoiceID: 3, CustomerID: 2, CustomerName: "Bruno", IssueDate: issued, CutoffDays: 15, FirstPaymentDate: &late, InvoiceState: scoring.StatePaid, TotalAmount: 30, PaidAmount: 30, ZoneID: 2},
		{InvoiceID: 4, CustomerID: 2, CustomerName: "Bruno", IssueDate: issued, CutoffDays: 15, FirstPaymentDate: &late, InvoiceState: scoring.StatePaid, TotalAmount: 30, PaidAmount: 30, ZoneID: 2},
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	query := TopCustomersQuery{From: date(2024, time.March, 1), To: date(2024, time.April, 1)}
	report, err := svc.TopCustomers(ctx, query)
	require.NoError(t, err)
	require.Equal(t, OrderBest, report.Order)
	require.Equal(t, 2, report.TotalCustomers)
	require.Equal(t, "Ana", report.Customers[0].Name)
	require.Equal(t, 100.0, report.Customers[0].Score)
	require.Equal(t, "Bruno", report.Customers[1].Name)
	require.Equal(t, 1, repo.invoiceCalls)

	again, err := svc.TopCustomers(ctx, query)
	require.NoError(t, err)
	require.Equal(t, report, again)
	require.Equal(t, 1, repo.invoiceCalls)
}

func TestTierSummary(t *testing.T) {
	repo := &mockRepo{counts: []CustomerPeriodCounts{
		customer(1, "Ana", 4, 0, 0, 0),
		customer(2, "Bruno", 0, 0, 0, 4),
	}}
	svc := newTestService(t, repo)

	summary, err := svc.TierSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalCustomers)
	require.Equal(t, 1, summary.ByTier[scoring.TierLow].Count)
	require.Equal(t, 1, summary.ByTier[scoring.TierCritical].Count)
	require.Equal(t, 50.0, summary.AverageScore)
}

func TestServiceAnomalyObserver(t *testing.T) {
	observed := 0
	repo := &mockRepo{invoiceRows: []InvoiceRow{rawRow(1, date(2024, time.May, 10), -3, 15)}}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client), nil, Options{
		MinInvoices: 2,
		OnAnomalies: func(count int) { observed += count },
	})

	_, err := svc.MonthlyMetrics(context.Background(), date(2024, time.May, 1), date(2024, time.June, 1), nil)
	require.NoError(t, err)
	require.Equal(t, 1, observed)
}

func TestServiceStrictAnomalyFails(t *testing.T) {
	repo := &mockRepo{invoiceRows: []InvoiceRow{rawRow(1, date(2024, time.May, 10), -3, 15)}}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client), nil, Options{MinInvoices: 2, AnomalyPolicy: AnomalyStrict})

	_, err := svc.MonthlyMetrics(context.Background(), date(2024, time.May, 1), date(2024, time.June, 1), nil)
	var anomaly *scoring.AnomalyError
	require.ErrorAs(t, err, &anomaly)
}

func TestPurgeCache(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.MonthlyMetrics(ctx, date(2024, time.April, 1), date(2024, time.May, 1), nil)
	require.NoError(t, err)

	deleted, err := svc.PurgeCache(ctx, "payscore:monthly:*")
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	// A purge forces the next read to load again.
	_, err = svc.MonthlyMetrics(ctx, date(2024, time.April, 1), date(2024, time.May, 1), nil)
	require.NoError(t, err)
	require.Equal(t, 2, repo.invoiceCalls)
}
