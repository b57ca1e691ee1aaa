package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futuisp/payscore/internal/analytics"
	"github.com/futuisp/payscore/internal/scoring"
)

type stubService struct {
	metrics analytics.MonthlyMetrics
	annual  analytics.AnnualReport
	history analytics.CustomerHistory
	ranking analytics.RankingPage
	top     analytics.TopCustomersReport
	summary analytics.TierSummary
	purged  int64
	err     error

	lastQuery    analytics.RankingQuery
	lastTopQuery analytics.TopCustomersQuery
	lastFrom     time.Time
	lastTo       time.Time
	lastZone     *int64
	lastCustID   int64
	lastPurge    string
}

func (s *stubService) MonthlyMetrics(ctx context.Context, from, to time.Time, zoneID *int64) (analytics.MonthlyMetrics, error) {
	s.lastFrom, s.lastTo, s.lastZone = from, to, zoneID
	return s.metrics, s.err
}

func (s *stubService) AnnualReport(ctx context.Context, year int, zoneID *int64) (analytics.AnnualReport, error) {
	s.lastZone = zoneID
	return s.annual, s.err
}

func (s *stubService) CustomerHistory(ctx context.Context, customerID int64) (analytics.CustomerHistory, error) {
	s.lastCustID = customerID
	return s.history, s.err
}

func (s *stubService) Ranking(ctx context.Context, query analytics.RankingQuery) (analytics.RankingPage, error) {
	s.lastQuery = query
	return s.ranking, s.err
}

func (s *stubService) TopCustomers(ctx context.Context, query analytics.TopCustomersQuery) (analytics.TopCustomersReport, error) {
	s.lastTopQuery = query
	return s.top, s.err
}

func (s *stubService) TierSummary(ctx context.Context) (analytics.TierSummary, error) {
	return s.summary, s.err
}

func (s *stubService) PurgeCache(ctx context.Context, pattern string) (int64, error) {
	s.lastPurge = pattern
	return s.purged, s.err
}

func newTestRouter(svc AnalyticsService) chi.Router {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestHandlePaymentBehavior(t *testing.T) {
	svc := &stubService{metrics: analytics.MonthlyMetrics{Period: "2024-01-01 - 2024-02-01", TotalInvoices: 4}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/payment-behavior?from=2024-01-01&to=2024-02-01&zone_id=7", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got analytics.MonthlyMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got.TotalInvoices)
	require.NotNil(t, svc.lastZone)
	assert.Equal(t, int64(7), *svc.lastZone)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), svc.lastFrom)
}

func TestHandlePaymentBehaviorValidation(t *testing.T) {
	router := newTestRouter(&stubService{})

	cases := map[string]string{
		"missing range":  "/payment-behavior",
		"bad date":       "/payment-behavior?from=01-01-2024&to=2024-02-01",
		"inverted range": "/payment-behavior?from=2024-03-01&to=2024-02-01",
		"bad zone":       "/payment-behavior?from=2024-01-01&to=2024-02-01&zone_id=north",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
		})
	}
}

func TestHandleAnnualReport(t *testing.T) {
	svc := &stubService{annual: analytics.AnnualReport{Year: 2024}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/annual/2024", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got analytics.AnnualReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2024, got.Year)
}

func TestHandleAnnualReportRejectsBadYear(t *testing.T) {
	router := newTestRouter(&stubService{})

	for _, target := range []string{"/annual/99", "/annual/twenty", "/annual/2101"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandleCustomerHistory(t *testing.T) {
	svc := &stubService{history: analytics.CustomerHistory{CustomerID: 42}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/42/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), svc.lastCustID)
}

func TestHandleCustomerHistoryRejectsBadID(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/abc/history", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRankingPassesQuery(t *testing.T) {
	svc := &stubService{ranking: analytics.RankingPage{PerPage: 10}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	target := "/ranking?page=2&per_page=10&order=worst&search=lopez&risk_tier=HIGH&unlimited=true"
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.RankingQuery{
		Page:      2,
		PerPage:   10,
		Order:     "worst",
		Search:    "lopez",
		RiskTier:  "HIGH",
		Unlimited: true,
	}, svc.lastQuery)
}

func TestHandleRankingDateWindow(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ranking?from=2024-01-01&to=2024-02-01", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastQuery.From)
	require.NotNil(t, svc.lastQuery.To)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *svc.lastQuery.From)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *svc.lastQuery.To)
}

func TestHandleRankingUnlimitedLiftsPageSizeCap(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ranking?per_page=500&unlimited=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.lastQuery.Unlimited)
	assert.Equal(t, 500, svc.lastQuery.PerPage)
}

func TestHandleRankingValidation(t *testing.T) {
	router := newTestRouter(&stubService{})

	cases := map[string]string{
		"bad order":        "/ranking?order=sideways",
		"bad tier":         "/ranking?risk_tier=SEVERE",
		"per_page too big": "/ranking?per_page=500",
		"bad page":         "/ranking?page=abc",
		"from without to":  "/ranking?from=2024-01-01",
		"inverted range":   "/ranking?from=2024-03-01&to=2024-02-01",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleTopCustomers(t *testing.T) {
	svc := &stubService{top: analytics.TopCustomersReport{Order: "worst", TotalCustomers: 2}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	target := "/top-customers?from=2024-01-01&to=2024-02-01&limit=25&order=worst"
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.TopCustomersQuery{
		From:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Limit: 25,
		Order: "worst",
	}, svc.lastTopQuery)

	var got analytics.TopCustomersReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.TotalCustomers)
}

func TestHandleTopCustomersValidation(t *testing.T) {
	router := newTestRouter(&stubService{})

	cases := map[string]string{
		"missing range":  "/top-customers",
		"bad date":       "/top-customers?from=01-01-2024&to=2024-02-01",
		"inverted range": "/top-customers?from=2024-03-01&to=2024-02-01",
		"limit too big":  "/top-customers?from=2024-01-01&to=2024-02-01&limit=5000",
		"bad limit":      "/top-customers?from=2024-01-01&to=2024-02-01&limit=many",
		"bad order":      "/top-customers?from=2024-01-01&to=2024-02-01&order=sideways",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/problem+json")
		})
	}
}

func TestHandleTierSummary(t *testing.T) {
	svc := &stubService{summary: analytics.TierSummary{TotalCustomers: 3}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/tiers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got analytics.TierSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalCustomers)
}

func TestHandlePurgeCache(t *testing.T) {
	svc := &stubService{purged: 12}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache?pattern=payscore:ranking:*", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payscore:ranking:*", svc.lastPurge)
	assert.JSONEq(t, `{"keys_deleted":12}`, rec.Body.String())
}

func TestAnomalyErrorMapsToUnprocessable(t *testing.T) {
	issue := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	paid := issue.AddDate(0, 0, -3)
	svc := &stubService{err: &scoring.AnomalyError{IssueDate: issue, PaymentDate: paid, ElapsedDays: -3}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/9/history", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServiceErrorMapsToInternal(t *testing.T) {
	svc := &stubService{err: errors.New("pool exhausted")}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/tiers", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
