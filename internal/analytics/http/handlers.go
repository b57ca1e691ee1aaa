// Package analytichttp exposes the payment-behavior reports over HTTP.
package analytichttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/futuisp/payscore/internal/analytics"
	"github.com/futuisp/payscore/internal/platform/httpx"
	"github.com/futuisp/payscore/internal/scoring"
)

const requestTimeout = 5 * time.Second

const (
	minReportYear = 2000
	maxReportYear = 2100
)

// AnalyticsService defines the report contract used by the handler.
type AnalyticsService interface {
	MonthlyMetrics(ctx context.Context, from, to time.Time, zoneID *int64) (analytics.MonthlyMetrics, error)
	AnnualReport(ctx context.Context, year int, zoneID *int64) (analytics.AnnualReport, error)
	CustomerHistory(ctx context.Context, customerID int64) (analytics.CustomerHistory, error)
	Ranking(ctx context.Context, query analytics.RankingQuery) (analytics.RankingPage, error)
	TopCustomers(ctx context.Context, query analytics.TopCustomersQuery) (analytics.TopCustomersReport, error)
	TierSummary(ctx context.Context) (analytics.TierSummary, error)
	PurgeCache(ctx context.Context, pattern string) (int64, error)
}

// Handler coordinates HTTP requests for payment-behavior analytics.
type Handler struct {
	logger   *slog.Logger
	service  AnalyticsService
	validate *validator.Validate
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

type behaviorRequest struct {
	From string `validate:"required,datetime=2006-01-02"`
	To   string `validate:"required,datetime=2006-01-02"`
}

func (h *Handler) handlePaymentBehavior(w http.ResponseWriter, r *http.Request) {
	req := behaviorRequest{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from and to must be dates in YYYY-MM-DD form")
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)
	if !to.After(from) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be after from")
		return
	}
	zoneID, err := parseOptionalID(r.URL.Query().Get("zone_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "zone_id must be an integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	metrics, err := h.service.MonthlyMetrics(ctx, from, to, zoneID)
	if err != nil {
		h.respondServiceError(w, "monthly metrics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, metrics)
}

func (h *Handler) handleAnnualReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < minReportYear || year > maxReportYear {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year must be a four digit year")
		return
	}
	zoneID, err := parseOptionalID(r.URL.Query().Get("zone_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "zone_id must be an integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.AnnualReport(ctx, year, zoneID)
	if err != nil {
		h.respondServiceError(w, "annual report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCustomerHistory(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil || customerID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "customer id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	history, err := h.service.CustomerHistory(ctx, customerID)
	if err != nil {
		h.respondServiceError(w, "customer history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

type rankingRequest struct {
	Page      int    `validate:"gte=0"`
	PerPage   int    `validate:"gte=0"`
	Order     string `validate:"omitempty,oneof=best worst"`
	Search    string `validate:"omitempty,max=120"`
	RiskTier  string `validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL INSUFFICIENT_DATA"`
	From      string `validate:"omitempty,datetime=2006-01-02"`
	To        string `validate:"omitempty,datetime=2006-01-02"`
	Unlimited bool
}

func (h *Handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := rankingRequest{
		Page:      parseIntDefault(q.Get("page"), 1),
		PerPage:   parseIntDefault(q.Get("per_page"), 0),
		Order:     strings.ToLower(q.Get("order")),
		Search:    q.Get("search"),
		RiskTier:  strings.ToUpper(q.Get("risk_tier")),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Unlimited: q.Get("unlimited") == "true",
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	// Unlimited mode lifts the page-size cap.
	if !req.Unlimited && req.PerPage > 100 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "per_page must not exceed 100")
		return
	}
	if (req.From == "") != (req.To == "") {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from and to must be supplied together")
		return
	}
	var fromPtr, toPtr *time.Time
	if req.From != "" {
		from, _ := time.Parse("2006-01-02", req.From)
		to, _ := time.Parse("2006-01-02", req.To)
		if !to.After(from) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be after from")
			return
		}
		fromPtr, toPtr = &from, &to
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := h.service.Ranking(ctx, analytics.RankingQuery{
		Page:      req.Page,
		PerPage:   req.PerPage,
		Order:     req.Order,
		Search:    req.Search,
		RiskTier:  req.RiskTier,
		Unlimited: req.Unlimited,
		From:      fromPtr,
		To:        toPtr,
	})
	if err != nil {
		h.respondServiceError(w, "ranking", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

type topCustomersRequest struct {
	From  string `validate:"required,datetime=2006-01-02"`
	To    string `validate:"required,datetime=2006-01-02"`
	Limit int    `validate:"gte=0,lte=1000"`
	Order string `validate:"omitempty,oneof=best worst"`
}

func (h *Handler) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := topCustomersRequest{
		From:  q.Get("from"),
		To:    q.Get("to"),
		Limit: parseIntDefault(q.Get("limit"), 0),
		Order: strings.ToLower(q.Get("order")),
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)
	if !to.After(from) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be after from")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.TopCustomers(ctx, analytics.TopCustomersQuery{
		From:  from,
		To:    to,
		Limit: req.Limit,
		Order: req.Order,
	})
	if err != nil {
		h.respondServiceError(w, "top customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleTierSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.TierSummary(ctx)
	if err != nil {
		h.respondServiceError(w, "tier summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handlePurgeCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	deleted, err := h.service.PurgeCache(ctx, pattern)
	if err != nil {
		h.respondServiceError(w, "purge cache", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"keys_deleted": deleted})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	var anomaly *scoring.AnomalyError
	if errors.As(err, &anomaly) {
		h.logger.Warn("report aborted on data anomaly", slog.String("op", op), slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Data Integrity", anomaly.Error())
		return
	}
	h.logger.Error("analytics request failed", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseOptionalID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return "invalid value for " + strings.ToLower(fieldErrs[0].Field())
	}
	return "invalid query parameters"
}
