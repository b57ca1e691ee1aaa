// Package analytics turns raw invoice and payment rows into the payment
// behavior reports used by collections: monthly period metrics, annual
// rollups, per-customer histories and ranked leaderboards.
package analytics

import (
	"sort"
	"time"

	"github.com/futuisp/payscore/internal/scoring"
)

// InvoiceRow is the raw storage shape for one invoice joined with its
// customer profile and first payment movement. Rows arrive pre-filtered:
// no voided invoices, no zero totals, no inactive customers.
type InvoiceRow struct {
	InvoiceID        int64
	CustomerID       int64
	CustomerName     string
	IssueDate        time.Time
	CutoffDays       int
	FirstPaymentDate *time.Time
	InvoiceState     string
	TotalAmount      float64
	PaidAmount       float64
	ZoneID           int64
	OperatorID       *int64
}

// InvoiceAnalysis is one classified invoice. It is immutable once built;
// Period is always derived from the other fields, never set independently.
type InvoiceAnalysis struct {
	InvoiceID        int64
	CustomerID       int64
	CustomerName     string
	IssueDate        time.Time
	CutoffDays       int
	CutoffDate       time.Time
	FirstPaymentDate *time.Time
	InvoiceState     string
	TotalAmount      float64
	PaidAmount       float64
	Period           scoring.PaymentPeriod
	DaysToPayment    *int
	ZoneID           int64
	OperatorID       *int64
}

// Paid reports whether the origin marked the invoice as settled.
func (a InvoiceAnalysis) Paid() bool { return a.InvoiceState == scoring.StatePaid }

// MonthKey returns the calendar-month grouping key for the issue date.
func (a InvoiceAnalysis) MonthKey() string { return a.IssueDate.Format("2006-01") }

// PeriodMetrics summarises one classification bucket inside a date range.
type PeriodMetrics struct {
	Count            int      `json:"count"`
	TotalPaid        float64  `json:"total_paid"`
	Percentage       float64  `json:"percentage"`
	AvgDaysToPayment *float64 `json:"avg_days_to_payment"`
	Weight           int      `json:"performance_weight"`
}

// PeriodBreakdown maps every classification bucket to its metrics.
type PeriodBreakdown map[scoring.PaymentPeriod]PeriodMetrics

// MonthlyMetrics is the monthly payment-behavior report.
type MonthlyMetrics struct {
	Period        string          `json:"period"`
	ZoneID        *int64          `json:"zone_id,omitempty"`
	TotalInvoices int             `json:"total_invoices"`
	Metrics       PeriodBreakdown `json:"metrics"`
}

// PeriodShare is a count with its percentage of the parent total.
type PeriodShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MonthBucket aggregates one calendar month inside an annual report.
type MonthBucket struct {
	TotalInvoices int                                   `json:"total_invoices"`
	TotalPaid     float64                               `json:"total_paid"`
	Metrics       map[scoring.PaymentPeriod]PeriodShare `json:"metrics"`
}

// AnnualSummary is the year-wide aggregate across all months.
type AnnualSummary struct {
	TotalInvoices int                                   `json:"total_invoices"`
	ByPeriod      map[scoring.PaymentPeriod]PeriodShare `json:"by_period"`
}

// AnnualReport groups a year's invoices by calendar month.
type AnnualReport struct {
	Year    int                    `json:"year"`
	ZoneID  *int64                 `json:"zone_id"`
	Summary AnnualSummary          `json:"yearly_summary"`
	Monthly map[string]MonthBucket `json:"monthly_metrics"`
}

// Months returns the monthly keys in ascending calendar order.
func (r AnnualReport) Months() []string {
	keys := make([]string, 0, len(r.Monthly))
	for key := range r.Monthly {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// HistoryInvoice is one invoice inside a customer history, grouped by month.
type HistoryInvoice struct {
	InvoiceID     int64                 `json:"invoice_id"`
	IssueDate     string                `json:"issue_date"`
	TotalAmount   float64               `json:"total_amount"`
	PaidAmount    float64               `json:"paid_amount"`
	Period        scoring.PaymentPeriod `json:"payment_period"`
	DaysToPayment *int                  `json:"days_to_payment"`
}

// HistorySummary tallies a customer's invoices per scoring bucket.
// NO_PAYMENT_RECORD invoices are folded into pending so the four counts
// always sum to the total.
type HistorySummary struct {
	TotalInvoices int                           `json:"total_invoices"`
	ByPeriod      map[scoring.PaymentPeriod]int `json:"by_period"`
}

// CustomerHistory is the lifetime payment report for one customer. Score is
// nil when the customer has no qualifying invoices: no history is not the
// same thing as a zero score.
type CustomerHistory struct {
	CustomerID      int64                       `json:"customer_id"`
	CustomerName    string                      `json:"customer_name,omitempty"`
	Score           *scoring.CustomerScore      `json:"score"`
	Summary         *HistorySummary             `json:"summary,omitempty"`
	InvoicesByMonth map[string][]HistoryInvoice `json:"invoices_by_month,omitempty"`
}

// CustomerPeriodCounts is the aggregated storage row feeding the ranking:
// per-customer period tallies computed by a single grouped query with the
// minimum-invoice floor already applied.
type CustomerPeriodCounts struct {
	CustomerID  int64
	Name        string
	Identifier  string
	Phone       string
	Email       string
	Address     string
	Total       int
	Optimal     int
	Acceptable  int
	Critical    int
	Pending     int
	AvgDaysLate float64
}

// RankingRow is one customer inside the leaderboard.
type RankingRow struct {
	CustomerID      int64   `json:"customer_id"`
	Name            string  `json:"name"`
	Identifier      string  `json:"identifier"`
	Phone           string  `json:"phone"`
	Email           string  `json:"email"`
	Address         string  `json:"address"`
	Score           float64 `json:"score"`
	RiskTier        string  `json:"risk_tier"`
	TotalInvoices   int     `json:"total_invoices"`
	PunctualCount   int     `json:"punctual_invoices"`
	DelinquentCount int     `json:"delinquent_invoices"`
	Punctuality     float64 `json:"punctuality_pct"`
	AvgDaysLate     float64 `json:"avg_days_late"`
}

// RankingPage is one paginated slice of the leaderboard.
type RankingPage struct {
	Page           int          `json:"page"`
	PerPage        int          `json:"per_page"`
	Order          string       `json:"order"`
	TotalCustomers int          `json:"total_customers"`
	TotalPages     int          `json:"total_pages"`
	Customers      []RankingRow `json:"customers"`
}

// TierSummary is the population-wide tier distribution used by the global
// statistics endpoint.
type TierSummary struct {
	TotalCustomers int                    `json:"total_customers"`
	AverageScore   float64                `json:"average_score"`
	ByTier         map[string]PeriodShare `json:"by_tier"`
}
