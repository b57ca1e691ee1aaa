package analytics

import (
	"sort"
	"time"

	"github.com/futuisp/payscore/internal/scoring"
)

const (
	defaultTopLimit = 100
	maxTopLimit     = 1000
)

// TopCustomersQuery bounds a top-N leaderboard to an issue-date window.
// Unlike the global ranking it is not paginated; Limit caps the result.
type TopCustomersQuery struct {
	From  time.Time
	To    time.Time
	Limit int
	Order string
}

func (q TopCustomersQuery) normalized() TopCustomersQuery {
	if q.Limit <= 0 {
		q.Limit = defaultTopLimit
	}
	if q.Limit > maxTopLimit {
		q.Limit = maxTopLimit
	}
	if q.Order != OrderWorst {
		q.Order = OrderBest
	}
	return q
}

// TopCustomerRow is one customer inside the date-ranged leaderboard.
type TopCustomerRow struct {
	CustomerID    int64   `json:"customer_id"`
	Name          string  `json:"name"`
	ZoneID        int64   `json:"zone_id"`
	TotalInvoices int     `json:"total_invoices"`
	Optimal       int     `json:"optimal"`
	Acceptable    int     `json:"acceptable"`
	Critical      int     `json:"critical"`
	Pending       int     `json:"pending"`
	Score         float64 `json:"score"`
	RiskTier      string  `json:"risk_tier"`
	Punctuality   float64 `json:"punctuality_pct"`
}

// TopCustomersReport is the date-ranged top-N leaderboard.
type TopCustomersReport struct {
	Period         string           `json:"period"`
	Order          string           `json:"order"`
	TotalCustomers int              `json:"total_customers"`
	Customers      []TopCustomerRow `json:"customers"`
}

// BuildTopCustomers tallies classified invoices per customer, scores each
// tally and returns the best or worst performers up to the query limit.
// Customers keep first-appearance order through score ties (stable sort),
// and NO_PAYMENT_RECORD folds into the pending tally as everywhere else.
func BuildTopCustomers(records []InvoiceAnalysis, query TopCustomersQuery, minInvoices int) TopCustomersReport {
	query = query.normalized()

	index := make(map[int64]int, len(records))
	rows := make([]TopCustomerRow, 0, len(records))
	for _, rec := range records {
		i, ok := index[rec.CustomerID]
		if !ok {
			i = len(rows)
			index[rec.CustomerID] = i
			rows = append(rows, TopCustomerRow{
				CustomerID: rec.CustomerID,
				Name:       rec.CustomerName,
				ZoneID:     rec.ZoneID,
			})
		}
		rows[i].TotalInvoices++
		switch rec.Period {
		case scoring.PeriodOptimal:
			rows[i].Optimal++
		case scoring.PeriodAcceptable:
			rows[i].Acceptable++
		case scoring.PeriodCritical:
			rows[i].Critical++
		default:
			rows[i].Pending++
		}
	}

	for i := range rows {
		row := &rows[i]
		row.Score = scoring.Score(row.TotalInvoices, row.Optimal, row.Acceptable, row.Critical, row.Pending)
		row.RiskTier = scoring.TierWithFloor(row.Score, row.TotalInvoices, minInvoices)
		row.Punctuality = scoring.Punctuality(row.TotalInvoices, row.Optimal)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if query.Order == OrderBest {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Score < rows[j].Score
	})

	if len(rows) > query.Limit {
		rows = rows[:query.Limit]
	}

	return TopCustomersReport{
		Period:         query.From.Format("2006-01-02") + " - " + query.To.Format("2006-01-02"),
		Order:          query.Order,
		TotalCustomers: len(rows),
		Customers:      rows,
	}
}
