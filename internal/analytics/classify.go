package analytics

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/futuisp/payscore/internal/scoring"
)

// AnomalyPolicy decides what happens when classification hits a
// data-integrity anomaly such as a payment recorded before issuance.
type AnomalyPolicy string

const (
	// AnomalyLenient keeps the conservative PENDING classification and
	// counts the anomaly, preserving report availability.
	AnomalyLenient AnomalyPolicy = "lenient"
	// AnomalyStrict aborts the report with a typed error so data-quality
	// issues surface instead of being silently misclassified.
	AnomalyStrict AnomalyPolicy = "strict"
)

// Rows below this size are classified sequentially; the goroutine setup is
// not worth it for small result sets.
const parallelThreshold = 4096

// ClassifyRows builds classified records from raw storage rows, preserving
// input order. The second return value counts data anomalies absorbed under
// the lenient policy; under the strict policy the first anomaly aborts.
// Classification is a per-row map with no shared state, so large sets are
// fanned out across CPUs.
func ClassifyRows(rows []InvoiceRow, policy AnomalyPolicy) ([]InvoiceAnalysis, int, error) {
	if len(rows) == 0 {
		return nil, 0, nil
	}
	if len(rows) < parallelThreshold {
		return classifyRange(rows, policy)
	}

	records := make([]InvoiceAnalysis, len(rows))
	workers := runtime.GOMAXPROCS(0)
	if workers > len(rows) {
		workers = len(rows)
	}
	chunk := (len(rows) + workers - 1) / workers

	var g errgroup.Group
	anomalies := make([]int, workers)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		if start >= end {
			break
		}
		w := w
		g.Go(func() error {
			for i := start; i < end; i++ {
				record, anomaly, err := buildRecord(rows[i], policy)
				if err != nil {
					return err
				}
				if anomaly {
					anomalies[w]++
				}
				records[i] = record
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	total := 0
	for _, n := range anomalies {
		total += n
	}
	return records, total, nil
}

func classifyRange(rows []InvoiceRow, policy AnomalyPolicy) ([]InvoiceAnalysis, int, error) {
	records := make([]InvoiceAnalysis, 0, len(rows))
	anomalies := 0
	for _, row := range rows {
		record, anomaly, err := buildRecord(row, policy)
		if err != nil {
			return nil, 0, err
		}
		if anomaly {
			anomalies++
		}
		records = append(records, record)
	}
	return records, anomalies, nil
}

func buildRecord(row InvoiceRow, policy AnomalyPolicy) (InvoiceAnalysis, bool, error) {
	period, err := scoring.Classify(row.InvoiceState, row.FirstPaymentDate, row.IssueDate, row.CutoffDays)
	anomaly := err != nil
	if err != nil && policy == AnomalyStrict {
		return InvoiceAnalysis{}, false, fmt.Errorf("invoice %d: %w", row.InvoiceID, err)
	}

	var daysToPayment *int
	var firstPayment *time.Time
	if row.FirstPaymentDate != nil {
		paid := scoring.DateOnly(*row.FirstPaymentDate)
		firstPayment = &paid
		days := scoring.ElapsedDays(row.IssueDate, paid)
		daysToPayment = &days
	}

	return InvoiceAnalysis{
		InvoiceID:        row.InvoiceID,
		CustomerID:       row.CustomerID,
		CustomerName:     row.CustomerName,
		IssueDate:        scoring.DateOnly(row.IssueDate),
		CutoffDays:       row.CutoffDays,
		CutoffDate:       scoring.DateOnly(row.IssueDate).AddDate(0, 0, row.CutoffDays),
		FirstPaymentDate: firstPayment,
		InvoiceState:     row.InvoiceState,
		TotalAmount:      row.TotalAmount,
		PaidAmount:       row.PaidAmount,
		Period:           period,
		DaysToPayment:    daysToPayment,
		ZoneID:           row.ZoneID,
		OperatorID:       row.OperatorID,
	}, anomaly, nil
}
