package analytics

import (
	"github.com/futuisp/payscore/internal/scoring"
)

// BuildCustomerHistory reduces a customer's entire invoice history to a
// lifetime score and a month-grouped invoice listing. The score deliberately
// covers all history rather than a window: payment character is a lifetime
// trait. With zero qualifying invoices the result carries a nil score,
// distinguishing "no history" from a genuinely zero score.
func BuildCustomerHistory(customerID int64, records []InvoiceAnalysis, minInvoices int) CustomerHistory {
	if len(records) == 0 {
		return CustomerHistory{CustomerID: customerID}
	}

	counts := make(map[scoring.PaymentPeriod]int, len(scoring.Periods()))
	for _, record := range records {
		counts[record.Period]++
	}
	// The no-data bucket carries weight zero, same as pending; fold it in so
	// the four scored counts sum to the total.
	pending := counts[scoring.PeriodPending] + counts[scoring.PeriodNoRecord]

	score := scoring.NewCustomerScore(
		len(records),
		counts[scoring.PeriodOptimal],
		counts[scoring.PeriodAcceptable],
		counts[scoring.PeriodCritical],
		pending,
		minInvoices,
	)

	byMonth := make(map[string][]HistoryInvoice)
	for _, record := range records {
		key := record.MonthKey()
		byMonth[key] = append(byMonth[key], HistoryInvoice{
			InvoiceID:     record.InvoiceID,
			IssueDate:     record.IssueDate.Format("2006-01-02"),
			TotalAmount:   scoring.Round2(record.TotalAmount),
			PaidAmount:    scoring.Round2(record.PaidAmount),
			Period:        record.Period,
			DaysToPayment: record.DaysToPayment,
		})
	}

	return CustomerHistory{
		CustomerID:   customerID,
		CustomerName: records[0].CustomerName,
		Score:        &score,
		Summary: &HistorySummary{
			TotalInvoices: len(records),
			ByPeriod: map[scoring.PaymentPeriod]int{
				scoring.PeriodOptimal:    counts[scoring.PeriodOptimal],
				scoring.PeriodAcceptable: counts[scoring.PeriodAcceptable],
				scoring.PeriodCritical:   counts[scoring.PeriodCritical],
				scoring.PeriodPending:    pending,
			},
		},
		InvoicesByMonth: byMonth,
	}
}
