package analytics

import (
	"github.com/futuisp/payscore/internal/scoring"
)

// BuildAnnualReport groups a year's classified records by issue month and
// computes per-period shares for each month plus a year-wide summary. The
// input is expected to cover [Jan 1, year]..[Jan 1, year+1), already
// zone-filtered upstream. Months without records simply do not appear.
func BuildAnnualReport(year int, zoneID *int64, records []InvoiceAnalysis) AnnualReport {
	byMonth := make(map[string][]InvoiceAnalysis)
	for _, record := range records {
		key := record.MonthKey()
		byMonth[key] = append(byMonth[key], record)
	}

	monthly := make(map[string]MonthBucket, len(byMonth))
	for key, monthRecords := range byMonth {
		monthly[key] = buildMonthBucket(monthRecords)
	}

	return AnnualReport{
		Year:    year,
		ZoneID:  zoneID,
		Summary: buildAnnualSummary(records),
		Monthly: monthly,
	}
}

func buildMonthBucket(records []InvoiceAnalysis) MonthBucket {
	totalPaid := 0.0
	for _, record := range records {
		totalPaid += record.PaidAmount
	}
	return MonthBucket{
		TotalInvoices: len(records),
		TotalPaid:     scoring.Round2(totalPaid),
		Metrics:       periodShares(records),
	}
}

func buildAnnualSummary(records []InvoiceAnalysis) AnnualSummary {
	return AnnualSummary{
		TotalInvoices: len(records),
		ByPeriod:      periodShares(records),
	}
}

func periodShares(records []InvoiceAnalysis) map[scoring.PaymentPeriod]PeriodShare {
	counts := make(map[scoring.PaymentPeriod]int, len(scoring.Periods()))
	for _, record := range records {
		counts[record.Period]++
	}
	total := len(records)
	shares := make(map[scoring.PaymentPeriod]PeriodShare, len(scoring.Periods()))
	for _, period := range scoring.Periods() {
		share := PeriodShare{Count: counts[period]}
		if total > 0 {
			share.Percentage = scoring.Round2(float64(share.Count) / float64(total) * 100)
		}
		shares[period] = share
	}
	return shares
}
