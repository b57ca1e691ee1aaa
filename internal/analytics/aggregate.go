package analytics

import (
	"github.com/futuisp/payscore/internal/scoring"
)

// AggregatePeriods reduces classified records to per-bucket counts, paid
// amounts, percentages and mean days-to-payment. Aggregating the same set
// twice yields identical output; an empty set yields zeroed buckets with no
// division errors.
func AggregatePeriods(records []InvoiceAnalysis) PeriodBreakdown {
	type tally struct {
		count     int
		totalPaid float64
		daysSum   int
		daysCount int
	}
	tallies := make(map[scoring.PaymentPeriod]*tally, len(scoring.Periods()))
	for _, period := range scoring.Periods() {
		tallies[period] = &tally{}
	}

	for _, record := range records {
		t := tallies[record.Period]
		t.count++
		t.totalPaid += record.PaidAmount
		if record.DaysToPayment != nil {
			t.daysSum += *record.DaysToPayment
			t.daysCount++
		}
	}

	total := len(records)
	breakdown := make(PeriodBreakdown, len(tallies))
	for _, period := range scoring.Periods() {
		t := tallies[period]
		metrics := PeriodMetrics{
			Count:     t.count,
			TotalPaid: scoring.Round2(t.totalPaid),
			Weight:    period.Weight(),
		}
		if total > 0 {
			metrics.Percentage = scoring.Round2(float64(t.count) / float64(total) * 100)
		}
		if t.daysCount > 0 {
			avg := scoring.Round1(float64(t.daysSum) / float64(t.daysCount))
			metrics.AvgDaysToPayment = &avg
		}
		breakdown[period] = metrics
	}
	return breakdown
}

// BuildMonthlyMetrics assembles the monthly report for records already
// scoped to a date range and optional zone by the storage query.
func BuildMonthlyMetrics(period string, zoneID *int64, records []InvoiceAnalysis) MonthlyMetrics {
	return MonthlyMetrics{
		Period:        period,
		ZoneID:        zoneID,
		TotalInvoices: len(records),
		Metrics:       AggregatePeriods(records),
	}
}
