// Package scoring holds the payment-behavior classification and scoring
// rules. Everything in this package is pure: no I/O, no shared state, safe
// for concurrent use.
package scoring

// PaymentPeriod classifies how an invoice was paid relative to its issue
// date and the customer's cutoff day. Values are ordered by decreasing
// desirability.
type PaymentPeriod string

const (
	// PeriodOptimal marks invoices paid within the first ten days.
	PeriodOptimal PaymentPeriod = "OPTIMAL"
	// PeriodAcceptable marks invoices paid between day 11 and the cutoff day.
	PeriodAcceptable PaymentPeriod = "ACCEPTABLE"
	// PeriodCritical marks invoices paid after the cutoff day but within 30 days.
	PeriodCritical PaymentPeriod = "CRITICAL"
	// PeriodPending marks unpaid invoices, or payments landing after day 30.
	PeriodPending PaymentPeriod = "PENDING"
	// PeriodNoRecord marks invoices with no payment movement and no
	// explicit unpaid state. It is a "no data" bucket, never produced when a
	// payment exists.
	PeriodNoRecord PaymentPeriod = "NO_PAYMENT_RECORD"
)

// Periods lists every classification bucket in display order.
func Periods() []PaymentPeriod {
	return []PaymentPeriod{PeriodOptimal, PeriodAcceptable, PeriodCritical, PeriodPending, PeriodNoRecord}
}

// Weight returns the fixed performance weight used by the scoring formula.
func (p PaymentPeriod) Weight() int {
	switch p {
	case PeriodOptimal:
		return 100
	case PeriodAcceptable:
		return 75
	case PeriodCritical:
		return 40
	default:
		return 0
	}
}

// Description returns the operator-facing label for the bucket.
func (p PaymentPeriod) Description() string {
	switch p {
	case PeriodOptimal:
		return "Paid on time (days 0-10)"
	case PeriodAcceptable:
		return "Paid before cutoff"
	case PeriodCritical:
		return "Paid late, past cutoff"
	case PeriodPending:
		return "Unpaid or paid after day 30"
	case PeriodNoRecord:
		return "No payment record"
	default:
		return "Unknown"
	}
}

// Valid reports whether p is one of the closed set of buckets.
func (p PaymentPeriod) Valid() bool {
	switch p {
	case PeriodOptimal, PeriodAcceptable, PeriodCritical, PeriodPending, PeriodNoRecord:
		return true
	}
	return false
}

// Delinquent reports whether the bucket represents late or missing payment.
func (p PaymentPeriod) Delinquent() bool {
	return p == PeriodCritical || p == PeriodPending
}
