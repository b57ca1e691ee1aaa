package scoring

import (
	"fmt"
	"time"
)

// Invoice states as reported by the origin billing system. Anything outside
// this set is tolerated: reporting availability wins over strict validation.
const (
	StatePaid    = "Paid"
	StateNotPaid = "Not paid"
	StateVoided  = "Voided"
)

const (
	optimalMaxDays  = 10
	criticalMaxDays = 30
)

// AnomalyError reports a data-integrity anomaly detected during
// classification, currently a payment recorded before the invoice was
// issued. Callers decide whether to propagate it or fall back to the
// conservative bucket returned alongside it.
type AnomalyError struct {
	IssueDate   time.Time
	PaymentDate time.Time
	ElapsedDays int
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("scoring: payment on %s predates issue date %s (%d days)",
		e.PaymentDate.Format("2006-01-02"), e.IssueDate.Format("2006-01-02"), e.ElapsedDays)
}

// Classify maps one invoice's payment outcome onto a PaymentPeriod.
//
// Rules, in order: an invoice without any payment movement is PENDING when
// the origin flagged it "Not paid" and NO_PAYMENT_RECORD otherwise. A paid
// invoice is bucketed by elapsed calendar days between issue and first
// payment: 0-10 OPTIMAL, 11..cutoffDays ACCEPTABLE, then CRITICAL up to day
// 30, PENDING beyond. When cutoffDays < 11 the ACCEPTABLE band is empty and
// payments fall straight into CRITICAL; that is how the billing operation
// runs those customers, not a defect.
//
// A payment before the issue date returns PENDING together with a typed
// *AnomalyError so the caller can choose between conservative fallback and
// surfacing the data-quality issue.
func Classify(invoiceState string, firstPayment *time.Time, issueDate time.Time, cutoffDays int) (PaymentPeriod, error) {
	if firstPayment == nil {
		if invoiceState == StateNotPaid {
			return PeriodPending, nil
		}
		return PeriodNoRecord, nil
	}

	elapsed := ElapsedDays(issueDate, *firstPayment)
	switch {
	case elapsed < 0:
		return PeriodPending, &AnomalyError{
			IssueDate:   DateOnly(issueDate),
			PaymentDate: DateOnly(*firstPayment),
			ElapsedDays: elapsed,
		}
	case elapsed <= optimalMaxDays:
		return PeriodOptimal, nil
	case elapsed <= cutoffDays:
		return PeriodAcceptable, nil
	case elapsed <= criticalMaxDays:
		return PeriodCritical, nil
	default:
		return PeriodPending, nil
	}
}

// DateOnly drops the time-of-day component, keeping the calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ElapsedDays counts whole calendar days between two instants, ignoring
// time of day.
func ElapsedDays(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)) / (24 * time.Hour))
}
