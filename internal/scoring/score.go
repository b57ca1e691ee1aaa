package scoring

import "math"

// Risk tiers derived from a customer's score.
const (
	TierLow              = "LOW"
	TierMedium           = "MEDIUM"
	TierHigh             = "HIGH"
	TierCritical         = "CRITICAL"
	TierInsufficientData = "INSUFFICIENT_DATA"
)

// Tiers lists the score-derived risk tiers from best to worst, excluding
// INSUFFICIENT_DATA.
func Tiers() []string {
	return []string{TierLow, TierMedium, TierHigh, TierCritical}
}

// ValidTier reports whether the supplied label is a known risk tier.
func ValidTier(tier string) bool {
	switch tier {
	case TierLow, TierMedium, TierHigh, TierCritical, TierInsufficientData:
		return true
	}
	return false
}

// Score reduces per-period invoice counts to a weighted 0-100 score,
// rounded to two decimals. The four counts must sum to total; that is the
// caller's contract and is not re-checked here. A zero total scores 0.
func Score(total, optimal, acceptable, critical, pending int) float64 {
	if total == 0 {
		return 0
	}
	points := float64(optimal*PeriodOptimal.Weight() +
		acceptable*PeriodAcceptable.Weight() +
		critical*PeriodCritical.Weight() +
		pending*PeriodPending.Weight())
	return Round2(points / float64(total))
}

// Tier maps a score onto a risk tier without regard for how much history
// backs it. It exists for call sites that rank already-floored populations;
// new code should prefer TierWithFloor.
func Tier(score float64) string {
	switch {
	case score >= 90:
		return TierLow
	case score >= 70:
		return TierMedium
	case score >= 50:
		return TierHigh
	default:
		return TierCritical
	}
}

// TierWithFloor maps a score onto a risk tier, reporting
// INSUFFICIENT_DATA when the customer has fewer invoices than
// minInvoices. A thin history cannot be tiered reliably.
func TierWithFloor(score float64, total, minInvoices int) string {
	if total < minInvoices {
		return TierInsufficientData
	}
	return Tier(score)
}

// Punctuality returns the share of invoices paid in the optimal window,
// as a 0-100 percentage rounded to two decimals.
func Punctuality(total, optimal int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(optimal) / float64(total) * 100)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CustomerScore condenses a customer's classified invoice history. It is
// derived on demand and never persisted.
type CustomerScore struct {
	TotalInvoices int     `json:"total_invoices"`
	Optimal       int     `json:"optimal"`
	Acceptable    int     `json:"acceptable"`
	Critical      int     `json:"critical"`
	Pending       int     `json:"pending"`
	Score         float64 `json:"score"`
	RiskTier      string  `json:"risk_tier"`
	Punctuality   float64 `json:"punctuality_pct"`
}

// NewCustomerScore computes the derived fields from period counts.
// NO_PAYMENT_RECORD invoices must already be folded into pending by the
// caller so the counts sum to total.
func NewCustomerScore(total, optimal, acceptable, critical, pending, minInvoices int) CustomerScore {
	score := Score(total, optimal, acceptable, critical, pending)
	return CustomerScore{
		TotalInvoices: total,
		Optimal:       optimal,
		Acceptable:    acceptable,
		Critical:      critical,
		Pending:       pending,
		Score:         score,
		RiskTier:      TierWithFloor(score, total, minInvoices),
		Punctuality:   Punctuality(total, optimal),
	}
}
