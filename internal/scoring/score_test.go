package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name       string
		total      int
		optimal    int
		acceptable int
		critical   int
		pending    int
		want       float64
	}{
		{"empty history scores zero", 0, 0, 0, 0, 0, 0},
		{"all optimal", 4, 4, 0, 0, 0, 100},
		{"all pending", 3, 0, 0, 0, 3, 0},
		{"mixed history", 4, 2, 1, 0, 1, 68.75},
		{"single critical", 1, 0, 0, 1, 0, 40},
		{"rounded to two decimals", 3, 1, 1, 1, 0, 71.67},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.total, tc.optimal, tc.acceptable, tc.critical, tc.pending)
			require.Equal(t, tc.want, got)
			require.GreaterOrEqual(t, got, 0.0)
			require.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestTierThresholds(t *testing.T) {
	require.Equal(t, TierLow, Tier(100))
	require.Equal(t, TierLow, Tier(90))
	require.Equal(t, TierMedium, Tier(89.99))
	require.Equal(t, TierMedium, Tier(70))
	require.Equal(t, TierHigh, Tier(69.99))
	require.Equal(t, TierHigh, Tier(50))
	require.Equal(t, TierCritical, Tier(49.99))
	require.Equal(t, TierCritical, Tier(0))
}

func TestTierWithFloor(t *testing.T) {
	require.Equal(t, TierInsufficientData, TierWithFloor(95, 1, 2))
	require.Equal(t, TierLow, TierWithFloor(95, 2, 2))
	require.Equal(t, TierCritical, TierWithFloor(10, 8, 2))
}

func TestPunctuality(t *testing.T) {
	require.Equal(t, 0.0, Punctuality(0, 0))
	require.Equal(t, 50.0, Punctuality(4, 2))
	require.Equal(t, 33.33, Punctuality(3, 1))
}

func TestNewCustomerScore(t *testing.T) {
	score := NewCustomerScore(4, 2, 1, 0, 1, 2)
	require.Equal(t, 68.75, score.Score)
	require.Equal(t, TierHigh, score.RiskTier)
	require.Equal(t, 50.0, score.Punctuality)
	require.Equal(t, score.TotalInvoices, score.Optimal+score.Acceptable+score.Critical+score.Pending)

	thin := NewCustomerScore(1, 1, 0, 0, 0, 3)
	require.Equal(t, TierInsufficientData, thin.RiskTier)
	require.Equal(t, 100.0, thin.Score)
}

func TestPeriodWeights(t *testing.T) {
	require.Equal(t, 100, PeriodOptimal.Weight())
	require.Equal(t, 75, PeriodAcceptable.Weight())
	require.Equal(t, 40, PeriodCritical.Weight())
	require.Equal(t, 0, PeriodPending.Weight())
	require.Equal(t, 0, PeriodNoRecord.Weight())
}
