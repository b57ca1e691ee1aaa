package analytics

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/futuisp/payscore/internal/scoring"
	"github.com/futuisp/payscore/internal/shared"
)

// Leaderboard sort orders.
const (
	OrderBest  = "best"
	OrderWorst = "worst"
)

const (
	defaultPerPage = 50
	maxPerPage     = 100
)

// RankingQuery scopes a leaderboard request. Unlimited lifts the per-page
// cap and, when no page size is given, returns the entire population in one
// page; filtering and sorting still apply. From/To, when set, bound the
// invoices tallied to an issue-date window instead of the full lifetime.
type RankingQuery struct {
	Page      int
	PerPage   int
	Order     string
	Search    string
	RiskTier  string
	Unlimited bool
	From      *time.Time
	To        *time.Time
}

func (q RankingQuery) normalized() RankingQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 && !q.Unlimited {
		q.PerPage = defaultPerPage
	}
	if !q.Unlimited && q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	if q.Order != OrderBest {
		q.Order = OrderWorst
	}
	q.RiskTier = strings.ToUpper(strings.TrimSpace(q.RiskTier))
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Rank scores the customer population and returns one filtered, sorted,
// paginated leaderboard slice. Input rows come from the grouped storage
// query; customers below the minimum-invoice floor are excluded outright.
// Ties keep the storage order (stable sort). An empty population after
// filtering is a valid result, not an error.
func Rank(rows []CustomerPeriodCounts, query RankingQuery, minInvoices int) RankingPage {
	query = query.normalized()

	scored := make([]RankingRow, 0, len(rows))
	for _, row := range rows {
		if row.Total < minInvoices {
			continue
		}
		scored = append(scored, scoreRow(row, minInvoices))
	}

	filtered := make([]RankingRow, 0, len(scored))
	search := foldSearch(query.Search)
	for _, row := range scored {
		if query.RiskTier != "" && row.RiskTier != query.RiskTier {
			continue
		}
		if search != "" && !matchesSearch(row, search) {
			continue
		}
		filtered = append(filtered, row)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if query.Order == OrderBest {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].Score < filtered[j].Score
	})

	// Unlimited without an explicit page size means the whole population.
	if query.Unlimited && query.PerPage <= 0 {
		query.PerPage = len(filtered)
	}

	pagination := shared.NewPagination(query.Page, query.PerPage, len(filtered))
	start := pagination.Offset()
	end := start + pagination.PerPage
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	page := make([]RankingRow, end-start)
	copy(page, filtered[start:end])

	return RankingPage{
		Page:           pagination.Page,
		PerPage:        pagination.PerPage,
		Order:          query.Order,
		TotalCustomers: pagination.Total,
		TotalPages:     pagination.TotalPages,
		Customers:      page,
	}
}

// SummarizeTiers reduces a full leaderboard to its tier distribution.
func SummarizeTiers(rows []RankingRow) TierSummary {
	counts := make(map[string]int)
	scoreSum := 0.0
	for _, row := range rows {
		counts[row.RiskTier]++
		scoreSum += row.Score
	}

	byTier := make(map[string]PeriodShare, len(counts))
	for tier, count := range counts {
		share := PeriodShare{Count: count}
		if len(rows) > 0 {
			share.Percentage = scoring.Round2(float64(count) / float64(len(rows)) * 100)
		}
		byTier[tier] = share
	}

	summary := TierSummary{TotalCustomers: len(rows), ByTier: byTier}
	if len(rows) > 0 {
		summary.AverageScore = scoring.Round2(scoreSum / float64(len(rows)))
	}
	return summary
}

func scoreRow(row CustomerPeriodCounts, minInvoices int) RankingRow {
	score := scoring.Score(row.Total, row.Optimal, row.Acceptable, row.Critical, row.Pending)
	return RankingRow{
		CustomerID:      row.CustomerID,
		Name:            row.Name,
		Identifier:      row.Identifier,
		Phone:           row.Phone,
		Email:           row.Email,
		Address:         row.Address,
		Score:           score,
		RiskTier:        scoring.TierWithFloor(score, row.Total, minInvoices),
		TotalInvoices:   row.Total,
		PunctualCount:   row.Optimal,
		DelinquentCount: row.Acceptable + row.Critical + row.Pending,
		Punctuality:     scoring.Punctuality(row.Total, row.Optimal),
		AvgDaysLate:     scoring.Round1(row.AvgDaysLate),
	}
}

func matchesSearch(row RankingRow, folded string) bool {
	return strings.Contains(foldSearch(row.Name), folded) ||
		strings.Contains(foldSearch(row.Identifier), folded)
}

// foldSearch lowercases and strips diacritics so that searches match the
// accented customer names coming from the billing origin.
func foldSearch(s string) string {
	if s == "" {
		return ""
	}
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
