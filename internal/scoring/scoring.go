// Package scoring filters raw search-query telemetry and computes a
// normalized opportunity score per query.
package scoring

import (
	"math"
	"strings"

	"blogforge/internal/core"
)

// Filter thresholds for dropping noisy or irrelevant query rows.
const (
	MinImpressions = 20
	MaxPosition    = 50.0
	MinCTR         = 0.001
	DeepPosition   = 20.0
	MinWordCount   = 2
)

var transactionalTerms = []string{
	"tool", "software", "app", "generator", "maker", "creator",
	"download", "login", "sign up",
}

var commercialTerms = []string{
	"best", "top", "vs", "review", "alternative", "pricing",
	"compare", "cheap", "free",
}

// expectedCTRByPosition is the expected click-through rate for positions 1-10.
var expectedCTRByPosition = [10]float64{0.30, 0.20, 0.12, 0.08, 0.06, 0.04, 0.03, 0.03, 0.03, 0.03}

// IsGarbage reports whether a query row should be dropped before clustering:
// branded queries, low-impression noise, queries ranking too deep to matter,
// no-click deep queries, and single-word queries.
func IsGarbage(q core.QueryStats, brandName string) bool {
	if brandName != "" && strings.Contains(strings.ToLower(q.Query), strings.ToLower(brandName)) {
		return true
	}
	if q.Impressions < MinImpressions {
		return true
	}
	if q.Position > MaxPosition {
		return true
	}
	if q.CTR < MinCTR && q.Position > DeepPosition {
		return true
	}
	if WordCount(q.Query) < MinWordCount {
		return true
	}
	return false
}

// ClassifyIntent tags a query as transactional, commercial, or informational.
// Transactional terms are checked before commercial terms; first match wins.
func ClassifyIntent(query string) core.QueryIntent {
	lower := strings.ToLower(query)
	for _, term := range transactionalTerms {
		if strings.Contains(lower, term) {
			return core.IntentTransactional
		}
	}
	for _, term := range commercialTerms {
		if strings.Contains(lower, term) {
			return core.IntentCommercial
		}
	}
	return core.IntentInformational
}

// ExpectedCTR returns the expected click-through rate for a ranking position:
// a fixed curve for positions 1-10, 1% for 11-20, 0.5% beyond. Positions
// below 1 clamp to position 1.
func ExpectedCTR(position float64) float64 {
	pos := int(math.Round(position))
	switch {
	case pos <= 1:
		return expectedCTRByPosition[0]
	case pos <= 10:
		return expectedCTRByPosition[pos-1]
	case pos <= 20:
		return 0.01
	default:
		return 0.005
	}
}

// OpportunityScore computes a 0-100 score blending impression volume,
// ranking position, CTR shortfall, and query specificity.
func OpportunityScore(q core.QueryStats, maxImpressions int) int {
	if maxImpressions <= 0 {
		maxImpressions = 1
	}

	impressionScore := float64(q.Impressions) / float64(maxImpressions)
	if impressionScore > 1 {
		impressionScore = 1
	}

	positionScore := (50 - q.Position) / 50
	if positionScore < 0 {
		positionScore = 0
	}

	ctrGap := ExpectedCTR(q.Position) - q.CTR
	if ctrGap < 0 {
		ctrGap = 0
	}

	depthScore := wordDepthScore(WordCount(q.Query))

	weighted := 0.4*impressionScore + 0.3*positionScore + 0.2*ctrGap + 0.1*depthScore
	score := int(math.Round(weighted * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// FilterAndScore drops garbage rows and annotates survivors with intent and
// opportunity score. Max impressions is computed over the surviving rows.
func FilterAndScore(rows []core.QueryStats, brandName string) []core.QueryStats {
	var kept []core.QueryStats
	for _, row := range rows {
		if !IsGarbage(row, brandName) {
			kept = append(kept, row)
		}
	}

	maxImpressions := MaxImpressions(kept)
	for i := range kept {
		kept[i].Intent = ClassifyIntent(kept[i].Query)
		kept[i].OpportunityScore = OpportunityScore(kept[i], maxImpressions)
	}
	return kept
}

// MaxImpressions returns the highest impression count among the given rows.
func MaxImpressions(rows []core.QueryStats) int {
	max := 0
	for _, row := range rows {
		if row.Impressions > max {
			max = row.Impressions
		}
	}
	return max
}

// WordCount returns the number of whitespace-separated words in a query.
func WordCount(query string) int {
	return len(strings.Fields(query))
}

// wordDepthScore rewards longer, more specific queries.
func wordDepthScore(words int) float64 {
	switch {
	case words < 3:
		return 0.3
	case words == 3:
		return 0.5
	case words == 4:
		return 0.7
	default:
		return 1.0
	}
}
