package scoring

import (
	"testing"

	"blogforge/internal/core"
)

func TestIsGarbage(t *testing.T) {
	tests := []struct {
		name    string
		query   core.QueryStats
		brand   string
		garbage bool
	}{
		{
			name:    "healthy query survives",
			query:   core.QueryStats{Query: "restore old photos", Impressions: 100, Position: 15, CTR: 0.02},
			garbage: false,
		},
		{
			name:    "brand name substring",
			query:   core.QueryStats{Query: "acme photo restore", Impressions: 500, Position: 3, CTR: 0.2},
			brand:   "Acme",
			garbage: true,
		},
		{
			name:    "too few impressions",
			query:   core.QueryStats{Query: "fix scratched photo", Impressions: 19, Position: 10, CTR: 0.05},
			garbage: true,
		},
		{
			name:    "position too deep",
			query:   core.QueryStats{Query: "photo repair guide", Impressions: 100, Position: 51, CTR: 0.01},
			garbage: true,
		},
		{
			name:    "no clicks and deep position",
			query:   core.QueryStats{Query: "photo repair guide", Impressions: 100, Position: 25, CTR: 0.0005},
			garbage: true,
		},
		{
			name:    "low ctr but shallow position survives",
			query:   core.QueryStats{Query: "photo repair guide", Impressions: 100, Position: 15, CTR: 0.0005},
			garbage: false,
		},
		{
			name:    "single word filtered regardless of metrics",
			query:   core.QueryStats{Query: "buy", Impressions: 1000, Position: 5, CTR: 0.1},
			garbage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGarbage(tt.query, tt.brand); got != tt.garbage {
				t.Errorf("IsGarbage(%q) = %v, want %v", tt.query.Query, got, tt.garbage)
			}
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query    string
		expected core.QueryIntent
	}{
		{"photo restoration tool", core.IntentTransactional},
		{"best photo restoration service", core.IntentCommercial},
		{"how to restore old photos", core.IntentInformational},
		// Transactional wins when both term lists match
		{"best photo restoration app", core.IntentTransactional},
		{"photoshop vs lightroom", core.IntentCommercial},
		{"free image generator", core.IntentTransactional},
	}

	for _, tt := range tests {
		if got := ClassifyIntent(tt.query); got != tt.expected {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", tt.query, got, tt.expected)
		}
	}
}

func TestExpectedCTR(t *testing.T) {
	tests := []struct {
		position float64
		expected float64
	}{
		{1, 0.30},
		{2, 0.20},
		{3, 0.12},
		{4, 0.08},
		{5, 0.06},
		{10, 0.03},
		{12, 0.01},
		{20, 0.01},
		{21, 0.005},
		{45, 0.005},
		{0, 0.30},
		{-3, 0.30},
	}

	for _, tt := range tests {
		if got := ExpectedCTR(tt.position); got != tt.expected {
			t.Errorf("ExpectedCTR(%v) = %v, want %v", tt.position, got, tt.expected)
		}
	}
}

func TestOpportunityScoreBounds(t *testing.T) {
	queries := []core.QueryStats{
		{Query: "a b", Impressions: 0, Position: 50, CTR: 1.0},
		{Query: "very long specific query with many words", Impressions: 1000, Position: 1, CTR: 0},
		{Query: "mid range query here", Impressions: 500, Position: 12, CTR: 0.01},
	}

	for _, q := range queries {
		score := OpportunityScore(q, 1000)
		if score < 0 || score > 100 {
			t.Errorf("OpportunityScore(%q) = %d, out of [0,100]", q.Query, score)
		}
	}
}

func TestOpportunityScoreRewardsSpecificity(t *testing.T) {
	short := core.QueryStats{Query: "photo restore", Impressions: 500, Position: 10, CTR: 0.01}
	long := core.QueryStats{Query: "how to restore faded photos at home", Impressions: 500, Position: 10, CTR: 0.01}

	if OpportunityScore(long, 1000) <= OpportunityScore(short, 1000) {
		t.Error("Expected longer query to score higher than shorter one with equal metrics")
	}
}

func TestFilterAndScore(t *testing.T) {
	rows := []core.QueryStats{
		{Query: "buy", Impressions: 1000, Position: 5, CTR: 0.1},
		{Query: "best budget laptop 2024", Impressions: 500, Position: 12, CTR: 0.01},
		{Query: "laptop repair near me", Impressions: 200, Position: 8, CTR: 0.02},
	}

	scored := FilterAndScore(rows, "")
	if len(scored) != 2 {
		t.Fatalf("Expected 2 surviving rows, got %d", len(scored))
	}

	for _, q := range scored {
		if q.Query == "buy" {
			t.Error("Filtered query must never appear in output")
		}
		if q.OpportunityScore < 0 || q.OpportunityScore > 100 {
			t.Errorf("Score out of bounds for %q: %d", q.Query, q.OpportunityScore)
		}
		if q.Intent == "" {
			t.Errorf("Expected intent to be set for %q", q.Query)
		}
	}
}
