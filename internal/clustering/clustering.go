// Package clustering groups near-duplicate search queries via lexical
// similarity and assigns each cluster a strategic category.
package clustering

import (
	"sort"
	"strings"

	"blogforge/internal/core"
	"blogforge/internal/scoring"
)

// DefaultSimilarityThreshold is the Jaccard similarity above which two
// queries are considered near-duplicates. Taken as given from observed
// behavior; tune with care.
const DefaultSimilarityThreshold = 0.4

// Similarity computes the Jaccard similarity over the whitespace-tokenized
// lowercase word sets of two queries. Symmetric by construction.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// Cluster groups scored queries into keyword clusters. Queries are sorted by
// opportunity score descending (stable, so input order breaks ties); the
// highest-scoring unused query becomes a cluster primary and all other unused
// queries with similarity above the threshold attach as supporting members.
// Every input query lands in exactly one cluster.
func Cluster(queries []core.QueryStats, maxImpressions int, threshold float64) []core.KeywordCluster {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	sorted := make([]core.QueryStats, len(queries))
	copy(sorted, queries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpportunityScore > sorted[j].OpportunityScore
	})

	used := make([]bool, len(sorted))
	var clusters []core.KeywordCluster

	for i := range sorted {
		if used[i] {
			continue
		}
		used[i] = true

		cluster := core.KeywordCluster{
			Primary:          sorted[i],
			Intent:           sorted[i].Intent,
			OpportunityScore: sorted[i].OpportunityScore,
		}

		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			if Similarity(sorted[i].Query, sorted[j].Query) > threshold {
				cluster.Supporting = append(cluster.Supporting, sorted[j])
				used[j] = true
			}
		}

		cluster.Category = Categorize(cluster.Primary, maxImpressions)
		clusters = append(clusters, cluster)
	}

	return clusters
}

// Categorize assigns a strategic category to a cluster based on its primary
// query. Priority order is fixed: quick_win beats high_potential beats
// strategic; new_opportunity is the fallback bucket.
func Categorize(primary core.QueryStats, maxImpressions int) core.ClusterCategory {
	if maxImpressions <= 0 {
		maxImpressions = 1
	}
	impressionShare := float64(primary.Impressions) / float64(maxImpressions)

	if primary.Position >= 7 && primary.Position <= 20 &&
		impressionShare >= 0.05 &&
		primary.CTR < 0.5*scoring.ExpectedCTR(primary.Position) {
		return core.CategoryQuickWin
	}

	if impressionShare >= 0.10 && primary.Position > 20 && primary.Position <= 40 {
		return core.CategoryHighPotential
	}

	if primary.OpportunityScore >= 50 && impressionShare >= 0.05 {
		return core.CategoryStrategic
	}

	return core.CategoryNewOpportunity
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(s)) {
		set[token] = struct{}{}
	}
	return set
}
