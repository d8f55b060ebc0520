// Package services composes the scoring, clustering, idea, planning, and
// pipeline packages into the operations the CLI and the HTTP API expose.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blogforge/internal/clustering"
	"blogforge/internal/core"
	"blogforge/internal/fetch"
	"blogforge/internal/ideas"
	"blogforge/internal/logger"
	"blogforge/internal/planner"
	"blogforge/internal/scoring"
	"blogforge/internal/search"

	"github.com/google/uuid"
)

// PageFetcher pulls a page's readable text when a search result carries
// none of its own.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*fetch.Page, error)
}

// PlanStore persists generated content plans.
type PlanStore interface {
	SaveContentPlan(ctx context.Context, plan core.ContentPlan) error
	GetContentPlan(ctx context.Context, id string) (*core.ContentPlan, error)
}

// PlanRequest carries everything plan generation needs for one brand.
type PlanRequest struct {
	Brand            core.BrandProfile
	Queries          []core.QueryStats // Raw Search-Console rows; may be empty
	ExistingContent  []string          // Titles already published on the site
	CoveredQuestions []string          // Parent questions already answered
	TargetCount      int
}

// PlanService turns query telemetry and brand context into a persisted
// content plan.
type PlanService struct {
	synthesizer *planner.Synthesizer
	ideas       *ideas.Engine
	provider    search.Provider
	fetcher     PageFetcher
	store       PlanStore
	similarity  float64
}

// NewPlanService wires the plan generation chain. provider and fetcher may
// be nil, which skips competitor-coverage validation.
func NewPlanService(synthesizer *planner.Synthesizer, ideaEngine *ideas.Engine, provider search.Provider, fetcher PageFetcher, store PlanStore, similarity float64) *PlanService {
	if similarity <= 0 {
		similarity = clustering.DefaultSimilarityThreshold
	}
	return &PlanService{
		synthesizer: synthesizer,
		ideas:       ideaEngine,
		provider:    provider,
		fetcher:     fetcher,
		store:       store,
		similarity:  similarity,
	}
}

// GeneratePlan runs the full chain: filter and score queries, cluster them,
// expand the idea universe, synthesize the plan, and persist it. A plan that
// cannot be generated is not persisted at all.
func (s *PlanService) GeneratePlan(ctx context.Context, req PlanRequest) (*core.ContentPlan, error) {
	scored := scoring.FilterAndScore(req.Queries, req.Brand.Name)
	maxImpressions := scoring.MaxImpressions(scored)
	clusters := clustering.Cluster(scored, maxImpressions, s.similarity)
	logger.Info("Scored and clustered queries",
		"brand", req.Brand.Name, "input_queries", len(req.Queries),
		"survivors", len(scored), "clusters", len(clusters))

	ideaDomains := s.ideas.ExpandUniverse(ctx, req.Brand)
	if len(ideaDomains) > 0 {
		ideaDomains = s.ideas.ValidateCoverage(ctx, ideaDomains, s.competitorText(ctx, req.Brand))
	}

	items, err := s.synthesizer.Generate(ctx, planner.Input{
		Brand:            req.Brand,
		Clusters:         clusters,
		Ideas:            ideaDomains,
		CoveredQuestions: req.CoveredQuestions,
		ExistingContent:  req.ExistingContent,
		HasSearchData:    len(scored) > 0,
		TargetCount:      req.TargetCount,
	})
	if err != nil {
		return nil, fmt.Errorf("plan synthesis failed: %w", err)
	}

	plan := core.ContentPlan{
		ID:               uuid.NewString(),
		BrandID:          req.Brand.ID,
		Items:            items,
		AutomationStatus: "paused",
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.SaveContentPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to persist plan: %w", err)
	}

	logger.Info("Content plan generated", "plan_id", plan.ID, "items", len(plan.Items))
	return &plan, nil
}

// GetPlan returns a plan by id, or nil when it does not exist.
func (s *PlanService) GetPlan(ctx context.Context, id string) (*core.ContentPlan, error) {
	return s.store.GetContentPlan(ctx, id)
}

// competitorText gathers page content from top search results for the
// brand's seed keywords. Best-effort: an empty string downgrades coverage
// validation, it does not fail the plan.
func (s *PlanService) competitorText(ctx context.Context, brand core.BrandProfile) string {
	if s.provider == nil || len(brand.SeedKeywords) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, keyword := range brand.SeedKeywords {
		if builder.Len() >= ideas.MaxCompetitorChars {
			break
		}
		results, err := s.provider.Search(ctx, keyword, search.Config{MaxResults: 3, IncludeContent: true})
		if err != nil {
			logger.Warn("Competitor search failed, continuing without it", "keyword", keyword, "error", err.Error())
			continue
		}
		for _, result := range results {
			text := result.Content
			if text == "" && s.fetcher != nil {
				if page, err := s.fetcher.FetchPage(ctx, result.URL); err == nil {
					text = page.Text
				}
			}
			if text == "" {
				text = result.Snippet
			}
			if text == "" {
				continue
			}
			builder.WriteString(text)
			builder.WriteString("\n\n")
		}
	}
	return builder.String()
}
