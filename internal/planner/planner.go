// Package planner synthesizes heuristic keyword clusters, the idea universe,
// and brand data into a deduplicated, scheduled content plan.
package planner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"blogforge/internal/core"
	"blogforge/internal/llm"
	"blogforge/internal/logger"

	"github.com/google/uuid"
)

// DefaultTargetCount is the number of items a full plan carries.
const DefaultTargetCount = 30

// DefaultTopUpMaxAttempts bounds the category-aware top-up loop.
const DefaultTopUpMaxAttempts = 2

// Plan categories. The distribution across them is a target, not a hard
// constraint; quality may cause minor drift.
const (
	CategoryCoreAnswers = "Core Answers"
	CategorySupporting  = "Supporting Articles"
	CategoryConversion  = "Conversion Pages"
	CategoryAuthority   = "Authority Plays"
)

var categoryOrder = []string{CategoryCoreAnswers, CategorySupporting, CategoryConversion, CategoryAuthority}

// LLMClient is the narrow slice of the LLM client the synthesizer needs.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, options llm.Options) (string, error)
}

// DuplicateChecker reports whether a title/keyword pair collides with
// previously persisted topics. Failures are treated as "not a duplicate" so
// a flaky similarity check never blocks plan generation.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, title, mainKeyword string) (bool, error)
}

// Input carries everything the synthesizer folds into the plan prompt.
type Input struct {
	Brand            core.BrandProfile
	Clusters         []core.KeywordCluster
	Ideas            []core.IdeaDomain
	CoveredQuestions []string // Parent questions already answered (coverage analysis)
	ExistingContent  []string // Sitemap-derived existing content titles
	HasSearchData    bool
	TargetCount      int       // Defaults to DefaultTargetCount
	Now              time.Time // Defaults to time.Now().UTC()
}

// Synthesizer turns plan inputs into a scheduled list of ContentPlanItems.
type Synthesizer struct {
	client           LLMClient
	dup              DuplicateChecker
	model            string
	topUpMaxAttempts int
}

// NewSynthesizer creates a content plan synthesizer. dup may be nil.
func NewSynthesizer(client LLMClient, dup DuplicateChecker, model string) *Synthesizer {
	return &Synthesizer{
		client:           client,
		dup:              dup,
		model:            model,
		topUpMaxAttempts: DefaultTopUpMaxAttempts,
	}
}

// SetTopUpMaxAttempts overrides the top-up attempt bound.
func (s *Synthesizer) SetTopUpMaxAttempts(n int) {
	if n >= 0 {
		s.topUpMaxAttempts = n
	}
}

// candidate is the raw shape of one planned post in the model's response.
type candidate struct {
	Title              string   `json:"title"`
	MainKeyword        string   `json:"main_keyword"`
	SupportingKeywords []string `json:"supporting_keywords"`
	ArticleType        string   `json:"article_type"`
	Cluster            string   `json:"cluster"`
	IntentRole         string   `json:"intent_role"`
	ArticleCategory    string   `json:"article_category"`
	ParentQuestion     string   `json:"parent_question"`
	Reason             string   `json:"reason"`
	Impact             string   `json:"impact"`
}

// Generate produces the content plan. If the primary model response cannot
// be parsed at all the whole operation fails: a plan with zero items is not
// a usable product state.
func (s *Synthesizer) Generate(ctx context.Context, input Input) ([]core.ContentPlanItem, error) {
	if input.TargetCount <= 0 {
		input.TargetCount = DefaultTargetCount
	}
	if input.Now.IsZero() {
		input.Now = time.Now().UTC()
	}

	covered := make([]string, 0, len(input.CoveredQuestions)+len(input.ExistingContent))
	covered = append(covered, input.CoveredQuestions...)
	covered = append(covered, input.ExistingContent...)

	prompt := buildPlanPrompt(input, covered)
	response, err := s.client.GenerateText(ctx, prompt, llm.Options{Model: s.model, Temperature: 0.7})
	if err != nil {
		return nil, fmt.Errorf("content plan generation failed: %w", err)
	}

	var candidates []candidate
	if err := llm.Unmarshal(response, &candidates); err != nil {
		return nil, fmt.Errorf("content plan response was not parseable: %w", err)
	}

	accepted, questionRejects := s.dedupe(ctx, candidates, input.TargetCount)

	// Fallback relaxation: if dedup was too aggressive but the model
	// produced a full slate, fill remaining slots ignoring the
	// parent-question rule so the user still gets a usable plan.
	if len(accepted) < relaxationFloor(input.TargetCount) && len(candidates) >= input.TargetCount {
		logger.Warn("Plan dedup was aggressive, relaxing parent-question rule",
			"accepted", len(accepted), "candidates", len(candidates))
		for _, cand := range questionRejects {
			if len(accepted) >= input.TargetCount {
				break
			}
			accepted = append(accepted, cand)
		}
	}

	accepted = s.topUp(ctx, input, accepted)

	return s.finalize(input, accepted), nil
}

// dedupe runs the acceptance pass: parent-question uniqueness within the
// batch plus the external persisted-topic check (fail open). Returns the
// accepted candidates and those rejected only for a repeated parent question.
func (s *Synthesizer) dedupe(ctx context.Context, candidates []candidate, target int) (accepted, questionRejects []candidate) {
	seenQuestions := make(map[string]bool)

	for _, cand := range candidates {
		if len(accepted) >= target {
			break
		}
		if strings.TrimSpace(cand.Title) == "" || strings.TrimSpace(cand.MainKeyword) == "" {
			continue
		}

		norm := NormalizeQuestion(cand.ParentQuestion)
		if norm != "" && seenQuestions[norm] {
			questionRejects = append(questionRejects, cand)
			continue
		}

		if s.dup != nil {
			isDup, err := s.dup.IsDuplicate(ctx, cand.Title, cand.MainKeyword)
			if err != nil {
				logger.Warn("Duplicate check failed, treating as not a duplicate", "title", cand.Title, "error", err.Error())
			} else if isDup {
				continue
			}
		}

		if norm != "" {
			seenQuestions[norm] = true
		}
		accepted = append(accepted, cand)
	}

	return accepted, questionRejects
}

// topUp issues narrower follow-up requests for the categories still short.
// Bounded iteration: stops when the target is reached, the model returns no
// novel items, the response stops parsing, or attempts run out.
func (s *Synthesizer) topUp(ctx context.Context, input Input, accepted []candidate) []candidate {
	if len(accepted) >= input.TargetCount || len(accepted) < topUpFloor(input.TargetCount) {
		return accepted
	}

	for attempt := 0; attempt < s.topUpMaxAttempts && len(accepted) < input.TargetCount; attempt++ {
		shortages := s.shortages(input.TargetCount, accepted)
		if len(shortages) == 0 {
			break
		}

		titles := make([]string, 0, len(accepted))
		for _, cand := range accepted {
			titles = append(titles, cand.Title)
		}

		response, err := s.client.GenerateText(ctx, buildTopUpPrompt(input, shortages, titles), llm.Options{Model: s.model, Temperature: 0.8})
		if err != nil {
			logger.Warn("Plan top-up request failed", "attempt", attempt+1, "error", err.Error())
			break
		}

		var extra []candidate
		if err := llm.Unmarshal(response, &extra); err != nil {
			logger.Warn("Plan top-up response was not parseable", "attempt", attempt+1, "error", err.Error())
			break
		}

		novel := 0
		for _, cand := range extra {
			if len(accepted) >= input.TargetCount {
				break
			}
			if strings.TrimSpace(cand.Title) == "" || strings.TrimSpace(cand.MainKeyword) == "" {
				continue
			}
			if isExactDuplicate(cand, accepted) {
				continue
			}
			accepted = append(accepted, cand)
			novel++
		}

		if novel == 0 {
			break
		}
	}

	return accepted
}

// shortages computes how many items each category still needs.
func (s *Synthesizer) shortages(target int, accepted []candidate) map[string]int {
	counts := make(map[string]int)
	for _, cand := range accepted {
		counts[coerceCategory(cand.ArticleCategory)]++
	}

	targets := categoryTargets(target)
	shortages := make(map[string]int)
	for _, category := range categoryOrder {
		if missing := targets[category] - counts[category]; missing > 0 {
			shortages[category] = missing
		}
	}
	return shortages
}

// finalize coerces invalid fields, enriches items from their source cluster,
// and assigns sequential scheduled dates one day apart.
func (s *Synthesizer) finalize(input Input, accepted []candidate) []core.ContentPlanItem {
	clustersByQuery := make(map[string]core.KeywordCluster, len(input.Clusters))
	for _, cluster := range input.Clusters {
		clustersByQuery[strings.ToLower(cluster.Primary.Query)] = cluster
	}

	items := make([]core.ContentPlanItem, 0, len(accepted))
	startDate := input.Now.Truncate(24 * time.Hour)

	for i, cand := range accepted {
		item := core.ContentPlanItem{
			ID:                 uuid.NewString(),
			Title:              cand.Title,
			MainKeyword:        cand.MainKeyword,
			SupportingKeywords: cand.SupportingKeywords,
			ArticleType:        coerceArticleType(cand.ArticleType),
			Cluster:            cand.Cluster,
			ScheduledDate:      startDate.AddDate(0, 0, i),
			Status:             core.PlanItemPending,
			IntentRole:         cand.IntentRole,
			ArticleCategory:    coerceCategory(cand.ArticleCategory),
			ParentQuestion:     cand.ParentQuestion,
			Reason:             cand.Reason,
			Impact:             cand.Impact,
		}

		if cluster, ok := clustersByQuery[strings.ToLower(cand.Cluster)]; ok {
			item.OpportunityScore = cluster.OpportunityScore
			item.Badge = string(cluster.Category)
			item.Impressions = cluster.Primary.Impressions
			item.Position = cluster.Primary.Position
			item.CTR = cluster.Primary.CTR
		}

		items = append(items, item)
	}

	return items
}

var nonWordChars = regexp.MustCompile(`[^a-z0-9\s]`)
var multiSpace = regexp.MustCompile(`\s+`)

// NormalizeQuestion canonicalizes a parent question for dedup comparison:
// lowercase, punctuation stripped, whitespace collapsed.
func NormalizeQuestion(q string) string {
	normalized := strings.ToLower(strings.TrimSpace(q))
	normalized = nonWordChars.ReplaceAllString(normalized, "")
	normalized = multiSpace.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// isExactDuplicate reports whether cand shares an exact title or exact main
// keyword with any accepted candidate. The top-up merge uses this narrower
// definition.
func isExactDuplicate(cand candidate, accepted []candidate) bool {
	for _, existing := range accepted {
		if strings.EqualFold(existing.Title, cand.Title) {
			return true
		}
		if strings.EqualFold(existing.MainKeyword, cand.MainKeyword) {
			return true
		}
	}
	return false
}

func coerceArticleType(t string) core.ArticleType {
	switch core.ArticleType(strings.ToLower(strings.TrimSpace(t))) {
	case core.TypeCommercial:
		return core.TypeCommercial
	case core.TypeHowTo:
		return core.TypeHowTo
	case core.TypeInformational:
		return core.TypeInformational
	default:
		return core.TypeInformational
	}
}

func coerceCategory(category string) string {
	for _, known := range categoryOrder {
		if strings.EqualFold(strings.TrimSpace(category), known) {
			return known
		}
	}
	return CategoryCoreAnswers
}

// categoryTargets scales the 12/8/6/4 distribution to the requested total,
// with rounding remainder going to Core Answers.
func categoryTargets(total int) map[string]int {
	targets := map[string]int{
		CategoryCoreAnswers: total * 12 / 30,
		CategorySupporting:  total * 8 / 30,
		CategoryConversion:  total * 6 / 30,
		CategoryAuthority:   total * 4 / 30,
	}
	sum := 0
	for _, n := range targets {
		sum += n
	}
	targets[CategoryCoreAnswers] += total - sum
	return targets
}

func coreAnswersTarget(total int) int { return categoryTargets(total)[CategoryCoreAnswers] }
func supportingTarget(total int) int  { return categoryTargets(total)[CategorySupporting] }
func conversionTarget(total int) int  { return categoryTargets(total)[CategoryConversion] }
func authorityTarget(total int) int   { return categoryTargets(total)[CategoryAuthority] }

// relaxationFloor is the accepted count below which the parent-question rule
// is relaxed (given a full candidate slate). Two thirds of the target.
func relaxationFloor(target int) int { return target * 2 / 3 }

// topUpFloor is the minimum accepted count for the top-up loop to engage.
// Half of the target.
func topUpFloor(target int) int { return target / 2 }
