// Package research runs the research phase of the blog pipeline: a web
// search for the target keyword followed by LLM distillation of the raw
// page text into a schema-validated research brief.
package research

import (
	"context"
	"fmt"
	"strings"

	"blogforge/internal/core"
	"blogforge/internal/llm"
	"blogforge/internal/logger"
	"blogforge/internal/search"

	"google.golang.org/genai"
)

// MaxSourceChars truncates each scraped source before it enters the
// distillation prompt.
const MaxSourceChars = 8000

// DefaultMaxResults is the number of search results fetched per keyword.
const DefaultMaxResults = 5

// LLMClient is the narrow slice of the LLM client the researcher needs.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, options llm.Options) (string, error)
}

// Researcher produces a ResearchBrief for a keyword.
type Researcher struct {
	client     LLMClient
	provider   search.Provider
	model      string
	maxResults int
}

// NewResearcher creates a researcher backed by the given search provider.
func NewResearcher(client LLMClient, provider search.Provider, model string) *Researcher {
	return &Researcher{
		client:     client,
		provider:   provider,
		model:      model,
		maxResults: DefaultMaxResults,
	}
}

// SetMaxResults overrides how many search results are fetched.
func (r *Researcher) SetMaxResults(n int) {
	if n > 0 {
		r.maxResults = n
	}
}

// Research searches for the keyword and distills the scraped text into a
// fact sheet, content-gap analysis, and sources summary. Malformed model
// output is a failure: the brief feeds every later phase.
func (r *Researcher) Research(ctx context.Context, keyword string) (*core.ResearchBrief, error) {
	results, err := r.provider.Search(ctx, keyword, search.Config{
		MaxResults:     r.maxResults,
		IncludeContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search for %q failed: %w", keyword, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("search for %q: %w", keyword, search.ErrNoResults)
	}

	prompt := buildDistillationPrompt(keyword, results)

	response, err := r.client.GenerateText(ctx, prompt, llm.Options{
		Model:          r.model,
		ResponseSchema: briefSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("research distillation failed: %w", err)
	}

	var brief core.ResearchBrief
	if err := llm.Unmarshal(response, &brief); err != nil {
		return nil, fmt.Errorf("research brief was not parseable: %w", err)
	}

	if err := validateBrief(&brief); err != nil {
		return nil, fmt.Errorf("research brief failed validation: %w", err)
	}

	logger.Info("Research complete", "keyword", keyword,
		"facts", len(brief.Facts), "sources", len(brief.Sources))

	return &brief, nil
}

func buildDistillationPrompt(keyword string, results []search.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You are a research analyst preparing a brief for an article targeting the
keyword %q. Below is raw text scraped from the current top-ranking pages.
The scrapes include navigation menus, cookie banners, footers, and other
page chrome -- ignore all of it and work only from the substantive content.

`, keyword)

	for i, result := range results {
		content := result.Content
		if content == "" {
			content = result.Snippet
		}
		if len(content) > MaxSourceChars {
			content = content[:MaxSourceChars]
		}
		fmt.Fprintf(&sb, "SOURCE %d: %s (%s)\n%s\n\n", i+1, result.Title, result.URL, content)
	}

	sb.WriteString(`Produce:
1. facts: concrete facts and statistics corroborated across sources. Prefer
   numbers, dates, and named entities over generalities.
2. gaps: what the ranking content is missing -- topics nobody covers
   (missing_topics), information that has gone stale (outdated_info), and
   reader questions left unanswered (user_intent_gaps).
3. sources: one entry per source with a one-sentence summary of its angle.`)

	return sb.String()
}

// briefSchema enforces the structured JSON shape of the research brief.
func briefSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"facts": {
				Type:        genai.TypeArray,
				Description: "Cross-source-corroborated facts and statistics",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"gaps": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"missing_topics": {
						Type:  genai.TypeArray,
						Items: &genai.Schema{Type: genai.TypeString},
					},
					"outdated_info": {
						Type:  genai.TypeArray,
						Items: &genai.Schema{Type: genai.TypeString},
					},
					"user_intent_gaps": {
						Type:  genai.TypeArray,
						Items: &genai.Schema{Type: genai.TypeString},
					},
				},
				Required: []string{"missing_topics", "outdated_info", "user_intent_gaps"},
			},
			"sources": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"url":     {Type: genai.TypeString},
						"title":   {Type: genai.TypeString},
						"summary": {Type: genai.TypeString},
					},
					Required: []string{"url", "title", "summary"},
				},
			},
		},
		Required: []string{"facts", "gaps", "sources"},
	}
}

func validateBrief(brief *core.ResearchBrief) error {
	if len(brief.Facts) == 0 {
		return fmt.Errorf("brief has no facts")
	}
	if len(brief.Sources) == 0 {
		return fmt.Errorf("brief has no sources")
	}
	return nil
}
