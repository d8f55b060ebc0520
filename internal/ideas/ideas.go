// Package ideas expands a brand's problem-domain universe via the LLM and
// validates each domain against competitor coverage. Both phases degrade
// gracefully: any request or parsing failure yields an empty or all-"none"
// result rather than an error, so plan generation can proceed without the
// enrichment.
package ideas

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"blogforge/internal/core"
	"blogforge/internal/llm"
	"blogforge/internal/logger"
)

// MaxDomains caps the idea universe even when the model returns more.
const MaxDomains = 15

// MaxCompetitorChars bounds the competitor text block passed to the
// validation prompt, to respect model context limits.
const MaxCompetitorChars = 15000

// LLMClient is the narrow slice of the LLM client the engine needs.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, options llm.Options) (string, error)
}

// Engine runs the two idea-expansion phases.
type Engine struct {
	client LLMClient
	model  string
}

// NewEngine creates an idea expansion engine.
func NewEngine(client LLMClient, model string) *Engine {
	return &Engine{client: client, model: model}
}

// ExpandUniverse asks the model for 12-15 short phrases describing adjacent
// life-problem domains the brand's audience experiences. Returns an empty
// slice on any failure.
func (e *Engine) ExpandUniverse(ctx context.Context, brand core.BrandProfile) []core.IdeaDomain {
	prompt := buildUniversePrompt(brand)

	response, err := e.client.GenerateText(ctx, prompt, llm.Options{Model: e.model, Temperature: 0.8})
	if err != nil {
		logger.Warn("Idea universe expansion failed, continuing without it", "error", err.Error())
		return nil
	}

	var phrases []string
	if err := llm.Unmarshal(response, &phrases); err != nil {
		logger.Warn("Could not parse idea universe response, continuing without it", "error", err.Error())
		return nil
	}

	var domains []core.IdeaDomain
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		domains = append(domains, core.IdeaDomain{Phrase: phrase, Coverage: core.CoverageNone})
		if len(domains) >= MaxDomains {
			break
		}
	}
	return domains
}

// ValidateCoverage classifies each domain as heavy/light/none against a block
// of competitor content. A domain missing from the response, or carrying an
// invalid label, defaults to none: the safe default that does not block
// content creation. On total failure all domains come back as none.
func (e *Engine) ValidateCoverage(ctx context.Context, domains []core.IdeaDomain, competitorText string) []core.IdeaDomain {
	if len(domains) == 0 {
		return domains
	}

	validated := make([]core.IdeaDomain, len(domains))
	for i, d := range domains {
		validated[i] = core.IdeaDomain{Phrase: d.Phrase, Coverage: core.CoverageNone}
	}

	if len(competitorText) > MaxCompetitorChars {
		cut := MaxCompetitorChars
		for cut > 0 && !utf8.RuneStart(competitorText[cut]) {
			cut--
		}
		competitorText = competitorText[:cut]
	}

	prompt := buildCoveragePrompt(domains, competitorText)

	response, err := e.client.GenerateText(ctx, prompt, llm.Options{Model: e.model})
	if err != nil {
		logger.Warn("Competitor coverage validation failed, defaulting all domains to none", "error", err.Error())
		return validated
	}

	var labels map[string]string
	if err := llm.Unmarshal(response, &labels); err != nil {
		logger.Warn("Could not parse coverage response, defaulting all domains to none", "error", err.Error())
		return validated
	}

	for i := range validated {
		if label, ok := labels[validated[i].Phrase]; ok {
			switch core.CoverageLevel(strings.ToLower(strings.TrimSpace(label))) {
			case core.CoverageHeavy:
				validated[i].Coverage = core.CoverageHeavy
			case core.CoverageLight:
				validated[i].Coverage = core.CoverageLight
			case core.CoverageNone:
				validated[i].Coverage = core.CoverageNone
			}
		}
	}

	return validated
}

func buildUniversePrompt(brand core.BrandProfile) string {
	var sb strings.Builder
	sb.WriteString("You are mapping the full problem universe of a target audience.\n\n")
	fmt.Fprintf(&sb, "Brand: %s\n", brand.Name)
	if brand.Description != "" {
		fmt.Fprintf(&sb, "What it does: %s\n", brand.Description)
	}
	if brand.TargetAudience != "" {
		fmt.Fprintf(&sb, "Target audience: %s\n", brand.TargetAudience)
	}
	sb.WriteString(`
List 12-15 short phrases (3-8 words each) describing adjacent life problems
this audience experiences. These are problem domains, NOT keywords and NOT
article titles. Do not constrain yourself to the product's features; think
about the surrounding life context the audience lives in.

Respond with a JSON array of strings only.`)
	return sb.String()
}

func buildCoveragePrompt(domains []core.IdeaDomain, competitorText string) string {
	var sb strings.Builder
	sb.WriteString("Classify how heavily the competitor content below covers each problem domain.\n\nDOMAINS:\n")
	for _, d := range domains {
		fmt.Fprintf(&sb, "- %s\n", d.Phrase)
	}
	sb.WriteString("\nCOMPETITOR CONTENT:\n")
	sb.WriteString(competitorText)
	sb.WriteString(`

For every domain, answer "heavy", "light", or "none".
Respond with a JSON object mapping each domain phrase exactly as written
above to its label. No other keys, no commentary.`)
	return sb.String()
}
