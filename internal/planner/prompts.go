package planner

import (
	"fmt"
	"strings"

	"blogforge/internal/core"
)

// MaxCoveredShown bounds how many already-covered topics are listed
// explicitly in the prompt; the remainder is summarized by count.
const MaxCoveredShown = 20

func buildPlanPrompt(input Input, covered []string) string {
	var sb strings.Builder

	sb.WriteString(stageStrategy(input))
	sb.WriteString("\n\n")

	sb.WriteString("BRAND CONTEXT:\n")
	fmt.Fprintf(&sb, "Name: %s\n", input.Brand.Name)
	if input.Brand.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", input.Brand.Description)
	}
	if input.Brand.TargetAudience != "" {
		fmt.Fprintf(&sb, "Target audience: %s\n", input.Brand.TargetAudience)
	}
	if len(input.Brand.Features) > 0 {
		fmt.Fprintf(&sb, "Product features: %s\n", strings.Join(input.Brand.Features, ", "))
	}

	if len(input.Ideas) > 0 {
		sb.WriteString("\nPROBLEM-DOMAIN UNIVERSE (with competitor coverage):\n")
		for _, idea := range input.Ideas {
			fmt.Fprintf(&sb, "%s %s\n", coverageMarker(idea.Coverage), idea.Phrase)
		}
		sb.WriteString("Prefer 🟢 (uncovered) and 🟡 (lightly covered) domains; treat 🔴 as saturated.\n")
	}

	if len(input.Brand.Features) > 1 {
		sb.WriteString("\nFEATURE COVERAGE: the brand has multiple features; distribute conversion-oriented topics proportionally across them rather than fixating on one.\n")
	}

	if len(input.Clusters) > 0 {
		sb.WriteString("\nSEARCH QUERY CLUSTERS (real demand signals, strongest first):\n")
		for _, cluster := range input.Clusters {
			fmt.Fprintf(&sb, "- [%s, score %d, %s] %s", cluster.Category, cluster.OpportunityScore, cluster.Intent, cluster.Primary.Query)
			if len(cluster.Supporting) > 0 {
				var supporting []string
				for _, member := range cluster.Supporting {
					supporting = append(supporting, member.Query)
				}
				fmt.Fprintf(&sb, " (also: %s)", strings.Join(supporting, "; "))
			}
			sb.WriteString("\n")
		}
	}

	if len(input.Brand.SeedKeywords) > 0 {
		fmt.Fprintf(&sb, "\nSEED KEYWORDS (secondary signal only): %s\n", strings.Join(input.Brand.SeedKeywords, ", "))
	}

	if len(covered) > 0 {
		sb.WriteString("\nALREADY COVERED (do not duplicate any of these):\n")
		shown := covered
		if len(shown) > MaxCoveredShown {
			shown = shown[:MaxCoveredShown]
		}
		for _, topic := range shown {
			fmt.Fprintf(&sb, "- %s\n", topic)
		}
		if extra := len(covered) - len(shown); extra > 0 {
			fmt.Fprintf(&sb, "...and %d more existing pieces. Avoid anything resembling the list above.\n", extra)
		}
	}

	fmt.Fprintf(&sb, `
Produce exactly %d article topics distributed across these categories:
- Core Answers: %d (direct answers to the audience's fundamental questions)
- Supporting Articles: %d (depth pieces that reinforce the core answers)
- Conversion Pages: %d (commercial-intent pages tied to product features)
- Authority Plays: %d (opinionated or data-driven pieces that build trust)

ANTI-CANNIBALIZATION: every article must answer a DISTINCT parent question --
the single fundamental user question it exists to answer. Two articles must
never share a parent question.

TITLE RULES:
- Banned: "Ultimate Guide to X", "Everything You Need to Know About X",
  "X 101", and any other interchangeable generic pattern.
- Preferred: numbered lists ("7 Ways to..."), year-qualified how-tos
  ("How to X in %d"), contrarian framings ("Why X Doesn't Work"),
  and specific-outcome promises.

Respond with a JSON array. Each element:
{"title": "...", "main_keyword": "...", "supporting_keywords": ["..."],
"article_type": "informational|commercial|howto", "cluster": "...",
"intent_role": "...", "article_category": "Core Answers|Supporting Articles|Conversion Pages|Authority Plays",
"parent_question": "...", "reason": "why this topic, one sentence",
"impact": "expected business impact, one sentence"}`,
		input.TargetCount,
		coreAnswersTarget(input.TargetCount), supportingTarget(input.TargetCount),
		conversionTarget(input.TargetCount), authorityTarget(input.TargetCount),
		input.Now.Year())

	return sb.String()
}

func buildTopUpPrompt(input Input, shortages map[string]int, acceptedTitles []string) string {
	var sb strings.Builder

	sb.WriteString("A content plan is nearly complete but several categories are short. Generate ONLY the missing topics.\n\n")

	fmt.Fprintf(&sb, "BRAND: %s - %s\n", input.Brand.Name, input.Brand.Description)

	sb.WriteString("\nMISSING:\n")
	for _, category := range categoryOrder {
		if n := shortages[category]; n > 0 {
			fmt.Fprintf(&sb, "- %s: %d more topic(s)\n", category, n)
		}
	}

	sb.WriteString("\nALREADY IN THE PLAN (produce nothing resembling these):\n")
	for _, title := range acceptedTitles {
		fmt.Fprintf(&sb, "- %s\n", title)
	}

	sb.WriteString(`
Same rules as before: distinct parent questions, no generic title patterns.
Respond with a JSON array in the same shape as the original request.`)

	return sb.String()
}

func stageStrategy(input Input) string {
	if input.HasSearchData && len(input.ExistingContent) > 5 {
		return `CONTENT STAGE: established site with real search demand data.
Strategy: defend and expand. Prioritize quick wins from queries already
ranking on page two, then fill the gaps competitors leave open.`
	}
	if input.HasSearchData {
		return `CONTENT STAGE: young site with early search signals.
Strategy: double down on the few queries showing traction while building
out the core answer set the audience expects.`
	}
	return `CONTENT STAGE: new site with no search history.
Strategy: build foundational coverage. Answer the audience's fundamental
questions first; demand data will come later.`
}

func coverageMarker(level core.CoverageLevel) string {
	switch level {
	case core.CoverageHeavy:
		return "🔴"
	case core.CoverageLight:
		return "🟡"
	default:
		return "🟢"
	}
}
