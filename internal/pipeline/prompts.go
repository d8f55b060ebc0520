package pipeline

import (
	"fmt"
	"strings"

	"blogforge/internal/core"
)

// aiPhraseBlacklist is the fixed list of phrases the polish pass deletes.
var aiPhraseBlacklist = []string{
	"delve into",
	"in today's fast-paced world",
	"in today's digital age",
	"unlock the potential",
	"game-changer",
	"navigating the landscape",
	"it's important to note",
	"in conclusion",
	"a tapestry of",
	"revolutionize",
	"elevate your",
	"embark on a journey",
	"harness the power",
}

func buildOutlinePrompt(article *core.Article, brand core.BrandProfile) string {
	var prompt strings.Builder

	prompt.WriteString("You are a content strategist planning a blog article.\n\n")
	prompt.WriteString(fmt.Sprintf("TARGET KEYWORD: %s\n", article.Keyword))
	if article.Title != "" {
		prompt.WriteString(fmt.Sprintf("TITLE (use this exact title, do not change it): %s\n", article.Title))
	}
	writeBrandContext(&prompt, brand)

	if article.Research != nil {
		if len(article.Research.Facts) > 0 {
			prompt.WriteString("\nRESEARCHED FACTS:\n")
			for _, fact := range article.Research.Facts {
				prompt.WriteString("- " + fact + "\n")
			}
		}
		writeGaps(&prompt, article.Research.Gaps)
	}

	prompt.WriteString(`
Create a structured outline for this article.

Rules:
- Each section's "note" must describe the CONTENT SUBSTANCE to cover, tied to the identified gaps above. Never put style or tone instructions in a note; style is handled globally.
- Order sections so the article answers the reader's main question early and deepens from there.
- Use heading level 2 for main sections and 3 for subsections.
- The intro note should state what pain point to open with.

Respond with a JSON object: {"title": string, "intro": {"note": string, "keywords": [string]}, "sections": [{"id": number, "heading": string, "level": number, "note": string, "keywords": [string]}]}`)

	return prompt.String()
}

func buildIntroPrompt(article *core.Article, brand core.BrandProfile) string {
	var prompt strings.Builder

	prompt.WriteString("You are writing the introduction of a blog article.\n\n")
	prompt.WriteString("DRAFT SO FAR:\n")
	prompt.WriteString(article.RawContent)
	prompt.WriteString("\n\n")

	intro := article.Outline.Intro
	if intro.Note != "" {
		prompt.WriteString("INTRO FOCUS: " + intro.Note + "\n")
	}
	if len(intro.Keywords) > 0 {
		prompt.WriteString("KEYWORDS TO WORK IN: " + strings.Join(intro.Keywords, ", ") + "\n")
	}
	writeBrandContext(&prompt, brand)

	prompt.WriteString(`
Hook structure, in this order:
1. Acknowledge the reader's frustration with this problem.
2. Mirror their actual experience in concrete terms.
3. Name the excuse they have been telling themselves.
4. Promise a simple fix that this article delivers.

`)
	prompt.WriteString(writingRules(brand))
	prompt.WriteString("\nWrite ONLY the introduction paragraphs in markdown. No heading, no title.")

	return prompt.String()
}

func buildSectionPrompt(article *core.Article, brand core.BrandProfile, section core.OutlineSection) string {
	var prompt strings.Builder

	prompt.WriteString("You are writing the next section of a blog article.\n\n")
	prompt.WriteString("FULL DRAFT SO FAR (for context and continuity, do not repeat it):\n")
	prompt.WriteString(article.RawContent)
	prompt.WriteString("\n\n")
	prompt.WriteString(fmt.Sprintf("NEXT SECTION HEADING: %s\n", section.Heading))
	if section.Note != "" {
		prompt.WriteString("CONTENT TO COVER: " + section.Note + "\n")
	}
	if len(section.Keywords) > 0 {
		prompt.WriteString("KEYWORDS TO WORK IN: " + strings.Join(section.Keywords, ", ") + "\n")
	}

	if article.Research != nil && len(article.Research.Facts) > 0 {
		prompt.WriteString("\nFACTS YOU MAY CITE:\n")
		for _, fact := range article.Research.Facts {
			prompt.WriteString("- " + fact + "\n")
		}
	}
	writeBrandContext(&prompt, brand)

	prompt.WriteString("\n")
	prompt.WriteString(writingRules(brand))
	prompt.WriteString("\nWrite ONLY this section's body in markdown. Do not include the heading itself. Flow naturally from the draft above.")

	return prompt.String()
}

func buildPolishPrompt(article *core.Article, brand core.BrandProfile) string {
	var prompt strings.Builder

	prompt.WriteString("You are a line editor. Your job is mechanical and tonal cleanup only; do not add or remove ideas.\n\n")
	prompt.WriteString("Edits to make:\n")
	prompt.WriteString("- Break up any paragraph longer than 3 sentences.\n")
	prompt.WriteString("- Remove filler transition phrases.\n")
	prompt.WriteString("- Delete these phrases wherever they appear, rewriting the sentence around them: ")
	prompt.WriteString(strings.Join(aiPhraseBlacklist, "; "))
	prompt.WriteString("\n")
	prompt.WriteString(brandVoiceRule(brand))

	if brand.StyleProfile != "" {
		prompt.WriteString("\nSTYLE PROFILE TO MATCH:\n" + brand.StyleProfile + "\n")
	}

	prompt.WriteString("\nDRAFT:\n")
	prompt.WriteString(article.RawContent)
	prompt.WriteString("\n\nRespond with the complete edited article in markdown. Output the full article, not a diff or summary.")

	return prompt.String()
}

func buildMetaPrompt(article *core.Article, title string) string {
	return fmt.Sprintf(`Write an SEO meta description for a blog article.

TITLE: %s
TARGET KEYWORD: %s

Rules:
- Maximum 160 characters.
- Plain sentences, no special characters, no quotes.
- Include the target keyword naturally.

Respond with the description text only.`, title, article.Keyword)
}

func buildImagePrompt(title string, brand core.BrandProfile) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Write a prompt for a generative image model to create a featured image for a blog article titled %q.\n", title))
	if brand.Description != "" {
		prompt.WriteString("The publishing brand: " + brand.Description + "\n")
	}
	prompt.WriteString("The prompt should describe a clean, editorial illustration without any text or words in the image. Respond with the image prompt only.")
	return prompt.String()
}

// writingRules is the global style contract applied to every writing step.
func writingRules(brand core.BrandProfile) string {
	perspective := brand.Perspective
	if perspective == "" {
		perspective = "second person"
	}

	var rules strings.Builder
	rules.WriteString("Writing rules:\n")
	rules.WriteString("- Optimize for scannability. Short paragraphs, at most 3 sentences each.\n")
	rules.WriteString("- Bold the key takeaway of each major point.\n")
	rules.WriteString("- Ruthlessly delete any sentence that does not earn its place.\n")
	rules.WriteString("- Never use generic AI-jargon words (leverage, seamless, robust, cutting-edge, holistic).\n")
	rules.WriteString(fmt.Sprintf("- Active voice, written in %s.\n", perspective))
	rules.WriteString(brandVoiceRule(brand))
	return rules.String()
}

// brandVoiceRule keeps product mentions in an honest first-person-plural
// maker voice. An "I tested our own product" framing is a correctness bug
// in the output.
func brandVoiceRule(brand core.BrandProfile) string {
	if brand.BrandDetails == "" {
		return ""
	}
	return fmt.Sprintf(`- When mentioning %s's own product, speak as its makers in first person plural ("we built", "we designed"). Never pretend to be an outside reviewer who "tested" it.
  Product facts you may use: %s
`, brand.Name, brand.BrandDetails)
}

func writeBrandContext(prompt *strings.Builder, brand core.BrandProfile) {
	if brand.Name == "" && brand.Description == "" {
		return
	}
	prompt.WriteString("\nBRAND CONTEXT:\n")
	if brand.Name != "" {
		prompt.WriteString("Name: " + brand.Name + "\n")
	}
	if brand.Description != "" {
		prompt.WriteString("Description: " + brand.Description + "\n")
	}
	if brand.TargetAudience != "" {
		prompt.WriteString("Audience: " + brand.TargetAudience + "\n")
	}
	if brand.StyleProfile != "" {
		prompt.WriteString("Voice and style: " + brand.StyleProfile + "\n")
	}
}

func writeGaps(prompt *strings.Builder, gaps core.ContentGaps) {
	if len(gaps.MissingTopics) == 0 && len(gaps.OutdatedInfo) == 0 && len(gaps.UserIntentGaps) == 0 {
		return
	}
	prompt.WriteString("\nCONTENT GAPS IN COMPETING ARTICLES:\n")
	for _, topic := range gaps.MissingTopics {
		prompt.WriteString("- Missing topic: " + topic + "\n")
	}
	for _, info := range gaps.OutdatedInfo {
		prompt.WriteString("- Outdated info: " + info + "\n")
	}
	for _, gap := range gaps.UserIntentGaps {
		prompt.WriteString("- Unmet reader question: " + gap + "\n")
	}
}
