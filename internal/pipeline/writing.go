package pipeline

import (
	"context"
	"fmt"
	"strings"

	"blogforge/internal/core"
	"blogforge/internal/llm"
	"blogforge/internal/logger"
)

// runWriting executes the snowball drafting loop: the intro first, then each
// outline section in order, feeding the whole accumulated draft back in as
// context for every step. The draft and step counter persist after every
// block so progress survives a crash and is visible to observers.
func (p *Pipeline) runWriting(ctx context.Context, article *core.Article, brand core.BrandProfile) error {
	sections := article.Outline.Sections

	if article.CurrentStepIndex == 0 {
		article.RawContent = "# " + article.Outline.Title + "\n"

		intro, err := p.client.GenerateText(ctx, buildIntroPrompt(article, brand), llm.Options{Model: p.config.Model})
		if err != nil {
			return fmt.Errorf("intro generation failed: %w", err)
		}

		article.RawContent += "\n" + strings.TrimSpace(llm.StripCodeFences(intro)) + "\n"
		article.CurrentStepIndex = 1
		if err := p.store.UpdateArticle(ctx, *article); err != nil {
			return fmt.Errorf("failed to persist intro: %w", err)
		}
		logger.Debug("Wrote intro", "article_id", article.ID)

		if len(sections) > 0 {
			if err := p.sleep(ctx); err != nil {
				return err
			}
		}
	}

	// Step index 1 means the intro is done and section 0 is next.
	for i := article.CurrentStepIndex - 1; i < len(sections); i++ {
		section := sections[i]

		text, err := p.client.GenerateText(ctx, buildSectionPrompt(article, brand, section), llm.Options{Model: p.config.Model})
		if err != nil {
			return fmt.Errorf("section %q generation failed: %w", section.Heading, err)
		}

		heading := strings.Repeat("#", section.Level) + " " + section.Heading
		article.RawContent += "\n" + heading + "\n\n" + strings.TrimSpace(llm.StripCodeFences(text)) + "\n"
		article.CurrentStepIndex = i + 2
		if err := p.store.UpdateArticle(ctx, *article); err != nil {
			return fmt.Errorf("failed to persist section %q: %w", section.Heading, err)
		}
		logger.Debug("Wrote section", "article_id", article.ID, "heading", section.Heading, "step", article.CurrentStepIndex)

		if i < len(sections)-1 {
			if err := p.sleep(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Pipeline) runPolish(ctx context.Context, article *core.Article, brand core.BrandProfile) error {
	polished, err := p.client.GenerateText(ctx, buildPolishPrompt(article, brand), llm.Options{Model: p.config.Model})
	if err != nil {
		return fmt.Errorf("polish pass failed: %w", err)
	}

	polished = strings.TrimSpace(llm.StripCodeFences(polished))
	if polished == "" {
		return fmt.Errorf("polish pass returned an empty draft")
	}

	// The polished draft replaces the accumulated one in full.
	article.RawContent = polished
	return nil
}
