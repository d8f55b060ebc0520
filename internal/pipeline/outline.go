package pipeline

import (
	"context"
	"fmt"

	"blogforge/internal/core"
	"blogforge/internal/llm"

	"google.golang.org/genai"
)

func (p *Pipeline) runOutline(ctx context.Context, article *core.Article, brand core.BrandProfile) error {
	prompt := buildOutlinePrompt(article, brand)

	response, err := p.client.GenerateText(ctx, prompt, llm.Options{
		Model:          p.config.Model,
		ResponseSchema: outlineSchema(),
	})
	if err != nil {
		return fmt.Errorf("outline generation failed: %w", err)
	}

	var outline core.Outline
	if err := llm.Unmarshal(response, &outline); err != nil {
		return fmt.Errorf("outline response is malformed: %w", err)
	}
	if err := validateOutline(&outline); err != nil {
		return err
	}

	// A user-supplied title is authoritative regardless of what the model
	// produced.
	if article.Title != "" {
		outline.Title = article.Title
	} else {
		article.Title = outline.Title
	}

	article.Outline = &outline
	return nil
}

func validateOutline(outline *core.Outline) error {
	if outline.Title == "" {
		return fmt.Errorf("outline is missing a title")
	}
	if len(outline.Sections) == 0 {
		return fmt.Errorf("outline has no sections")
	}
	seen := make(map[int]bool, len(outline.Sections))
	nextID := 1
	for i := range outline.Sections {
		section := &outline.Sections[i]
		if section.Heading == "" {
			return fmt.Errorf("outline section %d is missing a heading", i)
		}
		if section.Level < 2 || section.Level > 4 {
			section.Level = 2
		}
		if section.ID == 0 || seen[section.ID] {
			for seen[nextID] {
				nextID++
			}
			section.ID = nextID
		}
		seen[section.ID] = true
	}
	return nil
}

func outlineSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {Type: genai.TypeString},
			"intro": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"note":     {Type: genai.TypeString},
					"keywords": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				},
				Required: []string{"note"},
			},
			"sections": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":       {Type: genai.TypeInteger},
						"heading":  {Type: genai.TypeString},
						"level":    {Type: genai.TypeInteger},
						"note":     {Type: genai.TypeString},
						"keywords": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					},
					Required: []string{"heading", "level", "note"},
				},
			},
		},
		Required: []string{"title", "intro", "sections"},
	}
}
