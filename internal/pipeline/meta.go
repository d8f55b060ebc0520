package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"blogforge/internal/core"
	"blogforge/internal/llm"
	"blogforge/internal/logger"
	"blogforge/internal/render"
)

const maxMetaDescriptionLength = 160

// finalize derives the slug, meta description, featured image, and rendered
// HTML, then persists everything with the completed status in one update.
// Every sub-step here is best-effort: a failure leaves its field empty and
// never blocks completion.
func (p *Pipeline) finalize(ctx context.Context, article *core.Article, brand core.BrandProfile) error {
	title := article.Title
	if title == "" && article.Outline != nil {
		title = article.Outline.Title
	}

	article.Slug = render.Slugify(title)
	article.MetaDescription = p.metaDescription(ctx, article, title)
	article.FeaturedImageURL = p.featuredImage(ctx, article, brand, title)
	article.FinalHTML = render.ToHTML(article.RawContent)
	article.Status = core.StatusCompleted

	if err := p.store.UpdateArticle(ctx, *article); err != nil {
		return fmt.Errorf("failed to persist completed article %s: %w", article.ID, err)
	}
	logger.Info("Article completed", "article_id", article.ID, "slug", article.Slug)
	return nil
}

// metaDescription asks the flash model for an SEO description and falls back
// to a templated one when that fails.
func (p *Pipeline) metaDescription(ctx context.Context, article *core.Article, title string) string {
	response, err := p.client.GenerateText(ctx, buildMetaPrompt(article, title), llm.Options{
		Model:     p.config.FlashModel,
		MaxTokens: 256,
	})
	if err != nil {
		logger.Warn("Meta description generation failed, using fallback", "article_id", article.ID, "error", err.Error())
		return fallbackMetaDescription(article.Keyword)
	}

	description := sanitizeMetaDescription(response)
	if description == "" {
		return fallbackMetaDescription(article.Keyword)
	}
	return description
}

func sanitizeMetaDescription(s string) string {
	s = llm.StripCodeFences(s)
	s = strings.NewReplacer("\n", " ", "\r", " ", "\"", "", "*", "", "#", "").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxMetaDescriptionLength {
		truncated := truncateUTF8(s, maxMetaDescriptionLength)
		if cut := strings.LastIndex(truncated, " "); cut > 0 {
			truncated = truncated[:cut]
		}
		s = truncated
	}
	return strings.TrimSpace(s)
}

func fallbackMetaDescription(keyword string) string {
	description := fmt.Sprintf("A practical guide to %s with clear steps, common pitfalls, and expert tips.", keyword)
	return truncateUTF8(description, maxMetaDescriptionLength)
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// featuredImage generates an image prompt, requests the image, and uploads
// it to object storage. Returns the public URL or empty on any failure.
func (p *Pipeline) featuredImage(ctx context.Context, article *core.Article, brand core.BrandProfile, title string) string {
	if p.images == nil || p.storage == nil {
		return ""
	}

	imagePrompt, err := p.client.GenerateText(ctx, buildImagePrompt(title, brand), llm.Options{
		Model:     p.config.FlashModel,
		MaxTokens: 256,
	})
	if err != nil {
		logger.Warn("Image prompt generation failed, skipping featured image", "article_id", article.ID, "error", err.Error())
		return ""
	}

	urls, err := p.images.GenerateImage(ctx, strings.TrimSpace(imagePrompt))
	if err != nil || len(urls) == 0 {
		logger.Warn("Image generation failed, skipping featured image", "article_id", article.ID)
		return ""
	}

	data, contentType, err := p.images.Download(ctx, urls[0])
	if err != nil {
		logger.Warn("Image download failed, skipping featured image", "article_id", article.ID, "error", err.Error())
		return ""
	}

	key := p.config.ImagePrefix + "/" + article.Slug + imageExtension(contentType)
	if err := p.storage.Put(ctx, key, data, contentType); err != nil {
		logger.Warn("Image upload failed, skipping featured image", "article_id", article.ID, "error", err.Error())
		return ""
	}

	return p.storage.PublicURL(key)
}

func imageExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
