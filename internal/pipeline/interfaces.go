package pipeline

import (
	"context"

	"blogforge/internal/core"
	"blogforge/internal/llm"
)

// ArticleStore persists article state between phases. Both the SQLite and
// the Postgres stores satisfy it.
type ArticleStore interface {
	GetArticle(ctx context.Context, id string) (*core.Article, error)
	UpdateArticle(ctx context.Context, article core.Article) error
}

// LLMClient generates text for a prompt.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, options llm.Options) (string, error)
}

// Researcher produces the research brief for a keyword.
type Researcher interface {
	Research(ctx context.Context, keyword string) (*core.ResearchBrief, error)
}

// ImageClient generates a featured image and downloads the result.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]string, error)
	Download(ctx context.Context, imageURL string) ([]byte, string, error)
}

// ObjectStore uploads image bytes and yields public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}
