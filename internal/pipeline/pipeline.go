// Package pipeline runs the five-phase blog generation task for one article:
// research, outline, section-by-section writing, polish, and best-effort
// metadata and image generation. Every phase persists its output before the
// next one starts, so a crashed run resumes at the last completed phase.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"blogforge/internal/core"
	"blogforge/internal/llm"
	"blogforge/internal/logger"
)

// Phase names recorded in failed_at_phase.
const (
	PhaseResearch = "research"
	PhaseOutline  = "outline"
	PhaseWriting  = "writing"
	PhasePolish   = "polish"
)

// Config holds pipeline tuning knobs.
type Config struct {
	Model        string        // Model for outline, writing, and polish
	FlashModel   string        // Cheaper model for meta description and image prompts
	SectionDelay time.Duration // Pause between section writes, a rate-limit throttle
	ImagePrefix  string        // Object-store key prefix for featured images
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Model:        llm.DefaultModel,
		FlashModel:   llm.DefaultFlashModel,
		SectionDelay: 4 * time.Second,
		ImagePrefix:  "articles",
	}
}

// PhaseError wraps a phase failure with the phase it occurred in.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Pipeline orchestrates the generation phases for articles. Image and
// storage clients are optional; when either is nil the featured-image
// sub-phase is skipped.
type Pipeline struct {
	store      ArticleStore
	client     LLMClient
	researcher Researcher
	images     ImageClient
	storage    ObjectStore
	config     Config
}

// New creates a pipeline with all collaborators.
func New(store ArticleStore, client LLMClient, researcher Researcher, images ImageClient, storage ObjectStore, config Config) *Pipeline {
	if config.Model == "" {
		config.Model = llm.DefaultModel
	}
	if config.FlashModel == "" {
		config.FlashModel = llm.DefaultFlashModel
	}
	return &Pipeline{
		store:      store,
		client:     client,
		researcher: researcher,
		images:     images,
		storage:    storage,
		config:     config,
	}
}

type phase struct {
	name   string
	status core.ArticleStatus
	// done reports whether the persisted article already carries this
	// phase's output, which lets a restarted run skip completed phases.
	done func(*core.Article) bool
	run  func(context.Context, *core.Article, core.BrandProfile) error
}

// Run executes the pipeline for the article, resuming from persisted state.
// On any phase failure the article is marked failed with phase attribution
// and the error is returned to the caller for its own retry policy.
func (p *Pipeline) Run(ctx context.Context, articleID string, brand core.BrandProfile) error {
	article, err := p.store.GetArticle(ctx, articleID)
	if err != nil {
		return fmt.Errorf("failed to load article %s: %w", articleID, err)
	}
	if article == nil {
		return fmt.Errorf("article %s not found", articleID)
	}

	phases := []phase{
		{
			name:   PhaseResearch,
			status: core.StatusResearching,
			done:   func(a *core.Article) bool { return a.Research != nil },
			run:    p.runResearch,
		},
		{
			name:   PhaseOutline,
			status: core.StatusOutlining,
			done:   func(a *core.Article) bool { return a.Outline != nil },
			run:    p.runOutline,
		},
		{
			name:   PhaseWriting,
			status: core.StatusWriting,
			done: func(a *core.Article) bool {
				return a.Outline != nil && a.CurrentStepIndex >= len(a.Outline.Sections)+1
			},
			run: p.runWriting,
		},
		{
			name:   PhasePolish,
			status: core.StatusPolishing,
			done:   func(a *core.Article) bool { return false },
			run:    p.runPolish,
		},
	}

	for _, ph := range phases {
		if ph.done(article) {
			logger.Debug("Skipping completed phase", "article_id", article.ID, "phase", ph.name)
			continue
		}

		article.Status = ph.status
		article.FailedAtPhase = ""
		article.ErrorMessage = ""
		if err := p.store.UpdateArticle(ctx, *article); err != nil {
			return fmt.Errorf("failed to persist status for %s: %w", article.ID, err)
		}

		logger.Info("Running pipeline phase", "article_id", article.ID, "phase", ph.name)
		if err := ph.run(ctx, article, brand); err != nil {
			return p.fail(ctx, article, ph.name, err)
		}

		if err := p.store.UpdateArticle(ctx, *article); err != nil {
			return fmt.Errorf("failed to persist %s output for %s: %w", ph.name, article.ID, err)
		}
	}

	return p.finalize(ctx, article, brand)
}

// fail marks the article failed with phase attribution and returns the
// wrapped cause.
func (p *Pipeline) fail(ctx context.Context, article *core.Article, phaseName string, cause error) error {
	article.Status = core.StatusFailed
	article.FailedAtPhase = phaseName
	article.ErrorMessage = cause.Error()
	if err := p.store.UpdateArticle(ctx, *article); err != nil {
		logger.Error("Failed to persist failure state", err, "article_id", article.ID)
	}
	logger.Error("Pipeline phase failed", cause, "article_id", article.ID, "phase", phaseName)
	return &PhaseError{Phase: phaseName, Err: cause}
}

func (p *Pipeline) runResearch(ctx context.Context, article *core.Article, brand core.BrandProfile) error {
	brief, err := p.researcher.Research(ctx, article.Keyword)
	if err != nil {
		return err
	}
	article.Research = brief
	return nil
}

// sleep pauses between section writes while honoring cancellation.
func (p *Pipeline) sleep(ctx context.Context) error {
	if p.config.SectionDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.config.SectionDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
