package services

import (
	"context"
	"fmt"
	"time"

	"blogforge/internal/core"
	"blogforge/internal/logger"

	"github.com/google/uuid"
)

// ArticleStore persists articles.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article core.Article) error
	GetArticle(ctx context.Context, id string) (*core.Article, error)
}

// PipelineRunner runs the generation pipeline for one article.
type PipelineRunner interface {
	Run(ctx context.Context, articleID string, brand core.BrandProfile) error
}

// PlanItemUpdater moves a plan item forward once its article finishes.
type PlanItemUpdater interface {
	SetPlanItemStatus(ctx context.Context, planID, itemID string, status core.PlanItemStatus) error
}

// GenerateRequest describes one article to create and generate.
type GenerateRequest struct {
	Keyword string
	Title   string
	VoiceID string
	Brand   core.BrandProfile
}

// ArticleService creates article records and drives their pipeline runs.
type ArticleService struct {
	store    ArticleStore
	pipeline PipelineRunner
	plans    PlanItemUpdater
}

// NewArticleService wires article creation to the pipeline. plans may be
// nil when no plan bookkeeping is wanted.
func NewArticleService(store ArticleStore, pipeline PipelineRunner, plans PlanItemUpdater) *ArticleService {
	return &ArticleService{store: store, pipeline: pipeline, plans: plans}
}

// Create inserts a new pending article and returns its id.
func (s *ArticleService) Create(ctx context.Context, req GenerateRequest) (string, error) {
	if req.Keyword == "" {
		return "", fmt.Errorf("keyword is required")
	}

	article := core.Article{
		ID:        uuid.NewString(),
		Keyword:   req.Keyword,
		Title:     req.Title,
		VoiceID:   req.VoiceID,
		BrandID:   req.Brand.ID,
		Status:    core.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateArticle(ctx, article); err != nil {
		return "", fmt.Errorf("failed to create article: %w", err)
	}
	return article.ID, nil
}

// Generate creates an article and runs its pipeline to completion.
func (s *ArticleService) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	id, err := s.Create(ctx, req)
	if err != nil {
		return "", err
	}
	if err := s.pipeline.Run(ctx, id, req.Brand); err != nil {
		return id, err
	}
	return id, nil
}

// RunPipeline runs the pipeline for an existing article. Callers that want
// fire-and-forget semantics run this on their own goroutine.
func (s *ArticleService) RunPipeline(ctx context.Context, articleID string, brand core.BrandProfile) error {
	return s.pipeline.Run(ctx, articleID, brand)
}

// GenerateFromPlanItem runs generation for a claimed plan item and records
// the outcome on the plan. Used as the watchman dispatch target.
func (s *ArticleService) GenerateFromPlanItem(ctx context.Context, plan core.ContentPlan, item core.ContentPlanItem, brand core.BrandProfile) {
	req := GenerateRequest{
		Keyword: item.MainKeyword,
		Title:   item.Title,
		Brand:   brand,
	}

	id, err := s.Generate(ctx, req)
	if err != nil {
		logger.Error("Scheduled generation failed", err, "plan_id", plan.ID, "item_id", item.ID)
		return
	}

	if s.plans != nil {
		if err := s.plans.SetPlanItemStatus(ctx, plan.ID, item.ID, core.PlanItemPublished); err != nil {
			logger.Error("Failed to mark plan item published", err, "plan_id", plan.ID, "item_id", item.ID)
		}
	}
	logger.Info("Scheduled article generated", "plan_id", plan.ID, "item_id", item.ID, "article_id", id)
}

// GetArticle returns an article by id, or nil when it does not exist.
func (s *ArticleService) GetArticle(ctx context.Context, id string) (*core.Article, error) {
	return s.store.GetArticle(ctx, id)
}
