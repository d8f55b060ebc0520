package services

import (
	"context"
	"errors"
	"testing"

	"blogforge/internal/core"
	"blogforge/internal/ideas"
	"blogforge/internal/llm"
	"blogforge/internal/planner"
)

type stubLLM struct {
	responses []string
}

func (s *stubLLM) GenerateText(ctx context.Context, prompt string, options llm.Options) (string, error) {
	if len(s.responses) == 0 {
		return "[]", nil
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

type memPlanStore struct {
	plans map[string]core.ContentPlan
}

func newMemPlanStore() *memPlanStore {
	return &memPlanStore{plans: make(map[string]core.ContentPlan)}
}

func (m *memPlanStore) SaveContentPlan(ctx context.Context, plan core.ContentPlan) error {
	m.plans[plan.ID] = plan
	return nil
}

func (m *memPlanStore) GetContentPlan(ctx context.Context, id string) (*core.ContentPlan, error) {
	plan, ok := m.plans[id]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

const planCandidatesJSON = `[
	{"title": "How to Restore Old Photos", "main_keyword": "restore old photos", "article_type": "howto", "article_category": "Core Answers", "parent_question": "how do i restore old photos"},
	{"title": "Best Photo Scanners", "main_keyword": "photo scanner", "article_type": "commercial", "article_category": "Conversion Pages", "parent_question": "which scanner should i buy"},
	{"title": "Why Photos Fade", "main_keyword": "why photos fade", "article_type": "informational", "article_category": "Supporting Articles", "parent_question": "why do photos fade"}
]`

func TestGeneratePlanPersists(t *testing.T) {
	client := &stubLLM{responses: []string{
		"[]",               // idea universe: none
		planCandidatesJSON, // primary plan call
	}}
	store := newMemPlanStore()
	service := NewPlanService(
		planner.NewSynthesizer(client, nil, "test-model"),
		ideas.NewEngine(client, "test-model"),
		nil, nil, store, 0,
	)

	brand := core.BrandProfile{ID: "b1", Name: "PhotoFix"}
	plan, err := service.GeneratePlan(context.Background(), PlanRequest{Brand: brand, TargetCount: 3})
	if err != nil {
		t.Fatalf("Expected plan generation to succeed, got %v", err)
	}

	if len(plan.Items) != 3 {
		t.Errorf("Expected 3 items, got %d", len(plan.Items))
	}
	if plan.BrandID != "b1" {
		t.Errorf("BrandID = %q, want b1", plan.BrandID)
	}
	if plan.AutomationStatus != "paused" {
		t.Errorf("AutomationStatus = %q, want paused", plan.AutomationStatus)
	}

	saved, err := store.GetContentPlan(context.Background(), plan.ID)
	if err != nil || saved == nil {
		t.Fatal("Expected plan to be persisted")
	}
}

func TestGeneratePlanFailureNotPersisted(t *testing.T) {
	client := &stubLLM{responses: []string{
		"[]",            // idea universe
		"not json here", // primary plan call fails to parse
	}}
	store := newMemPlanStore()
	service := NewPlanService(
		planner.NewSynthesizer(client, nil, "test-model"),
		ideas.NewEngine(client, "test-model"),
		nil, nil, store, 0,
	)

	_, err := service.GeneratePlan(context.Background(), PlanRequest{Brand: core.BrandProfile{Name: "PhotoFix"}, TargetCount: 3})
	if err == nil {
		t.Fatal("Expected plan generation to fail")
	}
	if len(store.plans) != 0 {
		t.Error("Expected no plan persisted after failure")
	}
}

type memArticleStore struct {
	articles map[string]core.Article
}

func newMemArticleStore() *memArticleStore {
	return &memArticleStore{articles: make(map[string]core.Article)}
}

func (m *memArticleStore) CreateArticle(ctx context.Context, article core.Article) error {
	m.articles[article.ID] = article
	return nil
}

func (m *memArticleStore) GetArticle(ctx context.Context, id string) (*core.Article, error) {
	article, ok := m.articles[id]
	if !ok {
		return nil, nil
	}
	return &article, nil
}

type stubRunner struct {
	err error
	ran []string
}

func (s *stubRunner) Run(ctx context.Context, articleID string, brand core.BrandProfile) error {
	s.ran = append(s.ran, articleID)
	return s.err
}

type stubPlanUpdater struct {
	updates []core.PlanItemStatus
}

func (s *stubPlanUpdater) SetPlanItemStatus(ctx context.Context, planID, itemID string, status core.PlanItemStatus) error {
	s.updates = append(s.updates, status)
	return nil
}

func TestCreateRequiresKeyword(t *testing.T) {
	service := NewArticleService(newMemArticleStore(), &stubRunner{}, nil)
	if _, err := service.Create(context.Background(), GenerateRequest{}); err == nil {
		t.Error("Expected error for missing keyword")
	}
}

func TestGenerateRunsPipeline(t *testing.T) {
	store := newMemArticleStore()
	runner := &stubRunner{}
	service := NewArticleService(store, runner, nil)

	id, err := service.Generate(context.Background(), GenerateRequest{Keyword: "restore old photos"})
	if err != nil {
		t.Fatalf("Expected generation to succeed, got %v", err)
	}
	if len(runner.ran) != 1 || runner.ran[0] != id {
		t.Errorf("Expected pipeline run for %q, got %v", id, runner.ran)
	}
	if _, ok := store.articles[id]; !ok {
		t.Error("Expected article record created")
	}
}

func TestGenerateFromPlanItemMarksPublished(t *testing.T) {
	updater := &stubPlanUpdater{}
	service := NewArticleService(newMemArticleStore(), &stubRunner{}, updater)

	plan := core.ContentPlan{ID: "p1"}
	item := core.ContentPlanItem{ID: "i1", Title: "T", MainKeyword: "k"}
	service.GenerateFromPlanItem(context.Background(), plan, item, core.BrandProfile{})

	if len(updater.updates) != 1 || updater.updates[0] != core.PlanItemPublished {
		t.Errorf("Expected item marked published, got %v", updater.updates)
	}
}

func TestGenerateFromPlanItemFailureLeavesStatus(t *testing.T) {
	updater := &stubPlanUpdater{}
	service := NewArticleService(newMemArticleStore(), &stubRunner{err: errors.New("phase failed")}, updater)

	service.GenerateFromPlanItem(context.Background(), core.ContentPlan{ID: "p1"}, core.ContentPlanItem{ID: "i1", MainKeyword: "k"}, core.BrandProfile{})

	if len(updater.updates) != 0 {
		t.Errorf("Expected no status update on failure, got %v", updater.updates)
	}
}
