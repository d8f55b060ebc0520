package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"blogforge/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestArticleRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	article := core.Article{
		ID:      "art-1",
		Keyword: "how to restore old photos",
		Title:   "How to Restore Old Photos",
		BrandID: "brand-1",
		Status:  core.StatusPending,
		Research: &core.ResearchBrief{
			Facts: []string{"AI colorization works on scanned photos"},
			Sources: []core.Source{
				{URL: "https://example.com/a", Title: "Source A", Summary: "About restoration"},
			},
		},
		Outline: &core.Outline{
			Title: "How to Restore Old Photos",
			Sections: []core.OutlineSection{
				{ID: 1, Heading: "Why photos fade", Level: 2},
			},
		},
	}

	if err := store.CreateArticle(ctx, article); err != nil {
		t.Fatalf("Failed to create article: %v", err)
	}

	got, err := store.GetArticle(ctx, "art-1")
	if err != nil {
		t.Fatalf("Failed to get article: %v", err)
	}
	if got == nil {
		t.Fatal("Expected article, got nil")
	}
	if got.Keyword != article.Keyword {
		t.Errorf("Keyword = %q, want %q", got.Keyword, article.Keyword)
	}
	if got.Status != core.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, core.StatusPending)
	}
	if got.Research == nil || len(got.Research.Facts) != 1 {
		t.Error("Research brief did not survive the round trip")
	}
	if got.Outline == nil || len(got.Outline.Sections) != 1 {
		t.Error("Outline did not survive the round trip")
	}
}

func TestGetArticleMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetArticle(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Expected no error for missing article, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing article, got %+v", got)
	}
}

func TestUpdateArticle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	article := core.Article{ID: "art-2", Keyword: "test", Status: core.StatusPending}
	if err := store.CreateArticle(ctx, article); err != nil {
		t.Fatalf("Failed to create article: %v", err)
	}

	article.Status = core.StatusFailed
	article.FailedAtPhase = "outline"
	article.ErrorMessage = "model returned malformed output"
	article.CurrentStepIndex = 3
	if err := store.UpdateArticle(ctx, article); err != nil {
		t.Fatalf("Failed to update article: %v", err)
	}

	got, err := store.GetArticle(ctx, "art-2")
	if err != nil {
		t.Fatalf("Failed to get article: %v", err)
	}
	if got.Status != core.StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, core.StatusFailed)
	}
	if got.FailedAtPhase != "outline" {
		t.Errorf("FailedAtPhase = %q, want %q", got.FailedAtPhase, "outline")
	}
	if got.CurrentStepIndex != 3 {
		t.Errorf("CurrentStepIndex = %d, want 3", got.CurrentStepIndex)
	}
}

func TestUpdateArticleMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateArticle(context.Background(), core.Article{ID: "ghost", Status: core.StatusPending})
	if err == nil {
		t.Error("Expected error updating a missing article")
	}
}

func testPlan(id string, statuses ...core.PlanItemStatus) core.ContentPlan {
	plan := core.ContentPlan{
		ID:               id,
		BrandID:          "brand-1",
		AutomationStatus: "active",
		CreatedAt:        time.Now().UTC(),
	}
	for i, status := range statuses {
		plan.Items = append(plan.Items, core.ContentPlanItem{
			ID:          plan.ID + "-item-" + string(rune('a'+i)),
			Title:       "Title " + string(rune('A'+i)),
			MainKeyword: "keyword " + string(rune('a'+i)),
			Status:      status,
		})
	}
	return plan
}

func TestContentPlanRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plan := testPlan("plan-1", core.PlanItemPending, core.PlanItemPublished)
	if err := store.SaveContentPlan(ctx, plan); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}

	got, err := store.GetContentPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("Failed to get plan: %v", err)
	}
	if got == nil {
		t.Fatal("Expected plan, got nil")
	}
	if len(got.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].Status != core.PlanItemPending {
		t.Errorf("Item status = %q, want %q", got.Items[0].Status, core.PlanItemPending)
	}
}

func TestListActivePlans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active := testPlan("plan-active", core.PlanItemPending)
	paused := testPlan("plan-paused", core.PlanItemPending)
	paused.AutomationStatus = "paused"

	for _, plan := range []core.ContentPlan{active, paused} {
		if err := store.SaveContentPlan(ctx, plan); err != nil {
			t.Fatalf("Failed to save plan: %v", err)
		}
	}

	plans, err := store.ListActivePlans(ctx)
	if err != nil {
		t.Fatalf("Failed to list plans: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("Expected 1 active plan, got %d", len(plans))
	}
	if plans[0].ID != "plan-active" {
		t.Errorf("Expected plan-active, got %q", plans[0].ID)
	}
}

func TestClaimPlanItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plan := testPlan("plan-2", core.PlanItemPending)
	if err := store.SaveContentPlan(ctx, plan); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}
	itemID := plan.Items[0].ID

	claimed, err := store.ClaimPlanItem(ctx, "plan-2", itemID)
	if err != nil {
		t.Fatalf("Failed to claim item: %v", err)
	}
	if !claimed {
		t.Fatal("Expected first claim to succeed")
	}

	// A second sweep sees the item already in writing and must not claim it.
	claimed, err = store.ClaimPlanItem(ctx, "plan-2", itemID)
	if err != nil {
		t.Fatalf("Failed on second claim: %v", err)
	}
	if claimed {
		t.Error("Expected second claim to fail")
	}

	got, err := store.GetContentPlan(ctx, "plan-2")
	if err != nil {
		t.Fatalf("Failed to get plan: %v", err)
	}
	if got.Items[0].Status != core.PlanItemWriting {
		t.Errorf("Item status = %q, want %q", got.Items[0].Status, core.PlanItemWriting)
	}
}

func TestSetPlanItemStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plan := testPlan("plan-3", core.PlanItemWriting)
	if err := store.SaveContentPlan(ctx, plan); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}

	if err := store.SetPlanItemStatus(ctx, "plan-3", plan.Items[0].ID, core.PlanItemPublished); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	got, err := store.GetContentPlan(ctx, "plan-3")
	if err != nil {
		t.Fatalf("Failed to get plan: %v", err)
	}
	if got.Items[0].Status != core.PlanItemPublished {
		t.Errorf("Item status = %q, want %q", got.Items[0].Status, core.PlanItemPublished)
	}
}

func TestIsDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	plan := testPlan("plan-4", core.PlanItemPending)
	plan.Items[0].Title = "How to Restore Old Photos"
	plan.Items[0].MainKeyword = "restore old photos"
	if err := store.SaveContentPlan(ctx, plan); err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}

	tests := []struct {
		title   string
		keyword string
		want    bool
	}{
		{"HOW TO RESTORE OLD PHOTOS", "something else", true},
		{"Fresh Title", "Restore Old Photos", true},
		{"Fresh Title", "fresh keyword", false},
	}

	for _, tt := range tests {
		got, err := store.IsDuplicate(ctx, tt.title, tt.keyword)
		if err != nil {
			t.Fatalf("IsDuplicate(%q, %q) error: %v", tt.title, tt.keyword, err)
		}
		if got != tt.want {
			t.Errorf("IsDuplicate(%q, %q) = %v, want %v", tt.title, tt.keyword, got, tt.want)
		}
	}
}
