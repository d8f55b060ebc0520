package watchman

import (
	"context"
	"sync"
	"testing"
	"time"

	"blogforge/internal/core"
)

func planWithItems(id string, items ...core.ContentPlanItem) core.ContentPlan {
	return core.ContentPlan{ID: id, AutomationStatus: "active", Items: items}
}

func TestDueItems(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	plans := []core.ContentPlan{
		planWithItems("p1",
			core.ContentPlanItem{ID: "due", Status: core.PlanItemPending, ScheduledDate: now.AddDate(0, 0, -1)},
			core.ContentPlanItem{ID: "due-today", Status: core.PlanItemPending, ScheduledDate: now},
			core.ContentPlanItem{ID: "future", Status: core.PlanItemPending, ScheduledDate: now.AddDate(0, 0, 1)},
			core.ContentPlanItem{ID: "claimed", Status: core.PlanItemWriting, ScheduledDate: now.AddDate(0, 0, -1)},
			core.ContentPlanItem{ID: "done", Status: core.PlanItemPublished, ScheduledDate: now.AddDate(0, 0, -5)},
		),
	}

	due := DueItems(now, plans)
	if len(due) != 2 {
		t.Fatalf("Expected 2 due items, got %d", len(due))
	}
	if due[0].Item.ID != "due" || due[1].Item.ID != "due-today" {
		t.Errorf("Unexpected due items: %q, %q", due[0].Item.ID, due[1].Item.ID)
	}
}

type stubPlanStore struct {
	mu      sync.Mutex
	plans   []core.ContentPlan
	claimed map[string]bool
}

func newStubPlanStore(plans ...core.ContentPlan) *stubPlanStore {
	return &stubPlanStore{plans: plans, claimed: make(map[string]bool)}
}

func (s *stubPlanStore) ListActivePlans(ctx context.Context) ([]core.ContentPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plans, nil
}

func (s *stubPlanStore) ClaimPlanItem(ctx context.Context, planID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := planID + "/" + itemID
	if s.claimed[key] {
		return false, nil
	}
	s.claimed[key] = true
	return true, nil
}

func TestSweepDispatchesDueItems(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newStubPlanStore(planWithItems("p1",
		core.ContentPlanItem{ID: "i1", Status: core.PlanItemPending, ScheduledDate: now.AddDate(0, 0, -1)},
		core.ContentPlanItem{ID: "i2", Status: core.PlanItemPending, ScheduledDate: now.AddDate(0, 0, 1)},
	))

	var mu sync.Mutex
	var dispatched []string
	w := New(store, func(ctx context.Context, plan core.ContentPlan, item core.ContentPlanItem) {
		mu.Lock()
		defer mu.Unlock()
		dispatched = append(dispatched, item.ID)
	}, time.Hour, 2)

	count := w.Sweep(context.Background(), now)
	w.Wait()

	if count != 1 {
		t.Fatalf("Expected 1 dispatch, got %d", count)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(dispatched) != 1 || dispatched[0] != "i1" {
		t.Errorf("Unexpected dispatches: %v", dispatched)
	}
}

func TestOverlappingSweepsDispatchOnce(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newStubPlanStore(planWithItems("p1",
		core.ContentPlanItem{ID: "i1", Status: core.PlanItemPending, ScheduledDate: now.AddDate(0, 0, -1)},
	))

	var dispatches int32
	var mu sync.Mutex
	w := New(store, func(ctx context.Context, plan core.ContentPlan, item core.ContentPlanItem) {
		mu.Lock()
		dispatches++
		mu.Unlock()
	}, time.Hour, 0)

	// The store still reports the item as pending on the second sweep, as
	// it would if two hourly triggers overlapped before the plan row was
	// rewritten. The claim is what must hold the line.
	first := w.Sweep(context.Background(), now)
	second := w.Sweep(context.Background(), now)
	w.Wait()

	if first != 1 || second != 0 {
		t.Errorf("Expected dispatch counts 1 and 0, got %d and %d", first, second)
	}
	mu.Lock()
	defer mu.Unlock()
	if dispatches != 1 {
		t.Errorf("Expected exactly 1 dispatch, got %d", dispatches)
	}
}
