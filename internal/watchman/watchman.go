// Package watchman is the periodic sweep that turns due content-plan items
// into article generation runs. The sweep itself is stateless; dedup between
// overlapping sweeps rests entirely on the store's conditional claim.
package watchman

import (
	"context"
	"sync"
	"time"

	"blogforge/internal/core"
	"blogforge/internal/logger"
)

// PlanStore lists automated plans and claims items for dispatch.
type PlanStore interface {
	ListActivePlans(ctx context.Context) ([]core.ContentPlan, error)
	// ClaimPlanItem flips an item from pending to writing and reports
	// whether this caller won the claim.
	ClaimPlanItem(ctx context.Context, planID, itemID string) (bool, error)
}

// DispatchFunc starts generation for one claimed plan item.
type DispatchFunc func(ctx context.Context, plan core.ContentPlan, item core.ContentPlanItem)

// DueItem pairs a plan with one of its items whose scheduled date arrived.
type DueItem struct {
	Plan core.ContentPlan
	Item core.ContentPlanItem
}

// DueItems returns every pending item across the plans whose scheduled date
// is at or before now.
func DueItems(now time.Time, plans []core.ContentPlan) []DueItem {
	var due []DueItem
	for _, plan := range plans {
		for _, item := range plan.Items {
			if item.Status != core.PlanItemPending {
				continue
			}
			if item.ScheduledDate.After(now) {
				continue
			}
			due = append(due, DueItem{Plan: plan, Item: item})
		}
	}
	return due
}

// Watchman periodically sweeps active plans and dispatches due items.
type Watchman struct {
	store         PlanStore
	dispatch      DispatchFunc
	interval      time.Duration
	maxConcurrent int

	wg  sync.WaitGroup
	sem chan struct{}
}

// New creates a watchman. maxConcurrent bounds how many generation tasks
// run at once; zero or negative means no bound.
func New(store PlanStore, dispatch DispatchFunc, interval time.Duration, maxConcurrent int) *Watchman {
	w := &Watchman{
		store:         store,
		dispatch:      dispatch,
		interval:      interval,
		maxConcurrent: maxConcurrent,
	}
	if maxConcurrent > 0 {
		w.sem = make(chan struct{}, maxConcurrent)
	}
	return w
}

// Start runs the sweep loop until the context is canceled, then waits for
// in-flight generation tasks to finish.
func (w *Watchman) Start(ctx context.Context) {
	logger.Info("Watchman started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run one sweep immediately so a restart picks up overdue items.
	w.Sweep(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			logger.Info("Watchman stopped")
			return
		case now := <-ticker.C:
			w.Sweep(ctx, now)
		}
	}
}

// Sweep claims and dispatches every due item once. Items another sweep
// already claimed are skipped. Returns the number of items dispatched.
func (w *Watchman) Sweep(ctx context.Context, now time.Time) int {
	plans, err := w.store.ListActivePlans(ctx)
	if err != nil {
		logger.Error("Watchman sweep failed to list plans", err)
		return 0
	}

	dispatched := 0
	for _, due := range DueItems(now, plans) {
		claimed, err := w.store.ClaimPlanItem(ctx, due.Plan.ID, due.Item.ID)
		if err != nil {
			logger.Error("Failed to claim plan item", err, "plan_id", due.Plan.ID, "item_id", due.Item.ID)
			continue
		}
		if !claimed {
			continue
		}

		dispatched++
		w.wg.Add(1)
		go func(due DueItem) {
			defer w.wg.Done()
			if w.sem != nil {
				w.sem <- struct{}{}
				defer func() { <-w.sem }()
			}
			w.dispatch(ctx, due.Plan, due.Item)
		}(due)
	}

	if dispatched > 0 {
		logger.Info("Watchman sweep dispatched items", "count", dispatched)
	}
	return dispatched
}

// Wait blocks until all dispatched tasks have finished. Intended for tests
// and graceful shutdown paths that bypass Start.
func (w *Watchman) Wait() {
	w.wg.Wait()
}
