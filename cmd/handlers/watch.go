package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogforge/internal/core"
	"blogforge/internal/watchman"

	"github.com/spf13/cobra"
)

// NewWatchCmd creates the scheduler sweep command
func NewWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the scheduler that generates due content-plan items",
		Long: `Periodically sweeps all active content plans and generates every item
whose scheduled date has arrived. Each item is claimed (pending -> writing)
before dispatch, so overlapping sweeps do not double-generate.

Use --once for a single sweep, e.g. from cron.`,
		Run: watchRunFunc,
	}

	watchCmd.Flags().Bool("once", false, "Run a single sweep and exit")
	watchCmd.Flags().String("brand", "", "Brand profile JSON file used for generated articles")

	return watchCmd
}

func watchRunFunc(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	brandFile, _ := cmd.Flags().GetString("brand")
	brand, err := loadBrandProfile(brandFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	interval, err := time.ParseDuration(a.cfg.Pipeline.WatchmanInterval)
	if err != nil {
		interval = time.Hour
	}

	dispatch := func(ctx context.Context, plan core.ContentPlan, item core.ContentPlanItem) {
		a.articles.GenerateFromPlanItem(ctx, plan, item, brand)
	}
	w := watchman.New(a.store, dispatch, interval, a.cfg.Pipeline.MaxConcurrentRuns)

	if once, _ := cmd.Flags().GetBool("once"); once {
		count := w.Sweep(context.Background(), time.Now())
		w.Wait()
		fmt.Printf("Sweep complete, %d item(s) generated\n", count)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching active plans every %s (Ctrl+C to stop)\n", interval)
	w.Start(ctx)
}
