package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"blogforge/internal/services"

	"github.com/spf13/cobra"
)

// NewPlanCmd creates the content-plan generation command
func NewPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a scheduled content plan from query data and a brand profile",
		Long: `Generates a content plan: filters and scores Search-Console query rows,
clusters them into keyword opportunities, expands the idea universe, and asks
the model for a deduplicated, scheduled list of article topics.

Examples:
  blogforge plan --brand brand.json --queries gsc-export.json
  blogforge plan --brand brand.json                  # no search data, idea-driven plan
  blogforge plan --brand brand.json --count 15 --output plan.json`,
		Run: planRunFunc,
	}

	planCmd.Flags().String("brand", "", "Brand profile JSON file (required)")
	planCmd.Flags().String("queries", "", "Search-Console query rows JSON file")
	planCmd.Flags().String("existing", "", "JSON file with titles already published on the site")
	planCmd.Flags().Int("count", 0, "Number of plan items (default from config)")
	planCmd.Flags().String("output", "", "Write the plan JSON to a file instead of stdout")
	_ = planCmd.MarkFlagRequired("brand")

	return planCmd
}

func planRunFunc(cmd *cobra.Command, args []string) {
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

	queriesFile, _ := cmd.Flags().GetString("queries")
	queries, err := loadQueryStats(queriesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var existing []string
	if existingFile, _ := cmd.Flags().GetString("existing"); existingFile != "" {
		data, err := os.ReadFile(existingFile)
		if err == nil {
			_ = json.Unmarshal(data, &existing)
		}
	}

	count, _ := cmd.Flags().GetInt("count")
	if count <= 0 {
		count = a.cfg.Plan.TargetCount
	}

	plan, err := a.plans.GeneratePlan(context.Background(), services.PlanRequest{
		Brand:           brand,
		Queries:         queries,
		ExistingContent: existing,
		TargetCount:     count,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Plan generation failed: %v\n", err)
		os.Exit(1)
	}

	output, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if outputFile, _ := cmd.Flags().GetString("output"); outputFile != "" {
		if err := os.WriteFile(outputFile, output, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing plan: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Plan %s with %d items written to %s\n", plan.ID, len(plan.Items), outputFile)
		return
	}

	fmt.Println(string(output))
}
