package handlers

import (
	"context"
	"fmt"
	"os"

	"blogforge/internal/services"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the article generation command
func NewGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate [keyword]",
		Short: "Generate one blog article for a keyword",
		Long: `Runs the full generation pipeline for a single keyword: web research,
outline, section-by-section drafting, polish, and metadata. Progress persists
after every phase, so re-running the same article id resumes where it stopped.

Examples:
  blogforge generate "how to restore old photos" --brand brand.json
  blogforge generate "photo scanner guide" --title "The 2025 Photo Scanner Guide"
  blogforge generate --resume 4f8a...             # resume a failed article`,
		Run: generateRunFunc,
	}

	generateCmd.Flags().String("brand", "", "Brand profile JSON file")
	generateCmd.Flags().String("title", "", "Use this exact title instead of a generated one")
	generateCmd.Flags().String("voice", "", "Voice/style profile identifier")
	generateCmd.Flags().String("resume", "", "Resume an existing article by id")

	return generateCmd
}

func generateRunFunc(cmd *cobra.Command, args []string) {
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

	ctx := context.Background()

	if resumeID, _ := cmd.Flags().GetString("resume"); resumeID != "" {
		if err := a.articles.RunPipeline(ctx, resumeID, brand); err != nil {
			fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Article %s completed\n", resumeID)
		return
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: generate requires a keyword or --resume")
		_ = cmd.Help()
		os.Exit(1)
	}

	title, _ := cmd.Flags().GetString("title")
	voice, _ := cmd.Flags().GetString("voice")

	id, err := a.articles.Generate(ctx, services.GenerateRequest{
		Keyword: args[0],
		Title:   title,
		VoiceID: voice,
		Brand:   brand,
	})
	if err != nil {
		if id != "" {
			fmt.Fprintf(os.Stderr, "Generation failed for article %s: %v\n", id, err)
			fmt.Fprintf(os.Stderr, "Resume with: blogforge generate --resume %s\n", id)
		} else {
			fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Article %s completed\n", id)
}
