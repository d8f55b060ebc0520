package handlers

import (
	"fmt"
	"os"

	"blogforge/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blogforge",
		Short: "Blogforge turns search telemetry into content plans and finished blog posts.",
		Long: `Blogforge is a content generation toolchain. It scores Search-Console
query data, clusters it into keyword opportunities, synthesizes a scheduled
content plan, and runs a multi-phase writing pipeline (research, outline,
section drafting, polish, metadata) for each planned article.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.blogforge.yaml)")

	rootCmd.AddCommand(NewPlanCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
