package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogforge/internal/server"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the HTTP API server command
func NewServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for plan and article generation",
		Long: `Starts the HTTP API. Endpoints:
  POST /api/plans         generate a content plan
  GET  /api/plans/{id}    read a plan
  POST /api/articles      create an article and generate it in the background
  GET  /api/articles/{id} read article status and content
  GET  /health            liveness check`,
		Run: serveRunFunc,
	}

	serveCmd.Flags().String("addr", "", "Listen address (default from config)")

	return serveCmd
}

func serveRunFunc(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	srv := server.New(addr, a.plans, a.articles)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}
}
