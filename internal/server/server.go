// Package server exposes the HTTP trigger API: plan generation, article
// generation, and status reads. Handlers are thin wrappers over the same
// services the CLI uses.
package server

import (
	"context"
	"net/http"
	"time"

	"blogforge/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	plans      PlanService
	articles   ArticleService
}

// New creates the server listening on addr.
func New(addr string, plans PlanService, articles ArticleService) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		plans:    plans,
		articles: articles,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(120 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/plans", s.handleCreatePlan)
		r.Get("/plans/{id}", s.handleGetPlan)
		r.Post("/articles", s.handleCreateArticle)
		r.Get("/articles/{id}", s.handleGetArticle)
	})
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
