package server

import (
	"context"
	"encoding/json"
	"net/http"

	"blogforge/internal/core"
	"blogforge/internal/logger"
	"blogforge/internal/services"

	"github.com/go-chi/chi/v5"
)

// PlanService is the plan generation surface the server needs.
type PlanService interface {
	GeneratePlan(ctx context.Context, req services.PlanRequest) (*core.ContentPlan, error)
	GetPlan(ctx context.Context, id string) (*core.ContentPlan, error)
}

// ArticleService is the article surface the server needs.
type ArticleService interface {
	Create(ctx context.Context, req services.GenerateRequest) (string, error)
	RunPipeline(ctx context.Context, articleID string, brand core.BrandProfile) error
	GetArticle(ctx context.Context, id string) (*core.Article, error)
}

type createPlanRequest struct {
	Brand            core.BrandProfile `json:"brand"`
	Queries          []core.QueryStats `json:"queries"`
	ExistingContent  []string          `json:"existing_content"`
	CoveredQuestions []string          `json:"covered_questions"`
	TargetCount      int               `json:"target_count"`
}

type createArticleRequest struct {
	Keyword string            `json:"keyword"`
	Title   string            `json:"title"`
	VoiceID string            `json:"voice_id"`
	Brand   core.BrandProfile `json:"brand"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Brand.Name == "" {
		writeError(w, http.StatusBadRequest, "brand.name is required")
		return
	}

	plan, err := s.plans.GeneratePlan(r.Context(), services.PlanRequest{
		Brand:            req.Brand,
		Queries:          req.Queries,
		ExistingContent:  req.ExistingContent,
		CoveredQuestions: req.CoveredQuestions,
		TargetCount:      req.TargetCount,
	})
	if err != nil {
		logger.Error("Plan generation request failed", err, "brand", req.Brand.Name)
		writeError(w, http.StatusBadGateway, "plan generation failed")
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleCreateArticle creates the article record synchronously and runs the
// pipeline in the background. The caller gets an id to poll.
func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.articles.Create(r.Context(), services.GenerateRequest{
		Keyword: req.Keyword,
		Title:   req.Title,
		VoiceID: req.VoiceID,
		Brand:   req.Brand,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	brand := req.Brand
	go func() {
		// Detached from the request context: generation outlives the
		// HTTP exchange.
		if err := s.articles.RunPipeline(context.Background(), id, brand); err != nil {
			logger.Error("Background generation failed", err, "article_id", id)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(core.StatusPending)})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.articles.GetArticle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load article")
		return
	}
	if article == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
