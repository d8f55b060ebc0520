package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"blogforge/internal/config"
	"blogforge/internal/core"
	"blogforge/internal/fetch"
	"blogforge/internal/ideas"
	"blogforge/internal/llm"
	"blogforge/internal/persistence"
	"blogforge/internal/pipeline"
	"blogforge/internal/planner"
	"blogforge/internal/research"
	"blogforge/internal/search"
	"blogforge/internal/services"
	"blogforge/internal/storage"
	"blogforge/internal/store"
	"blogforge/internal/visual"
)

// Store is the persistence surface shared by the SQLite and Postgres layers.
type Store interface {
	CreateArticle(ctx context.Context, article core.Article) error
	GetArticle(ctx context.Context, id string) (*core.Article, error)
	UpdateArticle(ctx context.Context, article core.Article) error
	SaveContentPlan(ctx context.Context, plan core.ContentPlan) error
	GetContentPlan(ctx context.Context, id string) (*core.ContentPlan, error)
	ListActivePlans(ctx context.Context) ([]core.ContentPlan, error)
	ClaimPlanItem(ctx context.Context, planID, itemID string) (bool, error)
	SetPlanItemStatus(ctx context.Context, planID, itemID string, status core.PlanItemStatus) error
	IsDuplicate(ctx context.Context, title, mainKeyword string) (bool, error)
	Close() error
}

// app bundles the wired services behind each command.
type app struct {
	cfg      *config.Config
	store    Store
	client   *llm.Client
	plans    *services.PlanService
	articles *services.ArticleService
}

// buildApp wires the full dependency graph from configuration.
func buildApp() (*app, error) {
	cfg := config.Get()

	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(cfg.AI.Gemini.Model)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	provider, err := search.NewProviderFactory().CreateProvider(
		search.ProviderType(cfg.Search.DefaultProvider),
		map[string]string{"api_key": cfg.Search.Providers.Tavily.APIKey},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create search provider: %w", err)
	}

	researcher := research.NewResearcher(client, provider, cfg.AI.Gemini.Model)
	researcher.SetMaxResults(cfg.Pipeline.SearchResults)

	sectionDelay, err := time.ParseDuration(cfg.Pipeline.SectionDelay)
	if err != nil {
		sectionDelay = 4 * time.Second
	}

	var images pipeline.ImageClient
	if cfg.Image.APIKey != "" {
		images = visual.NewOpenAIClient(cfg.Image.APIKey, cfg.Image.Model, cfg.Image.Size)
	}

	pipe := pipeline.New(db, client, researcher, images, objectStore(cfg), pipeline.Config{
		Model:        cfg.AI.Gemini.Model,
		FlashModel:   cfg.AI.Gemini.FlashModel,
		SectionDelay: sectionDelay,
		ImagePrefix:  "articles",
	})

	synthesizer := planner.NewSynthesizer(client, db, cfg.AI.Gemini.Model)
	synthesizer.SetTopUpMaxAttempts(cfg.Plan.TopUpMaxAttempts)

	return &app{
		cfg:      cfg,
		store:    db,
		client:   client,
		plans:    services.NewPlanService(synthesizer, ideas.NewEngine(client, cfg.AI.Gemini.Model), provider, fetch.NewFetcher(), db, cfg.Plan.SimilarityCutoff),
		articles: services.NewArticleService(db, pipe, db),
	}, nil
}

func (a *app) Close() {
	a.client.Close()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
	}
}

func openStore(cfg *config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return persistence.NewPostgresDB(cfg.Database.DSN)
	default:
		return store.NewStore(cfg.Database.SQLitePath)
	}
}

func objectStore(cfg *config.Config) pipeline.ObjectStore {
	if cfg.Storage.Provider == "http" {
		return storage.NewHTTPStore(cfg.Storage.Endpoint, cfg.Storage.Bucket, cfg.Storage.APIKey, cfg.Storage.PublicBase)
	}
	return storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBase)
}

// loadBrandProfile reads a brand profile JSON file.
func loadBrandProfile(path string) (core.BrandProfile, error) {
	var brand core.BrandProfile
	if path == "" {
		return brand, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return brand, fmt.Errorf("failed to read brand file: %w", err)
	}
	if err := json.Unmarshal(data, &brand); err != nil {
		return brand, fmt.Errorf("failed to parse brand file: %w", err)
	}
	return brand, nil
}

// loadQueryStats reads Search-Console query rows from a JSON file.
func loadQueryStats(path string) ([]core.QueryStats, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file: %w", err)
	}
	var rows []core.QueryStats
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse queries file: %w", err)
	}
	return rows, nil
}
