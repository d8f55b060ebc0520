// Package persistence provides the PostgreSQL persistence layer for
// deployments where SQLite is not enough. It exposes the same article and
// content-plan operations as the SQLite store.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"blogforge/internal/core"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB is a PostgreSQL-backed store for articles and content plans.
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB opens a connection pool against the given connection string
// and creates the schema if it does not exist.
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pg := &PostgresDB{db: db}
	if err := pg.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return pg, nil
}

func (p *PostgresDB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			keyword TEXT NOT NULL,
			title TEXT,
			voice_id TEXT,
			brand_id TEXT,
			status TEXT NOT NULL,
			failed_at_phase TEXT,
			error_message TEXT,
			raw_content TEXT,
			current_step_index INTEGER DEFAULT 0,
			research JSONB,
			outline JSONB,
			final_html TEXT,
			meta_description TEXT,
			slug TEXT,
			featured_image_url TEXT,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS content_plans (
			id TEXT PRIMARY KEY,
			brand_id TEXT,
			plan_data JSONB NOT NULL,
			automation_status TEXT,
			created_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_automation ON content_plans(automation_status)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping verifies the connection is alive.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// CreateArticle inserts a new article record.
func (p *PostgresDB) CreateArticle(ctx context.Context, article core.Article) error {
	research, outline, err := marshalArticleBlobs(article)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}

	query := `
	INSERT INTO articles
	(id, keyword, title, voice_id, brand_id, status, failed_at_phase, error_message,
	 raw_content, current_step_index, research, outline, final_html, meta_description,
	 slug, featured_image_url, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = p.db.ExecContext(ctx, query,
		article.ID, article.Keyword, article.Title, article.VoiceID, article.BrandID,
		string(article.Status), article.FailedAtPhase, article.ErrorMessage,
		article.RawContent, article.CurrentStepIndex, nullable(research), nullable(outline),
		article.FinalHTML, article.MetaDescription, article.Slug,
		article.FeaturedImageURL, article.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// GetArticle retrieves an article by id. Returns (nil, nil) when absent.
func (p *PostgresDB) GetArticle(ctx context.Context, id string) (*core.Article, error) {
	query := `
	SELECT id, keyword, title, voice_id, brand_id, status, failed_at_phase,
	       error_message, raw_content, current_step_index, research, outline,
	       final_html, meta_description, slug, featured_image_url, created_at, updated_at
	FROM articles WHERE id = $1`

	row := p.db.QueryRowContext(ctx, query, id)

	var article core.Article
	var status sql.NullString
	var title, voiceID, brandID, failedAtPhase, errorMessage sql.NullString
	var rawContent, research, outline, finalHTML, metaDescription, slug, imageURL sql.NullString

	err := row.Scan(
		&article.ID, &article.Keyword, &title, &voiceID, &brandID, &status,
		&failedAtPhase, &errorMessage, &rawContent, &article.CurrentStepIndex,
		&research, &outline, &finalHTML, &metaDescription, &slug, &imageURL,
		&article.CreatedAt, &article.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	article.Title = title.String
	article.VoiceID = voiceID.String
	article.BrandID = brandID.String
	article.Status = core.ArticleStatus(status.String)
	article.FailedAtPhase = failedAtPhase.String
	article.ErrorMessage = errorMessage.String
	article.RawContent = rawContent.String
	article.FinalHTML = finalHTML.String
	article.MetaDescription = metaDescription.String
	article.Slug = slug.String
	article.FeaturedImageURL = imageURL.String

	if research.String != "" {
		var brief core.ResearchBrief
		if err := json.Unmarshal([]byte(research.String), &brief); err == nil {
			article.Research = &brief
		}
	}
	if outline.String != "" {
		var o core.Outline
		if err := json.Unmarshal([]byte(outline.String), &o); err == nil {
			article.Outline = &o
		}
	}

	return &article, nil
}

// UpdateArticle overwrites the mutable fields of an article by id.
func (p *PostgresDB) UpdateArticle(ctx context.Context, article core.Article) error {
	research, outline, err := marshalArticleBlobs(article)
	if err != nil {
		return err
	}

	query := `
	UPDATE articles SET
		keyword = $1, title = $2, voice_id = $3, brand_id = $4, status = $5,
		failed_at_phase = $6, error_message = $7, raw_content = $8,
		current_step_index = $9, research = $10, outline = $11, final_html = $12,
		meta_description = $13, slug = $14, featured_image_url = $15, updated_at = $16
	WHERE id = $17`

	result, err := p.db.ExecContext(ctx, query,
		article.Keyword, article.Title, article.VoiceID, article.BrandID,
		string(article.Status), article.FailedAtPhase, article.ErrorMessage,
		article.RawContent, article.CurrentStepIndex, nullable(research), nullable(outline),
		article.FinalHTML, article.MetaDescription, article.Slug,
		article.FeaturedImageURL, time.Now().UTC(), article.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("article %s not found", article.ID)
	}
	return nil
}

// SaveContentPlan upserts a content plan.
func (p *PostgresDB) SaveContentPlan(ctx context.Context, plan core.ContentPlan) error {
	items, err := json.Marshal(plan.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal plan items: %w", err)
	}

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO content_plans (id, brand_id, plan_data, automation_status, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		brand_id = EXCLUDED.brand_id,
		plan_data = EXCLUDED.plan_data,
		automation_status = EXCLUDED.automation_status`

	_, err = p.db.ExecContext(ctx, query,
		plan.ID, plan.BrandID, string(items), plan.AutomationStatus, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save content plan: %w", err)
	}
	return nil
}

// GetContentPlan retrieves a plan by id. Returns (nil, nil) when absent.
func (p *PostgresDB) GetContentPlan(ctx context.Context, id string) (*core.ContentPlan, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, brand_id, plan_data, automation_status, created_at FROM content_plans WHERE id = $1`, id)

	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListActivePlans returns all plans with automation enabled.
func (p *PostgresDB) ListActivePlans(ctx context.Context) ([]core.ContentPlan, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, brand_id, plan_data, automation_status, created_at FROM content_plans WHERE automation_status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []core.ContentPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// ClaimPlanItem flips one plan item from pending to writing. The row lock
// taken by SELECT FOR UPDATE serializes claims from overlapping sweeps.
func (p *PostgresDB) ClaimPlanItem(ctx context.Context, planID, itemID string) (bool, error) {
	return p.setPlanItemStatus(ctx, planID, itemID, core.PlanItemWriting, core.PlanItemPending)
}

// SetPlanItemStatus unconditionally sets a plan item's status.
func (p *PostgresDB) SetPlanItemStatus(ctx context.Context, planID, itemID string, status core.PlanItemStatus) error {
	_, err := p.setPlanItemStatus(ctx, planID, itemID, status, "")
	return err
}

func (p *PostgresDB) setPlanItemStatus(ctx context.Context, planID, itemID string, status, expect core.PlanItemStatus) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var planData string
	err = tx.QueryRowContext(ctx, `SELECT plan_data FROM content_plans WHERE id = $1 FOR UPDATE`, planID).Scan(&planData)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("plan %s not found", planID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read plan: %w", err)
	}

	var items []core.ContentPlanItem
	if err := json.Unmarshal([]byte(planData), &items); err != nil {
		return false, fmt.Errorf("failed to unmarshal plan items: %w", err)
	}

	updated := false
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		if expect != "" && items[i].Status != expect {
			return false, nil
		}
		items[i].Status = status
		updated = true
		break
	}
	if !updated {
		return false, fmt.Errorf("plan item %s not found in plan %s", itemID, planID)
	}

	newData, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("failed to marshal plan items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE content_plans SET plan_data = $1 WHERE id = $2`, string(newData), planID); err != nil {
		return false, fmt.Errorf("failed to write plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit plan update: %w", err)
	}
	return true, nil
}

// IsDuplicate reports whether any persisted plan item shares the exact
// title or main keyword.
func (p *PostgresDB) IsDuplicate(ctx context.Context, title, mainKeyword string) (bool, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT plan_data FROM content_plans`)
	if err != nil {
		return false, fmt.Errorf("failed to read plans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var planData string
		if err := rows.Scan(&planData); err != nil {
			return false, fmt.Errorf("failed to scan plan: %w", err)
		}
		var items []core.ContentPlanItem
		if err := json.Unmarshal([]byte(planData), &items); err != nil {
			continue
		}
		for _, item := range items {
			if strings.EqualFold(item.Title, title) || strings.EqualFold(item.MainKeyword, mainKeyword) {
				return true, nil
			}
		}
	}
	return false, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*core.ContentPlan, error) {
	var plan core.ContentPlan
	var planData string
	var automationStatus sql.NullString

	if err := row.Scan(&plan.ID, &plan.BrandID, &planData, &automationStatus, &plan.CreatedAt); err != nil {
		return nil, err
	}

	plan.AutomationStatus = automationStatus.String
	if err := json.Unmarshal([]byte(planData), &plan.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan items: %w", err)
	}
	return &plan, nil
}

func marshalArticleBlobs(article core.Article) (research, outline string, err error) {
	if article.Research != nil {
		data, err := json.Marshal(article.Research)
		if err != nil {
			return "", "", fmt.Errorf("failed to marshal research brief: %w", err)
		}
		research = string(data)
	}
	if article.Outline != nil {
		data, err := json.Marshal(article.Outline)
		if err != nil {
			return "", "", fmt.Errorf("failed to marshal outline: %w", err)
		}
		outline = string(data)
	}
	return research, outline, nil
}

// nullable maps empty strings to NULL so JSONB columns reject nothing.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
