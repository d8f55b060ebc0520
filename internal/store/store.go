// Package store provides SQLite-backed persistence for articles and content
// plans. Each article's rows are only ever written by its own pipeline task,
// so simple update-by-id operations are safe under concurrent writers.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blogforge/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-based persistence layer.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	articlesTable := `
	CREATE TABLE IF NOT EXISTS articles (
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
		research TEXT,
		outline TEXT,
		final_html TEXT,
		meta_description TEXT,
		slug TEXT,
		featured_image_url TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`

	plansTable := `
	CREATE TABLE IF NOT EXISTS content_plans (
		id TEXT PRIMARY KEY,
		brand_id TEXT,
		plan_data TEXT NOT NULL,
		automation_status TEXT,
		created_at DATETIME
	);`

	tables := []string{articlesTable, plansTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateArticle inserts a new article record.
func (s *Store) CreateArticle(ctx context.Context, article core.Article) error {
	research, outline, err := marshalArticleBlobs(article)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO articles
	(id, keyword, title, voice_id, brand_id, status, failed_at_phase, error_message,
	 raw_content, current_step_index, research, outline, final_html, meta_description,
	 slug, featured_image_url, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}

	_, err = s.db.ExecContext(ctx, query,
		article.ID, article.Keyword, article.Title, article.VoiceID, article.BrandID,
		string(article.Status), article.FailedAtPhase, article.ErrorMessage,
		article.RawContent, article.CurrentStepIndex, research, outline,
		article.FinalHTML, article.MetaDescription, article.Slug,
		article.FeaturedImageURL, article.CreatedAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// GetArticle retrieves an article by id. Returns (nil, nil) when absent.
func (s *Store) GetArticle(ctx context.Context, id string) (*core.Article, error) {
	query := `
	SELECT id, keyword, title, voice_id, brand_id, status, failed_at_phase,
	       error_message, raw_content, current_step_index, research, outline,
	       final_html, meta_description, slug, featured_image_url, created_at, updated_at
	FROM articles WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var article core.Article
	var status, research, outline sql.NullString
	var failedAtPhase, errorMessage, title, voiceID, brandID sql.NullString
	var rawContent, finalHTML, metaDescription, slug, imageURL sql.NullString

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
func (s *Store) UpdateArticle(ctx context.Context, article core.Article) error {
	research, outline, err := marshalArticleBlobs(article)
	if err != nil {
		return err
	}

	query := `
	UPDATE articles SET
		keyword = ?, title = ?, voice_id = ?, brand_id = ?, status = ?,
		failed_at_phase = ?, error_message = ?, raw_content = ?,
		current_step_index = ?, research = ?, outline = ?, final_html = ?,
		meta_description = ?, slug = ?, featured_image_url = ?, updated_at = ?
	WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		article.Keyword, article.Title, article.VoiceID, article.BrandID,
		string(article.Status), article.FailedAtPhase, article.ErrorMessage,
		article.RawContent, article.CurrentStepIndex, research, outline,
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
func (s *Store) SaveContentPlan(ctx context.Context, plan core.ContentPlan) error {
	items, err := json.Marshal(plan.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal plan items: %w", err)
	}

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT OR REPLACE INTO content_plans (id, brand_id, plan_data, automation_status, created_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		plan.ID, plan.BrandID, string(items), plan.AutomationStatus, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save content plan: %w", err)
	}
	return nil
}

// GetContentPlan retrieves a plan by id. Returns (nil, nil) when absent.
func (s *Store) GetContentPlan(ctx context.Context, id string) (*core.ContentPlan, error) {
	query := `SELECT id, brand_id, plan_data, automation_status, created_at FROM content_plans WHERE id = ?`
	return scanPlan(s.db.QueryRowContext(ctx, query, id))
}

// ListActivePlans returns all plans with automation enabled.
func (s *Store) ListActivePlans(ctx context.Context) ([]core.ContentPlan, error) {
	query := `SELECT id, brand_id, plan_data, automation_status, created_at FROM content_plans WHERE automation_status = 'active'`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []core.ContentPlan
	for rows.Next() {
		plan, err := scanPlanRow(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// ClaimPlanItem flips one plan item from pending to writing inside a
// transaction. Returns false when the item was not pending, so overlapping
// watchman sweeps cannot double-dispatch the same item.
func (s *Store) ClaimPlanItem(ctx context.Context, planID, itemID string) (bool, error) {
	return s.setPlanItemStatus(ctx, planID, itemID, core.PlanItemWriting, core.PlanItemPending)
}

// SetPlanItemStatus unconditionally sets a plan item's status.
func (s *Store) SetPlanItemStatus(ctx context.Context, planID, itemID string, status core.PlanItemStatus) error {
	_, err := s.setPlanItemStatus(ctx, planID, itemID, status, "")
	return err
}

// setPlanItemStatus updates one item's status inside a transaction. When
// expect is non-empty the update only applies if the item currently holds
// that status.
func (s *Store) setPlanItemStatus(ctx context.Context, planID, itemID string, status, expect core.PlanItemStatus) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var planData string
	if err := tx.QueryRowContext(ctx, `SELECT plan_data FROM content_plans WHERE id = ?`, planID).Scan(&planData); err != nil {
		if err == sql.ErrNoRows {
			return false, fmt.Errorf("plan %s not found", planID)
		}
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

	if _, err := tx.ExecContext(ctx, `UPDATE content_plans SET plan_data = ? WHERE id = ?`, string(newData), planID); err != nil {
		return false, fmt.Errorf("failed to write plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit plan update: %w", err)
	}
	return true, nil
}

// IsDuplicate reports whether any persisted plan item shares the exact
// title or main keyword. Used by the plan synthesizer's external dedup check.
func (s *Store) IsDuplicate(ctx context.Context, title, mainKeyword string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT plan_data FROM content_plans`)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row *sql.Row) (*core.ContentPlan, error) {
	plan, err := scanPlanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return plan, nil
}

func scanPlanRow(row rowScanner) (*core.ContentPlan, error) {
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
