package core

import "time"

// ArticleStatus represents the lifecycle state of an Article.
type ArticleStatus string

const (
	StatusPending     ArticleStatus = "pending"
	StatusResearching ArticleStatus = "researching"
	StatusOutlining   ArticleStatus = "outlining"
	StatusWriting     ArticleStatus = "writing"
	StatusPolishing   ArticleStatus = "polishing"
	StatusCompleted   ArticleStatus = "completed"
	StatusFailed      ArticleStatus = "failed"
)

// Article represents one piece of content in progress or completed.
// RawContent is append-only while the writing phase runs; derived fields
// (FinalHTML, Slug, MetaDescription, FeaturedImageURL) are populated
// best-effort before the article reaches StatusCompleted.
type Article struct {
	ID               string         `json:"id"`                 // Unique identifier for the article
	Keyword          string         `json:"keyword"`            // Target keyword driving generation
	Title            string         `json:"title"`              // Optional human-provided title (reused verbatim when set)
	VoiceID          string         `json:"voice_id"`           // Brand voice/style profile identifier
	BrandID          string         `json:"brand_id"`           // Owning brand (optional)
	Status           ArticleStatus  `json:"status"`             // Current lifecycle status
	FailedAtPhase    string         `json:"failed_at_phase"`    // Phase name recorded only on failure
	ErrorMessage     string         `json:"error_message"`      // Captured error text on failure
	RawContent       string         `json:"raw_content"`        // Accumulating markdown draft
	CurrentStepIndex int            `json:"current_step_index"` // Index of the section currently being written
	Research         *ResearchBrief `json:"research"`           // Output of the research phase
	Outline          *Outline       `json:"outline"`            // Output of the outline phase
	FinalHTML        string         `json:"final_html"`         // Rendered HTML of the finished draft
	MetaDescription  string         `json:"meta_description"`   // SEO meta description (<=160 chars)
	Slug             string         `json:"slug"`               // URL slug derived from the title
	FeaturedImageURL string         `json:"featured_image_url"` // Uploaded featured image URL
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Outline is the structured write plan for one Article. Section order
// defines the concatenation order of the final draft; section IDs are
// unique within an outline.
type Outline struct {
	Title    string           `json:"title"`
	Intro    OutlineIntro     `json:"intro"`
	Sections []OutlineSection `json:"sections"`
}

// OutlineIntro holds the instruction note and target keywords for the
// introduction block.
type OutlineIntro struct {
	Note     string   `json:"note"`
	Keywords []string `json:"keywords"`
}

// OutlineSection is one planned section of the draft. Note describes
// content substance to cover, never style.
type OutlineSection struct {
	ID       int      `json:"id"`       // Stable numeric id, unique within the outline
	Heading  string   `json:"heading"`  // Section heading text
	Level    int      `json:"level"`    // Heading level, 2-4
	Note     string   `json:"note"`     // Content-focus instruction for the writer
	Keywords []string `json:"keywords"` // Target keywords for this section
}

// ResearchBrief is the output of the research phase: a cross-source fact
// sheet, a content-gap analysis, and summarized sources. The outline phase
// consumes all of it; the writing phase consumes facts only.
type ResearchBrief struct {
	Facts   []string    `json:"facts"`
	Gaps    ContentGaps `json:"gaps"`
	Sources []Source    `json:"sources"`
}

// ContentGaps captures what top-ranking competitor content is missing.
type ContentGaps struct {
	MissingTopics  []string `json:"missing_topics"`
	OutdatedInfo   []string `json:"outdated_info"`
	UserIntentGaps []string `json:"user_intent_gaps"`
}

// Source is one summarized research source.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// PlanItemStatus represents the lifecycle state of a ContentPlanItem.
type PlanItemStatus string

const (
	PlanItemPending   PlanItemStatus = "pending"
	PlanItemWriting   PlanItemStatus = "writing"
	PlanItemPublished PlanItemStatus = "published"
)

// ArticleType classifies the commercial intent of a planned article.
type ArticleType string

const (
	TypeInformational ArticleType = "informational"
	TypeCommercial    ArticleType = "commercial"
	TypeHowTo         ArticleType = "howto"
)

// ContentPlanItem is one scheduled topic within a content plan. Within one
// plan, ParentQuestion is unique (the anti-cannibalization guarantee) and
// ScheduledDate values increase monotonically by index.
type ContentPlanItem struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	MainKeyword        string         `json:"main_keyword"`
	SupportingKeywords []string       `json:"supporting_keywords"` // Set semantics, order irrelevant
	ArticleType        ArticleType    `json:"article_type"`
	Cluster            string         `json:"cluster"`
	ScheduledDate      time.Time      `json:"scheduled_date"`
	Status             PlanItemStatus `json:"status"`
	IntentRole         string         `json:"intent_role"`
	ArticleCategory    string         `json:"article_category"`
	ParentQuestion     string         `json:"parent_question"`
	OpportunityScore   int            `json:"opportunity_score"`
	Badge              string         `json:"badge"`
	Impressions        int            `json:"impressions"`
	Position           float64        `json:"position"`
	CTR                float64        `json:"ctr"`
	Reason             string         `json:"reason"`
	Impact             string         `json:"impact"`
}

// ContentPlan is a batch of scheduled topics for one brand. A plan is
// completed once every item reaches PlanItemPublished.
type ContentPlan struct {
	ID               string            `json:"id"`
	BrandID          string            `json:"brand_id"`
	Items            []ContentPlanItem `json:"items"`
	AutomationStatus string            `json:"automation_status"` // "active" or "paused"
	CreatedAt        time.Time         `json:"created_at"`
}

// QueryIntent classifies a search query's intent.
type QueryIntent string

const (
	IntentTransactional QueryIntent = "transactional"
	IntentCommercial    QueryIntent = "commercial"
	IntentInformational QueryIntent = "informational"
)

// QueryStats is one row of search-query telemetry, annotated with derived
// intent and opportunity score after scoring.
type QueryStats struct {
	Query            string      `json:"query"`
	Impressions      int         `json:"impressions"`
	Clicks           int         `json:"clicks"`
	CTR              float64     `json:"ctr"`
	Position         float64     `json:"position"`
	Intent           QueryIntent `json:"intent"`
	OpportunityScore int         `json:"opportunity_score"`
}

// ClusterCategory is the strategic bucket assigned to a keyword cluster.
type ClusterCategory string

const (
	CategoryQuickWin       ClusterCategory = "quick_win"
	CategoryHighPotential  ClusterCategory = "high_potential"
	CategoryStrategic      ClusterCategory = "strategic"
	CategoryNewOpportunity ClusterCategory = "new_opportunity"
)

// KeywordCluster groups a primary query with its near-duplicate supporting
// queries. Pipeline-internal: not persisted beyond plan generation.
type KeywordCluster struct {
	Primary          QueryStats      `json:"primary"`
	Supporting       []QueryStats    `json:"supporting"`
	Intent           QueryIntent     `json:"intent"`
	OpportunityScore int             `json:"opportunity_score"`
	Category         ClusterCategory `json:"category"`
}

// CoverageLevel classifies how heavily competitors already cover a
// problem domain.
type CoverageLevel string

const (
	CoverageHeavy CoverageLevel = "heavy"
	CoverageLight CoverageLevel = "light"
	CoverageNone  CoverageLevel = "none"
)

// IdeaDomain is one problem-domain phrase from the idea universe, annotated
// with competitor coverage.
type IdeaDomain struct {
	Phrase   string        `json:"phrase"`
	Coverage CoverageLevel `json:"coverage"`
}

// BrandProfile holds the onboarding data that shapes prompts: identity,
// audience, product features, and writing style.
type BrandProfile struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Website        string   `json:"website"`
	Description    string   `json:"description"`
	TargetAudience string   `json:"target_audience"`
	Features       []string `json:"features"`
	SeedKeywords   []string `json:"seed_keywords"`
	Perspective    string   `json:"perspective"`   // Narrative perspective, e.g. "first-person plural"
	StyleProfile   string   `json:"style_profile"` // Free-text voice/style description
	BrandDetails   string   `json:"brand_details"` // Product facts the writer may reference
}
