package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"blogforge/internal/core"
	"blogforge/internal/llm"
)

const outlineJSON = `{
	"title": "How to Restore Old Photos",
	"intro": {"note": "open with the pain of fading family photos", "keywords": ["restore old photos"]},
	"sections": [
		{"id": 1, "heading": "Why Photos Fade", "level": 2, "note": "explain chemical causes", "keywords": []},
		{"id": 2, "heading": "Restoration Steps", "level": 2, "note": "walk through the process", "keywords": ["photo restoration"]}
	]
}`

type memStore struct {
	mu       sync.Mutex
	articles map[string]core.Article
	updates  int
}

func newMemStore(articles ...core.Article) *memStore {
	store := &memStore{articles: make(map[string]core.Article)}
	for _, a := range articles {
		store.articles[a.ID] = a
	}
	return store
}

func (m *memStore) GetArticle(ctx context.Context, id string) (*core.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return nil, nil
	}
	copied := article
	return &copied, nil
}

func (m *memStore) UpdateArticle(ctx context.Context, article core.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[article.ID] = article
	m.updates++
	return nil
}

func (m *memStore) get(t *testing.T, id string) core.Article {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		t.Fatalf("Article %s missing from store", id)
	}
	return article
}

// scriptedLLM returns queued responses in order, or a filler paragraph once
// the queue runs dry. errAt fails the nth call (1-based).
type scriptedLLM struct {
	responses []string
	errAt     int
	calls     int
	prompts   []string
}

func (s *scriptedLLM) GenerateText(ctx context.Context, prompt string, options llm.Options) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.errAt != 0 && s.calls == s.errAt {
		return "", errors.New("model unavailable")
	}
	if len(s.responses) == 0 {
		return "Generated paragraph.", nil
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

type stubResearcher struct {
	brief *core.ResearchBrief
	err   error
	calls int
}

func (s *stubResearcher) Research(ctx context.Context, keyword string) (*core.ResearchBrief, error) {
	s.calls++
	return s.brief, s.err
}

type stubImages struct {
	urls []string
	err  error
}

func (s *stubImages) GenerateImage(ctx context.Context, prompt string) ([]string, error) {
	return s.urls, s.err
}

func (s *stubImages) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	return []byte("fake png"), "image/png", nil
}

type stubObjectStore struct {
	keys []string
}

func (s *stubObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.keys = append(s.keys, key)
	return nil
}

func (s *stubObjectStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func testBrief() *core.ResearchBrief {
	return &core.ResearchBrief{
		Facts:   []string{"Photo dyes break down under UV light"},
		Sources: []core.Source{{URL: "https://example.com", Title: "Source"}},
	}
}

func testConfig() Config {
	config := DefaultConfig()
	config.SectionDelay = 0
	return config
}

func TestRunFullPipeline(t *testing.T) {
	store := newMemStore(core.Article{ID: "a1", Keyword: "restore old photos", Status: core.StatusPending})
	client := &scriptedLLM{responses: []string{
		outlineJSON,
		"Intro paragraph.",
		"Fading happens because dyes decay.",
		"Scan, repair, and reprint.",
		"# How to Restore Old Photos\n\nPolished full draft.",
		"Restore old photos at home with a scanner and free tools.",
		"A warm editorial illustration of restored photographs.",
	}}
	images := &stubImages{urls: []string{"https://provider.example.com/img.png"}}
	objects := &stubObjectStore{}
	p := New(store, client, &stubResearcher{brief: testBrief()}, images, objects, testConfig())

	if err := p.Run(context.Background(), "a1", core.BrandProfile{Name: "PhotoFix"}); err != nil {
		t.Fatalf("Expected pipeline to succeed, got %v", err)
	}

	article := store.get(t, "a1")
	if article.Status != core.StatusCompleted {
		t.Errorf("Status = %q, want %q", article.Status, core.StatusCompleted)
	}
	if article.RawContent != "# How to Restore Old Photos\n\nPolished full draft." {
		t.Errorf("Expected polished draft to replace raw content, got %q", article.RawContent)
	}
	if article.Research == nil || article.Outline == nil {
		t.Error("Expected research and outline to be persisted")
	}
	if article.CurrentStepIndex != 3 {
		t.Errorf("CurrentStepIndex = %d, want 3", article.CurrentStepIndex)
	}
	if article.Slug != "how-to-restore-old-photos" {
		t.Errorf("Slug = %q", article.Slug)
	}
	if article.MetaDescription == "" || len(article.MetaDescription) > 160 {
		t.Errorf("Unexpected meta description %q", article.MetaDescription)
	}
	if article.FeaturedImageURL != "https://cdn.example.com/articles/how-to-restore-old-photos.png" {
		t.Errorf("FeaturedImageURL = %q", article.FeaturedImageURL)
	}
	if !strings.Contains(article.FinalHTML, "<h1") {
		t.Errorf("Expected rendered HTML, got %q", article.FinalHTML)
	}
}

func TestOutlineFailureAttribution(t *testing.T) {
	store := newMemStore(core.Article{ID: "a2", Keyword: "restore old photos", Status: core.StatusPending})
	client := &scriptedLLM{responses: []string{"this is not json at all"}}
	p := New(store, client, &stubResearcher{brief: testBrief()}, nil, nil, testConfig())

	err := p.Run(context.Background(), "a2", core.BrandProfile{})
	if err == nil {
		t.Fatal("Expected pipeline to fail")
	}

	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) {
		t.Fatalf("Expected PhaseError, got %T", err)
	}
	if phaseErr.Phase != PhaseOutline {
		t.Errorf("Phase = %q, want %q", phaseErr.Phase, PhaseOutline)
	}

	article := store.get(t, "a2")
	if article.Status != core.StatusFailed {
		t.Errorf("Status = %q, want %q", article.Status, core.StatusFailed)
	}
	if article.FailedAtPhase != "outline" {
		t.Errorf("FailedAtPhase = %q, want outline", article.FailedAtPhase)
	}
	if article.ErrorMessage == "" {
		t.Error("Expected error message to be recorded")
	}
	if article.RawContent != "" {
		t.Errorf("Expected raw content untouched before writing, got %q", article.RawContent)
	}
	if article.Research == nil {
		t.Error("Expected research output to survive the outline failure")
	}
}

func TestPhasePersistenceBeforeFailure(t *testing.T) {
	store := newMemStore(core.Article{ID: "a3", Keyword: "restore old photos", Status: core.StatusPending})
	// Call 5 is the polish pass.
	client := &scriptedLLM{responses: []string{outlineJSON}, errAt: 5}
	p := New(store, client, &stubResearcher{brief: testBrief()}, nil, nil, testConfig())

	err := p.Run(context.Background(), "a3", core.BrandProfile{})
	if err == nil {
		t.Fatal("Expected pipeline to fail at polish")
	}

	article := store.get(t, "a3")
	if article.FailedAtPhase != "polish" {
		t.Errorf("FailedAtPhase = %q, want polish", article.FailedAtPhase)
	}
	if article.CurrentStepIndex != 3 {
		t.Errorf("CurrentStepIndex = %d, want 3", article.CurrentStepIndex)
	}
	if !strings.Contains(article.RawContent, "## Why Photos Fade") {
		t.Errorf("Expected written sections to be persisted, got %q", article.RawContent)
	}
	if !strings.Contains(article.RawContent, "## Restoration Steps") {
		t.Errorf("Expected all sections persisted, got %q", article.RawContent)
	}
}

func TestRunResumesFromPersistedState(t *testing.T) {
	outline := core.Outline{
		Title: "How to Restore Old Photos",
		Intro: core.OutlineIntro{Note: "open with pain"},
		Sections: []core.OutlineSection{
			{ID: 1, Heading: "Why Photos Fade", Level: 2, Note: "causes"},
			{ID: 2, Heading: "Restoration Steps", Level: 2, Note: "steps"},
		},
	}
	// Intro and the first section already written; the run must pick up at
	// the second section.
	store := newMemStore(core.Article{
		ID:               "a4",
		Keyword:          "restore old photos",
		Title:            "How to Restore Old Photos",
		Status:           core.StatusWriting,
		Research:         testBrief(),
		Outline:          &outline,
		RawContent:       "# How to Restore Old Photos\n\nIntro.\n\n## Why Photos Fade\n\nCauses.\n",
		CurrentStepIndex: 2,
	})
	researcher := &stubResearcher{err: errors.New("should not be called")}
	client := &scriptedLLM{responses: []string{
		"Scan, repair, and reprint.",
		"# How to Restore Old Photos\n\nPolished.",
		"Meta description.",
	}}
	p := New(store, client, researcher, nil, nil, testConfig())

	if err := p.Run(context.Background(), "a4", core.BrandProfile{}); err != nil {
		t.Fatalf("Expected resumed run to succeed, got %v", err)
	}

	if researcher.calls != 0 {
		t.Error("Expected research phase to be skipped on resume")
	}
	// Section 2, polish, meta description. No outline or intro calls.
	if client.calls != 3 {
		t.Errorf("Expected 3 model calls on resume, got %d", client.calls)
	}
	if !strings.Contains(client.prompts[0], "Restoration Steps") {
		t.Errorf("Expected resume to target the second section, prompt was %q", client.prompts[0])
	}

	article := store.get(t, "a4")
	if article.Status != core.StatusCompleted {
		t.Errorf("Status = %q, want %q", article.Status, core.StatusCompleted)
	}
}

func TestSnowballPromptsCarryFullDraft(t *testing.T) {
	store := newMemStore(core.Article{ID: "a5", Keyword: "restore old photos", Status: core.StatusPending})
	client := &scriptedLLM{responses: []string{
		outlineJSON,
		"Intro paragraph.",
		"First section body.",
		"Second section body.",
	}}
	p := New(store, client, &stubResearcher{brief: testBrief()}, nil, nil, testConfig())

	if err := p.Run(context.Background(), "a5", core.BrandProfile{}); err != nil {
		t.Fatalf("Expected pipeline to succeed, got %v", err)
	}

	// The second section's prompt (call 4) must include the intro and the
	// first section's text.
	sectionPrompt := client.prompts[3]
	if !strings.Contains(sectionPrompt, "Intro paragraph.") {
		t.Error("Expected second section prompt to carry the intro")
	}
	if !strings.Contains(sectionPrompt, "First section body.") {
		t.Error("Expected second section prompt to carry the first section")
	}
}

func TestResearchFailureAttribution(t *testing.T) {
	store := newMemStore(core.Article{ID: "a6", Keyword: "restore old photos", Status: core.StatusPending})
	p := New(store, &scriptedLLM{}, &stubResearcher{err: errors.New("search quota exhausted")}, nil, nil, testConfig())

	err := p.Run(context.Background(), "a6", core.BrandProfile{})
	if err == nil {
		t.Fatal("Expected pipeline to fail at research")
	}

	article := store.get(t, "a6")
	if article.FailedAtPhase != "research" {
		t.Errorf("FailedAtPhase = %q, want research", article.FailedAtPhase)
	}
}

func TestMetaDescriptionFallback(t *testing.T) {
	store := newMemStore(core.Article{ID: "a7", Keyword: "restore old photos", Status: core.StatusPending})
	// Call 5 is the polish pass, call 6 the meta description.
	client := &scriptedLLM{responses: []string{outlineJSON}, errAt: 6}
	p := New(store, client, &stubResearcher{brief: testBrief()}, nil, nil, testConfig())

	if err := p.Run(context.Background(), "a7", core.BrandProfile{}); err != nil {
		t.Fatalf("Expected pipeline to complete despite meta failure, got %v", err)
	}

	article := store.get(t, "a7")
	if article.Status != core.StatusCompleted {
		t.Errorf("Status = %q, want %q", article.Status, core.StatusCompleted)
	}
	if !strings.Contains(article.MetaDescription, "restore old photos") {
		t.Errorf("Expected templated fallback description, got %q", article.MetaDescription)
	}
}

func TestImageFailureDoesNotBlockCompletion(t *testing.T) {
	store := newMemStore(core.Article{ID: "a8", Keyword: "restore old photos", Status: core.StatusPending})
	client := &scriptedLLM{responses: []string{outlineJSON}}
	images := &stubImages{err: errors.New("image provider down")}
	p := New(store, client, &stubResearcher{brief: testBrief()}, images, &stubObjectStore{}, testConfig())

	if err := p.Run(context.Background(), "a8", core.BrandProfile{}); err != nil {
		t.Fatalf("Expected pipeline to complete despite image failure, got %v", err)
	}

	article := store.get(t, "a8")
	if article.Status != core.StatusCompleted {
		t.Errorf("Status = %q, want %q", article.Status, core.StatusCompleted)
	}
	if article.FeaturedImageURL != "" {
		t.Errorf("Expected empty image URL, got %q", article.FeaturedImageURL)
	}
}

func TestUserTitleReusedVerbatim(t *testing.T) {
	store := newMemStore(core.Article{
		ID:      "a9",
		Keyword: "restore old photos",
		Title:   "My Exact Title (Keep It)",
		Status:  core.StatusPending,
	})
	client := &scriptedLLM{responses: []string{outlineJSON}}
	p := New(store, client, &stubResearcher{brief: testBrief()}, nil, nil, testConfig())

	if err := p.Run(context.Background(), "a9", core.BrandProfile{}); err != nil {
		t.Fatalf("Expected pipeline to succeed, got %v", err)
	}

	article := store.get(t, "a9")
	if article.Outline.Title != "My Exact Title (Keep It)" {
		t.Errorf("Expected user title kept verbatim, got %q", article.Outline.Title)
	}
}

func TestValidateOutline(t *testing.T) {
	outline := core.Outline{
		Title: "Title",
		Sections: []core.OutlineSection{
			{Heading: "A", Level: 7},
			{Heading: "B", Level: 0},
			{ID: 1, Heading: "C", Level: 3},
		},
	}
	if err := validateOutline(&outline); err != nil {
		t.Fatalf("Expected outline to validate, got %v", err)
	}
	if outline.Sections[0].Level != 2 || outline.Sections[1].Level != 2 {
		t.Error("Expected out-of-range levels clamped to 2")
	}
	if outline.Sections[2].Level != 3 {
		t.Error("Expected valid level preserved")
	}

	bad := core.Outline{Title: "Title"}
	if err := validateOutline(&bad); err == nil {
		t.Error("Expected error for outline with no sections")
	}
}

func TestValidateOutlineUniqueSectionIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []int
	}{
		{"duplicate pair", []int{2, 2}},
		{"zero then collision", []int{0, 1, 1}},
		{"all zero", []int{0, 0, 0}},
		{"repair collides with later id", []int{3, 3, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outline := core.Outline{Title: "Title"}
			for _, id := range tt.ids {
				outline.Sections = append(outline.Sections, core.OutlineSection{ID: id, Heading: "H", Level: 2})
			}
			if err := validateOutline(&outline); err != nil {
				t.Fatalf("Expected outline to validate, got %v", err)
			}
			seen := make(map[int]bool)
			for i, section := range outline.Sections {
				if section.ID == 0 {
					t.Errorf("Section %d still has id 0", i)
				}
				if seen[section.ID] {
					t.Errorf("Section %d has duplicate id %d", i, section.ID)
				}
				seen[section.ID] = true
			}
		})
	}
}

func TestSanitizeMetaDescription(t *testing.T) {
	long := strings.Repeat("restore photos today ", 20)
	got := sanitizeMetaDescription(long)
	if len(got) > 160 {
		t.Errorf("Expected description capped at 160 chars, got %d", len(got))
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("Expected trimmed description, got %q", got)
	}

	if got := sanitizeMetaDescription("```\nA \"quoted\" line\n```"); got != "A quoted line" {
		t.Errorf("Expected fences and quotes stripped, got %q", got)
	}

	// A multibyte rune straddling the cap must not be split mid-encoding.
	// The leading ASCII byte puts the cap mid-rune.
	multibyte := "x" + strings.Repeat("é", 200)
	if got := sanitizeMetaDescription(multibyte); !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8 after truncation, got %q", got)
	}
}
