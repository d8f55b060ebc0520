package search

import (
	"context"
)

// MockProvider implements Provider for testing purposes
type MockProvider struct {
	name    string
	results []Result
	err     error
}

// NewMockProvider creates a new mock search provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name: "Mock",
		results: []Result{
			{
				URL:     "https://example.com/article1",
				Title:   "Example Article 1",
				Snippet: "This is a mock search result for testing purposes.",
				Content: "Full text of the first mock article, long enough to distill.",
				Domain:  "example.com",
				Source:  "Mock",
				Rank:    1,
			},
			{
				URL:     "https://test.org/article2",
				Title:   "Test Article 2",
				Snippet: "Another mock search result with different content.",
				Content: "Full text of the second mock article.",
				Domain:  "test.org",
				Source:  "Mock",
				Rank:    2,
			},
		},
	}
}

// GetName returns the name of this provider
func (m *MockProvider) GetName() string {
	return m.name
}

// Search returns the configured mock results
func (m *MockProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	if m.err != nil {
		return nil, m.err
	}

	maxResults := config.MaxResults
	if maxResults <= 0 || maxResults > len(m.results) {
		maxResults = len(m.results)
	}

	results := make([]Result, maxResults)
	copy(results, m.results[:maxResults])
	return results, nil
}

// SetResults allows customization of mock results for testing
func (m *MockProvider) SetResults(results []Result) {
	m.results = results
}

// SetError makes subsequent searches fail with err
func (m *MockProvider) SetError(err error) {
	m.err = err
}
