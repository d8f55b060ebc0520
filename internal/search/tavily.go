package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blogforge/internal/logger"
)

// TavilyProvider implements Provider using the Tavily search API, which can
// return full page content alongside snippets.
type TavilyProvider struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewTavilyProvider creates a new Tavily search provider
func NewTavilyProvider(apiKey string) *TavilyProvider {
	return &TavilyProvider{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: "https://api.tavily.com",
	}
}

// GetName returns the name of this provider
func (t *TavilyProvider) GetName() string {
	return "Tavily"
}

// Search performs a search using the Tavily API
func (t *TavilyProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	request := map[string]any{
		"api_key":     t.apiKey,
		"query":       query,
		"max_results": config.MaxResults,
	}
	if config.IncludeContent {
		request["include_raw_content"] = true
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/search", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create Tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Tavily request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Tavily request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Results []struct {
			Title      string `json:"title"`
			URL        string `json:"url"`
			Content    string `json:"content"`
			RawContent string `json:"raw_content"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Tavily response: %w", err)
	}

	var results []Result
	for i, item := range apiResponse.Results {
		content := item.RawContent
		if content == "" {
			content = item.Content
		}
		results = append(results, Result{
			URL:     item.URL,
			Title:   item.Title,
			Snippet: item.Content,
			Content: content,
			Domain:  extractDomain(item.URL),
			Source:  "Tavily",
			Rank:    i + 1,
		})
	}

	logger.Info("Tavily search completed", "query", query, "results_found", len(results))

	return results, nil
}

// extractDomain extracts the domain name from a URL
func extractDomain(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	domain := parsed.Hostname()
	if strings.HasPrefix(domain, "www.") {
		domain = domain[4:]
	}

	return domain
}
