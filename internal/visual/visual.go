// Package visual generates featured images through a generative-image
// provider. The contract is prompt in, image URLs out; callers use the
// first result.
package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider generates images from a text prompt.
type Provider interface {
	GenerateImage(ctx context.Context, prompt string) ([]string, error)
}

// OpenAIClient handles OpenAI image API interactions.
type OpenAIClient struct {
	apiKey     string
	model      string
	size       string
	httpClient *http.Client
	baseURL    string
}

// NewOpenAIClient creates a new image generation client.
func NewOpenAIClient(apiKey, model, size string) *OpenAIClient {
	if model == "" {
		model = "gpt-image-1"
	}
	if size == "" {
		size = "1536x1024"
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		model:      model,
		size:       size,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    "https://api.openai.com/v1",
	}
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage requests one image for the prompt and returns the result URLs.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) ([]string, error) {
	request := imageRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              1,
		Size:           c.size,
		ResponseFormat: "url",
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/images/generations", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image API error (status %d): %s", resp.StatusCode, string(body))
	}

	var imageResp imageResponse
	if err := json.Unmarshal(body, &imageResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var urls []string
	for _, item := range imageResp.Data {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("image API returned no usable results")
	}

	return urls, nil
}

// Download fetches image bytes from a provider URL.
func (c *OpenAIClient) Download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	return data, contentType, nil
}

// MockProvider returns fixed URLs for testing.
type MockProvider struct {
	URLs []string
	Err  error
}

// GenerateImage returns the configured URLs or error.
func (m *MockProvider) GenerateImage(ctx context.Context, prompt string) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.URLs, nil
}
