package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model for drafting and planning.
	DefaultModel = "gemini-2.5-pro"
	// DefaultFlashModel is the cheap model used for small side calls
	// (meta descriptions, image prompts).
	DefaultFlashModel = "gemini-2.5-flash"
)

// Client wraps the Gemini SDK for text generation.
type Client struct {
	apiKey    string
	modelName string
	gClient   *genai.Client
}

// Options contains options for a single generation call.
type Options struct {
	Model           string        // Model to use (optional, defaults to client's model)
	MaxTokens       int32         // Maximum number of tokens to generate
	Temperature     float32       // Temperature for randomness (0.0 to 1.0)
	ResponseSchema  *genai.Schema // Optional: schema for structured JSON output
	SearchGrounding bool          // Enable the Google Search grounding tool
}

// NewClient creates a new LLM client. The API key is read from the
// GEMINI_API_KEY environment variable or the ai.gemini.api_key config key.
func NewClient(modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = viper.GetString("ai.gemini.api_key")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in config")
	}

	if modelName == "" {
		modelName = viper.GetString("ai.gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	ctx := context.Background()
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		apiKey:    apiKey,
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// GenerateText generates text for the given prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string, options Options) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	modelName := c.modelName
	if options.Model != "" {
		modelName = options.Model
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	var config *genai.GenerateContentConfig
	if options.MaxTokens > 0 || options.Temperature > 0 || options.ResponseSchema != nil || options.SearchGrounding {
		config = &genai.GenerateContentConfig{}
		if options.MaxTokens > 0 {
			config.MaxOutputTokens = options.MaxTokens
		}
		if options.Temperature > 0 {
			temp := options.Temperature
			config.Temperature = &temp
		}
		if options.ResponseSchema != nil {
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = options.ResponseSchema
		}
		if options.SearchGrounding {
			config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
		}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}

// GenerateJSON generates text and unmarshals it into v, tolerating markdown
// code fences and attempting a repair pass before failing.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, options Options, v any) error {
	text, err := c.GenerateText(ctx, prompt, options)
	if err != nil {
		return err
	}
	return Unmarshal(text, v)
}

// ModelName returns the model name used by this client.
func (c *Client) ModelName() string {
	return c.modelName
}

// Close cleans up resources used by the client.
func (c *Client) Close() {
	// SDK client does not require explicit close
}
