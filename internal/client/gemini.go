package client

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"wavepulse/internal/logging"
)

// GeminiClient generates text with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	retry  RetryConfig
}

// NewGeminiClient creates a Gemini client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey, model string, retry RetryConfig) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	logging.Debug("gemini client created", "model", model)
	return &GeminiClient{client: client, model: model, retry: retry}, nil
}

// Name implements Generator.
func (c *GeminiClient) Name() string { return "gemini:" + c.model }

// Generate implements Generator.
func (c *GeminiClient) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	if model == "" {
		model = c.model
	}
	config := &genai.GenerateContentConfig{
		Temperature: Ptr(opts.Temperature),
		Seed:        opts.Seed,
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if opts.System != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.System, genai.RoleUser)
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}}

	return withRetry(ctx, c.retry, c.Name(), func(ctx context.Context) (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return "", fmt.Errorf("gemini generate: %w", err)
		}
		return ResponseText(resp)
	})
}
