package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"wavepulse/internal/logging"
)

// OllamaConfig holds configuration for the Ollama API client.
type OllamaConfig struct {
	BaseURL     string        // Default: "http://localhost:11434"
	APIKey      string        // Optional, for remote Ollama servers with auth
	Model       string        // e.g., "llama3.2", "qwen2.5-coder"
	HTTPTimeout time.Duration // HTTP request timeout (default: 120s)
	Retry       RetryConfig
}

// OllamaClient generates text with a local or remote Ollama server.
type OllamaClient struct {
	client *api.Client
	config OllamaConfig
}

// authTransport adds Authorization header to HTTP requests.
type authTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqClone := req.Clone(req.Context())
	reqClone.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(reqClone)
}

// NewOllamaClient creates a new Ollama API client.
func NewOllamaClient(config OllamaConfig) (*OllamaClient, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 120 * time.Second
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	// Warn if using unencrypted HTTP to a non-localhost host
	if baseURL.Scheme == "http" {
		host := baseURL.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			logging.Warn("Ollama connection uses unencrypted HTTP to remote host", "host", host)
		}
	}

	httpClient := &http.Client{Timeout: config.HTTPTimeout}
	if config.APIKey != "" {
		httpClient.Transport = &authTransport{base: http.DefaultTransport, apiKey: config.APIKey}
	}

	return &OllamaClient{
		client: api.NewClient(baseURL, httpClient),
		config: config,
	}, nil
}

// Name implements Generator.
func (c *OllamaClient) Name() string { return "ollama:" + c.config.Model }

// Generate implements Generator.
func (c *OllamaClient) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	if model == "" {
		model = c.config.Model
	}
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: opts.System,
		Stream: Ptr(false),
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
		},
	}
	if opts.Seed != nil {
		req.Options["seed"] = *opts.Seed
	}
	if opts.JSON {
		req.Format = json.RawMessage(`"json"`)
	}

	return withRetry(ctx, c.config.Retry, c.Name(), func(ctx context.Context) (string, error) {
		var b strings.Builder
		err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
			b.WriteString(resp.Response)
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("ollama generate: %w", fromOllama(err))
		}
		return ResponseText(b.String())
	})
}
