package client

import (
	"context"
	"fmt"
	"strings"

	"wavepulse/internal/config"
	"wavepulse/internal/logging"
	"wavepulse/internal/ratelimit"
)

// New creates the generator described by cfg. The primary provider comes
// from model.provider; each api.fallbacks entry ("provider" or
// "provider:model") is appended behind it in a FallbackClient. The result is
// paced by api.rate_limit when configured.
func New(ctx context.Context, cfg *config.Config) (Generator, error) {
	gen, err := newChain(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return WithLimiter(gen, ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.API.RateLimit.RequestsPerMinute,
		TokensPerMinute:   cfg.API.RateLimit.TokensPerMinute,
		BurstSize:         cfg.API.RateLimit.BurstSize,
	})), nil
}

func newChain(ctx context.Context, cfg *config.Config) (Generator, error) {
	retry := DefaultRetryConfig()
	if cfg.API.Retry.MaxRetries > 0 {
		retry.MaxRetries = cfg.API.Retry.MaxRetries
	}
	if cfg.API.Retry.RetryDelay > 0 {
		retry.RetryDelay = cfg.API.Retry.RetryDelay
	}

	primary, err := newProvider(ctx, cfg, cfg.Model.Provider, cfg.Model.Name, retry)
	if err != nil {
		return nil, err
	}
	if len(cfg.API.Fallbacks) == 0 {
		return primary, nil
	}

	chain := []Generator{primary}
	for _, spec := range cfg.API.Fallbacks {
		provider, model, _ := strings.Cut(spec, ":")
		g, err := newProvider(ctx, cfg, provider, model, retry)
		if err != nil {
			logging.Warn("skipping fallback provider", "provider", spec, "error", err)
			continue
		}
		chain = append(chain, g)
	}
	if len(chain) == 1 {
		return primary, nil
	}
	return NewFallbackClient(chain)
}

func newProvider(ctx context.Context, cfg *config.Config, provider, model string, retry RetryConfig) (Generator, error) {
	logging.Debug("creating client", "provider", provider, "model", model)
	switch strings.ToLower(provider) {
	case "gemini", "":
		if model == "" {
			model = config.DefaultModel
		}
		return NewGeminiClient(ctx, cfg.API.GeminiKey, model, retry)
	case "ollama":
		if model == "" {
			model = cfg.Model.Name
		}
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.API.OllamaBaseURL,
			APIKey:      cfg.API.OllamaKey,
			Model:       model,
			HTTPTimeout: cfg.API.Retry.HTTPTimeout,
			Retry:       retry,
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}
