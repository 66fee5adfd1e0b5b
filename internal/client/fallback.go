package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"wavepulse/internal/logging"
)

// FallbackClient wraps several generators and tries each in order on
// failure. Only the first generator receives the caller's model name; the
// others use their own configured default.
type FallbackClient struct {
	clients []Generator
	current int
	mu      sync.RWMutex
}

// NewFallbackClient creates a new FallbackClient with the given clients.
// At least one client must be provided.
func NewFallbackClient(clients []Generator) (*FallbackClient, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("fallback client requires at least one client")
	}
	return &FallbackClient{clients: clients}, nil
}

// Name implements Generator.
func (fc *FallbackClient) Name() string {
	names := make([]string, len(fc.clients))
	for i, c := range fc.clients {
		names[i] = c.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

// Current returns the index of the generator that answered last.
func (fc *FallbackClient) Current() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.current
}

// Generate implements Generator.
func (fc *FallbackClient) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	var lastErr error
	for i, c := range fc.clients {
		m := model
		if i > 0 {
			m = ""
		}
		text, err := c.Generate(ctx, m, prompt, opts)
		if err == nil {
			fc.mu.Lock()
			fc.current = i
			fc.mu.Unlock()
			return text, nil
		}
		lastErr = err

		logging.Warn("client failed in Generate",
			"index", i,
			"client", c.Name(),
			"error", err.Error())

		// If context is cancelled, don't try next client
		if ctx.Err() != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("all fallback clients failed, last error: %w", lastErr)
}
