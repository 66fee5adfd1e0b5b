package client

import (
	"context"

	"wavepulse/internal/ratelimit"
)

// LimitedGenerator paces calls to an inner generator.
type LimitedGenerator struct {
	inner   Generator
	limiter *ratelimit.Limiter
}

// WithLimiter wraps gen so every call first acquires limiter budget. A nil
// limiter returns gen unchanged.
func WithLimiter(gen Generator, limiter *ratelimit.Limiter) Generator {
	if limiter == nil {
		return gen
	}
	return &LimitedGenerator{inner: gen, limiter: limiter}
}

// Generate implements Generator.
func (g *LimitedGenerator) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	estimate := ratelimit.EstimateTokens(opts.System + prompt)
	if err := g.limiter.Acquire(ctx, estimate); err != nil {
		return "", err
	}
	text, err := g.inner.Generate(ctx, model, prompt, opts)
	if err != nil && ctx.Err() != nil {
		g.limiter.Release(estimate)
	}
	return text, err
}

// Name implements Generator.
func (g *LimitedGenerator) Name() string {
	return "limited(" + g.inner.Name() + ")"
}
