// Package ratelimit paces calls to the language model so bursts of sub-agent
// and tool-loop requests stay within provider quotas.
package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Limiter bounds requests per minute and estimated prompt tokens per minute.
// A nil Limiter allows everything.
type Limiter struct {
	requests *TokenBucket
	tokens   *TokenBucket

	totalRequests   atomic.Int64
	waitedRequests  atomic.Int64
	returnedRequest atomic.Int64
}

// Config holds limiter settings. RequestsPerMinute <= 0 disables limiting.
type Config struct {
	RequestsPerMinute int
	TokensPerMinute   int64
	BurstSize         int
}

// NewLimiter creates a limiter, or nil when cfg disables limiting.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	burst := float64(max(cfg.BurstSize, 1))
	l := &Limiter{
		requests: NewTokenBucket(burst, float64(cfg.RequestsPerMinute)/60.0),
	}
	if cfg.TokensPerMinute > 0 {
		// 10% of the per-minute budget may be spent at once.
		l.tokens = NewTokenBucket(float64(cfg.TokensPerMinute)/10.0, float64(cfg.TokensPerMinute)/60.0)
	}
	return l
}

// Acquire waits for a request slot and for estimatedTokens of token budget.
func (l *Limiter) Acquire(ctx context.Context, estimatedTokens int64) error {
	if l == nil {
		return nil
	}
	l.totalRequests.Add(1)
	if !l.requests.TryConsume(1) {
		l.waitedRequests.Add(1)
		if err := l.requests.Wait(ctx, 1); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	if l.tokens != nil && estimatedTokens > 0 {
		if err := l.tokens.Wait(ctx, float64(estimatedTokens)); err != nil {
			l.requests.Return(1)
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	return nil
}

// Release gives back the budget of a request that failed without reaching
// the provider.
func (l *Limiter) Release(estimatedTokens int64) {
	if l == nil {
		return
	}
	l.returnedRequest.Add(1)
	l.requests.Return(1)
	if l.tokens != nil && estimatedTokens > 0 {
		l.tokens.Return(float64(estimatedTokens))
	}
}

// Stats reports limiter counters.
type Stats struct {
	TotalRequests    int64
	WaitedRequests   int64
	ReturnedRequests int64
}

// Stats returns a snapshot of the counters.
func (l *Limiter) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	return Stats{
		TotalRequests:    l.totalRequests.Load(),
		WaitedRequests:   l.waitedRequests.Load(),
		ReturnedRequests: l.returnedRequest.Load(),
	}
}

// EstimateTokens approximates the token count of text (about 4 bytes per token).
func EstimateTokens(text string) int64 {
	return int64(len(text)/4 + 1)
}
