package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a token bucket refilled continuously at a fixed rate.
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket holding at most maxTokens and gaining
// refillRate tokens per second.
func NewTokenBucket(maxTokens, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (b *TokenBucket) refill() {
	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now
}

// take consumes n tokens if available, otherwise returns how long to wait.
func (b *TokenBucket) take(n float64) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= n {
		b.tokens -= n
		return 0, true
	}
	if b.refillRate <= 0 {
		return time.Second, false
	}
	wait := time.Duration((n - b.tokens) / b.refillRate * float64(time.Second))
	return max(wait, 10*time.Millisecond), false
}

// TryConsume consumes n tokens without waiting.
func (b *TokenBucket) TryConsume(n float64) bool {
	_, ok := b.take(n)
	return ok
}

// Wait blocks until n tokens were consumed or ctx is done. Requests larger
// than the bucket are clamped to its capacity.
func (b *TokenBucket) Wait(ctx context.Context, n float64) error {
	n = min(n, b.maxTokens)
	for {
		wait, ok := b.take(n)
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the tokens currently in the bucket.
func (b *TokenBucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens
}

// Return puts n tokens back, for requests that failed before using them.
func (b *TokenBucket) Return(n float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = min(b.tokens+n, b.maxTokens)
}
