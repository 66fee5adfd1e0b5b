// Package client talks to the language model. Every backend is reduced to a
// single call: prompt text in, response text out.
package client

import (
	"context"
)

// Options controls a single generation.
type Options struct {
	Temperature float32
	Seed        *int32 // nil = provider default (non-deterministic)
	JSON        bool   // ask the provider for a JSON response
	System      string // optional system instruction
}

// Generator is the language-model collaborator.
type Generator interface {
	// Generate returns the model's text for prompt. An empty model selects the
	// generator's configured default.
	Generate(ctx context.Context, model, prompt string, opts Options) (string, error)

	// Name identifies the backend in logs.
	Name() string
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, model, prompt string, opts Options) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	return f(ctx, model, prompt, opts)
}

// Name implements Generator.
func (f GeneratorFunc) Name() string { return "func" }

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
