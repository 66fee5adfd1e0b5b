package client

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"wavepulse/internal/config"
	"wavepulse/internal/ratelimit"
)

type textAccessor struct{ s string }

func (t textAccessor) Text() string { return t.s }

func TestResponseText(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", "hello"},
		{"accessor", textAccessor{"from accessor"}, "from accessor"},
		{"callable", func() string { return "called" }, "called"},
		{"map", map[string]any{"text": "mapped"}, "mapped"},
		{"ollama", api.GenerateResponse{Response: "llama says"}, "llama says"},
		{"candidates", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "thinking", Thought: true}, {Text: "answer"}}}},
		}}, "answer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResponseText(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ResponseText(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = ResponseText("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = ResponseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = ResponseText(42)
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("  {\"a\":1} "))
	assert.Equal(t, "", StripCodeFence("```"))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(&APIError{StatusCode: 429, Message: "slow down"}))
	assert.True(t, IsRetryableError(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryableError(&APIError{StatusCode: 400, Message: "bad request"}))
	assert.True(t, IsRetryableError(errors.New("Error 503: UNAVAILABLE")))
	assert.True(t, IsRetryableError(errors.New("unexpected EOF")))
	assert.False(t, IsRetryableError(errors.New("invalid argument")))
}

func TestFromOllama(t *testing.T) {
	err := fromOllama(api.StatusError{StatusCode: 503, ErrorMessage: "loading model"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.StatusCode)
	assert.Equal(t, "loading model", apiErr.Message)
	assert.True(t, IsRetryableError(err))

	plain := errors.New("boom")
	assert.Same(t, plain, fromOllama(plain))
}

func TestCalculateBackoff(t *testing.T) {
	for attempt := 0; attempt < 6; attempt++ {
		d := CalculateBackoff(100*time.Millisecond, attempt, time.Second)
		base := min(100*time.Millisecond*time.Duration(1<<attempt), time.Second)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/4)
	}
}

func TestWithRetry(t *testing.T) {
	rc := RetryConfig{MaxRetries: 3, RetryDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	text, err := withRetry(context.Background(), rc, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &APIError{StatusCode: 503}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = withRetry(context.Background(), rc, "test", func(ctx context.Context) (string, error) {
		calls++
		return "", &APIError{StatusCode: 400}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	_, err = withRetry(context.Background(), rc, "test", func(ctx context.Context) (string, error) {
		calls++
		return "", &APIError{StatusCode: 429}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 4, calls)
}

func TestFallbackClient(t *testing.T) {
	var models []string
	failing := GeneratorFunc(func(ctx context.Context, model, prompt string, opts Options) (string, error) {
		models = append(models, model)
		return "", errors.New("quota exceeded")
	})
	working := GeneratorFunc(func(ctx context.Context, model, prompt string, opts Options) (string, error) {
		models = append(models, model)
		return "answer to " + prompt, nil
	})

	fc, err := NewFallbackClient([]Generator{failing, working})
	require.NoError(t, err)

	text, err := fc.Generate(context.Background(), "gemini-2.5-flash", "q", Options{})
	require.NoError(t, err)
	assert.Equal(t, "answer to q", text)
	assert.Equal(t, []string{"gemini-2.5-flash", ""}, models)
	assert.Equal(t, 1, fc.Current())
	assert.True(t, strings.HasPrefix(fc.Name(), "fallback("))

	all, _ := NewFallbackClient([]Generator{failing, failing})
	_, err = all.Generate(context.Background(), "", "q", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all fallback clients failed")

	_, err = NewFallbackClient(nil)
	assert.Error(t, err)
}

func TestFallbackStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	g := GeneratorFunc(func(ctx context.Context, model, prompt string, opts Options) (string, error) {
		calls++
		cancel()
		return "", ctx.Err()
	})
	fc, _ := NewFallbackClient([]Generator{g, g})
	_, err := fc.Generate(ctx, "", "q", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewOllamaFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Provider = "ollama"
	cfg.Model.Name = "qwen2.5-coder"

	g, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "ollama:qwen2.5-coder", g.Name())

	cfg.Model.Provider = "nope"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewSkipsBrokenFallbacks(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Provider = "ollama"
	cfg.Model.Name = "llama3.2"
	cfg.API.Fallbacks = []string{"gemini", "ollama:qwen2.5-coder"}

	g, err := New(context.Background(), cfg)
	require.NoError(t, err)
	fc, ok := g.(*FallbackClient)
	require.True(t, ok)
	assert.Equal(t, "fallback(ollama:llama3.2,ollama:qwen2.5-coder)", fc.Name())
}

func TestNewWrapsRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Provider = "ollama"
	cfg.Model.Name = "llama3.2"
	cfg.API.RateLimit.RequestsPerMinute = 30

	g, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "limited(ollama:llama3.2)", g.Name())
}

func TestLimitedGeneratorStopsOnCancelledContext(t *testing.T) {
	var calls int
	inner := GeneratorFunc(func(ctx context.Context, model, prompt string, opts Options) (string, error) {
		calls++
		return "ok", nil
	})
	g := WithLimiter(inner, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1, BurstSize: 1}))

	text, err := g.Generate(context.Background(), "", "q", Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, "", "q", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)

	assert.Equal(t, Generator(inner).Name(), WithLimiter(inner, nil).Name())
}
