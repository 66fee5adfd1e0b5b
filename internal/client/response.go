package client

import (
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"
)

// ResponseText reduces the shapes a provider may hand back to one string:
// plain text, a text accessor, a candidate list, or a map with a "text" or
// "response" field.
func ResponseText(v any) (string, error) {
	var text string
	switch r := v.(type) {
	case nil:
		return "", ErrEmptyResponse
	case string:
		text = r
	case []byte:
		text = string(r)
	case *genai.GenerateContentResponse:
		text = candidateText(r)
	case api.GenerateResponse:
		text = r.Response
	case *api.GenerateResponse:
		if r != nil {
			text = r.Response
		}
	case interface{ Text() string }:
		text = r.Text()
	case func() string:
		text = r()
	case map[string]any:
		for _, key := range []string{"text", "response", "content"} {
			if s, ok := r[key].(string); ok {
				text = s
				break
			}
		}
	case fmt.Stringer:
		text = r.String()
	default:
		return "", fmt.Errorf("unsupported response type %T", v)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

// StripCodeFence removes a surrounding markdown code fence, which models
// often add around JSON even when asked not to.
func StripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		return ""
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
