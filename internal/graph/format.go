package graph

import (
	"context"
	"fmt"
	"strings"

	"wavepulse/internal/agent"
	"wavepulse/internal/client"
	"wavepulse/internal/validate"
)

// Format renders a response as markdown: summary, one heading per section,
// key insights, an optional flow diagram, source files, related files and,
// when validation raised warnings, a notes section.
func Format(resp *agent.AgentResponse, warnings []validate.Issue) string {
	if !resp.Structured() {
		return strings.TrimSpace(resp.Text) + notes(warnings)
	}

	var b strings.Builder
	if resp.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n", strings.TrimSpace(resp.Summary))
	}
	for _, s := range resp.Sections {
		fmt.Fprintf(&b, "\n### %s\n\n%s\n", s.Title, strings.TrimSpace(s.Content))
	}
	if len(resp.Insights) > 0 {
		b.WriteString("\n### Key Insights\n\n")
		for _, in := range resp.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	if strings.TrimSpace(resp.Flow) != "" {
		fmt.Fprintf(&b, "\n### Flow\n\n```\n%s\n```\n", strings.Trim(resp.Flow, "\n"))
	}
	if sources := resp.AllSources(); len(sources) > 0 {
		b.WriteString("\n### Source Files\n\n")
		for _, s := range sources {
			fmt.Fprintf(&b, "- `%s`\n", s)
		}
	}
	if len(resp.CrossReferences) > 0 {
		b.WriteString("\n### Related Files\n\n")
		for _, x := range resp.CrossReferences {
			fmt.Fprintf(&b, "- `%s` → `%s` (%s): %s\n", x.From, x.To, x.Type, x.Description)
		}
	}
	return strings.TrimLeft(b.String(), "\n") + notes(warnings)
}

func notes(warnings []validate.Issue) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n### Notes\n\n")
	for _, w := range warnings {
		fmt.Fprintf(&b, "- %s\n", w.Message)
	}
	return b.String()
}

const synthesisPrompt = `Several specialists answered parts of the same question about the WaveMaker React Native libraries.
Write one coherent answer in markdown. Reconcile the parts where they overlap or disagree instead of
listing them one after another, keep concrete file and class names, and cite the source files that support
each point.

Question: %s

%s
Cited sources:
%s`

func (g *Graph) synthesize(ctx context.Context, query string, resp *agent.AgentResponse) (string, error) {
	var parts strings.Builder
	for _, s := range resp.Sections {
		fmt.Fprintf(&parts, "[%s] %s\n%s\n\n", s.Agent, s.Title, strings.TrimSpace(s.Content))
	}
	var sources []string
	for _, s := range resp.AllSources() {
		sources = append(sources, "- "+s.String())
	}
	if len(sources) == 0 {
		sources = append(sources, "(none)")
	}

	prompt := fmt.Sprintf(synthesisPrompt, query, parts.String(), strings.Join(sources, "\n"))
	text, err := g.gen.Generate(ctx, g.model, prompt, client.Options{Temperature: g.temperature})
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	return strings.TrimSpace(text), nil
}
