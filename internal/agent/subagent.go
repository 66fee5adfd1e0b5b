package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"wavepulse/internal/analysis"
	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/discovery"
	"wavepulse/internal/router"
)

// Task is the input handed to every sub-agent of one query.
type Task struct {
	Query    router.Query
	Analysis *router.QueryAnalysis
	Files    []discovery.FileMatch
	Code     *analysis.CodeAnalysis
}

// SubAgent answers one facet of a codebase question.
type SubAgent interface {
	ID() string
	Description() string
	Run(ctx context.Context, task Task) (*AgentResponse, error)
}

// LLMSubAgent is a sub-agent driven by a focus prompt.
type LLMSubAgent struct {
	id          string
	description string
	focus       string
	gen         client.Generator
	model       string
	temperature float32
}

// NewLLMSubAgent creates a prompt-driven sub-agent.
func NewLLMSubAgent(id, description, focus string, gen client.Generator, mc config.ModelConfig) *LLMSubAgent {
	return &LLMSubAgent{
		id:          id,
		description: description,
		focus:       focus,
		gen:         gen,
		model:       mc.Name,
		temperature: mc.Temperature,
	}
}

// ID implements SubAgent.
func (a *LLMSubAgent) ID() string { return a.id }

// Description implements SubAgent.
func (a *LLMSubAgent) Description() string { return a.description }

// Run implements SubAgent.
func (a *LLMSubAgent) Run(ctx context.Context, task Task) (*AgentResponse, error) {
	text, err := a.gen.Generate(ctx, a.model, a.prompt(task), client.Options{
		Temperature: a.temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.id, err)
	}
	return ParseResponse(text, a.id), nil
}

const subAgentPrompt = `You are the %s of a team explaining the WaveMaker React Native libraries.
%s

Answer the question using only the files and facts below. Respond with JSON:
{"summary": "...", "sections": [{"title": "...", "content": "...", "sources": [{"path": "...", "startLine": 1, "endLine": 9}]}],
 "insights": ["..."], "flow": "optional ASCII diagram", "sources": [{"path": "..."}],
 "crossReferences": [{"from": "...", "to": "...", "type": "extends|imports|uses", "description": "..."}]}

Question: %s
`

func (a *LLMSubAgent) prompt(task Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, subAgentPrompt, a.id, a.focus, task.Query.Message)

	if len(task.Files) > 0 {
		b.WriteString("\nCandidate files:\n")
		for _, f := range task.Files {
			fmt.Fprintf(&b, "- %s (%s, %.2f) %s\n", f.Path, f.MatchType, f.Confidence, f.Context)
		}
	}
	if task.Code.Empty() {
		return b.String()
	}

	b.WriteString("\nStructure:\n")
	for _, fa := range task.Code.Files {
		fmt.Fprintf(&b, "## %s (%d lines)\n", fa.Path, fa.Lines)
		for _, c := range fa.Classes {
			if c.Extends != "" {
				fmt.Fprintf(&b, "class %s extends %s\n", c.Name, c.Extends)
			} else {
				fmt.Fprintf(&b, "class %s\n", c.Name)
			}
		}
		if len(fa.Interfaces) > 0 {
			fmt.Fprintf(&b, "interfaces: %s\n", strings.Join(fa.Interfaces, ", "))
		}
		if len(fa.Functions) > 0 {
			fmt.Fprintf(&b, "functions: %s\n", strings.Join(fa.Functions, ", "))
		}
		if len(fa.Imports) > 0 {
			fmt.Fprintf(&b, "imports: %s\n", strings.Join(fa.Imports, ", "))
		}
		for _, s := range fa.Snippets {
			fmt.Fprintf(&b, "```\n// lines %d-%d\n%s\n```\n", s.StartLine, s.EndLine, s.Content)
		}
	}
	if len(task.Code.Insights) > 0 {
		b.WriteString("\nObservations:\n")
		for _, in := range task.Code.Insights {
			fmt.Fprintf(&b, "- %s\n", in)
		}
	}
	return b.String()
}

// ParseResponse decodes a structured answer. Text that is not the expected
// JSON becomes a single section tagged with agentID.
func ParseResponse(text, agentID string) *AgentResponse {
	body := client.StripCodeFence(text)
	var resp AgentResponse
	if err := json.Unmarshal([]byte(body), &resp); err == nil && resp.Structured() {
		for i := range resp.Sections {
			if resp.Sections[i].Agent == "" {
				resp.Sections[i].Agent = agentID
			}
		}
		return &resp
	}
	return &AgentResponse{
		Text:     text,
		Sections: []Section{{Title: agentID, Content: strings.TrimSpace(text), Agent: agentID}},
	}
}

// Registry holds the sub-agents the analyzer may select.
type Registry struct {
	agents map[string]SubAgent
}

// NewRegistry creates a registry of agents.
func NewRegistry(agents ...SubAgent) *Registry {
	r := &Registry{agents: make(map[string]SubAgent, len(agents))}
	for _, a := range agents {
		r.agents[a.ID()] = a
	}
	return r
}

// Get returns the sub-agent with id.
func (r *Registry) Get(id string) (SubAgent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry registers the four built-in sub-agents.
func DefaultRegistry(gen client.Generator, mc config.ModelConfig) *Registry {
	return NewRegistry(
		NewLLMSubAgent(router.AgentStyle, "style definition expert",
			"Focus on style definitions: theme files, default styles, class names and how styles are merged and overridden.", gen, mc),
		NewLLMSubAgent(router.AgentComponent, "component expert",
			"Focus on widget components: their props, state, render output and event handlers.", gen, mc),
		NewLLMSubAgent(router.AgentArchitecture, "architecture expert",
			"Focus on base classes, lifecycle, injection and how the pieces of the runtime fit together.", gen, mc),
		NewLLMSubAgent(router.AgentCodegen, "code generation expert",
			"Focus on how markup is transpiled into React Native code and which generated files the runtime consumes.", gen, mc),
	)
}
