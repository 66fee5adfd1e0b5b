package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavepulse/internal/agent"
	"wavepulse/internal/analysis"
	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/discovery"
	"wavepulse/internal/remote"
	"wavepulse/internal/router"
	"wavepulse/internal/validate"
)

type stubAgent struct {
	id   string
	resp *agent.AgentResponse
	err  error
}

func (s stubAgent) ID() string          { return s.id }
func (s stubAgent) Description() string { return s.id }
func (s stubAgent) Run(ctx context.Context, task agent.Task) (*agent.AgentResponse, error) {
	return s.resp, s.err
}

// modelFunc answers JSON requests (query analysis) with analysisJSON and
// everything else (synthesis) with prose.
func modelFunc(analysisJSON, prose string, proseErr error) client.Generator {
	return client.GeneratorFunc(func(ctx context.Context, model, prompt string, opts client.Options) (string, error) {
		if opts.JSON {
			return analysisJSON, nil
		}
		return prose, proseErr
	})
}

func newGraph(t *testing.T, exec remote.Executor, gen client.Generator, agents ...agent.SubAgent) *Graph {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.RuntimeRoot = t.TempDir()
	cfg.Paths.CodegenRoot = t.TempDir()
	ops := remote.NewFileOps(exec)
	reg := agent.NewRegistry(agents...)
	return New(
		router.NewAnalyzer(gen, cfg.Model, reg.IDs()),
		discovery.NewEngine(ops, cfg.Discovery, cfg.Paths, nil),
		analysis.NewEngine(ops, cfg.Analysis),
		agent.NewOrchestrator(reg, true),
		validate.NewValidator(ops),
		gen,
		cfg.Model,
	)
}

func stepStatuses(s *State) map[string]agent.StepStatus {
	out := map[string]agent.StepStatus{}
	for _, st := range s.Steps.Steps() {
		out[st.ID] = st.Status
	}
	return out
}

func assertNoStepInProgress(t *testing.T, s *State) {
	t.Helper()
	for _, st := range s.Steps.Steps() {
		assert.NotEqual(t, agent.StepInProgress, st.Status, st.ID)
	}
}

var architectureAnswer = &agent.AgentResponse{
	Summary:  "BaseComponent is the root of every widget.",
	Sections: []agent.Section{{Title: "Lifecycle", Content: "It wires mount and unmount hooks.", Agent: router.AgentArchitecture}},
	Insights: []string{"All widgets extend BaseComponent"},
}

func TestRunWithEmptyDiscovery(t *testing.T) {
	gen := modelFunc(`{"intent":"explain","domain":["architecture"],"subAgents":["architecture-agent"],"basePath":"runtime"}`, "", nil)
	g := newGraph(t, remote.LocalExecutor{}, gen, stubAgent{id: router.AgentArchitecture, resp: architectureAnswer})

	var mu sync.Mutex
	var events int
	s := g.Run(context.Background(), router.Query{Message: "How does BaseComponent work?"}, func(steps []agent.ResearchStep) {
		mu.Lock()
		events++
		mu.Unlock()
	})

	assert.Empty(t, s.Files)
	assert.True(t, s.Code.Empty())
	assert.NotEmpty(t, s.Answer)
	assert.Contains(t, s.Answer, "## Summary")
	assert.NotContains(t, s.Answer, "### Notes")
	assert.Empty(t, s.Errors)

	statuses := stepStatuses(s)
	for _, id := range []string{NodeQueryAnalyzer, NodeFileDiscovery, NodeCodeAnalysis, NodeSubAgentExecution, NodeResponseValidation, NodeFinalResponse} {
		assert.Equal(t, agent.StepCompleted, statuses[id], id)
	}
	assert.Equal(t, agent.StepCompleted, statuses["sub-agent:architecture-agent"])
	assertNoStepInProgress(t, s)
	assert.Greater(t, events, 12)
}

func TestRunDegradesWhenEveryLookupFails(t *testing.T) {
	down := remote.ExecutorFunc(func(ctx context.Context, command, workDir string) (string, error) {
		return "", errors.New("connection refused")
	})
	gen := modelFunc(`{"subAgents":["architecture-agent"],"basePath":"both"}`, "", nil)
	g := newGraph(t, down, gen, stubAgent{id: router.AgentArchitecture, resp: architectureAnswer})

	s := g.Run(context.Background(), router.Query{Message: "How does BaseComponent work?"}, nil)
	require.NotNil(t, s.Code)
	assert.Empty(t, s.Files)
	assert.NotEmpty(t, s.Answer)
	assert.Equal(t, agent.StepCompleted, stepStatuses(s)[NodeFinalResponse])
	assertNoStepInProgress(t, s)
}

func TestRunWithoutSubAgentsAsksForClarification(t *testing.T) {
	gen := modelFunc(`{"intent":"chat","subAgents":[],"basePath":"runtime"}`, "", nil)
	g := newGraph(t, remote.LocalExecutor{}, gen, stubAgent{id: router.AgentArchitecture, resp: architectureAnswer})

	s := g.Run(context.Background(), router.Query{Message: "hello there"}, nil)
	assert.True(t, strings.HasPrefix(s.Answer, ClarificationMessage))
	assert.Nil(t, s.Response)

	var failed []string
	for _, e := range s.Errors {
		failed = append(failed, e.Step)
	}
	assert.Equal(t, []string{NodeFileDiscovery, NodeSubAgentExecution, NodeResponseValidation}, failed)
	assert.Equal(t, "Continue with empty file list", s.Errors[0].RecoveryAction)

	statuses := stepStatuses(s)
	assert.Equal(t, agent.StepFailed, statuses[NodeSubAgentExecution])
	assert.Equal(t, agent.StepCompleted, statuses[NodeCodeAnalysis])
	assert.Equal(t, agent.StepCompleted, statuses[NodeFinalResponse])
	assertNoStepInProgress(t, s)
}

func TestRunAnalyzerFailure(t *testing.T) {
	gen := client.GeneratorFunc(func(ctx context.Context, model, prompt string, opts client.Options) (string, error) {
		return "", errors.New("deadline exceeded")
	})
	g := newGraph(t, remote.LocalExecutor{}, gen, stubAgent{id: router.AgentArchitecture, resp: architectureAnswer})

	s := g.Run(context.Background(), router.Query{Message: "How does BaseComponent work?"}, nil)
	require.NotEmpty(t, s.Errors)
	assert.Equal(t, NodeQueryAnalyzer, s.Errors[0].Step)
	assert.Equal(t, "Retry with parser fallback", s.Errors[0].RecoveryAction)
	assert.Contains(t, s.Answer, "query-analyzer: query analysis")
	assert.Equal(t, agent.StepFailed, stepStatuses(s)[NodeQueryAnalyzer])
	assertNoStepInProgress(t, s)
}

func TestRunAllSubAgentsFail(t *testing.T) {
	gen := modelFunc(`{"subAgents":["style-agent"],"basePath":"runtime"}`, "", nil)
	g := newGraph(t, remote.LocalExecutor{}, gen, stubAgent{id: router.AgentStyle, err: errors.New("model down")})

	s := g.Run(context.Background(), router.Query{Message: "button styles"}, nil)
	assert.True(t, strings.HasPrefix(s.Answer, ClarificationMessage))
	statuses := stepStatuses(s)
	assert.Equal(t, agent.StepFailed, statuses["sub-agent:style-agent"])
	assert.Equal(t, agent.StepFailed, statuses[NodeSubAgentExecution])
}

func TestRunSynthesizesMultipleAgents(t *testing.T) {
	style := &agent.AgentResponse{Summary: "Styles", Sections: []agent.Section{{Title: "Styles", Content: "Themes merge defaults.", Agent: router.AgentStyle}}}
	comp := &agent.AgentResponse{Summary: "Component", Sections: []agent.Section{{Title: "Button", Content: "WmButton reads styles.", Agent: router.AgentComponent}}}
	agents := []agent.SubAgent{
		stubAgent{id: router.AgentStyle, resp: style},
		stubAgent{id: router.AgentComponent, resp: comp},
	}
	analysisJSON := `{"subAgents":["style-agent","component-agent"],"basePath":"runtime"}`

	g := newGraph(t, remote.LocalExecutor{}, modelFunc(analysisJSON, "One coherent story about button styles.", nil), agents...)
	s := g.Run(context.Background(), router.Query{Message: "How are button styles applied?"}, nil)
	assert.True(t, strings.HasPrefix(s.Answer, "One coherent story about button styles."))
	assert.Contains(t, s.Answer, "response does not mention: applied")
	assert.Empty(t, s.Errors)

	g = newGraph(t, remote.LocalExecutor{}, modelFunc(analysisJSON, "", errors.New("quota")), agents...)
	s = g.Run(context.Background(), router.Query{Message: "How are button styles applied?"}, nil)
	assert.Contains(t, s.Answer, "### Styles")
	assert.Contains(t, s.Answer, "### Button")
	require.Len(t, s.Errors, 1)
	assert.Equal(t, NodeFinalResponse, s.Errors[0].Step)
	assert.Equal(t, "Fall back to template formatting", s.Errors[0].RecoveryAction)
	assert.Equal(t, agent.StepCompleted, stepStatuses(s)[NodeFinalResponse])
}

func TestFormat(t *testing.T) {
	resp := &agent.AgentResponse{
		Summary:  "Summary text",
		Sections: []agent.Section{{Title: "One", Content: "first"}},
		Insights: []string{"insight"},
		Flow:     "A -> B",
		Sources:  []agent.Source{{Path: "/rt/a.tsx", StartLine: 3, EndLine: 9}},
		CrossReferences: []agent.CrossReference{
			{From: "/rt/a.tsx", To: "/rt/b.tsx", Type: "extends", Description: "A extends B"},
		},
	}
	out := Format(resp, []validate.Issue{{Severity: validate.SeverityWarning, Message: "response is very short"}})

	want := "## Summary\n\nSummary text\n" +
		"\n### One\n\nfirst\n" +
		"\n### Key Insights\n\n- insight\n" +
		"\n### Flow\n\n```\nA -> B\n```\n" +
		"\n### Source Files\n\n- `/rt/a.tsx:3-9`\n" +
		"\n### Related Files\n\n- `/rt/a.tsx` → `/rt/b.tsx` (extends): A extends B\n" +
		"\n\n### Notes\n\n- response is very short\n"
	assert.Equal(t, want, out)

	assert.Equal(t, "plain", Format(&agent.AgentResponse{Text: " plain "}, nil))
	assert.NotContains(t, Format(resp, nil), "Notes")
}
