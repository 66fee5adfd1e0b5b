package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavepulse/internal/agent"
	"wavepulse/internal/analysis"
	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/discovery"
	"wavepulse/internal/fileedit"
	"wavepulse/internal/fileops"
	"wavepulse/internal/graph"
	"wavepulse/internal/remote"
	"wavepulse/internal/router"
	"wavepulse/internal/snapshot"
	"wavepulse/internal/tools"
	"wavepulse/internal/validate"
)

type inspectorStub struct {
	answer  string
	panics  bool
	queries []router.Query
}

func (s *inspectorStub) Answer(ctx context.Context, q router.Query) string {
	s.queries = append(s.queries, q)
	if s.panics {
		panic("snapshot corrupted")
	}
	return s.answer
}

type codebaseAgent struct{}

func (codebaseAgent) ID() string          { return router.AgentArchitecture }
func (codebaseAgent) Description() string { return "architecture expert" }
func (codebaseAgent) Run(ctx context.Context, task agent.Task) (*agent.AgentResponse, error) {
	return &agent.AgentResponse{Summary: "BaseComponent owns the widget lifecycle."}, nil
}

func newService(t *testing.T, insp UIInspector, sessions snapshot.Store[*Session]) *Service {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.RuntimeRoot = t.TempDir()
	cfg.Paths.CodegenRoot = t.TempDir()

	offline := client.GeneratorFunc(func(ctx context.Context, model, prompt string, opts client.Options) (string, error) {
		return "", errors.New("offline")
	})
	model := client.GeneratorFunc(func(ctx context.Context, model, prompt string, opts client.Options) (string, error) {
		if opts.JSON {
			return `{"action":"final","answer":"Found src/Button.tsx.","subAgents":["architecture-agent"],"basePath":"runtime"}`, nil
		}
		return "synthesized", nil
	})

	ops := remote.NewFileOps(remote.LocalExecutor{})
	reg := agent.NewRegistry(codebaseAgent{})
	g := graph.New(
		router.NewAnalyzer(model, cfg.Model, reg.IDs()),
		discovery.NewEngine(ops, cfg.Discovery, cfg.Paths, nil),
		analysis.NewEngine(ops, cfg.Analysis),
		agent.NewOrchestrator(reg, true),
		validate.NewValidator(ops),
		model,
		cfg.Model,
	)
	files := fileops.New(tools.DefaultRegistry(ops, fileedit.NewVerifier(ops), nil, t.TempDir()), model, cfg.Model, cfg.Paths, 4)
	return NewService(router.NewRouter(offline, cfg.Model, cfg.Router), insp, files, g, sessions, false)
}

type recorder struct{ events []Event }

func (r *recorder) sink(e Event) { r.events = append(r.events, e) }

func (r *recorder) completes() []Event {
	var out []Event
	for _, e := range r.events {
		if e.Type == EventComplete {
			out = append(out, e)
		}
	}
	return out
}

func statuses(steps []agent.ResearchStep) map[string]agent.StepStatus {
	out := map[string]agent.StepStatus{}
	for _, s := range steps {
		out[s.ID] = s.Status
	}
	return out
}

func TestHandleUIState(t *testing.T) {
	insp := &inspectorStub{answer: "The tap navigates to the Details page."}
	svc := newService(t, insp, nil)
	rec := &recorder{}

	reply := svc.Handle(context.Background(), router.Query{Message: "what happens when I tap the button?", ChannelID: "ch"}, rec.sink)
	assert.Equal(t, router.CategoryUIState, reply.Category)
	assert.Equal(t, "The tap navigates to the Details page.", reply.Message)

	st := statuses(reply.ResearchSteps)
	assert.Equal(t, agent.StepCompleted, st[StepRouting])
	assert.Equal(t, agent.StepCompleted, st[StepUIInspection])

	require.Len(t, rec.completes(), 1)
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, EventComplete, last.Type)
	assert.Equal(t, reply.Message, last.Data.Message)
	assert.Greater(t, len(rec.events), 3)
}

func TestHandleFileOps(t *testing.T) {
	svc := newService(t, &inspectorStub{}, nil)
	rec := &recorder{}
	reply := svc.Handle(context.Background(), router.Query{Message: "find files named Button"}, rec.sink)

	assert.Equal(t, router.CategoryFileOps, reply.Category)
	assert.Equal(t, "Found src/Button.tsx.", reply.Message)
	assert.Equal(t, agent.StepCompleted, statuses(reply.ResearchSteps)[StepFileOperations])
	assert.Len(t, rec.completes(), 1)
}

func TestHandleCodebase(t *testing.T) {
	svc := newService(t, &inspectorStub{}, nil)
	rec := &recorder{}
	reply := svc.Handle(context.Background(), router.Query{Message: "How does BaseComponent work?"}, rec.sink)

	assert.Equal(t, router.CategoryCodebase, reply.Category)
	assert.Contains(t, reply.Message, "BaseComponent owns the widget lifecycle.")

	st := statuses(reply.ResearchSteps)
	for _, id := range []string{StepRouting, graph.NodeQueryAnalyzer, graph.NodeFileDiscovery, graph.NodeCodeAnalysis, graph.NodeSubAgentExecution, graph.NodeFinalResponse} {
		assert.Equal(t, agent.StepCompleted, st[id], id)
	}
	for _, s := range reply.ResearchSteps {
		assert.NotEqual(t, agent.StepInProgress, s.Status, s.ID)
	}
	assert.Len(t, rec.completes(), 1)
}

func TestHandleKeepsChannelHistory(t *testing.T) {
	insp := &inspectorStub{answer: "Three errors."}
	sessions := snapshot.NewMemoryStore[*Session]()
	svc := newService(t, insp, sessions)

	svc.Handle(context.Background(), router.Query{Message: "show console errors", ChannelID: "ch"}, nil)
	svc.Handle(context.Background(), router.Query{Message: "and the network requests?", ChannelID: "ch"}, nil)

	require.Len(t, insp.queries, 2)
	assert.Equal(t, []router.Turn{
		{Role: "user", Content: "show console errors"},
		{Role: "assistant", Content: "Three errors."},
	}, insp.queries[1].History)

	sess, ok := svc.Session("ch")
	require.True(t, ok)
	assert.Len(t, sess.History(), 4)
	assert.Contains(t, sess.ExportMarkdown(), "## User\n\nshow console errors")
}

func TestHandleRecoversFromPanics(t *testing.T) {
	svc := newService(t, &inspectorStub{panics: true}, nil)
	rec := &recorder{}
	reply := svc.Handle(context.Background(), router.Query{Message: "what is on screen?"}, rec.sink)

	assert.Contains(t, reply.Message, "Something went wrong")
	assert.Equal(t, agent.StepFailed, statuses(reply.ResearchSteps)[StepUIInspection])
	assert.Len(t, rec.completes(), 1)
}

func TestSessionTrimAndRedact(t *testing.T) {
	s := NewSession("")
	assert.NotEmpty(t, s.ID)
	for i := 0; i < MaxTurns+5; i++ {
		s.AddUserMessage("msg")
	}
	assert.Len(t, s.History(), MaxTurns)

	s.Clear()
	s.AddUserMessage("my key is AIzaSyA1234567890abcdefghijklmn")
	assert.Contains(t, s.ExportMarkdown(), "[REDACTED]")
	assert.NotContains(t, s.ExportMarkdown(), "AIzaSy")
}
