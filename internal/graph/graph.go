// Package graph runs the codebase question pipeline: query analysis, file
// discovery, code analysis, sub-agent execution, validation and the final
// answer. A failing node is recorded and the next node runs with whatever
// input is left.
package graph

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"wavepulse/internal/agent"
	"wavepulse/internal/analysis"
	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/discovery"
	"wavepulse/internal/logging"
	"wavepulse/internal/router"
	"wavepulse/internal/validate"
)

// Node ids, in execution order.
const (
	NodeQueryAnalyzer      = "query-analyzer"
	NodeFileDiscovery      = "file-discovery"
	NodeCodeAnalysis       = "code-analysis"
	NodeSubAgentExecution  = "sub-agent-execution"
	NodeResponseValidation = "response-validation"
	NodeFinalResponse      = "final-response"
)

// ClarificationMessage is the answer when no sub-agent produced a response.
const ClarificationMessage = "I couldn't work out which part of the runtime or codegen libraries your question is about. " +
	"Could you rephrase it, or name the component, style or file you are interested in?"

var (
	errNoAnalysis  = errors.New("no query analysis available")
	errNoSubAgents = errors.New("no sub-agents selected for this query")
	errNoResponse  = errors.New("no aggregated response to validate")
)

// State is owned by one query's execution and only ever grows.
type State struct {
	Query      router.Query
	Analysis   *router.QueryAnalysis
	Files      []discovery.FileMatch
	Code       *analysis.CodeAnalysis
	Response   *agent.AgentResponse
	Validation *validate.Result
	Errors     []agent.OrchestrationError
	Steps      *agent.StepTracker
	Answer     string
}

// Graph wires the pipeline components.
type Graph struct {
	analyzer     *router.Analyzer
	discovery    *discovery.Engine
	analysis     *analysis.Engine
	orchestrator *agent.Orchestrator
	validator    *validate.Validator
	gen          client.Generator
	model        string
	temperature  float32
}

// New creates a graph.
func New(
	analyzer *router.Analyzer,
	disc *discovery.Engine,
	code *analysis.Engine,
	orchestrator *agent.Orchestrator,
	validator *validate.Validator,
	gen client.Generator,
	mc config.ModelConfig,
) *Graph {
	return &Graph{
		analyzer:     analyzer,
		discovery:    disc,
		analysis:     code,
		orchestrator: orchestrator,
		validator:    validator,
		gen:          gen,
		model:        mc.Name,
		temperature:  mc.Temperature,
	}
}

type node struct {
	id          string
	description string
	recovery    string
	run         func(ctx context.Context, s *State) (string, error)
}

func (g *Graph) nodes() []node {
	return []node{
		{NodeQueryAnalyzer, "Analyzing the question", "Retry with parser fallback", g.analyzeQuery},
		{NodeFileDiscovery, "Discovering relevant files", "Continue with empty file list", g.discoverFiles},
		{NodeCodeAnalysis, "Analyzing code structure", "Continue without code analysis", g.analyzeCode},
		{NodeSubAgentExecution, "Consulting specialist agents", "Return partial response", g.executeSubAgents},
		{NodeResponseValidation, "Validating the answer", "Skip validation", g.validateResponse},
		{NodeFinalResponse, "Composing the final answer", "Return clarification message", g.finalResponse},
	}
}

// Run executes every node in order and always returns a state with a
// non-empty Answer. onStep receives the step list after every transition.
func (g *Graph) Run(ctx context.Context, q router.Query, onStep agent.ProgressCallback) *State {
	s := &State{
		Query: q,
		Files: []discovery.FileMatch{},
		Steps: agent.NewStepTracker(onStep),
	}
	for _, n := range g.nodes() {
		g.runNode(ctx, s, n)
	}
	if strings.TrimSpace(s.Answer) == "" {
		s.Answer = clarification(s.Errors)
	}
	s.Steps.FailInProgress()
	logging.Info("codebase query finished",
		"files", len(s.Files),
		"errors", len(s.Errors),
		"answered", s.Response != nil)
	return s
}

func (g *Graph) runNode(ctx context.Context, s *State, n node) {
	s.Steps.Start(n.id, n.description)
	logging.Debug("graph node started", "node", n.id)

	done, err := safeRun(ctx, s, n)
	if err != nil {
		logging.Warn("graph node failed", "node", n.id, "error", err)
		s.Errors = append(s.Errors, agent.OrchestrationError{
			Step:           n.id,
			Error:          err.Error(),
			RecoveryAction: n.recovery,
		})
		s.Steps.Fail(n.id)
		return
	}
	s.Steps.Update(n.id, done, agent.StepCompleted)
}

func safeRun(ctx context.Context, s *State, n node) (done string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("graph node panicked", "node", n.id, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s panicked: %v", n.id, r)
		}
	}()
	return n.run(ctx, s)
}

func (g *Graph) analyzeQuery(ctx context.Context, s *State) (string, error) {
	a, err := g.analyzer.Analyze(ctx, s.Query)
	if err != nil {
		return "", err
	}
	s.Analysis = a
	if len(a.SubAgents) == 0 {
		return "No specialist matched the question", nil
	}
	return fmt.Sprintf("Selected %s on %s", strings.Join(a.SubAgents, ", "), a.BasePath), nil
}

func (g *Graph) discoverFiles(ctx context.Context, s *State) (string, error) {
	if s.Analysis == nil {
		return "", errNoAnalysis
	}
	if len(s.Analysis.SubAgents) == 0 {
		return "", errNoSubAgents
	}
	s.Files = g.discovery.Discover(ctx, s.Query.Message, s.Analysis.Domain, string(s.Analysis.BasePath))
	return fmt.Sprintf("Found %d relevant files", len(s.Files)), nil
}

func (g *Graph) analyzeCode(ctx context.Context, s *State) (string, error) {
	s.Code = g.analysis.Analyze(ctx, discovery.Paths(s.Files), s.Query.Message)
	return fmt.Sprintf("Analyzed %d files", len(s.Code.Files)), nil
}

func (g *Graph) executeSubAgents(ctx context.Context, s *State) (string, error) {
	if s.Analysis == nil {
		return "", errNoAnalysis
	}
	if len(s.Analysis.SubAgents) == 0 {
		return "", errNoSubAgents
	}
	task := agent.Task{Query: s.Query, Analysis: s.Analysis, Files: s.Files, Code: s.Code}
	res, err := g.orchestrator.Execute(ctx, task, s.Analysis.SubAgents, s.Steps.Merge)
	if res != nil {
		s.Steps.Merge(res.Steps)
	}
	if err != nil {
		return "", err
	}
	s.Response = res.Response
	if len(res.Failed) > 0 {
		s.Errors = append(s.Errors, agent.OrchestrationError{
			Step:           NodeSubAgentExecution,
			Error:          fmt.Sprintf("sub-agents failed: %s", strings.Join(res.Failed, ", ")),
			RecoveryAction: "Return partial response",
		})
	}
	return fmt.Sprintf("%d of %d agents answered", len(s.Analysis.SubAgents)-len(res.Failed), len(s.Analysis.SubAgents)), nil
}

func (g *Graph) validateResponse(ctx context.Context, s *State) (string, error) {
	if s.Response == nil {
		return "", errNoResponse
	}
	s.Validation = g.validator.Validate(ctx, s.Response, s.Query.Message)
	return fmt.Sprintf("Confidence %.2f, %d issues", s.Validation.Confidence, len(s.Validation.Issues)), nil
}

func (g *Graph) finalResponse(ctx context.Context, s *State) (string, error) {
	if s.Response == nil {
		s.Answer = clarification(s.Errors)
		return "Asked for clarification", nil
	}

	var warnings []validate.Issue
	if s.Validation != nil {
		warnings = s.Validation.Warnings()
	}

	if len(s.Response.Agents()) > 1 && strings.TrimSpace(s.Query.Message) != "" {
		text, err := g.synthesize(ctx, s.Query.Message, s.Response)
		if err == nil {
			s.Answer = text + notes(warnings)
			return "Synthesized answers from " + strings.Join(s.Response.Agents(), ", "), nil
		}
		logging.Warn("synthesis failed, using template", "error", err)
		s.Errors = append(s.Errors, agent.OrchestrationError{
			Step:           NodeFinalResponse,
			Error:          err.Error(),
			RecoveryAction: "Fall back to template formatting",
		})
	}
	s.Answer = Format(s.Response, warnings)
	return "Formatted answer", nil
}

func clarification(errs []agent.OrchestrationError) string {
	if len(errs) == 0 {
		return ClarificationMessage
	}
	var b strings.Builder
	b.WriteString(ClarificationMessage)
	b.WriteString("\n\nWhat went wrong:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", e.Step, e.Error, e.RecoveryAction)
	}
	return b.String()
}
