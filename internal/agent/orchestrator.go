// Package agent runs the sub-agents selected for a codebase question and
// merges their answers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wavepulse/internal/logging"
)

// ErrNoSubAgents is returned when no sub-agent was selected or registered.
var ErrNoSubAgents = errors.New("no sub-agents selected")

// Orchestrator fans a task out to sub-agents.
type Orchestrator struct {
	registry *Registry
	parallel bool
}

// NewOrchestrator creates an orchestrator over registry.
func NewOrchestrator(registry *Registry, parallel bool) *Orchestrator {
	return &Orchestrator{registry: registry, parallel: parallel}
}

// Result is the outcome of one orchestration.
type Result struct {
	Response *AgentResponse
	Steps    []ResearchStep
	Failed   []string // ids of sub-agents that failed
}

type agentOutcome struct {
	resp     *AgentResponse
	err      error
	duration time.Duration
}

// Execute runs every sub-agent in ids and merges their answers in the order
// of ids. Each sub-agent is tracked as step "sub-agent:<id>"; onStep receives
// the orchestrator's own step list after every transition. Execute fails only
// when no sub-agent produced an answer.
func (o *Orchestrator) Execute(ctx context.Context, task Task, ids []string, onStep ProgressCallback) (*Result, error) {
	tracker := NewStepTracker(onStep)
	var agents []SubAgent
	for _, id := range ids {
		a, ok := o.registry.Get(id)
		if !ok {
			logging.Warn("unknown sub-agent", "id", id)
			continue
		}
		agents = append(agents, a)
		tracker.Update(StepID(id), fmt.Sprintf("Waiting for %s", a.Description()), StepPending)
	}
	if len(agents) == 0 {
		return &Result{Steps: tracker.Steps()}, ErrNoSubAgents
	}

	outcomes := make([]agentOutcome, len(agents))
	run := func(i int) {
		a := agents[i]
		tracker.Start(StepID(a.ID()), fmt.Sprintf("Consulting %s", a.Description()))
		start := time.Now()
		resp, err := runSafely(ctx, a, task)
		if err == nil && resp == nil {
			err = fmt.Errorf("%s returned no answer", a.ID())
		}
		outcomes[i] = agentOutcome{resp: resp, err: err, duration: time.Since(start)}
		if err != nil {
			logging.Warn("sub-agent failed", "id", a.ID(), "error", err)
			tracker.Fail(StepID(a.ID()))
			return
		}
		logging.Debug("sub-agent finished", "id", a.ID(), "duration", outcomes[i].duration)
		tracker.Complete(StepID(a.ID()))
	}

	if o.parallel && len(agents) > 1 {
		var wg sync.WaitGroup
		for i := range agents {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range agents {
			run(i)
		}
	}

	result := &Result{}
	var answered []*AgentResponse
	var answeredIDs []string
	var lastErr error
	for i, out := range outcomes {
		if out.err != nil {
			result.Failed = append(result.Failed, agents[i].ID())
			lastErr = out.err
			continue
		}
		answered = append(answered, out.resp)
		answeredIDs = append(answeredIDs, agents[i].ID())
	}
	result.Steps = tracker.Steps()
	if len(answered) == 0 {
		return result, fmt.Errorf("all sub-agents failed, last error: %w", lastErr)
	}
	result.Response = Merge(answered, answeredIDs)
	return result, nil
}

func runSafely(ctx context.Context, a SubAgent, task Task) (resp *AgentResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", a.ID(), r)
		}
	}()
	return a.Run(ctx, task)
}

// StepID is the research step id of a sub-agent.
func StepID(agentID string) string {
	return "sub-agent:" + agentID
}

// Merge combines sub-agent answers in order. A single answer is returned as
// is; several answers are folded into one structured response whose sections
// keep their agent tags.
func Merge(responses []*AgentResponse, ids []string) *AgentResponse {
	if len(responses) == 1 {
		return responses[0]
	}

	merged := &AgentResponse{}
	var summaries []string
	seenInsight := map[string]bool{}
	seenSource := map[Source]bool{}
	for i, r := range responses {
		id := ids[i]
		if r.Summary != "" {
			summaries = append(summaries, r.Summary)
		}
		for _, s := range r.Sections {
			if s.Agent == "" {
				s.Agent = id
			}
			merged.Sections = append(merged.Sections, s)
		}
		if !r.Structured() && r.Text != "" {
			merged.Sections = append(merged.Sections, Section{Title: id, Content: r.Text, Agent: id})
		}
		for _, in := range r.Insights {
			if !seenInsight[in] {
				seenInsight[in] = true
				merged.Insights = append(merged.Insights, in)
			}
		}
		if merged.Flow == "" {
			merged.Flow = r.Flow
		}
		for _, src := range r.Sources {
			if !seenSource[src] {
				seenSource[src] = true
				merged.Sources = append(merged.Sources, src)
			}
		}
		merged.CrossReferences = append(merged.CrossReferences, r.CrossReferences...)
	}
	merged.Summary = strings.Join(summaries, " ")
	return merged
}

// AllSources returns the distinct cited paths of r, including section sources.
func (r *AgentResponse) AllSources() []Source {
	if r == nil {
		return nil
	}
	var out []Source
	seen := map[Source]bool{}
	add := func(s Source) {
		if s.Path != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range r.Sources {
		add(s)
	}
	for _, sec := range r.Sections {
		for _, s := range sec.Sources {
			add(s)
		}
	}
	return out
}
