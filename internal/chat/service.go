// Package chat runs one chat turn: route the message, hand it to the UI-state
// inspector, the file-operations agent or the codebase graph, and report
// progress as step events followed by exactly one complete event.
package chat

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"wavepulse/internal/agent"
	"wavepulse/internal/fileops"
	"wavepulse/internal/graph"
	"wavepulse/internal/inspect"
	"wavepulse/internal/logging"
	"wavepulse/internal/router"
	"wavepulse/internal/snapshot"
)

// Step ids of the non-codebase paths.
const (
	StepRouting        = "routing"
	StepUIInspection   = "ui-state-inspection"
	StepFileOperations = "file-operations"
)

// EventType distinguishes progress events.
type EventType string

const (
	EventStep     EventType = "step"
	EventComplete EventType = "complete"
)

// EventData is the payload of an event.
type EventData struct {
	Message       string                     `json:"message,omitempty"`
	ResearchSteps []agent.ResearchStep       `json:"researchSteps"`
	Category      router.Category            `json:"category,omitempty"`
	Errors        []agent.OrchestrationError `json:"errors,omitempty"`
}

// Event is sent to a Sink.
type Event struct {
	Type EventType `json:"type"`
	Data EventData `json:"data"`
}

// Sink receives events. It may be called from several goroutines, never
// concurrently.
type Sink func(Event)

// Reply is the final answer of a turn.
type Reply struct {
	Message       string                     `json:"message"`
	ResearchSteps []agent.ResearchStep       `json:"researchSteps"`
	Category      router.Category            `json:"category"`
	Errors        []agent.OrchestrationError `json:"errors,omitempty"`
}

// UIInspector answers UI-state questions.
type UIInspector interface {
	Answer(ctx context.Context, q router.Query) string
}

var _ UIInspector = (*inspect.Inspector)(nil)

// Service handles chat turns.
type Service struct {
	router        *router.Router
	inspector     UIInspector
	files         *fileops.Agent
	graph         *graph.Graph
	sessions      snapshot.Store[*Session]
	deterministic bool
}

// NewService creates a chat service. sessions may be nil.
func NewService(r *router.Router, inspector UIInspector, files *fileops.Agent, g *graph.Graph, sessions snapshot.Store[*Session], deterministic bool) *Service {
	return &Service{
		router:        r,
		inspector:     inspector,
		files:         files,
		graph:         g,
		sessions:      sessions,
		deterministic: deterministic,
	}
}

// Handle answers q. Every path ends with a message; sink gets a step event per
// step transition and one complete event.
func (s *Service) Handle(ctx context.Context, q router.Query, sink Sink) (reply *Reply) {
	var sinkMu sync.Mutex
	emit := func(e Event) {
		if sink == nil {
			return
		}
		sinkMu.Lock()
		defer sinkMu.Unlock()
		sink(e)
	}
	steps := agent.NewStepTracker(func(list []agent.ResearchStep) {
		emit(Event{Type: EventStep, Data: EventData{ResearchSteps: list}})
	})

	session := s.session(q.ChannelID)
	if len(q.History) == 0 && session != nil {
		q.History = session.History()
	}

	reply = &Reply{}
	defer func() {
		if r := recover(); r != nil {
			logging.Error("chat turn panicked", "panic", r, "stack", string(debug.Stack()))
			reply.Message = "Something went wrong while answering. Please try again."
		}
		if strings.TrimSpace(reply.Message) == "" {
			reply.Message = graph.ClarificationMessage
		}
		steps.FailInProgress()
		reply.ResearchSteps = steps.Steps()
		if session != nil {
			session.AddUserMessage(q.Message)
			session.AddModelMessage(reply.Message)
		}
		emit(Event{Type: EventComplete, Data: EventData{
			Message:       reply.Message,
			ResearchSteps: reply.ResearchSteps,
			Category:      reply.Category,
			Errors:        reply.Errors,
		}})
	}()

	steps.Start(StepRouting, "Working out what kind of question this is")
	reply.Category = s.router.Route(ctx, q.Message, s.deterministic)
	steps.Update(StepRouting, "Routed to "+strings.ToLower(reply.Category.GetDescription()), agent.StepCompleted)
	logging.Info("chat turn routed", "channel", q.ChannelID, "category", reply.Category)

	switch reply.Category {
	case router.CategoryUIState:
		steps.Start(StepUIInspection, "Inspecting the live app state")
		reply.Message = s.inspector.Answer(ctx, q)
		steps.Complete(StepUIInspection)

	case router.CategoryFileOps:
		steps.Start(StepFileOperations, "Working on files")
		res := s.files.Run(ctx, q, func(c fileops.Call) {
			desc := fmt.Sprintf("Ran %s", c.Tool)
			if !c.Result.Success {
				desc = fmt.Sprintf("%s failed, adjusting", c.Tool)
			}
			steps.Update(StepFileOperations, desc, agent.StepInProgress)
		})
		reply.Message = res.Answer
		if res.Exhausted {
			steps.Fail(StepFileOperations)
		} else {
			steps.Update(StepFileOperations, fmt.Sprintf("Done after %d tool calls", len(res.Calls)), agent.StepCompleted)
		}

	default:
		state := s.graph.Run(ctx, q, steps.Merge)
		steps.Merge(state.Steps.Steps())
		reply.Message = state.Answer
		reply.Errors = state.Errors
	}
	return reply
}

func (s *Service) session(channelID string) *Session {
	if s.sessions == nil || channelID == "" {
		return nil
	}
	if sess, ok := s.sessions.Get(channelID); ok {
		return sess
	}
	sess := NewSession(channelID)
	s.sessions.Set(channelID, sess)
	return sess
}

// Session returns the stored session of channelID, if any.
func (s *Service) Session(channelID string) (*Session, bool) {
	if s.sessions == nil {
		return nil, false
	}
	return s.sessions.Get(channelID)
}
