package agent

import "fmt"

// StepStatus is the lifecycle state of a research step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// ResearchStep is one visible unit of orchestration progress.
type ResearchStep struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

// Source is a cited file, optionally narrowed to a line range.
type Source struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
}

// String formats the source as path or path:start-end.
func (s Source) String() string {
	switch {
	case s.StartLine > 0 && s.EndLine > s.StartLine:
		return fmt.Sprintf("%s:%d-%d", s.Path, s.StartLine, s.EndLine)
	case s.StartLine > 0:
		return fmt.Sprintf("%s:%d", s.Path, s.StartLine)
	default:
		return s.Path
	}
}

// Section is one titled part of a structured answer.
type Section struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Agent   string   `json:"agent,omitempty"`
	Sources []Source `json:"sources,omitempty"`
}

// CrossReference relates two files.
type CrossReference struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// AgentResponse is the output of a sub-agent or of the orchestrator. Text is
// set for plain answers; the remaining fields make up the structured form.
type AgentResponse struct {
	Text            string           `json:"text,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	Sections        []Section        `json:"sections,omitempty"`
	Insights        []string         `json:"insights,omitempty"`
	Flow            string           `json:"flow,omitempty"`
	Sources         []Source         `json:"sources,omitempty"`
	CrossReferences []CrossReference `json:"crossReferences,omitempty"`
}

// Structured reports whether the response carries the structured form.
func (r *AgentResponse) Structured() bool {
	return r != nil && (r.Summary != "" || len(r.Sections) > 0)
}

// Agents returns the distinct section agent tags in order.
func (r *AgentResponse) Agents() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range r.Sections {
		if s.Agent != "" && !seen[s.Agent] {
			seen[s.Agent] = true
			out = append(out, s.Agent)
		}
	}
	return out
}

// OrchestrationError records a failed pipeline stage.
type OrchestrationError struct {
	Step           string `json:"step"`
	Error          string `json:"error"`
	RecoveryAction string `json:"recoveryAction"`
}
