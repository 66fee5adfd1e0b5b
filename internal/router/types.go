package router

import "regexp"

// Category is the top-level destination of a chat turn.
type Category string

const (
	CategoryUIState  Category = "ui-state"
	CategoryFileOps  Category = "file-ops"
	CategoryCodebase Category = "codebase"
)

// String returns string representation
func (c Category) String() string {
	return string(c)
}

// GetDescription returns a human-readable description
func (c Category) GetDescription() string {
	switch c {
	case CategoryUIState:
		return "Live UI state inspection"
	case CategoryFileOps:
		return "File operations"
	case CategoryCodebase:
		return "Codebase explanation"
	default:
		return "Unknown category"
	}
}

// IsValid checks if the category is known
func (c Category) IsValid() bool {
	switch c {
	case CategoryUIState, CategoryFileOps, CategoryCodebase:
		return true
	default:
		return false
	}
}

// BasePath selects the library root file operations target.
type BasePath string

const (
	BaseRuntime BasePath = "runtime"
	BaseCodegen BasePath = "codegen"
	BaseBoth    BasePath = "both"
)

// IsValid checks if the base path is known
func (b BasePath) IsValid() bool {
	return b == BaseRuntime || b == BaseCodegen || b == BaseBoth
}

// Sub-agent identifiers the analyzer may select.
const (
	AgentStyle        = "style-agent"
	AgentComponent    = "component-agent"
	AgentArchitecture = "architecture-agent"
	AgentCodegen      = "codegen-agent"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Query is the immutable input of one chat turn.
type Query struct {
	Message   string `json:"message"`
	ChannelID string `json:"channelId,omitempty"`
	History   []Turn `json:"history,omitempty"`
}

// QueryAnalysis is the classification of a codebase query.
type QueryAnalysis struct {
	Intent    string   `json:"intent"`
	Domain    []string `json:"domain"`
	SubAgents []string `json:"subAgents"`
	BasePath  BasePath `json:"basePath"`
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)\b`+p+`\b`))
	}
	return out
}

func matchesAny(message string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}
