package chat

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wavepulse/internal/router"
)

// MaxTurns is the maximum number of turns kept per session.
const MaxTurns = 40

// Session is the server-side conversation of one channel, used when a
// request arrives without its own history.
type Session struct {
	ID        string
	StartTime time.Time

	mu    sync.RWMutex
	turns []router.Turn
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{ID: id, StartTime: time.Now()}
}

// AddUserMessage appends a user turn.
func (s *Session) AddUserMessage(message string) {
	s.add(router.Turn{Role: "user", Content: message})
}

// AddModelMessage appends an assistant turn.
func (s *Session) AddModelMessage(message string) {
	s.add(router.Turn{Role: "assistant", Content: message})
}

func (s *Session) add(t router.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	if over := len(s.turns) - MaxTurns; over > 0 {
		s.turns = append(s.turns[:0:0], s.turns[over:]...)
	}
}

// History returns a copy of the turns, oldest first.
func (s *Session) History() []router.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]router.Turn(nil), s.turns...)
}

// Clear drops every turn.
func (s *Session) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

var sensitivePatterns = []*regexp.Regexp{
	// API keys: sk-... (OpenAI style)
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
	// API keys: AIza... (Google style)
	regexp.MustCompile(`AIza[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)(?:password|passwd|token|secret|api_key|apikey|api-key|access_key|auth)\s*[=:]\s*["']?([^\s"']{8,})["']?`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9_\-.]+`),
}

// redactSensitiveData scans text and replaces sensitive patterns with [REDACTED].
func redactSensitiveData(text string) string {
	result := text
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// ExportMarkdown exports the conversation as markdown with secrets redacted.
func (s *Session) ExportMarkdown() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session %s\n\n", s.ID)
	fmt.Fprintf(&sb, "**Started:** %s\n\n---\n\n", s.StartTime.Format("2006-01-02 15:04:05"))
	for _, t := range s.turns {
		role := "Assistant"
		if t.Role == "user" {
			role = "User"
		}
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", role, redactSensitiveData(t.Content))
	}
	return sb.String()
}
