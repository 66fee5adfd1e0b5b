// Package validate checks a synthesized answer before it is shown: cited
// sources must exist, code must look sane, the answer must cover the question
// and cite something when it is long.
package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"wavepulse/internal/agent"
	"wavepulse/internal/keywords"
	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue types.
const (
	IssueMissingSource = "missing-source"
	IssueLineRange     = "line-range"
	IssueCodeSnippet   = "code-snippet"
	IssueIncomplete    = "incomplete"
	IssueBrevity       = "brevity"
	IssueConsistency   = "consistency"
)

const (
	minResponseLength     = 100
	uncitedResponseLength = 500
)

// Issue is one finding of a check.
type Issue struct {
	Type     string         `json:"type"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

// Result is the outcome of Validate.
type Result struct {
	Valid      bool    `json:"valid"`
	Issues     []Issue `json:"issues"`
	Confidence float64 `json:"confidence"`
}

// Warnings returns the warning-severity issues.
func (r *Result) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// Validator runs the checks.
type Validator struct {
	ops *remote.FileOps
}

// NewValidator creates a validator that reads sources through ops.
func NewValidator(ops *remote.FileOps) *Validator {
	return &Validator{ops: ops}
}

// Validate checks resp against query. The four checks are independent and
// their issues are concatenated.
func (v *Validator) Validate(ctx context.Context, resp *agent.AgentResponse, query string) *Result {
	text := ResponseText(resp)
	sources := resp.AllSources()

	var issues []Issue
	issues = append(issues, v.checkSources(ctx, sources)...)
	issues = append(issues, CheckCode(text)...)
	issues = append(issues, CheckCompleteness(text, query)...)
	issues = append(issues, CheckConsistency(text, len(sources))...)

	r := Score(issues)
	logging.Debug("response validated", "valid", r.Valid, "issues", len(r.Issues), "confidence", r.Confidence)
	return r
}

// Score derives validity and confidence from issues.
func Score(issues []Issue) *Result {
	errs, warns := 0, 0
	for _, i := range issues {
		switch i.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}
	conf := 1.0 - 0.2*float64(errs) - 0.05*float64(warns)
	conf = max(0, min(1, conf))
	if issues == nil {
		issues = []Issue{}
	}
	return &Result{Valid: errs == 0, Issues: issues, Confidence: conf}
}

func (v *Validator) checkSources(ctx context.Context, sources []agent.Source) []Issue {
	var issues []Issue
	for _, src := range sources {
		n, err := v.ops.LineCount(ctx, src.Path, "")
		if err != nil {
			issues = append(issues, Issue{
				Type:     IssueMissingSource,
				Severity: SeverityError,
				Message:  fmt.Sprintf("cited source %s cannot be read", src.Path),
				Context:  map[string]any{"path": src.Path, "error": err.Error()},
			})
			continue
		}
		last := max(src.StartLine, src.EndLine)
		if last > n {
			issues = append(issues, Issue{
				Type:     IssueLineRange,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("cited range %s exceeds the file's %d lines", src, n),
				Context:  map[string]any{"path": src.Path, "lines": n},
			})
		}
	}
	return issues
}

var (
	fencedBlock  = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	undefinedTok = regexp.MustCompile(`\bundefined\b`)
)

// CheckCode flags fenced code blocks using the literal "undefined" outside a
// comment.
func CheckCode(text string) []Issue {
	var issues []Issue
	for i, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		code := blockComment.ReplaceAllString(m[1], "")
		for _, line := range strings.Split(code, "\n") {
			if j := strings.Index(line, "//"); j >= 0 {
				line = line[:j]
			}
			if undefinedTok.MatchString(line) {
				issues = append(issues, Issue{
					Type:     IssueCodeSnippet,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("code block %d references undefined", i+1),
					Context:  map[string]any{"line": strings.TrimSpace(line)},
				})
				break
			}
		}
	}
	return issues
}

// CheckCompleteness reports query keywords missing from text and answers that
// are too short to be useful.
func CheckCompleteness(text, query string) []Issue {
	var issues []Issue
	var missing []string
	for _, kw := range keywords.Extract(query) {
		if !keywords.ContainsFold(text, kw) {
			missing = append(missing, kw)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, Issue{
			Type:     IssueIncomplete,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("response does not mention: %s", strings.Join(missing, ", ")),
			Context:  map[string]any{"keywords": missing},
		})
	}
	if len(strings.TrimSpace(text)) < minResponseLength {
		issues = append(issues, Issue{
			Type:     IssueBrevity,
			Severity: SeverityWarning,
			Message:  "response is very short",
		})
	}
	return issues
}

// CheckConsistency flags long answers that cite no source.
func CheckConsistency(text string, sources int) []Issue {
	if len(text) > uncitedResponseLength && sources == 0 {
		return []Issue{{
			Type:     IssueConsistency,
			Severity: SeverityWarning,
			Message:  "detailed response cites no source files",
		}}
	}
	return nil
}

// ResponseText flattens a response into the prose the checks inspect.
func ResponseText(resp *agent.AgentResponse) string {
	if resp == nil {
		return ""
	}
	if !resp.Structured() {
		return resp.Text
	}
	var parts []string
	if resp.Summary != "" {
		parts = append(parts, resp.Summary)
	}
	for _, s := range resp.Sections {
		parts = append(parts, s.Title, s.Content)
	}
	parts = append(parts, resp.Insights...)
	if resp.Flow != "" {
		parts = append(parts, resp.Flow)
	}
	return strings.Join(parts, "\n")
}
