// Package analysis extracts lightweight structural facts and relevant
// snippets from discovered source files.
package analysis

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"wavepulse/internal/config"
	"wavepulse/internal/keywords"
	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
)

// FileAnalysis is the structural summary of one file.
type FileAnalysis struct {
	Path          string         `json:"path"`
	Size          int            `json:"size"`
	Lines         int            `json:"lines"`
	Classes       []Class        `json:"classes,omitempty"`
	Interfaces    []string       `json:"interfaces,omitempty"`
	Functions     []string       `json:"functions,omitempty"`
	Imports       []string       `json:"imports,omitempty"`
	Exports       []string       `json:"exports,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Patterns      []string       `json:"patterns,omitempty"`
	Snippets      []Snippet      `json:"snippets,omitempty"`
}

// CodeAnalysis aggregates the per-file results of one query.
type CodeAnalysis struct {
	Files         []FileAnalysis `json:"files"`
	Relationships []Relationship `json:"relationships"`
	Patterns      []string       `json:"patterns"`
	Insights      []string       `json:"insights"`
}

// Empty reports whether no file was analysed.
func (c *CodeAnalysis) Empty() bool {
	return c == nil || len(c.Files) == 0
}

// Engine reads files through remote.FileOps and analyses them.
type Engine struct {
	ops *remote.FileOps
	cfg config.AnalysisConfig
}

// NewEngine creates an analysis engine.
func NewEngine(ops *remote.FileOps, cfg config.AnalysisConfig) *Engine {
	return &Engine{ops: ops, cfg: cfg}
}

// Analyze analyses the first MaxFiles of files in order. Unreadable files are
// skipped with a warning; an empty batch yields an empty analysis.
func (e *Engine) Analyze(ctx context.Context, files []string, query string) *CodeAnalysis {
	if e.cfg.MaxFiles > 0 && len(files) > e.cfg.MaxFiles {
		files = files[:e.cfg.MaxFiles]
	}
	kws := keywords.Extract(query)

	result := &CodeAnalysis{Files: []FileAnalysis{}, Relationships: []Relationship{}, Patterns: []string{}}
	for _, f := range files {
		text, err := e.ops.ReadFile(ctx, f, "")
		if err != nil {
			logging.Warn("skipping unreadable file", "path", f, "error", err)
			continue
		}
		result.Files = append(result.Files, AnalyzeText(f, text, kws, e.cfg.MaxSnippets))
	}

	for _, fa := range result.Files {
		result.Relationships = append(result.Relationships, fa.Relationships...)
		for _, p := range fa.Patterns {
			result.Patterns = appendUnique(result.Patterns, p)
		}
	}
	result.Insights = Insights(query, result)
	logging.Debug("code analysis finished", "files", len(result.Files), "relationships", len(result.Relationships))
	return result
}

// AnalyzeText analyses the contents of one file.
func AnalyzeText(file, text string, kws []string, maxSnippets int) FileAnalysis {
	classes := ExtractClasses(text)
	return FileAnalysis{
		Path:          file,
		Size:          len(text),
		Lines:         lineCount(text),
		Classes:       classes,
		Interfaces:    ExtractInterfaces(text),
		Functions:     ExtractFunctions(text),
		Imports:       ExtractImports(text),
		Exports:       ExtractExports(text),
		Relationships: ExtractRelationships(file, classes),
		Patterns:      DetectPatterns(text),
		Snippets:      RelevantSnippets(text, kws, maxSnippets),
	}
}

var (
	howQuery = regexp.MustCompile(`(?i)\bhow\b`)
	whyQuery = regexp.MustCompile(`(?i)\bwhy\b`)
)

// Insights summarises an analysis for the sub-agents. "how" questions get
// counts of files and relationships, "why" questions get pattern counts, and
// structural observations are added whenever they apply.
func Insights(query string, a *CodeAnalysis) []string {
	insights := []string{}
	if howQuery.MatchString(query) {
		insights = append(insights, fmt.Sprintf("Found %d relevant files with %d relationships", len(a.Files), len(a.Relationships)))
	}
	if whyQuery.MatchString(query) {
		insights = append(insights, fmt.Sprintf("Detected %d design patterns", len(a.Patterns)))
	}

	subclasses := map[string][]string{}
	for _, r := range a.Relationships {
		if r.Type == "extends" {
			subclasses[r.Target] = append(subclasses[r.Target], r.Source)
		}
	}
	bases := make([]string, 0, len(subclasses))
	for base := range subclasses {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	for _, base := range bases {
		subs := subclasses[base]
		if len(subs) > 1 {
			insights = append(insights, fmt.Sprintf("%d classes extend a common base %s: %s", len(subs), base, strings.Join(subs, ", ")))
		} else {
			insights = append(insights, fmt.Sprintf("%s extends %s", subs[0], base))
		}
	}

	for _, p := range a.Patterns {
		var where []string
		for _, fa := range a.Files {
			for _, fp := range fa.Patterns {
				if fp == p {
					where = append(where, path.Base(fa.Path))
				}
			}
		}
		insights = append(insights, fmt.Sprintf("%s pattern used in %s", p, strings.Join(where, ", ")))
	}
	return insights
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
