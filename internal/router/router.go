// Package router classifies chat turns. Router picks the destination of a
// turn; Analyzer breaks a codebase question into sub-agents and a base path.
package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/logging"
)

// Keyword indicators used when the model is unavailable or unclear.
var uiStateRegexPatterns = []string{
	`what happens when`,
	`when i (tap|click|press)`,
	`tap(ped)?`,
	`click(ed)?`,
	`press(ed)?`,
	`state`,
	`current(ly)? (value|props|styles)`,
	`console`,
	`logs?`,
	`network`,
	`requests?`,
	`component tree`,
	`widget tree`,
	`storage`,
	`timeline`,
	`inspect`,
	`evaluate`,
	`on (the )?screen`,
	`rendered`,
	`visible`,
}

var codebaseRegexPatterns = []string{
	`how (does|do|is|are)`,
	`why (does|do|is|are)`,
	`explain`,
	`architecture`,
	`lifecycle`,
	`base ?component`,
	`implement(ed|ation)?`,
	`under the hood`,
	`design pattern`,
	`codegen`,
	`transpil(e|er|ation)`,
	`runtime`,
}

const routerPrompt = `Classify the user's message into exactly one category.

Categories:
%s
Answer with the category name only.

Message: %s`

var categoryDescriptions = map[Category]string{
	CategoryUIState:  "- ui-state: questions about the running app right now (what happens when I tap X, current widget props or styles, console logs, network calls, storage, component tree)",
	CategoryFileOps:  "- file-ops: reading, finding, creating or editing project files (find files named Button, change the caption in Main.html, add a style)",
	CategoryCodebase: "- codebase: explaining how the runtime or codegen libraries work (how does BaseComponent work, why are styles merged this way)",
}

// Router is the one-shot classifier for the top-level chat turn. It never
// fails: model errors and unclear answers fall back to keyword heuristics.
type Router struct {
	gen             client.Generator
	model           string
	temperature     float32
	seed            int32
	includeCodebase atomic.Bool
	uiState         []*regexp.Regexp
	codebase        []*regexp.Regexp
}

// NewRouter creates a router. gen may be nil, in which case only the
// heuristic is used.
func NewRouter(gen client.Generator, mc config.ModelConfig, rc config.RouterConfig) *Router {
	r := &Router{
		gen:         gen,
		model:       mc.RouterModel,
		temperature: mc.RouterTemperature,
		seed:        mc.Seed,
		uiState:     compilePatterns(uiStateRegexPatterns),
		codebase:    compilePatterns(codebaseRegexPatterns),
	}
	r.includeCodebase.Store(rc.IncludeCodebase)
	return r
}

// SetIncludeCodebase switches between the 3-way and the 2-way variant.
func (r *Router) SetIncludeCodebase(v bool) {
	r.includeCodebase.Store(v)
}

// Categories returns the categories this router may return, in priority order.
func (r *Router) Categories() []Category {
	if r.includeCodebase.Load() {
		return []Category{CategoryUIState, CategoryCodebase, CategoryFileOps}
	}
	return []Category{CategoryUIState, CategoryFileOps}
}

// Route classifies message. deterministic pins the configured seed.
func (r *Router) Route(ctx context.Context, message string, deterministic bool) Category {
	if r.gen == nil {
		return r.Heuristic(message)
	}

	opts := client.Options{Temperature: r.temperature}
	if deterministic {
		opts.Seed = client.Ptr(r.seed)
	}
	text, err := r.gen.Generate(ctx, r.model, r.prompt(message), opts)
	if err != nil {
		logging.Warn("router model call failed, using keyword heuristic", "error", err)
		return r.Heuristic(message)
	}
	if c, ok := r.Parse(text); ok {
		logging.Debug("routed by model", "category", c)
		return c
	}
	logging.Debug("router answer had no category, using keyword heuristic", "answer", text)
	return r.Heuristic(message)
}

func (r *Router) prompt(message string) string {
	var b strings.Builder
	for _, c := range r.Categories() {
		b.WriteString(categoryDescriptions[c])
		b.WriteByte('\n')
	}
	return fmt.Sprintf(routerPrompt, b.String(), message)
}

// Parse finds the first known category token in a model answer, checking
// categories in priority order.
func (r *Router) Parse(answer string) (Category, bool) {
	lower := strings.ToLower(answer)
	for _, c := range r.Categories() {
		if strings.Contains(lower, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Heuristic routes by keyword membership: UI-state indicators first, then
// codebase indicators, otherwise file operations.
func (r *Router) Heuristic(message string) Category {
	if matchesAny(message, r.uiState) {
		return CategoryUIState
	}
	if r.includeCodebase.Load() && matchesAny(message, r.codebase) {
		return CategoryCodebase
	}
	return CategoryFileOps
}
