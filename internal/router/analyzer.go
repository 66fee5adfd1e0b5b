package router

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/keywords"
	"wavepulse/internal/logging"
)

// Domain indicators for the heuristic analysis, keyed by sub-agent.
var (
	styleRegexPatterns        = []string{`styles?`, `theme`, `colou?rs?`, `css`}
	componentRegexPatterns    = []string{`widgets?`, `components?`, `props`, `render(s|ing)?`}
	architectureRegexPatterns = []string{`base`, `lifecycle`, `architecture`, `how does`, `work(s)?`}
	codegenRegexPatterns      = []string{`codegen`, `transpil(e|er|ation)`, `generat(e|es|ed|ion)`, `markup`}

	locateRegexPatterns = []string{`where`, `which files?`, `find`}
)

const analyzerPrompt = `You analyse questions about the WaveMaker React Native runtime and codegen libraries.
Return a JSON object with these fields:
  "intent":    a short label such as "explain", "locate" or "compare"
  "domain":    topical tags, for example ["style", "component"]
  "subAgents": one or more of %s
  "basePath":  "runtime", "codegen" or "both"

Use "codegen" when the question is about transpiling markup or generated code,
"both" when it spans generated code and runtime behaviour, otherwise "runtime".
%s
Question: %s`

type domainRule struct {
	agent    string
	tag      string
	patterns []*regexp.Regexp
}

// Analyzer classifies codebase questions.
type Analyzer struct {
	gen         client.Generator
	model       string
	temperature float32
	seed        *int32
	known       []string
	rules       []domainRule
	locate      []*regexp.Regexp
}

// NewAnalyzer creates an analyzer that may select any of known.
func NewAnalyzer(gen client.Generator, mc config.ModelConfig, known []string) *Analyzer {
	a := &Analyzer{
		gen:         gen,
		model:       mc.RouterModel,
		temperature: mc.RouterTemperature,
		known:       known,
		rules: []domainRule{
			{AgentStyle, "style", compilePatterns(styleRegexPatterns)},
			{AgentComponent, "component", compilePatterns(componentRegexPatterns)},
			{AgentArchitecture, "architecture", compilePatterns(architectureRegexPatterns)},
			{AgentCodegen, "codegen", compilePatterns(codegenRegexPatterns)},
		},
		locate: compilePatterns(locateRegexPatterns),
	}
	if mc.Deterministic {
		a.seed = client.Ptr(mc.Seed)
	}
	return a
}

type analysisResponse struct {
	Intent    string   `json:"intent"`
	Domain    []string `json:"domain"`
	SubAgents []string `json:"subAgents"`
	BasePath  string   `json:"basePath"`
}

// Analyze classifies q. A failed model call is an error; an answer that is
// not the expected JSON is replaced by the keyword heuristic.
func (a *Analyzer) Analyze(ctx context.Context, q Query) (*QueryAnalysis, error) {
	if strings.TrimSpace(q.Message) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if a.gen == nil {
		return a.Heuristic(q.Message), nil
	}

	text, err := a.gen.Generate(ctx, a.model, a.prompt(q), client.Options{
		Temperature: a.temperature,
		Seed:        a.seed,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}

	analysis, err := a.parse(text)
	if err != nil {
		logging.Warn("query analysis unparseable, using keyword heuristic", "error", err)
		return a.Heuristic(q.Message), nil
	}
	logging.Debug("query analysed",
		"intent", analysis.Intent,
		"subAgents", analysis.SubAgents,
		"basePath", analysis.BasePath)
	return analysis, nil
}

func (a *Analyzer) prompt(q Query) string {
	var history strings.Builder
	if n := len(q.History); n > 0 {
		history.WriteString("\nRecent conversation:\n")
		for _, t := range q.History[max(n-4, 0):] {
			fmt.Fprintf(&history, "%s: %s\n", t.Role, t.Content)
		}
	}
	quoted := make([]string, len(a.known))
	for i, id := range a.known {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf(analyzerPrompt, strings.Join(quoted, ", "), history.String(), q.Message)
}

func (a *Analyzer) parse(text string) (*QueryAnalysis, error) {
	text = client.StripCodeFence(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}

	out := &QueryAnalysis{
		Intent:    resp.Intent,
		Domain:    resp.Domain,
		SubAgents: []string{},
		BasePath:  BasePath(strings.ToLower(resp.BasePath)),
	}
	for _, id := range resp.SubAgents {
		if a.isKnown(id) && !contains(out.SubAgents, id) {
			out.SubAgents = append(out.SubAgents, id)
		} else if !a.isKnown(id) {
			logging.Debug("dropping unknown sub-agent", "id", id)
		}
	}
	if out.Domain == nil {
		out.Domain = []string{}
	}
	if out.Intent == "" {
		out.Intent = "explain"
	}
	if !out.BasePath.IsValid() {
		out.BasePath = BaseRuntime
	}
	return out, nil
}

// Heuristic classifies message by keyword membership.
func (a *Analyzer) Heuristic(message string) *QueryAnalysis {
	out := &QueryAnalysis{Intent: "explain", Domain: []string{}, SubAgents: []string{}, BasePath: BaseRuntime}
	if matchesAny(message, a.locate) {
		out.Intent = "locate"
	}

	for _, rule := range a.rules {
		if matchesAny(message, rule.patterns) && a.isKnown(rule.agent) {
			out.SubAgents = append(out.SubAgents, rule.agent)
			out.Domain = append(out.Domain, rule.tag)
		}
	}
	if len(out.SubAgents) == 0 && len(keywords.Extract(message)) > 0 && a.isKnown(AgentArchitecture) {
		out.SubAgents = append(out.SubAgents, AgentArchitecture)
		out.Domain = append(out.Domain, "architecture")
	}

	// Architecture questions are generic; only runtime domains widen a
	// codegen question to both roots.
	if contains(out.SubAgents, AgentCodegen) {
		out.BasePath = BaseCodegen
		if contains(out.SubAgents, AgentStyle) || contains(out.SubAgents, AgentComponent) {
			out.BasePath = BaseBoth
		}
	}
	return out
}

func (a *Analyzer) isKnown(id string) bool {
	return contains(a.known, id)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
