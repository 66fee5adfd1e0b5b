// Package fileops is the file-operations agent: the model drives the file
// tools through a JSON action loop until it gives a final answer.
package fileops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/logging"
	"wavepulse/internal/router"
	"wavepulse/internal/tools"
)

// Call is one tool invocation made by the agent.
type Call struct {
	Tool   string           `json:"tool"`
	Args   map[string]any   `json:"args"`
	Result tools.ToolResult `json:"-"`
}

// Result is the outcome of one agent run.
type Result struct {
	Answer     string
	Calls      []Call
	Iterations int
	Exhausted  bool // hit the iteration limit
}

type action struct {
	Action string         `json:"action"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Answer string         `json:"answer"`
}

// Agent runs the tool loop.
type Agent struct {
	tools    *tools.Registry
	gen      client.Generator
	model    string
	temp     float32
	paths    config.PathsConfig
	maxIters int
}

// New creates an agent allowed maxIters model turns per run.
func New(reg *tools.Registry, gen client.Generator, mc config.ModelConfig, paths config.PathsConfig, maxIters int) *Agent {
	if maxIters < 1 {
		maxIters = config.DefaultToolIterations
	}
	return &Agent{
		tools:    reg,
		gen:      gen,
		model:    mc.Name,
		temp:     mc.Temperature,
		paths:    paths,
		maxIters: maxIters,
	}
}

// Run answers q, calling onCall after every tool invocation. It never fails;
// model errors end the run with an explanatory answer.
func (a *Agent) Run(ctx context.Context, q router.Query, onCall func(Call)) *Result {
	res := &Result{}
	for res.Iterations < a.maxIters {
		res.Iterations++
		text, err := a.gen.Generate(ctx, a.model, a.prompt(q, res.Calls), client.Options{Temperature: a.temp, JSON: true})
		if err != nil {
			logging.Warn("file operations model call failed", "iteration", res.Iterations, "error", err)
			res.Answer = fmt.Sprintf("I couldn't complete the file operation: %v", err) + progress(res.Calls)
			return res
		}

		act, ok := parseAction(text)
		if !ok {
			res.Answer = strings.TrimSpace(text)
			return res
		}
		if act.Action != "tool" {
			res.Answer = strings.TrimSpace(act.Answer)
			if res.Answer == "" {
				res.Answer = strings.TrimSpace(text)
			}
			return res
		}

		call := Call{Tool: act.Tool, Args: act.Args}
		call.Result = a.tools.Execute(ctx, act.Tool, act.Args)
		logging.Debug("file tool called", "tool", act.Tool, "success", call.Result.Success)
		res.Calls = append(res.Calls, call)
		if onCall != nil {
			onCall(call)
		}
	}

	res.Exhausted = true
	res.Answer = fmt.Sprintf("I stopped after %d steps without finishing.", a.maxIters) + progress(res.Calls)
	return res
}

func parseAction(text string) (action, bool) {
	var act action
	body := client.StripCodeFence(text)
	if i, j := strings.Index(body, "{"), strings.LastIndex(body, "}"); i >= 0 && j > i {
		body = body[i : j+1]
	}
	if err := json.Unmarshal([]byte(body), &act); err != nil {
		return act, false
	}
	switch act.Action {
	case "tool":
		return act, act.Tool != ""
	case "final", "answer":
		return act, true
	}
	return act, false
}

func progress(calls []Call) string {
	if len(calls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nSteps taken:\n")
	for _, c := range calls {
		status := "ok"
		if !c.Result.Success {
			status = "failed: " + c.Result.Error
		}
		fmt.Fprintf(&b, "- %s %s (%s)\n", c.Tool, argSummary(c.Args), status)
	}
	return b.String()
}

func argSummary(args map[string]any) string {
	for _, k := range []string{"file_path", "path", "pattern"} {
		if v, ok := args[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
