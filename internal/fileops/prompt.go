package fileops

import (
	"encoding/json"
	"fmt"
	"strings"

	"wavepulse/internal/router"
)

const maxObservation = 6000

func (a *Agent) prompt(q router.Query, calls []Call) string {
	var b strings.Builder
	b.WriteString("You work on the WaveMaker React Native libraries through file tools.\n")
	fmt.Fprintf(&b, "Runtime library: %s\nCodegen library: %s\n\n", a.paths.RuntimeRoot, a.paths.CodegenRoot)
	b.WriteString("Tools:\n")
	b.WriteString(a.tools.Describe())
	b.WriteString(`
Reply with exactly one JSON object, either
  {"action":"tool","tool":"<name>","args":{...}}
or, when done,
  {"action":"final","answer":"<markdown answer for the user>"}
Read a file before editing it and copy the search text exactly. If an edit fails, read the error and adjust.
`)

	if len(q.History) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, t := range q.History[max(0, len(q.History)-4):] {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, clip(t.Content, 500))
		}
	}
	fmt.Fprintf(&b, "\nRequest: %s\n", q.Message)

	for i, c := range calls {
		args, _ := json.Marshal(c.Args)
		fmt.Fprintf(&b, "\nStep %d: %s %s\n", i+1, c.Tool, args)
		if c.Result.Success {
			fmt.Fprintf(&b, "Result:\n%s\n", clip(c.Result.Content, maxObservation))
		} else {
			fmt.Fprintf(&b, "Error:\n%s\n", clip(c.Result.Error, maxObservation))
		}
	}
	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n...(truncated)"
}
