package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavepulse/internal/agent"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "wavepulse version "+version+"\n", out)
}

func TestRouteHeuristic(t *testing.T) {
	out, _, err := run(t, "route", "--heuristic", "what happens when I tap the button?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ui-state\t"), out)
}

func TestEdit(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Button.tsx")
	require.NoError(t, os.WriteFile(file, []byte(`<WmButton caption="Save" />`+"\n"), 0o644))

	out, _, err := run(t, "edit", file, "--search", `caption="Save"`, "--replace", `caption="Submit"`)
	require.NoError(t, err)
	assert.Contains(t, out, "Button.tsx")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `<WmButton caption="Submit" />`+"\n", string(data))

	_, errOut, err := run(t, "edit", filepath.Join(dir, "Missing.tsx"), "--search", "a", "--replace", "b")
	assert.ErrorIs(t, err, errEditFailed)
	assert.Contains(t, errOut, "file not found")
}

func TestRenderSteps(t *testing.T) {
	out := renderSteps([]agent.ResearchStep{
		{ID: "routing", Description: "Routing the question", Status: agent.StepCompleted},
		{ID: "sub-agent:style-agent", Description: "Consulting style expert", Status: agent.StepFailed},
	})
	assert.Contains(t, out, "Research steps")
	assert.Contains(t, out, "Routing the question")
	assert.Contains(t, out, "    ")
	assert.Contains(t, out, "(sub-agent:style-agent)")

	assert.Empty(t, progressLine([]agent.ResearchStep{{ID: "a", Status: agent.StepCompleted}}))
	assert.Contains(t, progressLine([]agent.ResearchStep{{ID: "a", Description: "Discovering", Status: agent.StepInProgress}}), "Discovering")
}

func TestRenderMarkdownKeepsText(t *testing.T) {
	assert.Contains(t, renderMarkdown("## Summary\n\nBaseComponent owns the lifecycle."), "BaseComponent")
}
