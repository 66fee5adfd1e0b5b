package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"wavepulse/internal/agent"
)

var (
	colorSuccess = lipgloss.Color("#059669")
	colorError   = lipgloss.Color("#DC2626")
	colorActive  = lipgloss.Color("#22D3EE")
	colorMuted   = lipgloss.Color("#9CA3AF")

	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	failStyle    = lipgloss.NewStyle().Foreground(colorError)
	activeStyle  = lipgloss.NewStyle().Foreground(colorActive)
	pendingStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

func stepIcon(s agent.StepStatus) string {
	switch s {
	case agent.StepCompleted:
		return doneStyle.Render("✓")
	case agent.StepFailed:
		return failStyle.Render("✗")
	case agent.StepInProgress:
		return activeStyle.Render("●")
	default:
		return pendingStyle.Render("○")
	}
}

// renderSteps draws the research timeline.
func renderSteps(steps []agent.ResearchStep) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Research steps"))
	b.WriteString("\n")
	for _, s := range steps {
		indent := "  "
		if strings.HasPrefix(s.ID, "sub-agent:") {
			indent = "    "
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", indent, stepIcon(s.Status), s.Description, pendingStyle.Render("("+s.ID+")"))
	}
	return b.String()
}

// progressLine summarizes the step currently running, for live output.
func progressLine(steps []agent.ResearchStep) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Status == agent.StepInProgress {
			return activeStyle.Render("… "+steps[i].Description) + "\n"
		}
	}
	return ""
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
