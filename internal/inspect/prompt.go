package inspect

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"wavepulse/internal/router"
	"wavepulse/internal/snapshot"
)

const (
	maxConsole  = 40
	maxNetwork  = 25
	maxTimeline = 15
	maxTree     = 8000
)

const instructions = `You inspect the live state of a WaveMaker React Native app for a developer.
Answer from the snapshot below. When it is not enough you may ask the app for more:
  {"action":"eval","expression":"<JavaScript expression>"}   evaluates in the app
  {"action":"props","widget":"<widget name>"}                 returns the widget's properties and styles
When you can answer, reply {"action":"answer","answer":"<markdown answer>"}.
Reply with exactly one JSON object.`

func buildPrompt(q router.Query, snap *snapshot.Snapshot, observations []string, final bool) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")
	writeSnapshot(&b, snap)

	if len(q.History) > 0 {
		b.WriteString("\nConversation so far:\n")
		start := max(0, len(q.History)-4)
		for _, t := range q.History[start:] {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, truncate(t.Content, 500))
		}
	}
	if len(observations) > 0 {
		b.WriteString("\nResults of earlier requests:\n")
		b.WriteString(strings.Join(observations, "\n"))
		b.WriteString("\n")
	}
	if final {
		b.WriteString("\nNo more requests are possible; answer now.\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", q.Message)
	return b.String()
}

func writeSnapshot(b *strings.Builder, snap *snapshot.Snapshot) {
	fmt.Fprintf(b, "Snapshot taken %s\n", snap.UpdatedAt.Format("15:04:05"))
	if len(snap.AppInfo) > 0 {
		fmt.Fprintf(b, "App: %s\n", compact(snap.AppInfo))
	}
	if len(snap.PlatformInfo) > 0 {
		fmt.Fprintf(b, "Platform: %s\n", compact(snap.PlatformInfo))
	}

	if n := len(snap.Console); n > 0 {
		fmt.Fprintf(b, "\nConsole (%d entries, latest last):\n", n)
		for _, l := range snap.Console[max(0, n-maxConsole):] {
			fmt.Fprintf(b, "[%s] %s\n", l.Level, truncate(l.Message, 300))
		}
	}
	if n := len(snap.Network); n > 0 {
		fmt.Fprintf(b, "\nNetwork (%d requests, latest last):\n", n)
		for _, r := range snap.Network[max(0, n-maxNetwork):] {
			line := fmt.Sprintf("%s %s -> %d (%dms)", r.Method, r.URL, r.Status, r.Duration)
			if r.Error != "" {
				line += " error: " + r.Error
			}
			b.WriteString(line + "\n")
		}
	}
	if n := len(snap.Timeline); n > 0 {
		fmt.Fprintf(b, "\nTimeline (latest %d):\n", min(n, maxTimeline))
		for _, e := range snap.Timeline[max(0, n-maxTimeline):] {
			b.WriteString(truncate(string(e), 300) + "\n")
		}
	}
	if len(snap.Storage) > 0 {
		b.WriteString("\nStorage:\n")
		for _, k := range slices.Sorted(maps.Keys(snap.Storage)) {
			fmt.Fprintf(b, "%s = %s\n", k, truncate(string(snap.Storage[k]), 200))
		}
	}
	if len(snap.ComponentTree) > 0 {
		b.WriteString("\nComponent tree:\n")
		b.WriteString(truncate(string(snap.ComponentTree), maxTree))
		b.WriteString("\n")
	}
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
