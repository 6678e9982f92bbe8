package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"jarvis/internal/agent"
)

// AgentBadge labels an agent task as answered, exhausted or failed.
func AgentBadge(styles Styles, r agent.Result) string {
	label, bg := "ANSWERED", Success
	switch {
	case r.Failed():
		label, bg = "FAILED", Destructive
	case r.Exhausted:
		label, bg = "EXHAUSTED", Warning
	}
	return styles.Badge.Background(bg).Render(label)
}

// AgentStepLines renders one line per tool call.
func AgentStepLines(styles Styles, r agent.Result) []string {
	lines := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		verdict := styles.Success.Render("ok")
		if s.Error != "" {
			verdict = styles.Error.Render(clipLine(s.Error, 60))
		}
		lines = append(lines, fmt.Sprintf("  #%d %s %s %s",
			s.Iteration, styles.Info.Render(s.Tool), verdict,
			styles.Muted.Render(s.Duration.Round(time.Millisecond).String())))
	}
	return lines
}

// RenderAgentResult renders a finished agent task. Steps are shown when
// verbose or when the task did not end with an answer.
func RenderAgentResult(styles Styles, md *Markdown, r agent.Result, verbose bool) string {
	parts := []string{fmt.Sprintf("%d iteration(s)", r.Iterations), fmt.Sprintf("%d tool call(s)", len(r.Steps))}
	if r.Duration > 0 {
		parts = append(parts, r.Duration.Round(10*time.Millisecond).String())
	}
	blocks := []string{AgentBadge(styles, r) + " " + styles.Muted.Render(strings.Join(parts, ", "))}

	if verbose || r.Failed() || r.Exhausted {
		if lines := AgentStepLines(styles, r); len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	if r.Output != "" {
		blocks = append(blocks, md.Render(r.Output))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func clipLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
