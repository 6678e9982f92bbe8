package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"jarvis/internal/correction"
)

// StatusBadge renders a turn status as a colored label.
func StatusBadge(styles Styles, status correction.Status) string {
	bg := Info
	switch status {
	case correction.StatusSucceeded:
		bg = Success
	case correction.StatusExhaustedRetries:
		bg = Warning
	case correction.StatusFatalError:
		bg = Destructive
	}
	return styles.Badge.Background(bg).Render(strings.ToUpper(string(status)))
}

// Summary is the one-line header of a turn: badge, attempts, searches, duration.
func Summary(styles Styles, r correction.Result) string {
	parts := []string{fmt.Sprintf("%d attempt(s)", len(r.Attempts))}
	if n := len(r.Searches); n > 0 {
		parts = append(parts, fmt.Sprintf("%d search(es)", n))
	}
	if r.Duration > 0 {
		parts = append(parts, r.Duration.Round(10*time.Millisecond).String())
	}
	return StatusBadge(styles, r.Status) + " " + styles.Muted.Render(strings.Join(parts, ", "))
}

// AttemptLines renders one compact line per attempt and search, in order.
func AttemptLines(styles Styles, r correction.Result) []string {
	var lines []string
	si := 0
	searchesUpTo := func(after int) {
		for ; si < len(r.Searches) && r.Searches[si].AfterAttempt <= after; si++ {
			s := r.Searches[si]
			status := fmt.Sprintf("%d source(s)", s.Sources)
			if s.Err != nil {
				status = styles.Error.Render("failed")
			}
			lines = append(lines, fmt.Sprintf("  %s %s %q %s",
				styles.Info.Render("search"), styles.Muted.Render("("+s.Trigger+")"), s.Query, status))
		}
	}

	searchesUpTo(0)
	for _, a := range r.Attempts {
		verdict := styles.Success.Render(string(a.Classification))
		if a.Failed() {
			verdict = styles.Error.Render(string(a.Classification))
			if a.Classification == correction.ClassRecoverable {
				verdict = styles.Warning.Render(string(a.Classification))
			}
		}
		exit := "exit " + a.Outcome.ExitString()
		if a.Outcome.TimedOut {
			exit = "timed out"
		}
		lines = append(lines, fmt.Sprintf("  #%d %-6s %s %s %s",
			a.Number, a.Action.Kind, verdict, styles.Muted.Render(exit),
			styles.Muted.Render(a.Outcome.Duration.Round(time.Millisecond).String())))
		searchesUpTo(a.Number)
	}
	searchesUpTo(len(r.Attempts) + len(r.Searches))
	return lines
}

// RenderResult renders a finished turn: summary, reply and, for failed turns
// or when verbose, the attempt list.
func RenderResult(styles Styles, md *Markdown, r correction.Result, verbose bool) string {
	var blocks []string
	blocks = append(blocks, Summary(styles, r))
	if verbose || r.Failed() {
		if lines := AttemptLines(styles, r); len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	if r.FinalText != "" {
		blocks = append(blocks, md.Render(r.FinalText))
	}
	if r.Failed() && r.Reason != "" && !strings.Contains(r.FinalText, r.Reason) {
		blocks = append(blocks, styles.Error.Render(r.Reason))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
