package correction

import (
	"fmt"
	"strings"

	"jarvis/internal/perception"
	"jarvis/internal/prompt"
)

// Trail renders every attempt (action plus stderr tail) and every search in
// order, for failed turns.
func (r Result) Trail() string {
	return renderTrail(r.Attempts, r.Searches, 2000)
}

func renderTrail(attempts []AttemptRecord, searches []SearchRecord, tail int) string {
	if len(attempts) == 0 && len(searches) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Attempt trail:\n")
	si := 0
	writeSearches := func(after int) {
		for ; si < len(searches) && searches[si].AfterAttempt <= after; si++ {
			s := searches[si]
			status := fmt.Sprintf("%d source(s)", s.Sources)
			if s.Err != nil {
				status = "failed: " + s.Err.Error()
			}
			fmt.Fprintf(&sb, "\n- Web search (%s): %q, %s\n", s.Trigger, s.Query, status)
		}
	}

	writeSearches(0)
	for _, a := range attempts {
		fmt.Fprintf(&sb, "\n- Attempt %d: %s, exit %s", a.Number, a.Classification, a.Outcome.ExitString())
		if a.Outcome.TimedOut {
			sb.WriteString(", timed out")
		}
		sb.WriteString("\n")
		sb.WriteString(indent(a.Action.Fence(), "  "))
		sb.WriteString("\n")
		if stderr := prompt.Tail(a.Outcome.Stderr, tail); stderr != "" {
			sb.WriteString("  stderr:\n")
			sb.WriteString(indent("```\n"+stderr+"\n```", "  "))
			sb.WriteString("\n")
		}
		writeSearches(a.Number)
	}
	writeSearches(len(attempts) + len(searches))
	return strings.TrimRight(sb.String(), "\n")
}

func successText(modelText string, rec AttemptRecord, tail int) string {
	var sb strings.Builder
	if prose := perception.Prose(modelText, rec.Action); prose != "" {
		sb.WriteString(prose)
		sb.WriteString("\n\n")
	}
	out := prompt.Tail(rec.Outcome.Stdout, tail)
	if out == "" {
		sb.WriteString("The command completed successfully with no output.")
		return sb.String()
	}
	sb.WriteString("Output:\n```\n")
	sb.WriteString(out)
	sb.WriteString("\n```")
	return sb.String()
}

func exhaustedText(attempts []AttemptRecord, searches []SearchRecord, tail int) string {
	var sb strings.Builder
	if n := len(attempts); n > 0 {
		last := attempts[n-1]
		fmt.Fprintf(&sb, "I could not complete this request after %d attempt(s).", n)
		errText := prompt.Tail(last.Outcome.Stderr, tail)
		if errText == "" {
			errText = "exit " + last.Outcome.ExitString()
		}
		sb.WriteString(" The last attempt failed with:\n```\n")
		sb.WriteString(errText)
		sb.WriteString("\n```")
	} else {
		sb.WriteString("I could not complete this request: the correction budget ran out before any action was executed.")
	}
	if trail := renderTrail(attempts, searches, tail); trail != "" {
		sb.WriteString("\n\n")
		sb.WriteString(trail)
	}
	return sb.String()
}

func fatalText(reason string, attempts []AttemptRecord, searches []SearchRecord, tail int) string {
	text := "Stopped: " + reason
	if trail := renderTrail(attempts, searches, tail); trail != "" {
		text += "\n\n" + trail
	}
	return text
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
