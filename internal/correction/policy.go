package correction

import (
	"fmt"
	"strings"

	"jarvis/internal/config"
	"jarvis/internal/perception"
)

// EscalationPolicy decides when the loop detours to web search.
type EscalationPolicy interface {
	// ShouldSearch is consulted after a recoverable failure while a correction
	// slot remains. It returns the query to run.
	ShouldSearch(attempts []AttemptRecord, searches []SearchRecord) (query string, ok bool)

	// AllowDirective reports whether a SEARCH_WEB directive from the model is honoured.
	AllowDirective() bool
}

// RepeatedFailurePolicy escalates after Threshold consecutive recoverable
// failures, once per streak. Threshold <= 0 disables the trigger; model
// directives are always allowed.
type RepeatedFailurePolicy struct {
	Threshold int
}

// ShouldSearch implements EscalationPolicy.
func (p RepeatedFailurePolicy) ShouldSearch(attempts []AttemptRecord, searches []SearchRecord) (string, bool) {
	if p.Threshold <= 0 || len(attempts) == 0 {
		return "", false
	}

	streak := 0
	for i := len(attempts) - 1; i >= 0 && attempts[i].Classification == ClassRecoverable; i-- {
		streak++
	}
	if streak < p.Threshold {
		return "", false
	}

	// A search made during this streak already counts.
	streakStart := len(attempts) - streak
	for _, s := range searches {
		if s.AfterAttempt > streakStart {
			return "", false
		}
	}

	q := QueryFor(attempts[len(attempts)-1])
	return q, q != ""
}

// AllowDirective implements EscalationPolicy.
func (RepeatedFailurePolicy) AllowDirective() bool { return true }

// DirectivePolicy searches only when the model asks.
type DirectivePolicy struct{}

func (DirectivePolicy) ShouldSearch([]AttemptRecord, []SearchRecord) (string, bool) { return "", false }
func (DirectivePolicy) AllowDirective() bool                                        { return true }

// NeverEscalate disables search inside the loop.
type NeverEscalate struct{}

func (NeverEscalate) ShouldSearch([]AttemptRecord, []SearchRecord) (string, bool) { return "", false }
func (NeverEscalate) AllowDirective() bool                                        { return false }

// PolicyFromConfig maps escalation settings to a policy.
func PolicyFromConfig(c config.EscalationConfig) (EscalationPolicy, error) {
	switch c.Mode {
	case config.EscalationRepeated, "":
		return RepeatedFailurePolicy{Threshold: c.RepeatedFailures}, nil
	case config.EscalationDirective:
		return DirectivePolicy{}, nil
	case config.EscalationNever:
		return NeverEscalate{}, nil
	}
	return nil, fmt.Errorf("unknown escalation mode %q", c.Mode)
}

// QueryFor derives a search query from a failed attempt: the language plus the
// last line of stderr, where tracebacks and shells put the error.
func QueryFor(rec AttemptRecord) string {
	lang := rec.Action.Language
	if lang == "" {
		lang = string(rec.Action.Kind)
	}
	if rec.Action.Kind == perception.KindShell && (lang == "sh" || lang == "shell") {
		lang = "shell"
	}

	var line string
	switch {
	case rec.Outcome.TimedOut:
		line = "command hangs: " + firstLine(rec.Action.Payload)
	case lastLine(rec.Outcome.Stderr) != "":
		line = lastLine(rec.Outcome.Stderr)
	case lastLine(rec.Outcome.Stdout) != "":
		line = lastLine(rec.Outcome.Stdout)
	default:
		line = fmt.Sprintf("%s fails with exit code %s", firstLine(rec.Action.Payload), rec.Outcome.ExitString())
	}

	q := strings.TrimSpace(lang + " " + line)
	if r := []rune(q); len(r) > 200 {
		q = string(r[:200])
	}
	return q
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
