// Package perception turns model output into typed actions and hosts the
// language-model clients that produce that output.
//
// Perception is the sensory side of jarvis: raw model text goes in, one Action
// comes out. Execution lives in tactile; the correction loop decides what to do
// with the outcome.
package perception

import (
	"fmt"
	"strings"
)

// ActionKind is the tagged variant of an Action.
type ActionKind string

const (
	KindNone   ActionKind = "none"
	KindPython ActionKind = "python"
	KindShell  ActionKind = "shell"
	KindSearch ActionKind = "search"
)

// Span is a half-open byte range [Start, End) into the parsed text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Action is one parsed unit of model output. Values are never mutated after
// ParseAction returns them.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Language is the fence tag as written (lowercased), e.g. "py" or "powershell".
	Language string `json:"language,omitempty"`

	// Payload is the code body for python/shell, or the query for search.
	Payload string `json:"payload"`

	// Span locates the action in the source text.
	Span Span `json:"span"`

	// FocusMode is an optional search focus (FOCUS_MODE directive).
	FocusMode string `json:"focus_mode,omitempty"`
}

// Executable reports whether the action runs as a process.
func (a Action) Executable() bool {
	return a.Kind == KindPython || a.Kind == KindShell
}

// String renders the action for logs and attempt trails.
func (a Action) String() string {
	switch a.Kind {
	case KindSearch:
		return fmt.Sprintf("search %q", a.Payload)
	case KindNone:
		return "none"
	}
	first := a.Payload
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i] + " ..."
	}
	return fmt.Sprintf("%s: %s", a.Kind, first)
}

// Fence renders the action back as a fenced block, as used in prompts.
func (a Action) Fence() string {
	switch a.Kind {
	case KindSearch:
		return fmt.Sprintf("SEARCH_WEB: %q", a.Payload)
	case KindNone:
		return ""
	}
	tag := a.Language
	if tag == "" {
		tag = string(a.Kind)
	}
	return "```" + tag + "\n" + a.Payload + "\n```"
}

// ParseResult is the output of ParseAction.
type ParseResult struct {
	Action Action

	// Diagnostic describes malformed input (an unterminated fence). It is set
	// only when Action.Kind is KindNone.
	Diagnostic string

	// Ignored counts recognized actions after the first one.
	Ignored int
}

// Prose returns text with the action's span removed and whitespace trimmed.
// It is the model's explanation around the action.
func Prose(text string, a Action) string {
	if a.Kind == KindNone || a.Span.End <= a.Span.Start || a.Span.End > len(text) {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.TrimSpace(text[:a.Span.Start]) + "\n\n" + strings.TrimSpace(text[a.Span.End:]))
}
