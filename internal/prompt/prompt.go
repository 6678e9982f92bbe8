package prompt

import (
	"strings"
	"time"
	"unicode/utf8"
)

// SystemData fills the system atom.
type SystemData struct {
	OS            string
	Shell         string
	ShellTag      string
	Workspace     string
	Snapshot      string
	Memories      []string
	SearchEnabled bool
	MaxRetries    int
}

// CorrectionData fills the correction atom.
type CorrectionData struct {
	Language string
	Code     string
	ExitCode string
	TimedOut bool
	Timeout  time.Duration
	Stdout   string
	Stderr   string

	// Attempt is the 1-based number of the failed attempt.
	Attempt     int
	MaxAttempts int
	Remaining   int

	Hint          string
	SearchQuery   string
	SearchResults string
	SearchEnabled bool

	// Note is free text from the loop, e.g. why a directive was not honoured.
	Note       string
	Diagnostic string
}

// TurnData fills the turn atom.
type TurnData struct {
	UserText   string
	Diagnostic string
}

// System renders the system message.
func System(d SystemData) (string, error) {
	if d.ShellTag == "" {
		d.ShellTag = "bash"
	}
	return render("system", d)
}

// Correction renders the request for a corrected action.
func Correction(d CorrectionData) (string, error) {
	return render("correction", d)
}

// Turn renders the user message for a new turn.
func Turn(d TurnData) (string, error) {
	return render("turn", d)
}

// Tail returns at most max bytes from the end of s, cut at a line boundary
// when one is available, with a marker when anything was dropped.
func Tail(s string, max int) string {
	s = strings.TrimRight(s, "\n")
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	for len(cut) > 0 && !utf8.RuneStart(cut[0]) {
		cut = cut[1:]
	}
	if i := strings.IndexByte(cut, '\n'); i >= 0 && i < len(cut)-1 {
		cut = cut[i+1:]
	}
	return "...\n" + cut
}
