package correction

import (
	"time"

	"jarvis/internal/perception"
	"jarvis/internal/tactile"
)

// Classification is the verdict on one attempt.
type Classification string

const (
	ClassSuccess     Classification = "success"
	ClassRecoverable Classification = "recoverable"
	ClassFatal       Classification = "fatal"
)

// Status is the terminal state of a turn.
type Status string

const (
	StatusSucceeded        Status = "succeeded"
	StatusExhaustedRetries Status = "exhausted_retries"
	StatusFatalError       Status = "fatal_error"
	StatusNoActionNeeded   Status = "no_action_needed"
)

// State is a correction loop state.
type State string

const (
	StateStart          State = "START"
	StateParse          State = "PARSE"
	StateExecute        State = "EXECUTE"
	StateClassify       State = "CLASSIFY"
	StateEscalateSearch State = "ESCALATE_SEARCH"
	StateCorrect        State = "CORRECT"
	StateDone           State = "DONE"
)

// AttemptRecord is one Parse, Execute, Classify cycle.
type AttemptRecord struct {
	// Number is 1-based.
	Number         int               `json:"number"`
	Action         perception.Action `json:"action"`
	Outcome        tactile.Outcome   `json:"outcome"`
	Classification Classification    `json:"classification"`

	// Hint is the catalog suggestion for a failed attempt.
	Hint string `json:"hint,omitempty"`

	// Err is nil on success and wraps ErrExecutionFailure, ErrTimeout or
	// ErrRepeatedFailure otherwise.
	Err error `json:"-"`

	// Ignored counts actions in the same reply that were not executed.
	Ignored int `json:"ignored,omitempty"`
}

// Failed reports whether the attempt did not succeed.
func (a AttemptRecord) Failed() bool { return a.Classification != ClassSuccess }

// SearchRecord is one web-search detour.
type SearchRecord struct {
	Query     string `json:"query"`
	FocusMode string `json:"focus_mode,omitempty"`

	// Trigger is "directive" when the model asked for the search and "policy"
	// when the escalation policy did.
	Trigger string `json:"trigger"`

	Sources int    `json:"sources"`
	Backend string `json:"backend,omitempty"`

	// AfterAttempt is the number of attempts made before the search.
	AfterAttempt int `json:"after_attempt"`

	Err error `json:"-"`
}

// Search triggers.
const (
	TriggerDirective = "directive"
	TriggerPolicy    = "policy"
)

// Result is the terminal value of one turn.
type Result struct {
	TurnID   string          `json:"turn_id"`
	Status   Status          `json:"status"`
	Attempts []AttemptRecord `json:"attempts"`
	Searches []SearchRecord  `json:"searches,omitempty"`

	// FinalText is what the user sees.
	FinalText string `json:"final_text"`

	// ModelText is the last raw reply from the model.
	ModelText string `json:"-"`

	// Reason is Err rendered as text; empty on success.
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`

	// Diagnostic is a parser complaint about the final reply, such as an
	// unterminated fence, to be shown to the model on the next turn.
	Diagnostic string `json:"diagnostic,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Failed reports whether the turn ended in exhausted_retries or fatal_error.
func (r Result) Failed() bool {
	return r.Status == StatusExhaustedRetries || r.Status == StatusFatalError
}

// LastAttempt returns the final attempt, if any.
func (r Result) LastAttempt() (AttemptRecord, bool) {
	if len(r.Attempts) == 0 {
		return AttemptRecord{}, false
	}
	return r.Attempts[len(r.Attempts)-1], true
}

// Config bounds one loop. It is passed to NewLoop explicitly.
type Config struct {
	// MaxRetries is the number of corrections allowed after the first attempt.
	MaxRetries int

	// SearchEnabled gates both model directives and policy escalation.
	SearchEnabled    bool
	MaxSearchResults int

	// TailBytes caps the stdout and stderr excerpts placed in prompts and trails.
	TailBytes int

	// ActionTimeout is the executor limit, quoted in correction prompts.
	ActionTimeout time.Duration
}

// DefaultConfig returns the defaults: two corrections, search on.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       2,
		SearchEnabled:    true,
		MaxSearchResults: 3,
		TailBytes:        2000,
		ActionTimeout:    30 * time.Second,
	}
}

// Turn is the input to Loop.Run.
type Turn struct {
	ID string

	// Prompt is the user message for attempt 0.
	Prompt string

	// ModelText, when set, is used as the reply to Prompt instead of calling
	// the model.
	ModelText string

	// Conversation is the history before Prompt. The loop extends a copy.
	Conversation perception.Conversation
}
