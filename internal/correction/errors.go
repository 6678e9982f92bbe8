package correction

import "errors"

// Failure taxonomy. Terminal causes in Result.Err wrap one of these; check
// them with errors.Is.
var (
	// ErrParseAmbiguity marks a reply with more than one action. It is never
	// terminal: the first action wins and the rest are ignored.
	ErrParseAmbiguity = errors.New("more than one action in reply")

	// ErrExecutionFailure marks a non-zero exit or a process that never started.
	ErrExecutionFailure = errors.New("execution failed")

	// ErrTimeout marks an action killed by the wall-clock limit.
	ErrTimeout = errors.New("execution timed out")

	// ErrRepeatedFailure marks an action that failed the same way earlier in
	// the turn.
	ErrRepeatedFailure = errors.New("repeated failure")

	// ErrCollaboratorUnavailable marks a language-model transport failure.
	ErrCollaboratorUnavailable = errors.New("language model unavailable")

	// ErrRetriesExhausted marks a turn whose correction budget ran out.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrCanceled marks a turn aborted through its context.
	ErrCanceled = errors.New("turn canceled")
)
