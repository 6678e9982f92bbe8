package correction

import (
	"fmt"
	"time"

	"jarvis/internal/perception"
	"jarvis/internal/tactile"
)

// Classify maps an outcome to a verdict. A failure whose (payload, exit code)
// pair already appears in prior is fatal; a nil exit code matches a nil exit
// code. Classify is pure.
func Classify(a perception.Action, o tactile.Outcome, prior []AttemptRecord) Classification {
	c, _ := classify(a, o, prior)
	return c
}

// classify also returns the error recorded on the attempt.
func classify(a perception.Action, o tactile.Outcome, prior []AttemptRecord) (Classification, error) {
	if !a.Executable() {
		return ClassSuccess, nil
	}
	if o.Succeeded() {
		return ClassSuccess, nil
	}
	if rep, ok := findRepeat(a, o, prior); ok {
		return ClassFatal, fmt.Errorf("%w: action repeats attempt %d with exit %s", ErrRepeatedFailure, rep.Number, o.ExitString())
	}
	if o.TimedOut {
		return ClassRecoverable, fmt.Errorf("%w after %s", ErrTimeout, o.Duration.Round(time.Millisecond))
	}
	return ClassRecoverable, fmt.Errorf("%w: exit %s", ErrExecutionFailure, o.ExitString())
}

func findRepeat(a perception.Action, o tactile.Outcome, prior []AttemptRecord) (AttemptRecord, bool) {
	for _, p := range prior {
		if p.Action.Payload == a.Payload && sameExit(p.Outcome.ExitCode, o.ExitCode) {
			return p, true
		}
	}
	return AttemptRecord{}, false
}

func sameExit(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
