package tactile

import (
	"fmt"
	"sync"

	"jarvis/internal/logging"
)

// String renders the event on one line for logs and the audit ring.
func (e AuditEvent) String() string {
	s := fmt.Sprintf("[%s] %s", e.Type, e.Command.CommandString())
	if e.Result == nil {
		return s
	}
	switch e.Type {
	case AuditEventKilled:
		return s + " (" + e.Result.KillReason + ")"
	case AuditEventError:
		return s + ": " + e.Result.Error
	}
	return fmt.Sprintf("%s -> exit=%d in %s", s, e.Result.ExitCode, e.Result.Duration)
}

// AuditTrail keeps the most recent execution events and forwards completed
// ones to the structured audit log.
type AuditTrail struct {
	mu     sync.Mutex
	events []AuditEvent
	keep   int
}

// NewAuditTrail creates a trail holding up to keep events.
func NewAuditTrail(keep int) *AuditTrail {
	if keep <= 0 {
		keep = 100
	}
	return &AuditTrail{keep: keep}
}

// Record is an AuditedExecutor callback.
func (t *AuditTrail) Record(e AuditEvent) {
	t.mu.Lock()
	t.events = append(t.events, e)
	if len(t.events) > t.keep {
		t.events = t.events[len(t.events)-t.keep:]
	}
	t.mu.Unlock()

	if e.Type == AuditEventStart {
		return
	}
	ev := logging.AuditEvent{
		EventType: logging.AuditExecution,
		SessionID: e.SessionID,
		Target:    e.Command.Binary,
		Success:   e.Type == AuditEventComplete && e.Result != nil && e.Result.ExitCode == 0,
		Message:   string(e.Type),
	}
	if e.Result != nil {
		ev.DurationMs = e.Result.Duration.Milliseconds()
		ev.Error = e.Result.Error
		ev.Fields = map[string]interface{}{
			"exit_code": e.Result.ExitCode,
			"timed_out": e.Result.TimedOut,
			"truncated": e.Result.Truncated,
		}
	}
	logging.AuditWithSession(e.SessionID).Log(ev)
}

// Events returns a copy of the retained events, oldest first.
func (t *AuditTrail) Events() []AuditEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]AuditEvent, len(t.events))
	copy(out, t.events)
	return out
}
