package correction

import "jarvis/internal/logging"

// Observer receives loop events. Calls happen on the loop goroutine.
type Observer interface {
	OnTransition(turnID string, from, to State)
	OnAttempt(turnID string, rec AttemptRecord)
	OnSearch(turnID string, rec SearchRecord)
	OnDone(turnID string, res Result)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnTransition(string, State, State) {}
func (NopObserver) OnAttempt(string, AttemptRecord)   {}
func (NopObserver) OnSearch(string, SearchRecord)     {}
func (NopObserver) OnDone(string, Result)             {}

// MultiObserver fans events out in order.
type MultiObserver []Observer

func (m MultiObserver) OnTransition(id string, from, to State) {
	for _, o := range m {
		o.OnTransition(id, from, to)
	}
}

func (m MultiObserver) OnAttempt(id string, rec AttemptRecord) {
	for _, o := range m {
		o.OnAttempt(id, rec)
	}
}

func (m MultiObserver) OnSearch(id string, rec SearchRecord) {
	for _, o := range m {
		o.OnSearch(id, rec)
	}
}

func (m MultiObserver) OnDone(id string, res Result) {
	for _, o := range m {
		o.OnDone(id, res)
	}
}

// auditObserver writes loop events to the loop log and the audit log.
type auditObserver struct {
	sessionID string
}

// NewAuditObserver returns the default observer.
func NewAuditObserver(sessionID string) Observer {
	return auditObserver{sessionID: sessionID}
}

func (a auditObserver) OnTransition(id string, from, to State) {
	logging.LoopDebug("[%s] %s -> %s", id, from, to)
	logging.AuditWithSession(a.sessionID).Transition(id, string(from), string(to))
}

func (a auditObserver) OnAttempt(id string, rec AttemptRecord) {
	logging.Loop("[%s] attempt %d: %s -> %s (exit %s, %s)", id, rec.Number, rec.Action, rec.Classification,
		rec.Outcome.ExitString(), rec.Outcome.Duration)
	logging.AuditWithSession(a.sessionID).Attempt(id, rec.Number, string(rec.Action.Kind), string(rec.Classification),
		rec.Outcome.ExitCode, rec.Outcome.TimedOut, rec.Outcome.Duration)
}

func (a auditObserver) OnSearch(id string, rec SearchRecord) {
	if rec.Err != nil {
		logging.LoopWarn("[%s] search %q failed, continuing without results: %v", id, rec.Query, rec.Err)
	} else {
		logging.Loop("[%s] search %q (%s): %d sources", id, rec.Query, rec.Trigger, rec.Sources)
	}
	logging.AuditWithSession(a.sessionID).Search(id, rec.Query, rec.Sources, rec.Err)
}

func (a auditObserver) OnDone(id string, res Result) {
	if res.Failed() {
		logging.LoopWarn("[%s] done: %s after %d attempt(s): %s", id, res.Status, len(res.Attempts), res.Reason)
		return
	}
	logging.Loop("[%s] done: %s after %d attempt(s)", id, res.Status, len(res.Attempts))
}
