// Package correction implements the self-correction loop: parse the model's
// reply into one action, run it, classify the outcome, and ask the model for a
// corrected action until it succeeds, repeats itself, or runs out of slots.
//
// The loop is an explicit state machine. Each state is a method on run that
// returns the next state, so transitions can be tested with fake collaborators
// and no real processes.
package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jarvis/internal/logging"
	"jarvis/internal/perception"
	"jarvis/internal/prompt"
	"jarvis/internal/research"
	"jarvis/internal/tactile"
)

// Executor runs one action. Failures are reported in the Outcome.
type Executor interface {
	Run(ctx context.Context, a perception.Action) tactile.Outcome
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, a perception.Action) tactile.Outcome

// Run calls f.
func (f ExecutorFunc) Run(ctx context.Context, a perception.Action) tactile.Outcome { return f(ctx, a) }

// ScriptRunner runs snippets as processes. *tactile.ActionRunner implements it.
type ScriptRunner interface {
	Run(ctx context.Context, s tactile.Script) tactile.Outcome
}

// RunnerExecutor adapts a ScriptRunner to Executor. Non-executable kinds pass
// through and come back as a failed Outcome.
func RunnerExecutor(r ScriptRunner) Executor {
	return ExecutorFunc(func(ctx context.Context, a perception.Action) tactile.Outcome {
		return r.Run(ctx, tactile.Script{Kind: tactile.ScriptKind(a.Kind), Language: a.Language, Payload: a.Payload})
	})
}

// Loop drives turns. It holds no per-turn state and may be reused.
type Loop struct {
	cfg      Config
	llm      perception.LLMClient
	exec     Executor
	searcher research.Searcher
	policy   EscalationPolicy
	observer Observer
	now      func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithSearcher sets the web-search collaborator.
func WithSearcher(s research.Searcher) Option {
	return func(l *Loop) { l.searcher = s }
}

// WithPolicy sets the escalation policy. The default is
// RepeatedFailurePolicy{Threshold: 2}.
func WithPolicy(p EscalationPolicy) Option {
	return func(l *Loop) {
		if p != nil {
			l.policy = p
		}
	}
}

// WithObserver replaces the default audit observer.
func WithObserver(o Observer) Option {
	return func(l *Loop) {
		if o != nil {
			l.observer = o
		}
	}
}

// NewLoop builds a loop.
func NewLoop(cfg Config, llm perception.LLMClient, exec Executor, opts ...Option) *Loop {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.TailBytes <= 0 {
		cfg.TailBytes = DefaultConfig().TailBytes
	}
	l := &Loop{
		cfg:      cfg,
		llm:      llm,
		exec:     exec,
		policy:   RepeatedFailurePolicy{Threshold: 2},
		observer: NewAuditObserver(""),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the loop's bounds.
func (l *Loop) Config() Config { return l.cfg }

// searchAvailable reports whether a search detour can run at all.
func (l *Loop) searchAvailable() bool {
	return l.cfg.SearchEnabled && l.searcher != nil
}

// Run processes one turn to a terminal Result. It never panics on
// collaborator failures and checks ctx before every state except CLASSIFY,
// which always records the attempt that EXECUTE just ran.
func (l *Loop) Run(ctx context.Context, turn Turn) Result {
	r := &run{
		loop:    l,
		ctx:     ctx,
		turn:    turn,
		conv:    turn.Conversation,
		started: l.now(),
	}

	state := StateStart
	for state != StateDone {
		var next State
		if err := ctx.Err(); err != nil && state != StateClassify {
			next = r.fatal(fmt.Errorf("%w in state %s: %w", ErrCanceled, state, err))
		} else {
			next = r.step(state)
		}
		l.observer.OnTransition(turn.ID, state, next)
		state = next
	}

	r.result.TurnID = turn.ID
	r.result.Attempts = r.attempts
	r.result.Searches = r.searches
	r.result.ModelText = r.text
	r.result.Duration = l.now().Sub(r.started)
	if r.result.Err != nil {
		r.result.Reason = r.result.Err.Error()
	}
	l.observer.OnDone(turn.ID, r.result)
	return r.result
}

// run is the state of one turn.
type run struct {
	loop *Loop
	ctx  context.Context
	turn Turn

	conv       perception.Conversation
	lastPrompt string
	text       string
	parsed     perception.ParseResult

	outcome     tactile.Outcome
	corrections int
	attempts    []AttemptRecord
	searches    []SearchRecord

	// Inputs for the next correction prompt. failed survives search detours
	// and is replaced only when a new attempt runs.
	failed        *AttemptRecord
	pendingQuery  research.Query
	pendingSource string
	searchResults string
	note          string

	started time.Time
	result  Result
}

func (r *run) step(s State) State {
	switch s {
	case StateStart:
		return r.start()
	case StateParse:
		return r.parse()
	case StateExecute:
		return r.execute()
	case StateClassify:
		return r.classify()
	case StateEscalateSearch:
		return r.escalateSearch()
	case StateCorrect:
		return r.correct()
	}
	return r.fatal(fmt.Errorf("unknown state %q", s))
}

func (r *run) slotsLeft() bool {
	return r.corrections < r.loop.cfg.MaxRetries
}

func (r *run) start() State {
	r.lastPrompt = r.turn.Prompt
	if r.turn.ModelText != "" {
		r.text = r.turn.ModelText
		return StateParse
	}
	text, err := r.loop.llm.Generate(r.ctx, r.turn.Prompt, r.conv)
	if err != nil {
		return r.llmFailure(err)
	}
	r.text = text
	return StateParse
}

func (r *run) parse() State {
	r.parsed = perception.ParseAction(r.text)
	a := r.parsed.Action

	if r.parsed.Ignored > 0 {
		logging.LoopWarn("[%s] %v: executing the first of %d actions", r.turn.ID, ErrParseAmbiguity, r.parsed.Ignored+1)
	}

	switch a.Kind {
	case perception.KindNone:
		r.result.Diagnostic = r.parsed.Diagnostic
		r.result.FinalText = strings.TrimSpace(r.text)
		if len(r.attempts) == 0 {
			r.result.Status = StatusNoActionNeeded
		} else {
			r.result.Status = StatusSucceeded
		}
		return StateDone

	case perception.KindSearch:
		if !r.slotsLeft() {
			return r.exhausted()
		}
		if r.loop.searchAvailable() && r.loop.policy.AllowDirective() {
			r.pendingQuery = research.Query{Text: a.Payload, FocusMode: a.FocusMode, MaxResults: r.loop.cfg.MaxSearchResults}
			r.pendingSource = TriggerDirective
			return StateEscalateSearch
		}
		r.note = fmt.Sprintf("Web search is not available, so the search for %q was not run. Answer with what you already know, or with code that finds out.", a.Payload)
		return StateCorrect
	}
	return StateExecute
}

func (r *run) execute() State {
	r.failed = nil
	r.outcome = r.loop.exec.Run(r.ctx, r.parsed.Action)
	return StateClassify
}

func (r *run) classify() State {
	a := r.parsed.Action
	class, err := classify(a, r.outcome, r.attempts)
	rec := AttemptRecord{
		Number:         len(r.attempts) + 1,
		Action:         a,
		Outcome:        r.outcome,
		Classification: class,
		Hint:           HintFor(r.outcome),
		Err:            err,
		Ignored:        r.parsed.Ignored,
	}
	r.attempts = append(r.attempts, rec)
	r.loop.observer.OnAttempt(r.turn.ID, rec)

	if ctxErr := r.ctx.Err(); ctxErr != nil && class != ClassSuccess {
		return r.fatal(fmt.Errorf("%w during attempt %d: %w", ErrCanceled, rec.Number, ctxErr))
	}

	switch class {
	case ClassSuccess:
		r.result.Status = StatusSucceeded
		r.result.FinalText = successText(r.text, rec, r.loop.cfg.TailBytes)
		return StateDone
	case ClassFatal:
		return r.fatal(err)
	}

	if !r.slotsLeft() {
		return r.exhausted()
	}
	r.failed = &rec
	if r.loop.searchAvailable() {
		if q, ok := r.loop.policy.ShouldSearch(r.attempts, r.searches); ok {
			r.pendingQuery = research.Query{Text: q, MaxResults: r.loop.cfg.MaxSearchResults}
			r.pendingSource = TriggerPolicy
			return StateEscalateSearch
		}
	}
	return StateCorrect
}

func (r *run) escalateSearch() State {
	q := r.pendingQuery
	rec := SearchRecord{
		Query:        q.Text,
		FocusMode:    q.FocusMode,
		Trigger:      r.pendingSource,
		AfterAttempt: len(r.attempts),
	}

	results, err := r.loop.searcher.Search(r.ctx, q)
	if err != nil {
		rec.Err = err
		results = research.Results{}
	}
	rec.Sources = len(results.Sources)
	rec.Backend = results.Backend
	r.searches = append(r.searches, rec)
	r.loop.observer.OnSearch(r.turn.ID, rec)

	r.searchResults = research.FormatResults(results)
	return StateCorrect
}

func (r *run) correct() State {
	cfg := r.loop.cfg
	data := prompt.CorrectionData{
		MaxAttempts:   cfg.MaxRetries + 1,
		Remaining:     cfg.MaxRetries - r.corrections - 1,
		SearchQuery:   r.pendingQuery.Text,
		SearchResults: r.searchResults,
		SearchEnabled: r.loop.searchAvailable() && r.loop.policy.AllowDirective(),
		Note:          r.note,
		Timeout:       cfg.ActionTimeout,
	}
	if f := r.failed; f != nil {
		data.Language = f.Action.Language
		if data.Language == "" {
			data.Language = string(f.Action.Kind)
		}
		data.Code = f.Action.Payload
		data.ExitCode = f.Outcome.ExitString()
		data.TimedOut = f.Outcome.TimedOut
		data.Stdout = prompt.Tail(f.Outcome.Stdout, cfg.TailBytes)
		data.Stderr = prompt.Tail(f.Outcome.Stderr, cfg.TailBytes)
		data.Attempt = f.Number
		data.Hint = f.Hint
		if f.Ignored > 0 {
			data.Diagnostic = fmt.Sprintf("your reply contained %d more action(s) after the first; they were not executed. Emit exactly one action per reply.", f.Ignored)
		}
	}

	text, err := prompt.Correction(data)
	if err != nil {
		return r.fatal(fmt.Errorf("failed to build correction prompt: %w", err))
	}

	r.conv = r.conv.WithTurn(r.lastPrompt, r.text)
	reply, err := r.loop.llm.Generate(r.ctx, text, r.conv)
	if err != nil {
		return r.llmFailure(err)
	}

	r.corrections++
	r.lastPrompt = text
	r.text = reply
	r.pendingQuery = research.Query{}
	r.pendingSource = ""
	r.searchResults = ""
	r.note = ""
	return StateParse
}

func (r *run) llmFailure(err error) State {
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return r.fatal(fmt.Errorf("%w: %w", ErrCanceled, ctxErr))
	}
	return r.fatal(fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err))
}

func (r *run) fatal(err error) State {
	r.result.Status = StatusFatalError
	r.result.Err = err
	r.result.FinalText = fatalText(err.Error(), r.attempts, r.searches, r.loop.cfg.TailBytes)
	return StateDone
}

func (r *run) exhausted() State {
	n := len(r.attempts)
	var last error = errors.New("no action executed")
	if n > 0 && r.attempts[n-1].Err != nil {
		last = r.attempts[n-1].Err
	}
	r.result.Status = StatusExhaustedRetries
	r.result.Err = fmt.Errorf("%w after %d attempt(s): %w", ErrRetriesExhausted, n, last)
	r.result.FinalText = exhaustedText(r.attempts, r.searches, r.loop.cfg.TailBytes)
	return StateDone
}
