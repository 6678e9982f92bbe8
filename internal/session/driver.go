// Package session drives the conversation: it assembles the system prompt
// from the workspace snapshot and recalled memories, hands each user turn to
// the correction loop, keeps a bounded history, and folds results into memory.
package session

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"jarvis/internal/correction"
	"jarvis/internal/logging"
	"jarvis/internal/perception"
	"jarvis/internal/prompt"
	"jarvis/internal/store"
	"jarvis/internal/tactile"
	"jarvis/internal/world"
)

// Workspace is the part of world.Workspace the driver reads.
type Workspace interface {
	Root() string
	Snapshot(ctx context.Context) (world.Snapshot, error)
}

// Runner runs one correction-loop turn. correction.Loop implements it.
type Runner interface {
	Run(ctx context.Context, turn correction.Turn) correction.Result
}

// Config configures a Driver.
type Config struct {
	SessionID string
	UserID    string

	// HistoryTurns is how many user/assistant pairs are kept (default 10).
	HistoryTurns int

	// RecallLimit is how many memories go into the system prompt (default 3).
	RecallLimit int

	// GOOS selects the shell named in the system prompt; empty means runtime.GOOS.
	GOOS string

	SearchEnabled bool
	MaxRetries    int
}

// DefaultConfig returns driver defaults.
func DefaultConfig() Config {
	return Config{
		UserID:        "jarvis_user",
		HistoryTurns:  10,
		RecallLimit:   3,
		SearchEnabled: true,
		MaxRetries:    2,
	}
}

// Driver is the session driver. RunTurn calls are serialised.
type Driver struct {
	mu sync.Mutex

	runner Runner
	ws     Workspace
	memory store.MemoryStore
	cfg    Config

	history perception.Conversation
	// pendingDiagnostic is a parser complaint about the previous final reply.
	pendingDiagnostic string

	turns   int
	started time.Time
	closed  bool
	newID   func() string
}

// NewDriver creates a driver. mem may be nil to disable memory.
func NewDriver(runner Runner, ws Workspace, mem store.MemoryStore, cfg Config) *Driver {
	def := DefaultConfig()
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.UserID == "" {
		cfg.UserID = def.UserID
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = def.HistoryTurns
	}
	if cfg.RecallLimit <= 0 {
		cfg.RecallLimit = def.RecallLimit
	}
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if mem == nil {
		mem = store.NopMemory{}
	}

	logging.Session("Session %s started for %s", cfg.SessionID, cfg.UserID)
	logging.AuditWithSession(cfg.SessionID).SessionStart(cfg.UserID)

	return &Driver{
		runner:  runner,
		ws:      ws,
		memory:  mem,
		cfg:     cfg,
		started: time.Now(),
		newID:   uuid.NewString,
	}
}

// SessionID returns the session identifier.
func (d *Driver) SessionID() string { return d.cfg.SessionID }

// Turns returns how many turns have run.
func (d *Driver) Turns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.turns
}

// History returns a copy of the retained conversation.
func (d *Driver) History() []perception.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]perception.Message, len(d.history.History))
	copy(out, d.history.History)
	return out
}

// Reset clears the conversation history and any pending diagnostic.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = perception.Conversation{}
	d.pendingDiagnostic = ""
	logging.Session("Session %s history cleared", d.cfg.SessionID)
}

// Close records the end of the session. It does not close collaborators.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	logging.AuditWithSession(d.cfg.SessionID).SessionEnd(d.turns, time.Since(d.started))
}

// RunTurn processes one user message to a terminal result.
func (d *Driver) RunTurn(ctx context.Context, userText string) correction.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	turnID := d.newID()
	audit := logging.AuditWithSession(d.cfg.SessionID)
	text := strings.TrimSpace(userText)
	if text == "" {
		return correction.Result{TurnID: turnID, Status: correction.StatusNoActionNeeded}
	}

	audit.TurnStart(turnID, len(text))
	logging.Session("Turn %s: %d chars", turnID, len(text))

	system, err := d.systemPrompt(ctx, text)
	if err != nil {
		return d.abort(turnID, err)
	}
	userPrompt, err := prompt.Turn(prompt.TurnData{UserText: text, Diagnostic: d.pendingDiagnostic})
	if err != nil {
		return d.abort(turnID, err)
	}

	result := d.runner.Run(ctx, correction.Turn{
		ID:     turnID,
		Prompt: userPrompt,
		Conversation: perception.Conversation{
			System:  system,
			History: d.history.History,
		},
	})

	if reply := strings.TrimSpace(result.FinalText); reply != "" {
		d.history = d.history.WithTurn(userPrompt, reply).Trim(d.cfg.HistoryTurns)
	}
	d.pendingDiagnostic = result.Diagnostic
	d.turns++

	d.remember(ctx, text, result)

	audit.TurnEnd(turnID, string(result.Status), len(result.Attempts), result.Duration)
	logging.Session("Turn %s ended %s after %d attempt(s) in %v", turnID, result.Status, len(result.Attempts), result.Duration)
	return result
}

func (d *Driver) abort(turnID string, err error) correction.Result {
	logging.SessionError("Turn %s aborted: %v", turnID, err)
	err = fmt.Errorf("failed to build prompt: %w", err)
	return correction.Result{
		TurnID:    turnID,
		Status:    correction.StatusFatalError,
		Err:       err,
		Reason:    err.Error(),
		FinalText: "Stopped: " + err.Error(),
	}
}

// systemPrompt renders the system prompt. Snapshot and memory failures are
// logged and leave their sections empty.
func (d *Driver) systemPrompt(ctx context.Context, text string) (string, error) {
	data := prompt.SystemData{
		OS:            d.cfg.GOOS,
		SearchEnabled: d.cfg.SearchEnabled,
		MaxRetries:    d.cfg.MaxRetries,
	}
	sh := tactile.ShellFor(d.cfg.GOOS, "")
	data.Shell = strings.TrimSpace(sh.Binary + " " + strings.Join(sh.Args, " "))
	data.ShellTag = shellTag(d.cfg.GOOS)

	if d.ws != nil {
		data.Workspace = d.ws.Root()
		snap, err := d.ws.Snapshot(ctx)
		if err != nil {
			logging.SessionWarn("Workspace snapshot failed: %v", err)
		} else {
			data.Snapshot = snap.String()
		}
	}

	hits, err := d.memory.Query(ctx, text, d.cfg.RecallLimit)
	if err != nil {
		logging.SessionWarn("Memory recall failed: %v", err)
	}
	for _, h := range hits {
		data.Memories = append(data.Memories, clip(strings.TrimSpace(h.Content), 300))
	}

	return prompt.System(data)
}

func shellTag(goos string) string {
	if goos == "windows" {
		return "cmd"
	}
	return "bash"
}

// clip keeps the first n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
