package chat

import (
	"context"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/correction"
)

type fakeRunner struct {
	RunTurnFunc func(ctx context.Context, text string) correction.Result
	resets      atomic.Int32
}

func (f *fakeRunner) RunTurn(ctx context.Context, text string) correction.Result {
	return f.RunTurnFunc(ctx, text)
}

func (f *fakeRunner) Reset() { f.resets.Add(1) }

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// collect runs cmd and any batched commands, returning the produced messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestSubmitRunsTurn(t *testing.T) {
	runner := &fakeRunner{RunTurnFunc: func(ctx context.Context, text string) correction.Result {
		return correction.Result{Status: correction.StatusSucceeded, FinalText: "done: " + text}
	}}
	m := sized(t, New(context.Background(), runner, Options{Workspace: "/ws"}))
	assert.Contains(t, m.View(), "jarvis")

	m.textarea.SetValue("count the rows")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.True(t, m.loading)
	assert.Contains(t, m.View(), "working")

	var done *turnDoneMsg
	for _, msg := range collect(cmd) {
		if d, ok := msg.(turnDoneMsg); ok {
			done = &d
		}
	}
	require.NotNil(t, done)
	assert.Equal(t, "done: count the rows", done.result.FinalText)

	next, _ = m.Update(*done)
	m = next.(Model)
	assert.False(t, m.loading)
	assert.Equal(t, 1, m.turns)
	history := m.renderHistory()
	assert.Contains(t, history, "count the rows")
	assert.Contains(t, history, "SUCCEEDED")
}

func TestEmptyInputIgnored(t *testing.T) {
	runner := &fakeRunner{RunTurnFunc: func(context.Context, string) correction.Result {
		t.Fatal("runner must not be called")
		return correction.Result{}
	}}
	m := sized(t, New(context.Background(), runner, Options{}))
	m.textarea.SetValue("   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).loading)
}

func TestSlashCommands(t *testing.T) {
	runner := &fakeRunner{}
	m := sized(t, New(context.Background(), runner, Options{}))

	m.textarea.SetValue("/trail")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.True(t, m.opts.Verbose)

	m.textarea.SetValue("/reset")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	assert.Equal(t, int32(1), runner.resets.Load())
	assert.Contains(t, m.renderHistory(), "Conversation cleared.")

	m.textarea.SetValue("/bogus")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, next.(Model).renderHistory(), "Unknown command /bogus")

	m.textarea.SetValue("/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCtrlCCancelsRunningTurn(t *testing.T) {
	canceled := make(chan struct{})
	runner := &fakeRunner{RunTurnFunc: func(ctx context.Context, text string) correction.Result {
		<-ctx.Done()
		close(canceled)
		return correction.Result{Status: correction.StatusFatalError, Reason: ctx.Err().Error()}
	}}
	m := sized(t, New(context.Background(), runner, Options{}))
	m.textarea.SetValue("sleep forever")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	results := make(chan []tea.Msg, 1)
	go func() { results <- collect(cmd) }()

	next, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, quit)
	<-canceled
	msgs := <-results
	assert.NotEmpty(t, msgs)
	assert.True(t, next.(Model).loading)
}
