package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/agent"
	"jarvis/internal/correction"
	"jarvis/internal/perception"
	"jarvis/internal/tactile"
)

func failedResult() correction.Result {
	return correction.Result{
		Status: correction.StatusExhaustedRetries,
		Attempts: []correction.AttemptRecord{
			{
				Number:         1,
				Action:         perception.Action{Kind: perception.KindPython, Payload: "import pandas"},
				Outcome:        tactile.Outcome{ExitCode: tactile.ExitCodePtr(1), Stderr: "ModuleNotFoundError", Duration: 120 * time.Millisecond},
				Classification: correction.ClassRecoverable,
			},
			{
				Number:         2,
				Action:         perception.Action{Kind: perception.KindShell, Payload: "sleep 100"},
				Outcome:        tactile.Outcome{TimedOut: true},
				Classification: correction.ClassFatal,
			},
		},
		Searches: []correction.SearchRecord{
			{Query: "install pandas", Trigger: correction.TriggerPolicy, Sources: 3, AfterAttempt: 1},
			{Query: "sleep", Trigger: correction.TriggerDirective, Err: errors.New("down"), AfterAttempt: 2},
		},
		FinalText: "I could not complete this request after 2 attempt(s).",
		Reason:    "timed out",
		Duration:  1500 * time.Millisecond,
	}
}

func TestAttemptLinesInterleavesSearches(t *testing.T) {
	lines := AttemptLines(DefaultStyles(), failedResult())
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "#1")
	assert.Contains(t, lines[0], "exit 1")
	assert.Contains(t, lines[1], `"install pandas"`)
	assert.Contains(t, lines[1], "3 source(s)")
	assert.Contains(t, lines[2], "#2")
	assert.Contains(t, lines[2], "timed out")
	assert.Contains(t, lines[3], "failed")
}

func TestRenderResult(t *testing.T) {
	styles := DefaultStyles()

	out := RenderResult(styles, nil, failedResult(), false)
	assert.Contains(t, out, "EXHAUSTED_RETRIES")
	assert.Contains(t, out, "2 attempt(s), 2 search(es), 1.5s")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "could not complete")
	assert.Contains(t, out, "timed out")

	ok := correction.Result{Status: correction.StatusNoActionNeeded, FinalText: "Hello!"}
	out = RenderResult(styles, nil, ok, false)
	assert.Contains(t, out, "NO_ACTION_NEEDED")
	assert.Contains(t, out, "Hello!")
	assert.NotContains(t, out, "#1")
}

func TestRenderAgentResult(t *testing.T) {
	styles := DefaultStyles()
	r := agent.Result{
		Output:     "The file has 3 lines.",
		Iterations: 3,
		Exhausted:  true,
		Steps: []agent.Step{
			{Iteration: 1, Tool: "read_file", Duration: 4 * time.Millisecond},
			{Iteration: 2, Tool: "execute_shell", Error: "exit 1\nmore detail"},
		},
		Duration: 2 * time.Second,
	}

	out := RenderAgentResult(styles, nil, r, false)
	assert.Contains(t, out, "EXHAUSTED")
	assert.Contains(t, out, "3 iteration(s), 2 tool call(s), 2s")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "read_file")
	assert.Contains(t, out, "exit 1")
	assert.NotContains(t, out, "more detail")
	assert.Contains(t, out, "The file has 3 lines.")

	r.Exhausted = false
	out = RenderAgentResult(styles, nil, r, false)
	assert.Contains(t, out, "ANSWERED")
	assert.NotContains(t, out, "#1")

	r.Err = errors.New("language model unavailable")
	assert.Contains(t, RenderAgentResult(styles, nil, r, false), "FAILED")
}

func TestMarkdownFallback(t *testing.T) {
	var md *Markdown
	assert.Equal(t, "**x**", md.Render("**x**"))
	assert.Equal(t, 0, md.Width())

	md = NewMarkdown(0)
	assert.Equal(t, 80, md.Width())
	assert.Contains(t, md.Render("hello"), "hello")
}

func TestSimpleTable(t *testing.T) {
	table := NewSimpleTable("Batch", []string{"#", "Status", "Instruction"})
	assert.Equal(t, "", table.View(DefaultStyles()))

	table.AddRow("1", "succeeded", "count rows")
	table.AddRow("2", "fatal_error")

	view := table.View(DefaultStyles())
	assert.Contains(t, view, "Batch")
	assert.Contains(t, view, "count rows")
	assert.Contains(t, view, "fatal_error")
	assert.Len(t, strings.Split(view, "\n"), 5)
}

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme().IsDark)

	t.Setenv("COLORFGBG", "0;15")
	t.Setenv("JARVIS_DARK_MODE", "")
	assert.False(t, DetectTheme().IsDark)
}
