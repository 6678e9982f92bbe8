package prompt

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedAtoms(t *testing.T) {
	atoms, err := LoadEmbeddedAtoms()
	require.NoError(t, err)

	for _, id := range []string{"system", "correction", "turn", "agent_system", "agent_task", "agent_result", "agent_final"} {
		atom, ok := atoms[id]
		require.True(t, ok, "missing atom %s", id)
		assert.NotEmpty(t, atom.Description)
	}
}

func TestParseAtomsRejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"atoms/a.yaml": {Data: []byte("id: x\ncontent: a\n")},
		"atoms/b.yaml": {Data: []byte("id: x\ncontent: b\n")},
	}
	_, _, err := parseAtoms(fsys)
	assert.ErrorContains(t, err, "duplicate")
}

func TestParseAtomsRejectsBadTemplate(t *testing.T) {
	fsys := fstest.MapFS{"atoms/a.yaml": {Data: []byte("id: x\ncontent: \"{{.Broken\"\n")}}
	_, _, err := parseAtoms(fsys)
	assert.Error(t, err)
}

func TestSystem(t *testing.T) {
	out, err := System(SystemData{
		OS:            "linux",
		Shell:         "sh -c",
		Workspace:     "/tmp/ws",
		Snapshot:      "data.csv (12 B)",
		Memories:      []string{"user prefers pandas"},
		SearchEnabled: true,
		MaxRetries:    2,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "You are Jarvis")
	assert.Contains(t, out, "```bash ... ```")
	assert.Contains(t, out, "data.csv (12 B)")
	assert.Contains(t, out, "- user prefers pandas")
	assert.Contains(t, out, `SEARCH_WEB: "your search query here"`)
	assert.Contains(t, out, "up to 2 time(s)")
}

func TestSystemWithoutSearchOrMemories(t *testing.T) {
	out, err := System(SystemData{OS: "windows", Shell: "cmd /C", ShellTag: "cmd", Workspace: "C:\\ws"})
	require.NoError(t, err)

	assert.NotContains(t, out, "SEARCH_WEB")
	assert.NotContains(t, out, "relevant memories")
	assert.Contains(t, out, "(empty)")
	assert.Contains(t, out, "```cmd ... ```")
}

func TestCorrection(t *testing.T) {
	out, err := Correction(CorrectionData{
		Language:      "python",
		Code:          "print(1/0)",
		ExitCode:      "1",
		Stderr:        "ZeroDivisionError: division by zero",
		Attempt:       1,
		MaxAttempts:   3,
		Remaining:     1,
		Hint:          "Check for division by zero.",
		SearchEnabled: true,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "attempt 1 of 3")
	assert.Contains(t, out, "```python\nprint(1/0)\n```")
	assert.Contains(t, out, "exited with code 1")
	assert.Contains(t, out, "ZeroDivisionError")
	assert.Contains(t, out, "Hint: Check for division by zero.")
	assert.Contains(t, out, "SEARCH_WEB")
	assert.Contains(t, out, "1 correction(s) left")
	assert.NotContains(t, out, "search results")
}

func TestCorrectionWithSearchAndTimeout(t *testing.T) {
	out, err := Correction(CorrectionData{
		Language:      "sh",
		Code:          "sleep 100",
		TimedOut:      true,
		Timeout:       30 * time.Second,
		Attempt:       2,
		MaxAttempts:   3,
		SearchQuery:   "sleep command timeout",
		SearchResults: "1. Title\n   https://example.com",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "within 30s")
	assert.Contains(t, out, "You requested a web search for: sleep command timeout")
	assert.Contains(t, out, "https://example.com")
	assert.Contains(t, out, "Based on these search results")
	assert.NotContains(t, out, "exited with code")
}

func TestCorrectionDirectiveOnly(t *testing.T) {
	out, err := Correction(CorrectionData{SearchQuery: "q", Diagnostic: "unterminated ```python block"})
	require.NoError(t, err)
	assert.NotContains(t, out, "I tried to execute")
	assert.Contains(t, out, "(no results were found)")
	assert.Contains(t, out, "Note: unterminated")
}

func TestTurn(t *testing.T) {
	out, err := Turn(TurnData{UserText: "list files"})
	require.NoError(t, err)
	assert.Equal(t, "list files", out)

	out, err = Turn(TurnData{UserText: "again", Diagnostic: "unterminated ```sh block opened on line 2"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "(Your previous reply could not be executed"))
	assert.True(t, strings.HasSuffix(out, "again"))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", Tail("short\n", 100))
	assert.Equal(t, "...\nline3", Tail("line1\nline2\nline3", 8))
	assert.Equal(t, "abc", Tail("abc", 0))

	got := Tail("h\u00e9llo", 4)
	assert.Equal(t, "...\nllo", got)
	assert.True(t, utf8.ValidString(got))
}

func TestAgentSystemListsToolsByCategory(t *testing.T) {
	out, err := AgentSystem(AgentSystemData{
		OS:        "linux",
		Workspace: "/ws",
		Groups: []AgentToolGroup{
			{Category: "/execute", Tools: []AgentTool{{Name: "execute_python", Description: "Run python.", Args: "code (string, required)"}}},
			{Category: "/workspace", Tools: []AgentTool{{Name: "workspace_state", Description: "Show files."}}},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "/ws on linux")
	assert.Contains(t, out, "[/execute]\n- execute_python: Run python.\n  arguments: code (string, required)")
	assert.Contains(t, out, "[/workspace]\n- workspace_state: Show files.")
	assert.Contains(t, out, "<tool>")
	assert.Contains(t, out, "<answer>")
	assert.Less(t, strings.Index(out, "[/execute]"), strings.Index(out, "[/workspace]"))
}

func TestAgentTaskAndResult(t *testing.T) {
	task, err := AgentTask(AgentTaskData{Task: "count files", Snapshot: "a.txt (1 B)", Memories: []string{"used list_directory"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(task, "Task: count files"))
	assert.Contains(t, task, "a.txt (1 B)")
	assert.Contains(t, task, "- used list_directory")

	bare, err := AgentTask(AgentTaskData{Task: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, bare, "workspace state")
	assert.NotContains(t, bare, "memories")

	res, err := AgentResult(AgentResultData{Tool: "read_file", Input: `{"path":"x"}`, Result: "boom", Failed: true, Iteration: 2, MaxIterations: 10})
	require.NoError(t, err)
	assert.Contains(t, res, "I used the tool 'read_file'")
	assert.Contains(t, res, "It failed with:\nboom")
	assert.Contains(t, res, "step 2 of at most 10")
}

func TestAgentFinal(t *testing.T) {
	out, err := AgentFinal(AgentFinalData{
		Task:          "t",
		MaxIterations: 2,
		Steps: []AgentStep{
			{Number: 1, Tool: "a", Input: "{}", Result: "r1"},
			{Number: 2, Tool: "b", Input: "{}", Result: "r2"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Step 1:\n- Tool: a")
	assert.Contains(t, out, "Step 2:\n- Tool: b")
	assert.Contains(t, out, "maximum of 2 steps")
}
