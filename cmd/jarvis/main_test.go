package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/cmd/jarvis/ui"
	"jarvis/internal/agent"
	"jarvis/internal/config"
	"jarvis/internal/correction"
)

type fakeTurnRunner struct {
	RunTurnFunc func(ctx context.Context, text string) correction.Result
	seen        []string
}

func (f *fakeTurnRunner) RunTurn(ctx context.Context, text string) correction.Result {
	f.seen = append(f.seen, text)
	return f.RunTurnFunc(ctx, text)
}

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReadInstructions(t *testing.T) {
	in := strings.NewReader("# setup\n\ncount rows in data.csv\n   \n  # indented comment\nplot it  \n")
	got, err := readInstructions(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"count rows in data.csv", "plot it"}, got)
}

func TestExecuteBatch(t *testing.T) {
	runner := &fakeTurnRunner{RunTurnFunc: func(_ context.Context, text string) correction.Result {
		if text == "bad" {
			return correction.Result{Status: correction.StatusFatalError}
		}
		return correction.Result{Status: correction.StatusSucceeded}
	}}

	var progress bytes.Buffer
	results := executeBatch(context.Background(), runner, []string{"a", "bad", "c"}, &progress)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "bad", "c"}, runner.seen)
	assert.Contains(t, progress.String(), "[2/3] bad")

	stopOnFailure = true
	t.Cleanup(func() { stopOnFailure = false })
	runner.seen = nil
	results = executeBatch(context.Background(), runner, []string{"a", "bad", "c"}, &progress)
	assert.Len(t, results, 2)

	view := batchTable([]string{"a", "bad", "c"}, results).View(ui.DefaultStyles())
	assert.Contains(t, view, "fatal_error")
	assert.Contains(t, view, "skipped")
}

func TestExecuteBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeTurnRunner{RunTurnFunc: func(context.Context, string) correction.Result {
		cancel()
		return correction.Result{Status: correction.StatusFatalError}
	}}
	results := executeBatch(ctx, runner, []string{"a", "b"}, &bytes.Buffer{})
	assert.Len(t, results, 1)
}

type fakeTaskRunner struct {
	RunFunc func(ctx context.Context, task string) agent.Result
	seen    []string
	resets  int
}

func (f *fakeTaskRunner) Run(ctx context.Context, task string) agent.Result {
	f.seen = append(f.seen, task)
	return f.RunFunc(ctx, task)
}

func (f *fakeTaskRunner) Reset() { f.resets++ }

func TestAgentLoop(t *testing.T) {
	runner := &fakeTaskRunner{RunFunc: func(_ context.Context, task string) agent.Result {
		if task == "break" {
			return agent.Result{Task: task, Err: agent.ErrModelUnavailable, Output: "Stopped: language model unavailable"}
		}
		return agent.Result{Task: task, Output: "done: " + task, Iterations: 1}
	}}

	var out bytes.Buffer
	in := strings.NewReader("list files\n\n/reset\nbreak\ncount lines\nexit\nnever\n")
	require.NoError(t, agentLoop(context.Background(), runner, in, &out))

	assert.Equal(t, []string{"list files", "break", "count lines"}, runner.seen)
	assert.Equal(t, 1, runner.resets)
	assert.Contains(t, out.String(), "done: list files")
	assert.Contains(t, out.String(), "Conversation cleared.")
	assert.Contains(t, out.String(), "FAILED")
	assert.Contains(t, out.String(), "done: count lines")
}

func TestAgentLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeTaskRunner{RunFunc: func(_ context.Context, task string) agent.Result {
		cancel()
		return agent.Result{Task: task, Err: agent.ErrCanceled}
	}}
	require.NoError(t, agentLoop(ctx, runner, strings.NewReader("a\nb\n"), &bytes.Buffer{}))
	assert.Equal(t, []string{"a"}, runner.seen)
}

func TestAgentLoopJSON(t *testing.T) {
	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })
	runner := &fakeTaskRunner{RunFunc: func(_ context.Context, task string) agent.Result {
		return agent.Result{TaskID: "t1", Task: task, Output: "42"}
	}}

	var out bytes.Buffer
	require.NoError(t, agentLoop(context.Background(), runner, strings.NewReader("answer\n"), &out))
	assert.NotContains(t, out.String(), "agent>")
	assert.Contains(t, out.String(), `"task_id": "t1"`)
	assert.Contains(t, out.String(), `"output": "42"`)
}

func TestClipAndHumanBytes(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcdefg...", clip("abcdefghijklmnop", 10))
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KB", humanBytes(1536))
	assert.Equal(t, "3.8 GB", humanBytes(4_081_004_544))
}

func TestVersionCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execRoot(t, "version", "--workspace", filepath.Join(dir, "ws"), "--config", filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "jarvis "+version)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jarvis.yaml")
	ws := filepath.Join(dir, "ws")

	out, err := execRoot(t, "config", "init", "--config", path, "--workspace", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execRoot(t, "config", "init", "--config", path, "--workspace", ws)
	assert.ErrorContains(t, err, "already exists")

	t.Setenv("OPENAI_API_KEY", "sk-secret")
	t.Setenv("JARVIS_LLM_PROVIDER", config.ProviderOpenAI)
	out, err = execRoot(t, "config", "show", "--config", path, "--workspace", ws)
	require.NoError(t, err)
	assert.Contains(t, out, "provider: openai")
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "sk-secret")
}

func TestMemoryCommandsRequirePersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jarvis.yaml")
	c := config.DefaultConfig()
	c.Memory.Persistent = false
	require.NoError(t, c.Save(path))

	_, err := execRoot(t, "memory", "stats", "--config", path, "--workspace", filepath.Join(dir, "ws"))
	assert.ErrorContains(t, err, "persistent memory is disabled")
}

func TestMemoryStatsOnFreshStore(t *testing.T) {
	dir := t.TempDir()
	out, err := execRoot(t, "memory", "stats", "--config", filepath.Join(dir, "none.yaml"), "--workspace", filepath.Join(dir, "ws"))
	require.NoError(t, err)
	assert.Contains(t, out, "total")
	_, err = os.Stat(filepath.Join(dir, "ws", ".jarvis", "memory.db"))
	assert.NoError(t, err)
}
