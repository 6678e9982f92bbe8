package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_DebugModeWritesFile(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, Initialize(Options{Workspace: ws, DebugMode: true, Level: "debug"}))
	defer CloseAll()

	Loop("attempt %d failed", 1)
	TactileDebug("spawned pid %d", 42)
	CloseAll()

	data, err := os.ReadFile(filepath.Join(ws, ".jarvis", "logs", "jarvis.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "attempt 1 failed")
	assert.Contains(t, string(data), "spawned pid 42")
	assert.Contains(t, string(data), "loop")
}

func TestInitialize_ProductionModeIsSilent(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, Initialize(Options{Workspace: ws}))
	defer CloseAll()

	Session("should not be written")

	_, err := os.Stat(filepath.Join(ws, ".jarvis", "logs"))
	assert.True(t, os.IsNotExist(err), "logs dir must not be created outside debug mode")
	assert.False(t, IsDebugMode())
}

func TestInitialize_RequiresWorkspace(t *testing.T) {
	assert.Error(t, Initialize(Options{}))
}

func TestCategoryFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseCore(core, Options{DebugMode: true, Categories: map[string]bool{"tactile": false}})
	defer CloseAll()

	Tactile("hidden")
	Loop("visible")
	World("default enabled")

	var msgs []string
	for _, e := range logs.All() {
		msgs = append(msgs, e.LoggerName+":"+e.Message)
	}
	assert.Equal(t, []string{"loop:visible", "world:default enabled"}, msgs)
	assert.False(t, IsCategoryEnabled(CategoryTactile))
	assert.True(t, IsCategoryEnabled(CategoryLoop))
}

func TestLoggerWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	UseCore(core, Options{DebugMode: true})
	defer CloseAll()

	Get(CategorySession).With("turn", "t-1").Info("turn %s", "done")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "turn done", entry.Message)
	assert.Equal(t, "t-1", entry.ContextMap()["turn"])
}

func TestTimerStopWithThreshold(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseCore(core, Options{DebugMode: true})
	defer CloseAll()

	timer := StartTimer(CategoryAPI, "generate")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Millisecond)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.True(t, strings.HasPrefix(logs.All()[0].Message, "generate took"))
}

func TestAuditLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	UseAuditCore(core)
	defer CloseAudit()

	code := 1
	a := AuditWithSession("s-1")
	a.TurnStart("t-1", 12)
	a.Attempt("t-1", 1, "python", "recoverable", &code, false, 20*time.Millisecond)
	a.TurnEnd("t-1", "succeeded", 2, time.Second)

	require.Equal(t, 3, logs.Len())
	attempt := logs.All()[1].ContextMap()
	assert.Equal(t, "attempt", attempt["event"])
	assert.Equal(t, "s-1", attempt["session"])
	assert.Equal(t, "recoverable", attempt["target"])
	assert.Equal(t, false, attempt["success"])

	end := logs.All()[2].ContextMap()
	assert.Equal(t, true, end["success"])
}
