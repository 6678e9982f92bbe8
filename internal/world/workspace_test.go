package world

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// leakOpts ignores the stats worker opencensus starts at import time.
var leakOpts = []goleak.Option{
	goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newWorkspace(t *testing.T, opts Options) *Workspace {
	t.Helper()
	ws, err := Open(t.TempDir(), opts)
	require.NoError(t, err)
	return ws
}

func paths(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestOpenCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "ws")
	ws, err := Open(root, Options{})
	require.NoError(t, err)

	info, err := os.Stat(ws.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, DefaultOptions().Depth, ws.opts.Depth)
}

func TestSnapshotListsAndInlines(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	writeFile(t, ws.Root(), "data.csv", "a,b\n1,2\n")
	writeFile(t, ws.Root(), "script.py", "print('hi')\n")
	writeFile(t, ws.Root(), "big.txt", strings.Repeat("x", 4096))
	writeFile(t, ws.Root(), "sub/inner.json", "{}")
	writeFile(t, ws.Root(), "sub/deep/too_deep.txt", "hidden by depth")
	writeFile(t, ws.Root(), ".git/config", "[core]")
	writeFile(t, ws.Root(), ".jarvis_attempt_1.py", "print(1)")

	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)

	got := paths(snap.Files)
	assert.ElementsMatch(t, []string{"big.txt", "data.csv", "script.py", "sub", "sub/deep", "sub/inner.json"}, got)
	assert.Equal(t, "a,b\n1,2\n", snap.Contents["data.csv"])
	assert.NotContains(t, snap.Contents, "big.txt")
	assert.False(t, snap.Truncated)

	for _, f := range snap.Files {
		if f.Path == "script.py" {
			assert.Equal(t, "python", f.Language)
		}
	}

	out := snap.String()
	assert.Contains(t, out, "data.csv (8 B)")
	assert.Contains(t, out, "big.txt (4.0 KB)")
	assert.Contains(t, out, "sub/\n")
	assert.Contains(t, out, "--- data.csv ---")
}

func TestSnapshotBounds(t *testing.T) {
	ws := newWorkspace(t, Options{Depth: 1, MaxFiles: 3, SmallFileBytes: 100, SmallFileCount: 1})
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"} {
		writeFile(t, ws.Root(), name, name)
	}

	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Files, 3)
	assert.True(t, snap.Truncated)
	assert.Len(t, snap.Contents, 1)
	assert.Contains(t, snap.String(), "listing truncated")
}

func TestSnapshotSkipsBinary(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	writeFile(t, ws.Root(), "blob.bin", "a\x00b")

	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Contents)
	assert.Len(t, snap.Files, 1)
}

func TestSnapshotEmpty(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Files)
	assert.Equal(t, "", snap.String())
}

func TestSnapshotCanceled(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	writeFile(t, ws.Root(), "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ws.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotRescansWithoutWatcher(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	_, err := ws.Snapshot(context.Background())
	require.NoError(t, err)

	writeFile(t, ws.Root(), "new.txt", "new")
	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new.txt"}, paths(snap.Files))
	assert.Equal(t, 2, ws.Scans())
}

func TestResolveRejectsEscape(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	writeFile(t, ws.Root(), "ok.txt", "ok")

	_, err := ws.Resolve("../outside.txt")
	assert.ErrorIs(t, err, ErrOutsideWorkspace)

	_, err = ws.Resolve("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideWorkspace)

	path, err := ws.Resolve("ok.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "ok.txt"), path)

	path, err = ws.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, ws.Root(), path)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	outside := t.TempDir()
	writeFile(t, outside, "secret.txt", "secret")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(ws.Root(), "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := ws.ReadFile("link.txt", 0)
	assert.ErrorIs(t, err, ErrOutsideWorkspace)
}

func TestReadFile(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	writeFile(t, ws.Root(), "notes.md", "hello world")

	got, err := ws.ReadFile("notes.md", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	got, err = ws.ReadFile("notes.md", 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = ws.ReadFile("missing.md", 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListDirectory(t *testing.T) {
	ws := newWorkspace(t, DefaultOptions())
	writeFile(t, ws.Root(), "z.txt", "z")
	writeFile(t, ws.Root(), "a.py", "a")
	writeFile(t, ws.Root(), "dir/x.txt", "x")
	writeFile(t, ws.Root(), ".hidden/x", "x")

	files, err := ws.ListDirectory(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir", "a.py", "z.txt"}, paths(files))

	files, err = ws.ListDirectory("dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/x.txt"}, paths(files))

	_, err = ws.ListDirectory("..")
	assert.ErrorIs(t, err, ErrOutsideWorkspace)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"analysis.PY", "python"},
		{"run.sh", "shell"},
		{"data.csv", "csv"},
		{"Dockerfile", "dockerfile"},
		{"requirements.txt", "text"},
		{"archive.xyz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, detectLanguage(filepath.Ext(tt.path), tt.path))
		})
	}
}

func TestWatcherInvalidatesSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	ws := newWorkspace(t, DefaultOptions())
	changed := make(chan []string, 4)
	w, err := NewWatcher(ws, WithDebounce(20*time.Millisecond), WithOnChange(func(p []string) {
		select {
		case changed <- p:
		default:
		}
	}))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	first, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, first.Files)

	// Cached while nothing changes.
	_, err = ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ws.Scans())

	writeFile(t, ws.Root(), "result.txt", "42")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	snap, err := ws.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"result.txt"}, paths(snap.Files))
	assert.Equal(t, 2, ws.Scans())

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.GreaterOrEqual(t, stats.Invalidations, 1)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts...)

	ws := newWorkspace(t, DefaultOptions())
	w, err := NewWatcher(ws)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
	assert.Nil(t, ws.watcher)
}
