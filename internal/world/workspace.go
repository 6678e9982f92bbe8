// Package world is the read-only view of the workspace directory that actions
// run in: a bounded snapshot for prompts, guarded file helpers, and a watcher
// that marks the snapshot stale when files change.
package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"jarvis/internal/logging"
)

// ErrOutsideWorkspace is returned for paths that resolve outside the root.
var ErrOutsideWorkspace = errors.New("path is outside the workspace")

// Options bounds a snapshot.
type Options struct {
	// Depth is how many directory levels are listed; 1 lists the root only.
	Depth int
	// MaxFiles caps the number of listed entries.
	MaxFiles int
	// SmallFileBytes is the size limit for inlining file contents.
	SmallFileBytes int64
	// SmallFileCount caps the number of inlined files.
	SmallFileCount int
}

// DefaultOptions returns the snapshot defaults.
func DefaultOptions() Options {
	return Options{Depth: 2, MaxFiles: 200, SmallFileBytes: 2048, SmallFileCount: 5}
}

// FileInfo is one snapshot entry. Path is slash-separated and relative to the root.
type FileInfo struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	IsDir    bool      `json:"is_dir"`
	ModTime  time.Time `json:"mod_time"`
	Language string    `json:"language,omitempty"`
}

// Snapshot is a point-in-time listing of the workspace.
type Snapshot struct {
	Root     string            `json:"root"`
	Files    []FileInfo        `json:"files"`
	Contents map[string]string `json:"contents,omitempty"`

	// Truncated is set when MaxFiles cut the listing short.
	Truncated bool      `json:"truncated,omitempty"`
	TakenAt   time.Time `json:"taken_at"`
}

// String renders the snapshot for a prompt.
func (s Snapshot) String() string {
	if len(s.Files) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, f := range s.Files {
		if f.IsDir {
			sb.WriteString(f.Path + "/\n")
			continue
		}
		fmt.Fprintf(&sb, "%s (%s)\n", f.Path, humanSize(f.Size))
	}
	if s.Truncated {
		sb.WriteString("... (listing truncated)\n")
	}

	paths := make([]string, 0, len(s.Contents))
	for p := range s.Contents {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", p, strings.TrimRight(s.Contents[p], "\n"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Workspace is the directory actions run in.
type Workspace struct {
	root string
	opts Options

	mu      sync.Mutex
	cached  *Snapshot
	stale   bool
	scans   int
	watcher *Watcher
}

// Open resolves root to an absolute path, creating it when missing.
func Open(root string, opts Options) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	def := DefaultOptions()
	if opts.Depth <= 0 {
		opts.Depth = def.Depth
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = def.MaxFiles
	}
	if opts.SmallFileBytes < 0 {
		opts.SmallFileBytes = 0
	}

	logging.World("Workspace at %s", abs)
	return &Workspace{root: abs, opts: opts, stale: true}, nil
}

// Root returns the absolute workspace path.
func (w *Workspace) Root() string { return w.root }

// Invalidate forces the next Snapshot to rescan.
func (w *Workspace) Invalidate() {
	w.mu.Lock()
	w.stale = true
	w.mu.Unlock()
}

// Scans returns how many times the directory was walked.
func (w *Workspace) Scans() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scans
}

// Snapshot returns the current listing. Without a running watcher every call
// rescans; with one, the cached snapshot is reused until a change arrives.
func (w *Workspace) Snapshot(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cached != nil && !w.stale && w.watcher != nil {
		return *w.cached, nil
	}

	snap, err := w.scan(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	w.scans++
	w.cached = &snap
	w.stale = false
	return snap, nil
}

func (w *Workspace) scan(ctx context.Context) (Snapshot, error) {
	timer := logging.StartTimer(logging.CategoryWorld, "Snapshot")
	defer timer.Stop()

	snap := Snapshot{Root: w.root, Contents: map[string]string{}, TakenAt: time.Now()}
	var small []FileInfo

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			logging.WorldDebug("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == w.root {
			return nil
		}

		rel, _ := filepath.Rel(w.root, path)
		rel = filepath.ToSlash(rel)
		if skipEntry(d.Name(), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		depth := strings.Count(rel, "/") + 1
		if depth > w.opts.Depth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if len(snap.Files) >= w.opts.MaxFiles {
			snap.Truncated = true
			return filepath.SkipAll
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		fi := FileInfo{Path: rel, IsDir: d.IsDir(), ModTime: info.ModTime()}
		if !d.IsDir() {
			fi.Size = info.Size()
			fi.Language = detectLanguage(filepath.Ext(path), path)
			if w.opts.SmallFileBytes > 0 && fi.Size <= w.opts.SmallFileBytes {
				small = append(small, fi)
			}
		}
		snap.Files = append(snap.Files, fi)
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return Snapshot{}, fmt.Errorf("failed to scan workspace: %w", err)
	}

	for _, f := range small {
		if len(snap.Contents) >= w.opts.SmallFileCount {
			break
		}
		if content, ok := readText(filepath.Join(w.root, filepath.FromSlash(f.Path)), w.opts.SmallFileBytes); ok {
			snap.Contents[f.Path] = content
		}
	}

	logging.WorldDebug("Snapshot: %d entries, %d inlined", len(snap.Files), len(snap.Contents))
	return snap, nil
}

// skipEntry hides version-control and jarvis-internal entries and
// in-flight attempt scripts.
func skipEntry(name string, dir bool) bool {
	if strings.HasPrefix(name, ".jarvis") {
		return true
	}
	if dir {
		return strings.HasPrefix(name, ".") || name == "__pycache__" || name == "node_modules"
	}
	return false
}

func readText(path string, max int64) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max))
	if err != nil || !isText(data) {
		return "", false
	}
	return string(data), true
}

func isText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}

// Resolve maps a workspace-relative path to an absolute one, rejecting
// anything that escapes the root, symlinks included.
func (w *Workspace) Resolve(rel string) (string, error) {
	if rel == "" {
		rel = "."
	}
	var abs string
	if filepath.IsAbs(rel) {
		abs = filepath.Clean(rel)
	} else {
		abs = filepath.Join(w.root, filepath.FromSlash(rel))
	}
	if !within(w.root, abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, rel)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && !within(w.root, resolved) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, rel)
	}
	return abs, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ReadFile returns up to maxBytes of a workspace file (all of it when
// maxBytes <= 0).
func (w *Workspace) ReadFile(rel string, maxBytes int64) (string, error) {
	path, err := w.Resolve(rel)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ListDirectory lists one directory, directories first.
func (w *Workspace) ListDirectory(rel string) ([]FileInfo, error) {
	path, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	base, _ := filepath.Rel(w.root, path)
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if skipEntry(e.Name(), e.IsDir()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		p := filepath.ToSlash(filepath.Join(base, e.Name()))
		fi := FileInfo{Path: p, IsDir: e.IsDir(), ModTime: info.ModTime()}
		if !e.IsDir() {
			fi.Size = info.Size()
			fi.Language = detectLanguage(filepath.Ext(e.Name()), e.Name())
		}
		out = append(out, fi)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func humanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
