package tactile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"jarvis/internal/logging"
)

// ScriptKind selects how a Script runs. The values match the parser's action
// kinds, so a parsed action converts by value.
type ScriptKind string

const (
	ScriptPython ScriptKind = "python"
	ScriptShell  ScriptKind = "shell"
)

// Script is one snippet to run in the workspace.
type Script struct {
	Kind ScriptKind

	// Language is the fence tag as written; it picks the shell for ScriptShell.
	Language string

	Payload string
}

// RunnerConfig configures an ActionRunner.
type RunnerConfig struct {
	// Workspace is the working directory of every action.
	Workspace string

	// PythonBinary overrides DefaultPython.
	PythonBinary string

	// Timeout is the hard wall-clock limit per action.
	Timeout time.Duration

	// MaxOutputBytes caps stdout and stderr separately.
	MaxOutputBytes int64

	// GOOS selects the shell; empty means runtime.GOOS.
	GOOS string

	// SessionID tags audit events.
	SessionID string
}

// ActionRunner turns parsed actions into processes. It never returns an error:
// every failure is folded into the Outcome.
type ActionRunner struct {
	executor Executor
	cfg      RunnerConfig
}

// NewActionRunner creates a runner over executor.
func NewActionRunner(executor Executor, cfg RunnerConfig) *ActionRunner {
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.PythonBinary == "" {
		cfg.PythonBinary = DefaultPython(cfg.GOOS)
	}
	return &ActionRunner{executor: executor, cfg: cfg}
}

// Workspace returns the directory actions run in.
func (r *ActionRunner) Workspace() string {
	return r.cfg.Workspace
}

// Timeout returns the per-action timeout.
func (r *ActionRunner) Timeout() time.Duration {
	return r.cfg.Timeout
}

// Run executes one python or shell script.
func (r *ActionRunner) Run(ctx context.Context, s Script) Outcome {
	switch s.Kind {
	case ScriptPython:
		return r.runPython(ctx, s.Payload)
	case ScriptShell:
		sh := ShellFor(r.cfg.GOOS, s.Language)
		args := append(append([]string{}, sh.Args...), s.Payload)
		return r.run(ctx, Command{Binary: sh.Binary, Arguments: args})
	}
	return Outcome{Stderr: fmt.Sprintf("action kind %q is not executable", s.Kind)}
}

// RunPython executes a python snippet; used by external tool surfaces.
func (r *ActionRunner) RunPython(ctx context.Context, code string) Outcome {
	return r.runPython(ctx, code)
}

// RunShell executes a shell snippet with the platform default shell.
func (r *ActionRunner) RunShell(ctx context.Context, script string) Outcome {
	return r.Run(ctx, Script{Kind: ScriptShell, Payload: script})
}

func (r *ActionRunner) runPython(ctx context.Context, code string) Outcome {
	dir := r.cfg.Workspace
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, ".jarvis_attempt_*.py")
	if err != nil {
		return Outcome{Stderr: fmt.Sprintf("failed to create script file in %s: %v", dir, err)}
	}
	script := f.Name()
	defer func() {
		if err := os.Remove(script); err != nil && !os.IsNotExist(err) {
			logging.TactileWarn("failed to remove script %s: %v", script, err)
		}
	}()

	_, werr := f.WriteString(code)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		return Outcome{Stderr: fmt.Sprintf("failed to write script file: %v", firstErr(werr, cerr))}
	}

	return r.run(ctx, Command{
		Binary:      r.cfg.PythonBinary,
		Arguments:   []string{filepath.Base(script)},
		Environment: []string{"PYTHONIOENCODING=utf-8", "PYTHONUNBUFFERED=1", "PYTHONDONTWRITEBYTECODE=1"},
	})
}

func (r *ActionRunner) run(ctx context.Context, cmd Command) Outcome {
	cmd.WorkingDirectory = r.cfg.Workspace
	cmd.Timeout = r.cfg.Timeout
	cmd.MaxOutputBytes = r.cfg.MaxOutputBytes
	cmd.SessionID = r.cfg.SessionID

	res, err := r.executor.Execute(ctx, cmd)
	if err != nil {
		return Outcome{Stderr: fmt.Sprintf("cannot execute %s: %v", cmd.Binary, err)}
	}
	return toOutcome(res, cmd)
}

// toOutcome folds an ExecutionResult into the loop's view. Only a process that
// ran to completion carries an exit code.
func toOutcome(res *ExecutionResult, cmd Command) Outcome {
	out := Outcome{
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		Duration:  res.Duration,
		Truncated: res.Truncated,
	}

	switch {
	case !res.Started:
		msg := res.Error
		if msg == "" {
			msg = "process was not started"
		}
		out.Stderr = appendLine(out.Stderr, msg)
	case res.TimedOut:
		out.TimedOut = true
		out.Stderr = appendLine(out.Stderr, fmt.Sprintf("Execution timed out after %s; the process group was killed.", cmd.Timeout))
	case res.Killed:
		out.Stderr = appendLine(out.Stderr, "Execution was canceled: "+res.KillReason)
	case res.Error != "":
		out.Stderr = appendLine(out.Stderr, res.Error)
	default:
		out.ExitCode = ExitCodePtr(res.ExitCode)
	}
	if res.Truncated {
		out.Stderr = appendLine(out.Stderr, fmt.Sprintf("[output truncated: %d bytes discarded]", res.TruncatedBytes))
	}
	return out
}

func appendLine(s, line string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return line
	}
	return s + "\n" + line
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
