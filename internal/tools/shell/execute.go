// Package shell exposes single python and shell executions as tools. These
// run once, outside the correction loop, under the same timeout and process
// group kill as loop attempts.
package shell

import (
	"context"

	"jarvis/internal/logging"
	"jarvis/internal/tactile"
	"jarvis/internal/tools"
)

// CodeRunner runs one snippet in the workspace. tactile.ActionRunner
// implements it.
type CodeRunner interface {
	RunPython(ctx context.Context, code string) tactile.Outcome
	RunShell(ctx context.Context, script string) tactile.Outcome
}

// ExecutionReport is the JSON result of an execution tool.
type ExecutionReport struct {
	Succeeded  bool   `json:"succeeded"`
	ExitCode   *int   `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated,omitempty"`
}

func report(o tactile.Outcome) (string, error) {
	return tools.JSON(ExecutionReport{
		Succeeded:  o.Succeeded(),
		ExitCode:   o.ExitCode,
		TimedOut:   o.TimedOut,
		Stdout:     o.Stdout,
		Stderr:     o.Stderr,
		DurationMs: o.Duration.Milliseconds(),
		Truncated:  o.Truncated,
	})
}

// ExecutePythonTool returns a tool that runs a python snippet once.
func ExecutePythonTool(runner CodeRunner) *tools.Tool {
	return &tools.Tool{
		Name:        "execute_python",
		Description: "Run a Python snippet once in the workspace and return its exit code, stdout and stderr",
		Category:    tools.CategoryExecute,
		Priority:    70,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			code, err := tools.RequiredString(args, "code")
			if err != nil {
				return "", err
			}
			logging.ToolsDebug("execute_python: %d bytes", len(code))
			return report(runner.RunPython(ctx, code))
		},
		Schema: tools.ToolSchema{
			Required: []string{"code"},
			Properties: map[string]tools.Property{
				"code": {
					Type:        "string",
					Description: "The Python source to run",
				},
			},
		},
	}
}

// ExecuteShellTool returns a tool that runs a shell command once.
func ExecuteShellTool(runner CodeRunner) *tools.Tool {
	return &tools.Tool{
		Name:        "execute_shell",
		Description: "Run a shell command once in the workspace and return its exit code, stdout and stderr",
		Category:    tools.CategoryExecute,
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			command, err := tools.RequiredString(args, "command")
			if err != nil {
				return "", err
			}
			logging.ToolsDebug("execute_shell: %s", command)
			return report(runner.RunShell(ctx, command))
		},
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to run with the platform shell",
				},
			},
		},
	}
}
