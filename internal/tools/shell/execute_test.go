package shell

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/tactile"
	"jarvis/internal/tools"
)

type fakeRunner struct {
	python func(code string) tactile.Outcome
	shell  func(script string) tactile.Outcome
}

func (f *fakeRunner) RunPython(ctx context.Context, code string) tactile.Outcome {
	return f.python(code)
}
func (f *fakeRunner) RunShell(ctx context.Context, script string) tactile.Outcome {
	return f.shell(script)
}

func TestExecutionTools(t *testing.T) {
	var gotCode, gotScript string
	runner := &fakeRunner{
		python: func(code string) tactile.Outcome {
			gotCode = code
			return tactile.Outcome{Stdout: "4\n", ExitCode: tactile.ExitCodePtr(0), Duration: 15 * time.Millisecond}
		},
		shell: func(script string) tactile.Outcome {
			gotScript = script
			return tactile.Outcome{Stderr: "timed out", TimedOut: true}
		},
	}
	reg := tools.NewRegistry()
	require.NoError(t, RegisterAll(reg, runner))
	assert.Equal(t, []string{"execute_python", "execute_shell"}, reg.Names())

	res, err := reg.Execute(context.Background(), "execute_python", map[string]any{"code": "print(2+2)"})
	require.NoError(t, err)
	assert.Equal(t, "print(2+2)", gotCode)

	var rep ExecutionReport
	require.NoError(t, json.Unmarshal([]byte(res.Result), &rep))
	assert.True(t, rep.Succeeded)
	assert.Equal(t, "4\n", rep.Stdout)
	require.NotNil(t, rep.ExitCode)
	assert.Equal(t, 0, *rep.ExitCode)
	assert.Equal(t, int64(15), rep.DurationMs)

	res, err = reg.Execute(context.Background(), "execute_shell", map[string]any{"command": "sleep 100"})
	require.NoError(t, err)
	assert.Equal(t, "sleep 100", gotScript)
	require.NoError(t, json.Unmarshal([]byte(res.Result), &rep))
	assert.False(t, rep.Succeeded)
	assert.True(t, rep.TimedOut)
	assert.Nil(t, rep.ExitCode)
}

func TestExecutionToolsRejectBlankInput(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, RegisterAll(reg, &fakeRunner{}))

	_, err := reg.Execute(context.Background(), "execute_python", map[string]any{"code": "   "})
	assert.ErrorIs(t, err, tools.ErrMissingRequiredArg)
}
