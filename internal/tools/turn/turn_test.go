package turn

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/correction"
	"jarvis/internal/tools"
)

type runnerFunc func(ctx context.Context, text string) correction.Result

func (f runnerFunc) RunTurn(ctx context.Context, text string) correction.Result { return f(ctx, text) }

func TestRunTurnTool(t *testing.T) {
	var got string
	runner := runnerFunc(func(ctx context.Context, text string) correction.Result {
		got = text
		return correction.Result{
			TurnID:    "t1",
			Status:    correction.StatusExhaustedRetries,
			FinalText: "I could not complete this request",
			Attempts:  []correction.AttemptRecord{{Number: 1, Classification: correction.ClassRecoverable}},
		}
	})

	reg := tools.NewRegistry()
	require.NoError(t, RegisterAll(reg, runner))

	res, err := reg.Execute(context.Background(), "run_turn", map[string]any{"instruction": "count lines"})
	require.NoError(t, err)
	assert.Equal(t, "count lines", got)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Result), &decoded))
	assert.Equal(t, "exhausted_retries", decoded["status"])
	assert.Len(t, decoded["attempts"], 1)

	_, err = reg.Execute(context.Background(), "run_turn", map[string]any{})
	assert.ErrorIs(t, err, tools.ErrMissingRequiredArg)
}
