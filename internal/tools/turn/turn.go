// Package turn exposes a full correction-loop turn as a tool.
package turn

import (
	"context"

	"jarvis/internal/correction"
	"jarvis/internal/tools"
)

// Runner runs one user turn. session.Driver implements it.
type Runner interface {
	RunTurn(ctx context.Context, text string) correction.Result
}

// RegisterAll registers the run_turn tool.
func RegisterAll(registry *tools.Registry, runner Runner) error {
	return registry.Register(RunTurnTool(runner))
}

// RunTurnTool returns a tool that runs one instruction through the
// correction loop and reports the status and attempt list.
func RunTurnTool(runner Runner) *tools.Tool {
	return &tools.Tool{
		Name:        "run_turn",
		Description: "Carry out an instruction by generating, running and correcting code until it succeeds or the retry budget is spent",
		Category:    tools.CategoryTurn,
		Priority:    100,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			text, err := tools.RequiredString(args, "instruction")
			if err != nil {
				return "", err
			}
			return tools.JSON(runner.RunTurn(ctx, text))
		},
		Schema: tools.ToolSchema{
			Required: []string{"instruction"},
			Properties: map[string]tools.Property{
				"instruction": {
					Type:        "string",
					Description: "What to do, in natural language",
				},
			},
		},
	}
}
