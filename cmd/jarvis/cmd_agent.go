package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jarvis/cmd/jarvis/ui"
	"jarvis/internal/agent"
)

// agentCmd runs tasks in agent mode
var agentCmd = &cobra.Command{
	Use:   "agent [task]",
	Short: "Work on a task by calling tools step by step",
	Long: `Runs agent mode: the model reasons about the task, calls the registered
tools one at a time and answers once it has what it needs. After
agent.max_iterations tool calls a final answer is forced.

With a task argument, runs that task and exits with status 1 if it failed.
Without one, reads tasks from stdin until "exit" or EOF; "/reset" clears the
conversation carried between tasks.`,
	RunE: runAgent,
}

var maxIterations int

func init() {
	agentCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Tool calls allowed per task (default from config)")
}

// taskRunner is the slice of agent.Agent the agent command needs.
type taskRunner interface {
	Run(ctx context.Context, task string) agent.Result
	Reset()
}

func runAgent(cmd *cobra.Command, args []string) error {
	if maxIterations > 0 {
		cfg.Agent.MaxIterations = maxIterations
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args) > 0 {
		task := strings.Join(args, " ")
		logger.Info("Processing agent task", zap.String("input", task))
		r := app.Agent.Run(ctx, task)
		if err := printAgentResult(cmd.OutOrStdout(), r); err != nil {
			return err
		}
		if r.Failed() {
			return errTurnFailed
		}
		return nil
	}
	return agentLoop(ctx, app.Agent, cmd.InOrStdin(), cmd.OutOrStdout())
}

// agentLoop reads one task per line until exit, EOF or cancellation. Failed
// tasks are printed and the loop goes on.
func agentLoop(ctx context.Context, runner taskRunner, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if !jsonOutput {
			fmt.Fprint(out, "agent> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			runner.Reset()
			if !jsonOutput {
				fmt.Fprintln(out, "Conversation cleared.")
			}
			continue
		}

		r := runner.Run(ctx, line)
		if err := printAgentResult(out, r); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printAgentResult(w io.Writer, r agent.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintln(w, ui.RenderAgentResult(ui.DefaultStyles(), ui.NewMarkdown(100), r, verbose))
	return err
}
