package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jarvis/cmd/jarvis/ui"
	"jarvis/internal/correction"
)

// runCmd executes a single instruction
var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Run one instruction through the correction loop",
	Long: `Runs one turn: the model proposes code, jarvis executes it in the workspace,
and failures are fed back until it succeeds or retries run out.

Exits with status 1 when the turn ends in fatal_error or exhausted_retries.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstruction,
}

// batchCmd runs one turn per line of a file
var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Run one instruction per line of a file",
	Long: `Runs each non-empty line that does not start with # as its own turn, in
order, within one session, then prints a summary table. Use - to read stdin.

Exits with status 1 when any turn failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var stopOnFailure bool

func init() {
	batchCmd.Flags().BoolVar(&stopOnFailure, "stop-on-failure", false, "Stop at the first failed turn")
}

// turnRunner is the slice of session.Driver the run commands need.
type turnRunner interface {
	RunTurn(ctx context.Context, text string) correction.Result
}

func runInstruction(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	instruction := strings.Join(args, " ")
	logger.Info("Processing instruction", zap.String("input", instruction))
	r := app.Driver.RunTurn(ctx, instruction)
	if err := printResult(cmd.OutOrStdout(), r); err != nil {
		return err
	}
	if r.Failed() {
		return errTurnFailed
	}
	return nil
}

func printResult(w io.Writer, r correction.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintln(w, ui.RenderResult(ui.DefaultStyles(), ui.NewMarkdown(100), r, verbose))
	return err
}

// readInstructions returns the non-empty, non-comment lines of r.
func readInstructions(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func runBatch(cmd *cobra.Command, args []string) error {
	in := io.Reader(cmd.InOrStdin())
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()
		in = f
	}
	instructions, err := readInstructions(in)
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}
	if len(instructions) == 0 {
		return fmt.Errorf("no instructions in %s", args[0])
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	results := executeBatch(ctx, app.Driver, instructions, cmd.ErrOrStderr())
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, batchTable(instructions, results).View(ui.DefaultStyles()))
	}

	for _, r := range results {
		if r.Failed() {
			return errTurnFailed
		}
	}
	return nil
}

// executeBatch runs instructions in order, logging progress to progress. It
// stops early on cancellation or, with --stop-on-failure, on the first failure.
func executeBatch(ctx context.Context, runner turnRunner, instructions []string, progress io.Writer) []correction.Result {
	results := make([]correction.Result, 0, len(instructions))
	for i, instruction := range instructions {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(progress, "[%d/%d] %s\n", i+1, len(instructions), instruction)
		r := runner.RunTurn(ctx, instruction)
		results = append(results, r)
		if !jsonOutput {
			fmt.Fprintf(progress, "      -> %s\n", r.Status)
		}
		if stopOnFailure && r.Failed() {
			break
		}
	}
	return results
}

func batchTable(instructions []string, results []correction.Result) *ui.SimpleTable {
	table := ui.NewSimpleTable("Batch summary", []string{"#", "Status", "Attempts", "Searches", "Time", "Instruction"})
	for i, r := range results {
		table.AddRow(
			strconv.Itoa(i+1),
			string(r.Status),
			strconv.Itoa(len(r.Attempts)),
			strconv.Itoa(len(r.Searches)),
			r.Duration.Round(10*time.Millisecond).String(),
			clip(instructions[i], 60),
		)
	}
	for i := len(results); i < len(instructions); i++ {
		table.AddRow(strconv.Itoa(i+1), "skipped", "", "", "", clip(instructions[i], 60))
	}
	return table
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
