package session

import (
	"context"
	"fmt"
	"strings"

	"jarvis/internal/correction"
	"jarvis/internal/logging"
	"jarvis/internal/prompt"
	"jarvis/internal/store"
)

// remember appends one execution entry per attempt and one turn summary.
// Memory is advisory: failures are logged and otherwise ignored.
func (d *Driver) remember(ctx context.Context, request string, res correction.Result) {
	for _, a := range res.Attempts {
		d.append(ctx, store.Entry{
			Kind:    store.KindExecution,
			Content: executionSummary(request, a),
			Metadata: map[string]any{
				"turn_id":        res.TurnID,
				"attempt":        a.Number,
				"kind":           string(a.Action.Kind),
				"classification": string(a.Classification),
				"exit_code":      a.Outcome.ExitString(),
				"timed_out":      a.Outcome.TimedOut,
			},
		})
	}
	d.append(ctx, store.Entry{
		Kind:    store.KindTurn,
		Content: turnSummary(request, res),
		Metadata: map[string]any{
			"turn_id":  res.TurnID,
			"status":   string(res.Status),
			"attempts": len(res.Attempts),
		},
	})
}

func (d *Driver) append(ctx context.Context, e store.Entry) {
	e.SessionID = d.cfg.SessionID
	e.UserID = d.cfg.UserID
	if _, err := d.memory.Append(ctx, e); err != nil {
		logging.SessionWarn("Failed to remember %s: %v", e.Kind, err)
	}
}

func executionSummary(request string, a correction.AttemptRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Request: %s\n", request)
	fmt.Fprintf(&sb, "Attempt %d (%s) was %s", a.Number, a.Action.Kind, a.Classification)
	if a.Outcome.TimedOut {
		sb.WriteString(", timed out")
	} else {
		fmt.Fprintf(&sb, ", exit %s", a.Outcome.ExitString())
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Code:\n%s\n", clip(a.Action.Payload, 500))
	if a.Failed() {
		if line := lastLine(a.Outcome.Stderr); line != "" {
			fmt.Fprintf(&sb, "Error: %s\n", line)
		}
	} else if out := strings.TrimSpace(a.Outcome.Stdout); out != "" {
		fmt.Fprintf(&sb, "Output: %s\n", prompt.Tail(out, 300))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func turnSummary(request string, res correction.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Request: %s\n", request)
	fmt.Fprintf(&sb, "Status: %s after %d attempt(s)", res.Status, len(res.Attempts))
	if res.Reason != "" {
		fmt.Fprintf(&sb, "\nReason: %s", clip(res.Reason, 300))
	}
	if text := strings.TrimSpace(res.FinalText); text != "" && !res.Failed() {
		fmt.Fprintf(&sb, "\nResult: %s", clip(text, 500))
	}
	return sb.String()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
