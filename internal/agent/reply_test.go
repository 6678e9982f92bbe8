package agent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Reply
	}{
		{
			name: "tool call",
			text: "<thinking>list files</thinking>\n<tool>\n{\"name\": \"list_files\", \"input\": {\"path\": \".\"}}\n</tool>",
			want: Reply{Thought: "list files", Tool: "list_files", Input: map[string]any{"path": "."}},
		},
		{
			name: "fenced tool call",
			text: "<tool>\n```json\n{\"name\": \"run_shell\", \"input\": {\"command\": \"ls\"}}\n```\n</tool>",
			want: Reply{Tool: "run_shell", Input: map[string]any{"command": "ls"}},
		},
		{
			name: "tool call without input",
			text: `<tool>{"name": "recall"}</tool>`,
			want: Reply{Tool: "recall", Input: map[string]any{}},
		},
		{
			name: "answer",
			text: "<thinking>easy</thinking>\n<answer>\n42\n</answer>",
			want: Reply{Thought: "easy", Answer: "42"},
		},
		{
			name: "invalid tool json is the answer",
			text: "<tool>run ls please</tool>",
			want: Reply{Answer: "run ls please"},
		},
		{
			name: "tool without a name is the answer",
			text: `<tool>{"input": {}}</tool>`,
			want: Reply{Answer: `{"input": {}}`},
		},
		{
			name: "bare text",
			text: "<thinking>hmm</thinking>\nJust text.",
			want: Reply{Thought: "hmm", Answer: "Just text."},
		},
		{
			name: "tool wins over answer",
			text: `<tool>{"name": "a", "input": {}}</tool><answer>no</answer>`,
			want: Reply{Tool: "a", Input: map[string]any{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReply(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseReply() mismatch (-want +got):\n%s", diff)
			}
			if got.IsTool() != (tt.want.Tool != "") {
				t.Errorf("IsTool() = %v", got.IsTool())
			}
		})
	}
}
