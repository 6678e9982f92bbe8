package perception

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ParseResult
	}{
		{
			name: "plain prose",
			text: "The capital of France is Paris.",
			want: ParseResult{Action: Action{Kind: KindNone}},
		},
		{
			name: "python fence",
			text: "Let me compute that.\n```python\nprint(1 + 1)\n```\nDone.",
			want: ParseResult{Action: Action{Kind: KindPython, Language: "python", Payload: "print(1 + 1)"}},
		},
		{
			name: "py alias uppercase tag",
			text: "```PY\nx = 3\nprint(x)\n```",
			want: ParseResult{Action: Action{Kind: KindPython, Language: "py", Payload: "x = 3\nprint(x)"}},
		},
		{
			name: "bash fence",
			text: "```bash\nls -la\n```",
			want: ParseResult{Action: Action{Kind: KindShell, Language: "bash", Payload: "ls -la"}},
		},
		{
			name: "powershell fence keeps tag",
			text: "```powershell\nGet-ChildItem\n```",
			want: ParseResult{Action: Action{Kind: KindShell, Language: "powershell", Payload: "Get-ChildItem"}},
		},
		{
			name: "unknown tag is prose",
			text: "```json\n{\"a\": 1}\n```",
			want: ParseResult{Action: Action{Kind: KindNone}},
		},
		{
			name: "unknown tag skipped before known",
			text: "```json\n{}\n```\n```sh\necho hi\n```",
			want: ParseResult{Action: Action{Kind: KindShell, Language: "sh", Payload: "echo hi"}},
		},
		{
			name: "first of several wins",
			text: "```python\nprint(1)\n```\n```bash\necho 2\n```\nSEARCH_WEB: \"later\"",
			want: ParseResult{Action: Action{Kind: KindPython, Language: "python", Payload: "print(1)"}, Ignored: 2},
		},
		{
			name: "search before code",
			text: "I need docs.\nSEARCH_WEB: \"pandas read_csv encoding\"\n```python\nimport pandas\n```",
			want: ParseResult{Action: Action{Kind: KindSearch, Payload: "pandas read_csv encoding"}, Ignored: 1},
		},
		{
			name: "search with focus mode",
			text: "FOCUS_MODE: academicSearch\nSEARCH_WEB: \"transformer attention\"",
			want: ParseResult{Action: Action{Kind: KindSearch, Payload: "transformer attention", FocusMode: "academicSearch"}},
		},
		{
			name: "search directive inside fence is code",
			text: "```python\nprint('SEARCH_WEB: \"x\"')\n```",
			want: ParseResult{Action: Action{Kind: KindPython, Language: "python", Payload: "print('SEARCH_WEB: \"x\"')"}},
		},
		{
			name: "outer blank lines trimmed inner indentation kept",
			text: "```python\n\n\nfor i in range(2):\n    print(i)\n\n```",
			want: ParseResult{Action: Action{Kind: KindPython, Language: "python", Payload: "for i in range(2):\n    print(i)"}},
		},
		{
			name: "indented fence dedented by fence indent",
			text: "1. run this:\n   ```sh\n   echo a\n     echo b\n   ```",
			want: ParseResult{Action: Action{Kind: KindShell, Language: "sh", Payload: "echo a\n  echo b"}},
		},
		{
			name: "empty body is not an action",
			text: "```python\n\n```",
			want: ParseResult{Action: Action{Kind: KindNone}},
		},
		{
			name: "crlf line endings",
			text: "```python\r\nprint(1)\r\n```\r\n",
			want: ParseResult{Action: Action{Kind: KindPython, Language: "python", Payload: "print(1)"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAction(tt.text)
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(Action{}, "Span")); diff != "" {
				t.Errorf("ParseAction() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseActionUnterminatedFence(t *testing.T) {
	text := "Here you go:\n\n```python\nprint('never closed')\n"
	res := ParseAction(text)

	assert.Equal(t, KindNone, res.Action.Kind)
	assert.Contains(t, res.Diagnostic, "line 3")
	assert.Contains(t, res.Diagnostic, "unterminated")
}

func TestParseActionUnterminatedFenceSwallowsDirective(t *testing.T) {
	res := ParseAction("```bash\necho hi\nSEARCH_WEB: \"x\"\n")
	assert.Equal(t, KindNone, res.Action.Kind)
	assert.NotEmpty(t, res.Diagnostic)
}

func TestParseActionEarlierCandidateBeatsUnterminated(t *testing.T) {
	res := ParseAction("```sh\necho ok\n```\n```python\nprint(1)\n")
	require.Equal(t, KindShell, res.Action.Kind)
	assert.Empty(t, res.Diagnostic)
}

func TestParseActionSpan(t *testing.T) {
	text := "prefix\n```sh\necho hi\n```\nsuffix"
	res := ParseAction(text)
	require.Equal(t, KindShell, res.Action.Kind)

	span := text[res.Action.Span.Start:res.Action.Span.End]
	assert.True(t, strings.HasPrefix(span, "```sh"))
	assert.Equal(t, "prefix\n\nsuffix", Prose(text, res.Action))
}

func TestParseActionDeterministic(t *testing.T) {
	inputs := []string{
		"",
		"no action here",
		"```python\nprint(1)\n```",
		"SEARCH_WEB: \"go generics\"\n```sh\nls\n```",
		"```python\nunterminated",
	}
	for _, in := range inputs {
		first := ParseAction(in)
		for i := 0; i < 5; i++ {
			if diff := cmp.Diff(first, ParseAction(in)); diff != "" {
				t.Fatalf("ParseAction(%q) not deterministic:\n%s", in, diff)
			}
		}
	}
}

func TestActionFenceRoundTrip(t *testing.T) {
	a := Action{Kind: KindPython, Language: "py", Payload: "print(2)"}
	res := ParseAction(a.Fence())
	assert.Equal(t, a.Payload, res.Action.Payload)
	assert.Equal(t, a.Kind, res.Action.Kind)

	s := Action{Kind: KindSearch, Payload: "weather in Lisbon"}
	res = ParseAction(s.Fence())
	assert.Equal(t, KindSearch, res.Action.Kind)
	assert.Equal(t, "weather in Lisbon", res.Action.Payload)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "none", Action{Kind: KindNone}.String())
	assert.Equal(t, `search "q"`, Action{Kind: KindSearch, Payload: "q"}.String())
	assert.Equal(t, "shell: echo a ...", Action{Kind: KindShell, Payload: "echo a\necho b"}.String())
}
