package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	thinkingRe = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)
	toolRe     = regexp.MustCompile(`(?s)<tool>(.*?)</tool>`)
	answerRe   = regexp.MustCompile(`(?s)<answer>(.*?)</answer>`)
)

// Reply is one parsed agent reply: either a tool call or a final answer.
type Reply struct {
	Thought string
	Tool    string
	Input   map[string]any
	Answer  string
}

// IsTool reports whether the reply asks for a tool call.
func (r Reply) IsTool() bool { return r.Tool != "" }

// ParseReply reads the <thinking>, <tool> and <answer> blocks of a reply. A
// <tool> block whose body is not a {"name", "input"} object is treated as the
// answer. Text without any block is the answer as a whole.
func ParseReply(text string) Reply {
	var r Reply
	if m := thinkingRe.FindStringSubmatch(text); m != nil {
		r.Thought = strings.TrimSpace(m[1])
	}

	if m := toolRe.FindStringSubmatch(text); m != nil {
		body := strings.TrimSpace(m[1])
		var call struct {
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		}
		if err := json.Unmarshal([]byte(stripFence(body)), &call); err == nil && strings.TrimSpace(call.Name) != "" {
			r.Tool = strings.TrimSpace(call.Name)
			r.Input = call.Input
			if r.Input == nil {
				r.Input = map[string]any{}
			}
			return r
		}
		r.Answer = body
		return r
	}

	if m := answerRe.FindStringSubmatch(text); m != nil {
		r.Answer = strings.TrimSpace(m[1])
		return r
	}
	r.Answer = strings.TrimSpace(thinkingRe.ReplaceAllString(text, ""))
	return r
}

// stripFence removes a ```json fence some models put around the call.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
