package perception

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"jarvis/internal/logging"
)

// languageKinds maps fence tags to executable kinds. Unknown tags are prose.
var languageKinds = map[string]ActionKind{
	"python":     KindPython,
	"python3":    KindPython,
	"py":         KindPython,
	"sh":         KindShell,
	"bash":       KindShell,
	"shell":      KindShell,
	"zsh":        KindShell,
	"console":    KindShell,
	"cmd":        KindShell,
	"bat":        KindShell,
	"batch":      KindShell,
	"powershell": KindShell,
	"ps1":        KindShell,
	"pwsh":       KindShell,
}

var (
	searchDirective = regexp.MustCompile(`SEARCH_WEB:\s*"([^"\n]+)"`)
	focusDirective  = regexp.MustCompile(`FOCUS_MODE:\s*"?([A-Za-z][A-Za-z0-9_]*)"?`)
)

// fence is one ``` region of the document.
type fence struct {
	tag       string
	indent    int
	start     int // offset of the opening ```
	bodyStart int
	bodyEnd   int
	end       int // offset after the closing line, or len(text) when unclosed
	closed    bool
	line      int // 1-based line of the opening fence
}

// document is the pre-scanned input shared by all grammars.
type document struct {
	text   string
	fences []fence
}

// inFence reports whether offset falls inside any fence, closed or not.
func (d *document) inFence(offset int) bool {
	for _, f := range d.fences {
		if offset >= f.start && offset < f.end {
			return true
		}
	}
	return false
}

// grammar yields every action of one kind found in the document.
type grammar struct {
	name string
	scan func(d *document) []Action
}

// grammars is the finite, ordered set of recognized action syntaxes.
// Candidates from all grammars compete on document position.
var grammars = []grammar{
	{name: "fenced_code", scan: scanFencedCode},
	{name: "search_directive", scan: scanSearchDirective},
}

// ParseAction extracts the first action from model output. It never fails:
// text without a recognizable action yields KindNone. The function is pure.
func ParseAction(text string) ParseResult {
	doc := &document{text: text, fences: scanFences(text)}

	var candidates []Action
	for _, g := range grammars {
		candidates = append(candidates, g.scan(doc)...)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Span.Start < candidates[j].Span.Start
	})

	if len(candidates) == 0 {
		res := ParseResult{Action: Action{Kind: KindNone}}
		for _, f := range doc.fences {
			if !f.closed {
				res.Diagnostic = fmt.Sprintf("unterminated ```%s block opened on line %d; nothing was executed", f.tag, f.line)
				break
			}
		}
		return res
	}

	res := ParseResult{Action: candidates[0], Ignored: len(candidates) - 1}
	if res.Ignored > 0 {
		logging.PerceptionDebug("parse: %d extra action(s) ignored after first %s", res.Ignored, res.Action.Kind)
	}
	return res
}

// scanFences finds ``` regions line by line. An opening line is ``` followed
// by an optional tag; the closing line is ``` alone.
func scanFences(text string) []fence {
	var fences []fence
	var open *fence

	offset := 0
	lineNo := 0
	for offset <= len(text) {
		lineNo++
		nl := strings.IndexByte(text[offset:], '\n')
		lineEnd := len(text)
		next := len(text) + 1
		if nl >= 0 {
			lineEnd = offset + nl
			next = lineEnd + 1
		}
		line := strings.TrimRight(text[offset:lineEnd], "\r")
		trimmed := strings.TrimSpace(line)

		if open == nil {
			if strings.HasPrefix(trimmed, "```") && !strings.HasPrefix(trimmed, "````") {
				info := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				tag := ""
				if fields := strings.Fields(info); len(fields) > 0 {
					tag = strings.ToLower(fields[0])
				}
				// "```python print(1)```" on a single line is not a block
				if !strings.Contains(info, "```") {
					open = &fence{
						tag:       tag,
						indent:    len(line) - len(strings.TrimLeft(line, " \t")),
						start:     offset + strings.Index(text[offset:lineEnd], "```"),
						bodyStart: min(next, len(text)),
						line:      lineNo,
					}
				}
			}
		} else if trimmed == "```" {
			open.bodyEnd = offset
			open.end = min(next, len(text))
			open.closed = true
			fences = append(fences, *open)
			open = nil
		}

		if nl < 0 {
			break
		}
		offset = next
	}

	if open != nil {
		open.bodyEnd = len(text)
		open.end = len(text)
		fences = append(fences, *open)
	}
	return fences
}

func scanFencedCode(d *document) []Action {
	var out []Action
	for _, f := range d.fences {
		if !f.closed {
			continue
		}
		kind, ok := languageKinds[f.tag]
		if !ok {
			continue
		}
		body := ""
		if f.bodyEnd > f.bodyStart {
			body = d.text[f.bodyStart:f.bodyEnd]
		}
		payload := cleanBody(body, f.indent)
		if payload == "" {
			continue
		}
		out = append(out, Action{
			Kind:     kind,
			Language: f.tag,
			Payload:  payload,
			Span:     Span{Start: f.start, End: f.end},
		})
	}
	return out
}

func scanSearchDirective(d *document) []Action {
	var out []Action
	focus := ""
	for _, m := range focusDirective.FindAllStringSubmatchIndex(d.text, -1) {
		if !d.inFence(m[0]) {
			focus = d.text[m[2]:m[3]]
			break
		}
	}
	for _, m := range searchDirective.FindAllStringSubmatchIndex(d.text, -1) {
		if d.inFence(m[0]) {
			continue
		}
		query := strings.TrimSpace(d.text[m[2]:m[3]])
		if query == "" {
			continue
		}
		out = append(out, Action{
			Kind:      KindSearch,
			Payload:   query,
			Span:      Span{Start: m[0], End: m[1]},
			FocusMode: focus,
		})
	}
	return out
}

// cleanBody drops leading and trailing blank lines and removes the fence's own
// indentation from each line. Inner indentation is preserved.
func cleanBody(body string, indent int) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if indent > 0 {
		for i, l := range lines {
			n := 0
			for n < indent && n < len(l) && (l[n] == ' ' || l[n] == '\t') {
				n++
			}
			lines[i] = l[n:]
		}
	}
	return strings.Join(lines, "\n")
}
