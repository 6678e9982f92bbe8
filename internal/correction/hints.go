package correction

import (
	"regexp"

	"jarvis/internal/tactile"
)

// Hint pairs an error pattern with a suggestion for the model.
type Hint struct {
	Name    string
	Pattern *regexp.Regexp
	Text    string
}

// Hints is the catalog consulted for failed attempts, in priority order.
// Hints only feed the correction prompt; they never change a verdict.
var Hints = []Hint{
	{"name_error", regexp.MustCompile(`NameError: name '([^']+)' is not defined`),
		"A name is used before it is defined. Define or import it first."},
	{"missing_module", regexp.MustCompile(`No module named '?([\w.]+)'?`),
		"A Python module is missing. Install it first (pip install <package>) or use the standard library."},
	{"unexpected_eof", regexp.MustCompile(`unexpected EOF|EOF while parsing|unexpected end of file`),
		"The code ends early. Check for unclosed brackets, quotes or blocks."},
	{"indentation", regexp.MustCompile(`IndentationError|TabError|unexpected indent|expected an indented block`),
		"Fix the indentation. Use four spaces consistently."},
	{"syntax", regexp.MustCompile(`SyntaxError|invalid syntax|syntax error`),
		"There is a syntax error. Re-check the line reported in the traceback."},
	{"file_not_found", regexp.MustCompile(`No such file or directory|FileNotFoundError|cannot find the (file|path)`),
		"A file or directory does not exist. List the workspace or create it first; paths are relative to the workspace."},
	{"permission", regexp.MustCompile(`Permission denied|PermissionError|Access is denied`),
		"Permission was denied. Write inside the workspace and avoid commands that need elevated rights."},
	{"index", regexp.MustCompile(`IndexError|list index out of range`),
		"An index is out of range. Check the length before indexing."},
	{"key", regexp.MustCompile(`KeyError`),
		"A dictionary key is missing. Use .get() or check membership first."},
	{"zero_division", regexp.MustCompile(`ZeroDivisionError|division by zero`),
		"Division by zero. Guard the divisor."},
	{"type_operand", regexp.MustCompile(`unsupported operand type|can only concatenate`),
		"Operand types do not match. Convert values (e.g. str() or int()) before combining them."},
	{"attribute", regexp.MustCompile(`AttributeError|has no attribute`),
		"The object has no such attribute. Check its type and the API you are calling."},
	{"command_not_found", regexp.MustCompile(`command not found|not recognized as an internal or external command|: not found`),
		"The command is not installed or not on PATH. Use an available alternative or install it."},
}

var timeoutHint = Hint{Name: "timeout", Text: "The action timed out. Avoid interactive input and long-running loops; add a limit or run it in smaller steps."}

// MatchHint returns the first catalog hint matching the outcome.
func MatchHint(o tactile.Outcome) (Hint, bool) {
	if o.TimedOut {
		return timeoutHint, true
	}
	for _, text := range []string{o.Stderr, o.Stdout} {
		if text == "" {
			continue
		}
		for _, h := range Hints {
			if h.Pattern.MatchString(text) {
				return h, true
			}
		}
	}
	return Hint{}, false
}

// HintFor returns the hint text for an outcome, or "".
func HintFor(o tactile.Outcome) string {
	if o.Succeeded() {
		return ""
	}
	h, _ := MatchHint(o)
	return h.Text
}
