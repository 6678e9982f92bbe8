package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders model replies for the terminal. A nil or failed renderer
// falls back to the raw text.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown creates a renderer wrapping at width columns.
func NewMarkdown(width int) *Markdown {
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Markdown{width: width}
	}
	return &Markdown{renderer: r, width: width}
}

// Width returns the wrap width.
func (m *Markdown) Width() int {
	if m == nil {
		return 0
	}
	return m.width
}

// Render returns text rendered as markdown.
func (m *Markdown) Render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
