// Package chat is the interactive bubbletea front end for a jarvis session.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jarvis/cmd/jarvis/ui"
	"jarvis/internal/correction"
)

// TurnRunner runs one user turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, text string) correction.Result
}

// Resetter is implemented by runners that can drop their conversation history.
type Resetter interface {
	Reset()
}

// Options configures the chat model.
type Options struct {
	Title     string
	Workspace string
	Model     string
	Verbose   bool
}

type role string

const (
	roleUser      role = "user"
	roleAssistant role = "assistant"
	roleSystem    role = "system"
)

type entry struct {
	role   role
	text   string
	result *correction.Result
	at     time.Time
}

type turnDoneMsg struct {
	result correction.Result
}

// Model is the chat screen: a scrolling transcript above a textarea.
type Model struct {
	runner TurnRunner
	opts   Options

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles
	md       *ui.Markdown

	history []entry
	inputs  []string

	ready   bool
	loading bool
	width   int
	height  int

	ctx    context.Context
	cancel context.CancelFunc
	turns  int
}

// New creates a chat model driving runner.
func New(ctx context.Context, runner TurnRunner, opts Options) Model {
	if opts.Title == "" {
		opts.Title = "jarvis"
	}
	ta := textarea.New()
	ta.Placeholder = "Ask jarvis to do something... (Enter to send, /help for commands)"
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	styles := ui.DefaultStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		runner:   runner,
		opts:     opts,
		textarea: ta,
		spinner:  sp,
		styles:   styles,
		ctx:      ctx,
		history: []entry{{
			role: roleSystem,
			text: "Workspace: " + opts.Workspace,
			at:   time.Now(),
		}},
	}
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.loading && m.cancel != nil {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyEsc:
			if !m.loading {
				return m, tea.Quit
			}
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			return m.submit()
		case tea.KeyUp:
			if !m.loading && m.textarea.Value() == "" && len(m.inputs) > 0 {
				m.textarea.SetValue(m.inputs[len(m.inputs)-1])
				m.textarea.CursorEnd()
				return m, nil
			}
		}
		if !m.loading {
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		chatWidth := max(msg.Width-4, 1)
		vpHeight := max(msg.Height-1-3-2-2, 1)
		if !m.ready {
			m.viewport = viewport.New(chatWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = chatWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(max(chatWidth-4, 10))
		m.md = ui.NewMarkdown(chatWidth - 4)
		m.refresh()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case turnDoneMsg:
		m.loading = false
		m.cancel = nil
		m.turns++
		r := msg.result
		m.history = append(m.history, entry{role: roleAssistant, text: r.FinalText, result: &r, at: time.Now()})
		m.refresh()
		m.textarea.Focus()
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	m.textarea.Reset()
	if text == "" {
		return m, nil
	}
	m.inputs = append(m.inputs, text)

	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}

	m.history = append(m.history, entry{role: roleUser, text: text, at: time.Now()})
	m.loading = true
	m.textarea.Blur()
	m.refresh()

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	runner := m.runner
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		defer cancel()
		return turnDoneMsg{result: runner.RunTurn(ctx, text)}
	})
}

func (m Model) command(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	case "/reset", "/clear":
		if r, ok := m.runner.(Resetter); ok {
			r.Reset()
		}
		m.history = m.history[:1]
		m.note("Conversation cleared.")
	case "/trail", "/verbose":
		m.opts.Verbose = !m.opts.Verbose
		m.note(fmt.Sprintf("Attempt trail %s.", onOff(m.opts.Verbose)))
	case "/help", "/?":
		m.note(helpText)
	default:
		m.note("Unknown command " + fields[0] + ". Type /help.")
	}
	m.refresh()
	return m, nil
}

const helpText = `Commands:
  /help    show this help
  /trail   toggle the per-attempt trail for successful turns
  /reset   forget the conversation history
  /quit    leave (also Esc, or Ctrl+C when idle)
Ctrl+C while a turn runs cancels it.`

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m *Model) note(text string) {
	m.history = append(m.history, entry{role: roleSystem, text: text, at: time.Now()})
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	var blocks []string
	for _, e := range m.history {
		switch e.role {
		case roleUser:
			blocks = append(blocks, m.styles.Prompt.Render("> ")+m.styles.UserInput.Render(e.text))
		case roleAssistant:
			if e.result != nil {
				blocks = append(blocks, m.styles.AgentResponse.Render(ui.RenderResult(m.styles, m.md, *e.result, m.opts.Verbose)))
			} else {
				blocks = append(blocks, m.styles.AgentResponse.Render(m.md.Render(e.text)))
			}
		default:
			blocks = append(blocks, m.styles.Muted.Render(e.text))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the header, transcript, input and footer.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	header := m.styles.Header.Render(m.opts.Title)
	if m.opts.Model != "" {
		header += " " + m.styles.Muted.Render(m.opts.Model)
	}

	input := m.textarea.View()
	if m.loading {
		input = m.spinner.View() + " " + m.styles.Muted.Render("working... (Ctrl+C to cancel)")
	}

	footer := m.styles.Footer.Render(fmt.Sprintf("turns: %d | /help", m.turns))
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.styles.Content.Render(m.viewport.View()),
		input,
		footer,
	)
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, runner TurnRunner, opts Options) error {
	p := tea.NewProgram(New(ctx, runner, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
