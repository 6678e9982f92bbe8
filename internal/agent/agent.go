// Package agent runs agent mode: the model reasons in <thinking> blocks and
// calls registered tools through <tool> blocks until it gives an <answer> or
// uses up its iterations, at which point a final answer is forced. The agent
// acts only through the tool registry.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"jarvis/internal/config"
	"jarvis/internal/logging"
	"jarvis/internal/perception"
	"jarvis/internal/prompt"
	"jarvis/internal/store"
	"jarvis/internal/tools"
	"jarvis/internal/world"
)

var (
	// ErrCanceled marks a task stopped by its context.
	ErrCanceled = errors.New("agent task canceled")

	// ErrModelUnavailable wraps a language-model transport failure.
	ErrModelUnavailable = errors.New("language model unavailable")
)

// Config bounds one agent.
type Config struct {
	MaxIterations   int
	RecallLimit     int
	MaxResultChars  int
	HistoryMessages int

	SessionID string
	UserID    string
	GOOS      string
}

// ConfigFrom maps the agent config section.
func ConfigFrom(c config.AgentConfig) Config {
	return Config{
		MaxIterations:   c.MaxIterations,
		RecallLimit:     c.RecallLimit,
		MaxResultChars:  c.MaxResultChars,
		HistoryMessages: c.HistoryMessages,
	}
}

// Step is one tool call.
type Step struct {
	Iteration int            `json:"iteration"`
	Thought   string         `json:"thought,omitempty"`
	Tool      string         `json:"tool"`
	Input     map[string]any `json:"input,omitempty"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// Result is the outcome of one task.
type Result struct {
	TaskID     string        `json:"task_id"`
	Task       string        `json:"task"`
	Output     string        `json:"output"`
	Thought    string        `json:"thought,omitempty"`
	Steps      []Step        `json:"steps"`
	Iterations int           `json:"iterations"`
	Exhausted  bool          `json:"exhausted"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
	Reason     string        `json:"error,omitempty"`
}

// Failed reports whether the task ended without an answer.
func (r Result) Failed() bool { return r.Err != nil }

// Agent runs tasks one at a time and keeps a short conversation between them.
type Agent struct {
	llm perception.LLMClient
	reg *tools.Registry
	ws  *world.Workspace
	mem store.MemoryStore
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	history perception.Conversation
	tasks   int
}

// Option configures an Agent.
type Option func(*Agent)

// WithWorkspace adds the workspace snapshot to every task.
func WithWorkspace(ws *world.Workspace) Option {
	return func(a *Agent) { a.ws = ws }
}

// WithMemory recalls memories into every task and remembers each result.
func WithMemory(m store.MemoryStore) Option {
	return func(a *Agent) {
		if m != nil {
			a.mem = m
		}
	}
}

// New builds an agent over reg.
func New(llm perception.LLMClient, reg *tools.Registry, cfg Config, opts ...Option) *Agent {
	def := ConfigFrom(config.DefaultAgentConfig())
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxResultChars <= 0 {
		cfg.MaxResultChars = def.MaxResultChars
	}
	if cfg.HistoryMessages < 0 {
		cfg.HistoryMessages = 0
	}
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	a := &Agent{
		llm: llm,
		reg: reg,
		mem: store.NopMemory{},
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reset forgets the conversation carried between tasks.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = perception.Conversation{}
}

// Tasks returns how many tasks have run.
func (a *Agent) Tasks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tasks
}

// Run works on one task until the model answers or the iteration budget is
// spent. Tool failures are shown to the model; only model failures and
// cancellation end the task with an error.
func (a *Agent) Run(ctx context.Context, task string) (res Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res = Result{TaskID: uuid.NewString(), Task: strings.TrimSpace(task)}
	start := a.now()
	defer func() {
		res.Duration = a.now().Sub(start)
		logging.AuditWithSession(a.cfg.SessionID).AgentRun(res.TaskID, res.Iterations, res.Exhausted, res.Duration, res.Err)
	}()

	if res.Task == "" {
		res.Output = "Please provide a task."
		return res
	}
	logging.Agent("Task %s started: %q", res.TaskID, clip(res.Task, 80))

	system, err := a.systemPrompt()
	if err != nil {
		return a.fail(res, fmt.Errorf("failed to build prompt: %w", err))
	}
	text, err := a.taskPrompt(ctx, res.Task)
	if err != nil {
		return a.fail(res, fmt.Errorf("failed to build prompt: %w", err))
	}

	base := perception.Conversation{System: system, History: a.history.History}
	conv := base
	for i := 1; i <= a.cfg.MaxIterations; i++ {
		reply, err := a.generate(ctx, text, conv)
		if err != nil {
			return a.fail(res, err)
		}
		res.Iterations = i
		conv = conv.WithTurn(text, reply)

		r := ParseReply(reply)
		if !r.IsTool() {
			res.Output = r.Answer
			res.Thought = r.Thought
			return a.finish(ctx, res)
		}

		step := a.call(ctx, i, r)
		res.Steps = append(res.Steps, step)

		input, _ := json.Marshal(step.Input)
		data := prompt.AgentResultData{
			Tool:          step.Tool,
			Input:         string(input),
			Result:        step.Output,
			Iteration:     i,
			MaxIterations: a.cfg.MaxIterations,
		}
		if step.Error != "" {
			data.Result = step.Error
			data.Failed = true
		}
		if text, err = prompt.AgentResult(data); err != nil {
			return a.fail(res, fmt.Errorf("failed to build prompt: %w", err))
		}
	}

	res.Exhausted = true
	logging.AgentWarn("Task %s used all %d iterations; forcing a final answer", res.TaskID, a.cfg.MaxIterations)

	final, err := prompt.AgentFinal(a.finalData(res))
	if err != nil {
		return a.fail(res, fmt.Errorf("failed to build prompt: %w", err))
	}
	reply, err := a.generate(ctx, final, base)
	if err != nil {
		return a.fail(res, err)
	}
	r := ParseReply(reply)
	res.Thought = r.Thought
	if r.IsTool() {
		res.Output = fmt.Sprintf("I wasn't able to complete the task within %d steps.", a.cfg.MaxIterations)
		if r.Thought != "" {
			res.Output += " Here's what I know so far: " + r.Thought
		}
	} else {
		res.Output = r.Answer
	}
	return a.finish(ctx, res)
}

func (a *Agent) generate(ctx context.Context, text string, conv perception.Conversation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	reply, err := a.llm.Generate(ctx, text, conv)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrCanceled, ctxErr)
		}
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return reply, nil
}

// call runs one tool. Unknown tools and tool errors become the step's Error.
func (a *Agent) call(ctx context.Context, iteration int, r Reply) Step {
	step := Step{Iteration: iteration, Thought: r.Thought, Tool: r.Tool, Input: r.Input}
	start := a.now()

	if !a.reg.Has(r.Tool) {
		step.Error = fmt.Sprintf("unknown tool %q; available tools: %s", r.Tool, strings.Join(a.reg.Names(), ", "))
		logging.AgentWarn("Step %d: %s", iteration, step.Error)
	} else {
		out, err := a.reg.Execute(ctx, r.Tool, r.Input)
		if out != nil {
			step.Output = clip(out.Result, a.cfg.MaxResultChars)
		}
		if err != nil {
			step.Error = err.Error()
		}
		logging.AgentDebug("Step %d: %s (error=%v)", iteration, r.Tool, err)
	}

	step.Duration = a.now().Sub(start)
	return step
}

func (a *Agent) fail(res Result, err error) Result {
	res.Err = err
	res.Reason = err.Error()
	res.Output = "Stopped: " + err.Error()
	a.tasks++
	logging.AgentWarn("Task %s failed: %v", res.TaskID, err)
	return res
}

func (a *Agent) finish(ctx context.Context, res Result) Result {
	a.tasks++
	if res.Output != "" {
		a.history = a.history.WithTurn(res.Task, res.Output)
		if n := a.cfg.HistoryMessages; n > 0 {
			a.history = a.history.Trim((n + 1) / 2)
		} else {
			a.history = perception.Conversation{}
		}
	}
	a.remember(ctx, res)
	logging.Agent("Task %s answered after %d iteration(s), %d tool call(s)", res.TaskID, res.Iterations, len(res.Steps))
	return res
}

// remember stores one summary per task. Memory is advisory.
func (a *Agent) remember(ctx context.Context, res Result) {
	names := make([]string, 0, len(res.Steps))
	for _, s := range res.Steps {
		names = append(names, s.Tool)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Agent task: %s\n", clip(res.Task, 300))
	if len(names) > 0 {
		fmt.Fprintf(&sb, "Used tools: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, "Answer: %s", clip(res.Output, 500))

	_, err := a.mem.Append(ctx, store.Entry{
		Kind:      store.KindAgent,
		SessionID: a.cfg.SessionID,
		UserID:    a.cfg.UserID,
		Content:   sb.String(),
		Metadata: map[string]any{
			"task_id":    res.TaskID,
			"iterations": res.Iterations,
			"tools":      len(res.Steps),
			"exhausted":  res.Exhausted,
		},
	})
	if err != nil {
		logging.AgentWarn("Failed to remember task %s: %v", res.TaskID, err)
	}
}

func (a *Agent) systemPrompt() (string, error) {
	data := prompt.AgentSystemData{OS: a.cfg.GOOS}
	if a.ws != nil {
		data.Workspace = a.ws.Root()
	}
	for _, cat := range tools.Categories() {
		group := prompt.AgentToolGroup{Category: string(cat)}
		for _, t := range a.reg.GetByCategory(cat) {
			group.Tools = append(group.Tools, prompt.AgentTool{
				Name:        t.Name,
				Description: t.Description,
				Args:        t.Schema.Summary(),
			})
		}
		if len(group.Tools) > 0 {
			data.Groups = append(data.Groups, group)
		}
	}
	return prompt.AgentSystem(data)
}

// taskPrompt renders the opening message. Snapshot and memory failures are
// logged and leave their sections empty.
func (a *Agent) taskPrompt(ctx context.Context, task string) (string, error) {
	data := prompt.AgentTaskData{Task: task}
	if a.ws != nil {
		if snap, err := a.ws.Snapshot(ctx); err != nil {
			logging.AgentWarn("Workspace snapshot failed: %v", err)
		} else {
			data.Snapshot = snap.String()
		}
	}
	if a.cfg.RecallLimit > 0 {
		hits, err := a.mem.Query(ctx, task, a.cfg.RecallLimit)
		if err != nil {
			logging.AgentWarn("Memory recall failed: %v", err)
		}
		for _, h := range hits {
			data.Memories = append(data.Memories, clip(strings.TrimSpace(h.Content), 300))
		}
	}
	return prompt.AgentTask(data)
}

func (a *Agent) finalData(res Result) prompt.AgentFinalData {
	data := prompt.AgentFinalData{Task: res.Task, MaxIterations: a.cfg.MaxIterations}
	for _, s := range res.Steps {
		input, _ := json.Marshal(s.Input)
		out := s.Output
		if s.Error != "" {
			out = "error: " + s.Error
		}
		data.Steps = append(data.Steps, prompt.AgentStep{
			Number: s.Iteration,
			Tool:   s.Tool,
			Input:  string(input),
			Result: clip(out, 1000),
		})
	}
	return data
}

// clip keeps the first n runes.
func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
