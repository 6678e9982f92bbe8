package correction

import (
	"context"
	"errors"
	"sync"

	"jarvis/internal/perception"
	"jarvis/internal/research"
	"jarvis/internal/tactile"
)

// scriptedLLM returns replies in order and records every call.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []string
	errAt    map[int]error
	prompts  []string
	convs    []perception.Conversation
	generate func(ctx context.Context, prompt string, conv perception.Conversation) (string, error)
}

func (m *scriptedLLM) Generate(ctx context.Context, prompt string, conv perception.Conversation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.convs = append(m.convs, conv)

	if m.generate != nil {
		return m.generate(ctx, prompt, conv)
	}
	if err, ok := m.errAt[call]; ok {
		return "", err
	}
	if len(m.replies) == 0 {
		return "", errors.New("scriptedLLM: no replies left")
	}
	if call >= len(m.replies) {
		return m.replies[len(m.replies)-1], nil
	}
	return m.replies[call], nil
}

func (m *scriptedLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// fakeExecutor is a function-field fake recording every action it runs.
type fakeExecutor struct {
	mu      sync.Mutex
	actions []perception.Action
	run     func(ctx context.Context, a perception.Action) tactile.Outcome
}

func (f *fakeExecutor) Run(ctx context.Context, a perception.Action) tactile.Outcome {
	f.mu.Lock()
	f.actions = append(f.actions, a)
	f.mu.Unlock()
	if f.run != nil {
		return f.run(ctx, a)
	}
	return success("")
}

func (f *fakeExecutor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actions)
}

type fakeSearcher struct {
	queries []research.Query
	search  func(ctx context.Context, q research.Query) (research.Results, error)
}

func (f *fakeSearcher) Search(ctx context.Context, q research.Query) (research.Results, error) {
	f.queries = append(f.queries, q)
	if f.search != nil {
		return f.search(ctx, q)
	}
	return research.Results{}, nil
}

// recordingObserver keeps every event.
type recordingObserver struct {
	transitions [][2]State
	attempts    []AttemptRecord
	searches    []SearchRecord
	done        []Result
}

func (o *recordingObserver) OnTransition(_ string, from, to State) {
	o.transitions = append(o.transitions, [2]State{from, to})
}
func (o *recordingObserver) OnAttempt(_ string, rec AttemptRecord) {
	o.attempts = append(o.attempts, rec)
}
func (o *recordingObserver) OnSearch(_ string, rec SearchRecord) {
	o.searches = append(o.searches, rec)
}
func (o *recordingObserver) OnDone(_ string, res Result) { o.done = append(o.done, res) }

func (o *recordingObserver) path() []State {
	if len(o.transitions) == 0 {
		return nil
	}
	out := []State{o.transitions[0][0]}
	for _, t := range o.transitions {
		out = append(out, t[1])
	}
	return out
}

func success(stdout string) tactile.Outcome {
	return tactile.Outcome{Stdout: stdout, ExitCode: tactile.ExitCodePtr(0)}
}

func failure(code int, stderr string) tactile.Outcome {
	return tactile.Outcome{Stderr: stderr, ExitCode: tactile.ExitCodePtr(code)}
}

func timedOut() tactile.Outcome {
	return tactile.Outcome{TimedOut: true, Stderr: "Execution timed out after 30s; the process group was killed."}
}

func py(code string) string { return "```python\n" + code + "\n```" }
func sh(code string) string { return "```sh\n" + code + "\n```" }
