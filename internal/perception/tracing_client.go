package perception

import (
	"context"
	"sync"
	"time"

	"jarvis/internal/logging"
)

// Trace captures one model interaction.
type Trace struct {
	Model      string        `json:"model"`
	PromptLen  int           `json:"prompt_len"`
	History    int           `json:"history"`
	Response   string        `json:"response"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// TraceSink receives traces as they complete.
type TraceSink func(Trace)

// TracingLLMClient wraps any LLMClient with timing, audit and an optional
// in-memory ring of recent traces.
type TracingLLMClient struct {
	underlying LLMClient
	model      string
	sink       TraceSink

	mu     sync.Mutex
	recent []Trace
	keep   int
}

// NewTracingLLMClient creates a tracing wrapper around an existing client.
// model labels audit events; sink may be nil.
func NewTracingLLMClient(underlying LLMClient, model string, sink TraceSink) *TracingLLMClient {
	return &TracingLLMClient{
		underlying: underlying,
		model:      model,
		sink:       sink,
		keep:       20,
	}
}

// Generate implements LLMClient.
func (tc *TracingLLMClient) Generate(ctx context.Context, prompt string, conv Conversation) (string, error) {
	timer := logging.StartTimer(logging.CategoryAPI, "llm.generate")
	start := time.Now()
	logging.APIDebug("LLM call started: model=%s prompt_len=%d history=%d", tc.model, len(prompt), len(conv.History))

	resp, err := tc.underlying.Generate(ctx, prompt, conv)
	duration := time.Since(start)
	timer.StopWithThreshold(30 * time.Second)

	logging.Audit().LLMCall(tc.model, duration, err)
	if err != nil {
		logging.APIError("LLM call failed after %v: %v", duration, err)
	} else {
		logging.APIDebug("LLM call completed in %v: response_len=%d", duration, len(resp))
	}

	trace := Trace{
		Model:      tc.model,
		PromptLen:  len(prompt),
		History:    len(conv.History),
		Response:   resp,
		Duration:   duration,
		OccurredAt: start,
	}
	if err != nil {
		trace.Err = err.Error()
	}

	tc.mu.Lock()
	tc.recent = append(tc.recent, trace)
	if len(tc.recent) > tc.keep {
		tc.recent = tc.recent[len(tc.recent)-tc.keep:]
	}
	tc.mu.Unlock()

	if tc.sink != nil {
		tc.sink(trace)
	}
	return resp, err
}

// ListModels forwards to the wrapped client when it supports listing.
func (tc *TracingLLMClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if lister, ok := tc.underlying.(ModelLister); ok {
		return lister.ListModels(ctx)
	}
	return nil, nil
}

// Recent returns a copy of the most recent traces, oldest first.
func (tc *TracingLLMClient) Recent() []Trace {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make([]Trace, len(tc.recent))
	copy(out, tc.recent)
	return out
}

// Unwrap returns the wrapped client.
func (tc *TracingLLMClient) Unwrap() LLMClient {
	return tc.underlying
}
