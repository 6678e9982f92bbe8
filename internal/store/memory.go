package store

import (
	"context"
	"errors"
	"time"
)

// Kind classifies a memory entry.
type Kind string

const (
	// KindExecution summarizes one attempt: action, verdict and output tail.
	KindExecution Kind = "execution"
	// KindTurn summarizes one user turn and its final status.
	KindTurn Kind = "turn"
	// KindNote is free text added by the user.
	KindNote Kind = "note"
	// KindAgent summarizes one agent-mode task and the tools it used.
	KindAgent Kind = "agent"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("memory store is closed")

// Entry is one remembered item.
type Entry struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Hit is a query match.
type Hit struct {
	Entry
	Score float64 `json:"score"`
}

// ListOptions filters List and Clear. Zero fields match everything.
type ListOptions struct {
	Kind      Kind
	SessionID string
	UserID    string
	Limit     int
}

// MemoryStore is the advisory memory used to enrich prompts. Callers treat
// every error as non-fatal.
type MemoryStore interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Query(ctx context.Context, text string, limit int) ([]Hit, error)
}

// NopMemory remembers nothing.
type NopMemory struct{}

func (NopMemory) Append(_ context.Context, e Entry) (Entry, error)  { return e, nil }
func (NopMemory) Query(context.Context, string, int) ([]Hit, error) { return nil, nil }
