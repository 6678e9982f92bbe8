package perception

import (
	"context"
	"errors"
	"strings"
	"time"
)

// LLMClient is the language-model collaborator. Generate sends prompt as the
// newest user message after the conversation history and returns the model's
// text. Transport failures are returned as errors; clients never retry on
// their own.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, conv Conversation) (string, error)
}

// ModelLister is implemented by clients that can enumerate installed models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo describes one model available to a provider.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Role is a conversation participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the context handed to the model alongside a prompt.
type Conversation struct {
	System  string
	History []Message
}

// WithTurn returns a copy of c with the user/assistant pair appended.
func (c Conversation) WithTurn(user, assistant string) Conversation {
	h := make([]Message, 0, len(c.History)+2)
	h = append(h, c.History...)
	h = append(h, Message{Role: RoleUser, Content: user}, Message{Role: RoleAssistant, Content: assistant})
	return Conversation{System: c.System, History: h}
}

// Trim keeps the last n user/assistant pairs. n <= 0 keeps everything.
func (c Conversation) Trim(n int) Conversation {
	if n <= 0 || len(c.History) <= 2*n {
		return c
	}
	h := make([]Message, 2*n)
	copy(h, c.History[len(c.History)-2*n:])
	return Conversation{System: c.System, History: h}
}

// Messages flattens the conversation plus prompt into a role-tagged list.
func (c Conversation) Messages(prompt string) []Message {
	out := make([]Message, 0, len(c.History)+2)
	if strings.TrimSpace(c.System) != "" {
		out = append(out, Message{Role: RoleSystem, Content: c.System})
	}
	out = append(out, c.History...)
	out = append(out, Message{Role: RoleUser, Content: prompt})
	return out
}

var (
	// ErrNoAPIKey means the selected provider requires a key that is not configured.
	ErrNoAPIKey = errors.New("API key not configured")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrUnknownProvider means the configured provider name is not supported.
	ErrUnknownProvider = errors.New("unknown LLM provider")
)
