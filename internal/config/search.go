package config

import "time"

// Search providers.
const (
	SearchAuto       = "auto"
	SearchPerplexica = "perplexica"
	SearchDuckDuckGo = "duckduckgo"
)

// Escalation modes.
const (
	// EscalationRepeated escalates on model directives and on repeated recoverable failures.
	EscalationRepeated = "repeated"
	// EscalationDirective escalates only when the model emits a search directive.
	EscalationDirective = "directive"
	// EscalationNever disables web search inside the loop.
	EscalationNever = "never"
)

// SearchConfig configures the web-search collaborator.
type SearchConfig struct {
	Enabled bool `yaml:"enabled"`

	// Provider is auto (Perplexica falling back to DuckDuckGo), perplexica or duckduckgo.
	Provider string `yaml:"provider"`

	PerplexicaURL          string `yaml:"perplexica_url"`
	FocusMode              string `yaml:"focus_mode"`
	OptimizationMode       string `yaml:"optimization_mode"`
	ChatModelProvider      string `yaml:"chat_model_provider"`
	ChatModel              string `yaml:"chat_model"`
	EmbeddingModelProvider string `yaml:"embedding_model_provider"`
	EmbeddingModel         string `yaml:"embedding_model"`

	MaxResults int    `yaml:"max_results"`
	CacheTTL   string `yaml:"cache_ttl"`
	Timeout    string `yaml:"timeout"`
}

// DefaultSearchConfig returns search defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Enabled:                true,
		Provider:               SearchAuto,
		PerplexicaURL:          "http://localhost:3000",
		FocusMode:              "webSearch",
		OptimizationMode:       "balanced",
		ChatModelProvider:      "ollama",
		ChatModel:              "gemma3:4b",
		EmbeddingModelProvider: "ollama",
		EmbeddingModel:         "gemma3:4b",
		MaxResults:             3,
		CacheTTL:               "30m",
		Timeout:                "30s",
	}
}

// GetCacheTTL returns the search cache TTL.
func (c SearchConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 30*time.Minute)
}

// GetTimeout returns the per-search timeout.
func (c SearchConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// EscalationConfig configures when the correction loop detours to web search.
type EscalationConfig struct {
	Mode string `yaml:"mode"`

	// RepeatedFailures is the number of consecutive recoverable failures that
	// triggers a search in repeated mode. Zero disables the trigger.
	RepeatedFailures int `yaml:"repeated_failures"`
}

// DefaultEscalationConfig returns escalation defaults.
func DefaultEscalationConfig() EscalationConfig {
	return EscalationConfig{Mode: EscalationRepeated, RepeatedFailures: 2}
}
