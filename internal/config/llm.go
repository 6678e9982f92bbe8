package config

import (
	"fmt"
	"time"
)

// LLM providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{ProviderOllama, ProviderOpenAI, ProviderGemini}

// LLMConfig configures the language-model collaborator.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`

	// HistoryTurns bounds how many prior conversation turns are sent.
	HistoryTurns int `yaml:"history_turns"`
}

// DefaultLLMConfig targets a local Ollama server.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:     ProviderOllama,
		Model:        "gemma3:4b",
		BaseURL:      "http://localhost:11434",
		Temperature:  0.7,
		MaxTokens:    1000,
		Timeout:      "120s",
		HistoryTurns: 10,
	}
}

// GetTimeout returns the LLM request timeout as a duration.
func (c LLMConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}

// Validate checks provider and credentials.
func (c LLMConfig) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.Provider, ValidProviders)
	}
	if c.Provider != ProviderOllama && c.APIKey == "" {
		return fmt.Errorf("LLM API key not configured for provider %s (set OPENAI_API_KEY or GEMINI_API_KEY)", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	return nil
}
