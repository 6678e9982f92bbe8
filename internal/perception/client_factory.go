package perception

import (
	"context"
	"fmt"

	"jarvis/internal/config"
)

// NewClientFromConfig builds the LLM client selected by cfg.Provider.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderOllama, "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.GetTimeout(),
		}), nil

	case config.ProviderOpenAI:
		baseURL := cfg.BaseURL
		// the Ollama default is not an OpenAI endpoint
		if baseURL == config.DefaultLLMConfig().BaseURL {
			baseURL = ""
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     baseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.GetTimeout(),
		})

	case config.ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.GetTimeout(),
		})
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
}
