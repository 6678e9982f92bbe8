package research

import (
	"fmt"

	"jarvis/internal/config"
)

// NewFromConfig builds the configured search chain wrapped in a cache.
// It returns nil when search is disabled.
func NewFromConfig(cfg config.SearchConfig) (Searcher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	perplexica := func() Searcher {
		return NewPerplexicaClient(PerplexicaConfig{
			BaseURL:                cfg.PerplexicaURL,
			ChatModelProvider:      cfg.ChatModelProvider,
			ChatModel:              cfg.ChatModel,
			EmbeddingModelProvider: cfg.EmbeddingModelProvider,
			EmbeddingModel:         cfg.EmbeddingModel,
			OptimizationMode:       cfg.OptimizationMode,
			FocusMode:              cfg.FocusMode,
			MaxResults:             cfg.MaxResults,
			Timeout:                cfg.GetTimeout(),
		})
	}
	ddg := func() Searcher { return NewDuckDuckGo(cfg.MaxResults, cfg.GetTimeout()) }

	var s Searcher
	switch cfg.Provider {
	case config.SearchPerplexica:
		s = perplexica()
	case config.SearchDuckDuckGo:
		s = ddg()
	case config.SearchAuto, "":
		s = NewFallbackSearcher(perplexica(), ddg())
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
	return NewCachedSearcher(s, cfg.GetCacheTTL(), 256), nil
}
