package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jarvis/internal/logging"
)

// PerplexicaConfig configures a PerplexicaClient.
type PerplexicaConfig struct {
	BaseURL                string
	ChatModelProvider      string
	ChatModel              string
	EmbeddingModelProvider string
	EmbeddingModel         string
	OptimizationMode       string
	FocusMode              string
	MaxResults             int
	Timeout                time.Duration
}

// DefaultPerplexicaConfig returns a config for a local Perplexica instance
// backed by Ollama.
func DefaultPerplexicaConfig() PerplexicaConfig {
	return PerplexicaConfig{
		BaseURL:                "http://localhost:3000",
		ChatModelProvider:      "ollama",
		ChatModel:              "gemma3:4b",
		EmbeddingModelProvider: "ollama",
		EmbeddingModel:         "gemma3:4b",
		OptimizationMode:       "balanced",
		FocusMode:              DefaultFocusMode,
		MaxResults:             3,
		Timeout:                30 * time.Second,
	}
}

// PerplexicaClient queries the Perplexica /api/search endpoint.
type PerplexicaClient struct {
	cfg        PerplexicaConfig
	httpClient *http.Client
}

// NewPerplexicaClient creates a client. Zero fields fall back to defaults.
func NewPerplexicaClient(cfg PerplexicaConfig) *PerplexicaClient {
	def := DefaultPerplexicaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.ChatModelProvider == "" {
		cfg.ChatModelProvider = def.ChatModelProvider
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.EmbeddingModelProvider == "" {
		cfg.EmbeddingModelProvider = def.EmbeddingModelProvider
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = def.EmbeddingModel
	}
	if cfg.OptimizationMode == "" {
		cfg.OptimizationMode = def.OptimizationMode
	}
	if cfg.FocusMode == "" {
		cfg.FocusMode = def.FocusMode
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &PerplexicaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type perplexicaModel struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

type perplexicaRequest struct {
	ChatModel        perplexicaModel `json:"chatModel"`
	EmbeddingModel   perplexicaModel `json:"embeddingModel"`
	OptimizationMode string          `json:"optimizationMode"`
	FocusMode        string          `json:"focusMode"`
	Query            string          `json:"query"`
	Stream           bool            `json:"stream"`
}

type perplexicaSource struct {
	PageContent string `json:"pageContent"`
	Metadata    struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"metadata"`
}

type perplexicaResponse struct {
	Message string             `json:"message"`
	Sources []perplexicaSource `json:"sources"`
}

// Search implements Searcher.
func (c *PerplexicaClient) Search(ctx context.Context, q Query) (Results, error) {
	query := strings.TrimSpace(q.Text)
	if query == "" {
		return Results{}, ErrEmptyQuery
	}
	focus := q.FocusMode
	if focus == "" {
		focus = c.cfg.FocusMode
	}
	max := q.MaxResults
	if max <= 0 {
		max = c.cfg.MaxResults
	}

	payload := perplexicaRequest{
		ChatModel:        perplexicaModel{Provider: c.cfg.ChatModelProvider, Name: c.cfg.ChatModel},
		EmbeddingModel:   perplexicaModel{Provider: c.cfg.EmbeddingModelProvider, Name: c.cfg.EmbeddingModel},
		OptimizationMode: c.cfg.OptimizationMode,
		FocusMode:        focus,
		Query:            query,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Results{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	logging.ResearchDebug("Perplexica search: query=%q focus=%s", query, focus)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return Results{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Results{}, fmt.Errorf("%w: perplexica: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Results{}, fmt.Errorf("%w: perplexica: failed to read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Results{}, fmt.Errorf("%w: perplexica: HTTP %d: %s", ErrUnavailable, resp.StatusCode, truncate(strings.TrimSpace(string(data)), 200))
	}

	var parsed perplexicaResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Results{}, fmt.Errorf("failed to parse perplexica response: %w", err)
	}

	results := Results{Message: parsed.Message, Backend: "perplexica"}
	for _, s := range parsed.Sources {
		results.Sources = append(results.Sources, Source{
			Title:   s.Metadata.Title,
			URL:     s.Metadata.URL,
			Snippet: s.PageContent,
		})
	}
	results.Sources = limitSources(results.Sources, max)

	logging.Research("Perplexica search completed: %d sources for %q", len(results.Sources), query)
	return results, nil
}
