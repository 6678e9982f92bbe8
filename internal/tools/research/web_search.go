// Package research exposes the configured web searcher as a tool.
package research

import (
	"context"

	"jarvis/internal/logging"
	"jarvis/internal/research"
	"jarvis/internal/tools"
)

// WebSearchTool returns a tool for searching the web.
func WebSearchTool(searcher research.Searcher, maxResults int) *tools.Tool {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &tools.Tool{
		Name:        "web_search",
		Description: "Search the web and return a summary with numbered sources",
		Category:    tools.CategoryResearch,
		Priority:    75,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := tools.RequiredString(args, "query")
			if err != nil {
				return "", err
			}
			q := research.Query{
				Text:       query,
				FocusMode:  tools.StringArg(args, "focus_mode"),
				MaxResults: tools.IntArg(args, "max_results", maxResults),
			}
			logging.ToolsDebug("web_search: %q (focus=%s, max=%d)", q.Text, q.FocusMode, q.MaxResults)

			results, err := searcher.Search(ctx, q)
			if err != nil {
				return "", err
			}
			if results.Empty() {
				return "No results found.", nil
			}
			return research.FormatResults(results), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query": {
					Type:        "string",
					Description: "The search query",
				},
				"focus_mode": {
					Type:        "string",
					Description: "Perplexica focus mode, e.g. webSearch or academicSearch",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of sources to return",
					Default:     maxResults,
				},
			},
		},
	}
}
