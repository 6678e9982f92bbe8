package core

import (
	"context"
	"fmt"
	"strings"

	"jarvis/internal/store"
	"jarvis/internal/tools"
)

// SearchMemoryTool returns a tool that recalls stored memories by keyword.
func SearchMemoryTool(mem store.MemoryStore, limit int) *tools.Tool {
	if limit <= 0 {
		limit = 3
	}
	return &tools.Tool{
		Name:        "search_memory",
		Description: "Search remembered execution results and past turns",
		Category:    tools.CategoryMemory,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, err := tools.RequiredString(args, "query")
			if err != nil {
				return "", err
			}
			hits, err := mem.Query(ctx, query, tools.IntArg(args, "limit", limit))
			if err != nil {
				return "", err
			}
			if len(hits) == 0 {
				return "No matching memories.", nil
			}
			var sb strings.Builder
			for i, h := range hits {
				fmt.Fprintf(&sb, "%d. [%s %s, score %.2f]\n%s\n\n",
					i+1, h.Kind, h.CreatedAt.Format("2006-01-02 15:04"), h.Score, strings.TrimSpace(h.Content))
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query": {
					Type:        "string",
					Description: "Keywords to look for",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of memories to return",
					Default:     limit,
				},
			},
		},
	}
}
