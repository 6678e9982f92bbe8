package research

import (
	"jarvis/internal/research"
	"jarvis/internal/tools"
)

// RegisterAll registers the web search tool. A nil searcher registers
// nothing, so disabled search leaves no dangling tool.
func RegisterAll(registry *tools.Registry, searcher research.Searcher, maxResults int) error {
	if searcher == nil {
		return nil
	}
	return registry.Register(WebSearchTool(searcher, maxResults))
}
