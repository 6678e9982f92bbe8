package core

import (
	"jarvis/internal/store"
	"jarvis/internal/tools"
	"jarvis/internal/world"
)

// RegisterAll registers the workspace tools and, when mem is non-nil, the
// memory search tool.
func RegisterAll(registry *tools.Registry, ws *world.Workspace, mem store.MemoryStore, recallLimit int) error {
	all := []*tools.Tool{
		WorkspaceStateTool(ws),
		ReadFileTool(ws),
		ListDirectoryTool(ws),
	}
	if mem != nil {
		all = append(all, SearchMemoryTool(mem, recallLimit))
	}
	return registry.RegisterAll(all...)
}
