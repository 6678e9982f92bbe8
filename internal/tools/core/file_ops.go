// Package core exposes read-only workspace inspection and memory recall as
// tools. Every path is resolved inside the workspace root.
package core

import (
	"context"
	"fmt"
	"strings"

	"jarvis/internal/logging"
	"jarvis/internal/tools"
	"jarvis/internal/world"
)

// defaultReadLimit caps read_file output when max_bytes is not given.
const defaultReadLimit = 64 * 1024

// WorkspaceStateTool returns a tool that renders the workspace snapshot.
func WorkspaceStateTool(ws *world.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "workspace_state",
		Description: "Show the workspace root, its file listing and the contents of small text files",
		Category:    tools.CategoryWorkspace,
		Priority:    80,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			snap, err := ws.Snapshot(ctx)
			if err != nil {
				return "", err
			}
			body := snap.String()
			if body == "" {
				body = "(empty)"
			}
			return fmt.Sprintf("Workspace: %s\n\n%s", snap.Root, body), nil
		},
	}
}

// ReadFileTool returns a tool for reading a workspace file.
func ReadFileTool(ws *world.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "read_file",
		Description: "Read a file inside the workspace",
		Category:    tools.CategoryWorkspace,
		Priority:    90,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path, err := tools.RequiredString(args, "path")
			if err != nil {
				return "", err
			}
			limit := tools.IntArg(args, "max_bytes", defaultReadLimit)
			logging.ToolsDebug("read_file: %s (max=%d)", path, limit)
			return ws.ReadFile(path, int64(limit))
		},
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "Path relative to the workspace root",
				},
				"max_bytes": {
					Type:        "integer",
					Description: "Maximum number of bytes to return",
					Default:     defaultReadLimit,
				},
			},
		},
	}
}

// ListDirectoryTool returns a tool that lists one workspace directory.
func ListDirectoryTool(ws *world.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "list_directory",
		Description: "List the entries of a directory inside the workspace",
		Category:    tools.CategoryWorkspace,
		Priority:    85,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := tools.StringArg(args, "path")
			files, err := ws.ListDirectory(path)
			if err != nil {
				return "", err
			}
			if len(files) == 0 {
				return "(empty directory)", nil
			}
			var sb strings.Builder
			for _, f := range files {
				if f.IsDir {
					fmt.Fprintf(&sb, "%s/\n", f.Path)
				} else {
					fmt.Fprintf(&sb, "%s\t%d\n", f.Path, f.Size)
				}
			}
			return strings.TrimRight(sb.String(), "\n"), nil
		},
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "Directory relative to the workspace root (default: the root)",
				},
			},
		},
	}
}
