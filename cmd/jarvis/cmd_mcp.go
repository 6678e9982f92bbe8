package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jarvis/internal/mcp"
)

const mcpInstructions = `jarvis runs code in a private workspace directory.
Use run_turn for a full request with automatic error correction, or
execute_python / execute_shell for a single run. workspace_state, read_file
and list_directory inspect the workspace; search_memory recalls past runs.`

// mcpCmd serves the tool registry over stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve jarvis tools over MCP (stdio)",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing:
  run_turn, web_search, execute_python, execute_shell,
  workspace_state, read_file, list_directory, search_memory

web_search is only listed when a search backend is enabled, and
search_memory only when memory is enabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		app, err := bootApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Tools,
			mcp.WithServerInfo("jarvis", version),
			mcp.WithInstructions(mcpInstructions),
		)
		logger.Info("MCP server listening on stdio", zap.Strings("tools", app.Tools.Names()))
		err = srv.Serve(ctx, os.Stdin, os.Stdout)
		logger.Info("MCP server exited", zap.Int64("calls", srv.Calls()), zap.Error(err))
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}
