package shell

import (
	"jarvis/internal/tools"
)

// RegisterAll registers the one-shot execution tools with the given registry.
func RegisterAll(registry *tools.Registry, runner CodeRunner) error {
	return registry.RegisterAll(
		ExecutePythonTool(runner),
		ExecuteShellTool(runner),
	)
}
