package config

// AgentConfig configures agent mode, the tool-calling loop over the
// registered tools.
type AgentConfig struct {
	// MaxIterations bounds tool calls per task before a final answer is forced.
	MaxIterations int `yaml:"max_iterations"`

	// RecallLimit is how many memories go into the task context.
	RecallLimit int `yaml:"recall_limit"`

	// MaxResultChars clips each tool result before it is shown to the model.
	MaxResultChars int `yaml:"max_result_chars"`

	// HistoryMessages is how many recent messages of the agent session are
	// carried into the next task.
	HistoryMessages int `yaml:"history_messages"`
}

// DefaultAgentConfig returns the agent defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations:   10,
		RecallLimit:     3,
		MaxResultChars:  4000,
		HistoryMessages: 6,
	}
}
