package config

import "jarvis/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, console
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// Options converts the config into logging options rooted at workspace.
func (c LoggingConfig) Options(workspace string) logging.Options {
	return logging.Options{
		Workspace:  workspace,
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		Format:     c.Format,
		Categories: c.Categories,
	}
}
