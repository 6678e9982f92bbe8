package config

// MemoryConfig configures the advisory memory store.
type MemoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// Persistent stores memories on disk; otherwise an in-memory database is used.
	Persistent bool `yaml:"persistent"`

	// DatabasePath is relative to the workspace's .jarvis directory unless absolute.
	DatabasePath string `yaml:"database_path"`

	RecallLimit int    `yaml:"recall_limit"`
	UserID      string `yaml:"user_id"`
}

// DefaultMemoryConfig returns memory defaults.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Enabled:      true,
		Persistent:   true,
		DatabasePath: "memory.db",
		RecallLimit:  3,
		UserID:       "jarvis_user",
	}
}
