package config

// WorkspaceConfig configures the directory actions run in and how much of it is
// shown to the model.
type WorkspaceConfig struct {
	Dir string `yaml:"dir"`

	SnapshotDepth    int   `yaml:"snapshot_depth"`
	SnapshotMaxFiles int   `yaml:"snapshot_max_files"`
	SmallFileBytes   int64 `yaml:"small_file_bytes"`
	SmallFileCount   int   `yaml:"small_file_count"`

	// Watch invalidates the cached snapshot on filesystem events.
	Watch bool `yaml:"watch"`
}

// DefaultWorkspaceConfig returns workspace defaults.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Dir:              "jarvis_workspace",
		SnapshotDepth:    2,
		SnapshotMaxFiles: 200,
		SmallFileBytes:   2048,
		SmallFileCount:   5,
		Watch:            true,
	}
}
