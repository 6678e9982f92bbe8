package config

import "time"

// ExecutionConfig configures the tactile executor and the correction loop bounds.
type ExecutionConfig struct {
	// Timeout is the hard wall-clock limit for one action.
	Timeout string `yaml:"timeout"`

	// MaxRetries is the number of corrections after the first attempt.
	MaxRetries int `yaml:"max_retries"`

	// MaxOutputBytes caps captured stdout and stderr separately.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`

	// PythonBinary overrides interpreter discovery.
	PythonBinary string `yaml:"python_binary,omitempty"`

	// AllowedEnvVars are passed through from the host environment.
	AllowedEnvVars []string `yaml:"allowed_env_vars"`
}

// DefaultExecutionConfig returns the execution defaults.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Timeout:        "30s",
		MaxRetries:     2,
		MaxOutputBytes: 1 << 20,
		AllowedEnvVars: []string{
			"PATH", "HOME", "USER", "LANG", "LC_ALL", "TMPDIR", "PYTHONPATH", "VIRTUAL_ENV",
			"SYSTEMROOT", "COMSPEC", "PATHEXT", "TEMP", "TMP", "USERPROFILE", "APPDATA", "LOCALAPPDATA",
		},
	}
}

// GetTimeout returns the action timeout as a duration.
func (c ExecutionConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}
