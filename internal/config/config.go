package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all jarvis configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM        LLMConfig        `yaml:"llm"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Memory     MemoryConfig     `yaml:"memory"`
	Search     SearchConfig     `yaml:"search"`
	Escalation EscalationConfig `yaml:"escalation"`
	Agent      AgentConfig      `yaml:"agent"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DefaultConfigPath is where Load looks when no --config flag is given.
const DefaultConfigPath = ".jarvis/config.yaml"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "jarvis",
		Version: "0.4.0",

		LLM:        DefaultLLMConfig(),
		Execution:  DefaultExecutionConfig(),
		Workspace:  DefaultWorkspaceConfig(),
		Memory:     DefaultMemoryConfig(),
		Search:     DefaultSearchConfig(),
		Escalation: DefaultEscalationConfig(),
		Agent:      DefaultAgentConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads configuration from a YAML file and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("JARVIS_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = strings.ToLower(p)
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOllama
	}

	// Provider keys only fill the key of the selected provider
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			c.LLM.BaseURL = base
		}
	case ProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	case ProviderOllama:
		if base := os.Getenv("OLLAMA_API_BASE"); base != "" {
			c.LLM.BaseURL = base
		}
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" && c.LLM.Provider == ProviderOllama {
		c.LLM.Model = model
	}
	if model := os.Getenv("JARVIS_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if v, ok := envFloat("TEMPERATURE"); ok {
		c.LLM.Temperature = v
	}
	if v, ok := envInt("MAX_TOKENS"); ok {
		c.LLM.MaxTokens = v
	}

	if v, ok := envInt("MAX_RETRIES"); ok {
		c.Execution.MaxRetries = v
	}
	if v := os.Getenv("EXECUTION_TIMEOUT"); v != "" {
		c.Execution.Timeout = v
	}
	if v, ok := envInt("AGENT_MAX_ITERATIONS"); ok {
		c.Agent.MaxIterations = v
	}
	if v := os.Getenv("WORKSPACE_DIR"); v != "" {
		c.Workspace.Dir = v
	}

	if v, ok := envInt("WEB_SEARCH_MAX_RESULTS"); ok {
		c.Search.MaxResults = v
	}
	if v, ok := envBool("WEB_SEARCH_ENABLED"); ok {
		c.Search.Enabled = v
	}
	if v := os.Getenv("PERPLEXICA_URL"); v != "" {
		c.Search.PerplexicaURL = v
	}
	if v := os.Getenv("PERPLEXICA_FOCUS_MODE"); v != "" {
		c.Search.FocusMode = v
	}

	if v := os.Getenv("USER_ID"); v != "" {
		c.Memory.UserID = v
	}
	if v := os.Getenv("JARVIS_DB"); v != "" {
		c.Memory.DatabasePath = v
	}
	if v, ok := envBool("JARVIS_DEBUG"); ok {
		c.Logging.DebugMode = v
		if v {
			c.Logging.Level = "debug"
		}
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := toDuration(s)
	if err != nil || d == 0 {
		return fallback
	}
	return d
}

// toDuration accepts Go duration strings and bare integers as seconds. An
// empty string is zero, meaning "use the default".
func toDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		s = strconv.Itoa(n) + "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if c.Execution.MaxRetries < 0 || c.Execution.MaxRetries > 10 {
		return fmt.Errorf("execution.max_retries must be between 0 and 10, got %d", c.Execution.MaxRetries)
	}
	if c.Workspace.Dir == "" {
		return fmt.Errorf("workspace.dir is required")
	}
	if c.Agent.MaxIterations < 1 || c.Agent.MaxIterations > 50 {
		return fmt.Errorf("agent.max_iterations must be between 1 and 50, got %d", c.Agent.MaxIterations)
	}
	for _, f := range []struct{ name, value string }{
		{"execution.timeout", c.Execution.Timeout},
		{"llm.timeout", c.LLM.Timeout},
		{"search.timeout", c.Search.Timeout},
		{"search.cache_ttl", c.Search.CacheTTL},
	} {
		if _, err := toDuration(f.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, f.value, err)
		}
	}
	switch c.Escalation.Mode {
	case EscalationRepeated, EscalationDirective, EscalationNever:
	default:
		return fmt.Errorf("invalid escalation mode: %s (valid: repeated, directive, never)", c.Escalation.Mode)
	}
	switch c.Search.Provider {
	case SearchAuto, SearchPerplexica, SearchDuckDuckGo:
	default:
		return fmt.Errorf("invalid search provider: %s (valid: auto, perplexica, duckduckgo)", c.Search.Provider)
	}
	return nil
}

// ResolveWorkspace returns the absolute workspace directory, relative paths
// being resolved against base.
func (c *Config) ResolveWorkspace(base string) (string, error) {
	dir := c.Workspace.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, dir)
	}
	return filepath.Abs(dir)
}
