package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable applyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"JARVIS_LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY",
		"OLLAMA_API_BASE", "OLLAMA_MODEL", "JARVIS_MODEL", "TEMPERATURE", "MAX_TOKENS",
		"MAX_RETRIES", "EXECUTION_TIMEOUT", "WORKSPACE_DIR", "WEB_SEARCH_MAX_RESULTS",
		"WEB_SEARCH_ENABLED", "PERPLEXICA_URL", "PERPLEXICA_FOCUS_MODE", "USER_ID",
		"JARVIS_DB", "JARVIS_DEBUG", "AGENT_MAX_ITERATIONS",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "jarvis", cfg.Name)
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, 2, cfg.Execution.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Execution.GetTimeout())
	assert.Equal(t, 3, cfg.Memory.RecallLimit)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.Equal(t, "webSearch", cfg.Search.FocusMode)
	assert.Equal(t, EscalationRepeated, cfg.Escalation.Mode)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Execution, cfg.Execution)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".jarvis", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = ProviderOpenAI
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.Execution.MaxRetries = 0
	cfg.Escalation.Mode = EscalationNever
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, loaded.LLM.Provider)
	assert.Equal(t, "sk-test", loaded.LLM.APIKey)
	assert.Equal(t, 0, loaded.Execution.MaxRetries, "explicit zero must survive the round trip")
	assert.Equal(t, EscalationNever, loaded.Escalation.Mode)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("execution:\n  timeout: 5s\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Execution.GetTimeout())
	assert.Equal(t, 2, cfg.Execution.MaxRetries)
	assert.Equal(t, "gemma3:4b", cfg.LLM.Model)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("bad provider", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.Provider = "zai"
		assert.Error(t, cfg.Validate())
	})
	t.Run("openai without key", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.Provider = ProviderOpenAI
		assert.Error(t, cfg.Validate())
	})
	t.Run("negative retries", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Execution.MaxRetries = -1
		assert.Error(t, cfg.Validate())
	})
	t.Run("bad escalation mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Escalation.Mode = "sometimes"
		assert.Error(t, cfg.Validate())
	})
	t.Run("bad search provider", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Search.Provider = "bing"
		assert.Error(t, cfg.Validate())
	})
	t.Run("unparseable timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Execution.Timeout = "a minute"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "execution.timeout")
	})
	t.Run("negative cache ttl", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Search.CacheTTL = "-5m"
		assert.Error(t, cfg.Validate())
	})
	t.Run("agent iterations out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Agent.MaxIterations = 0
		assert.Error(t, cfg.Validate())
	})
	t.Run("bare seconds", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Execution.Timeout = "60"
		assert.NoError(t, cfg.Validate())
	})
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Execution.Timeout = "soon"
	cfg.LLM.Timeout = "-3s"
	cfg.Search.CacheTTL = ""
	assert.Equal(t, 30*time.Second, cfg.Execution.GetTimeout())
	assert.Equal(t, 120*time.Second, cfg.LLM.GetTimeout())
	assert.Equal(t, 30*time.Minute, cfg.Search.GetCacheTTL())
}

func TestDurationBareSeconds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Execution.Timeout = "60"
	cfg.Search.Timeout = " 5 "
	assert.Equal(t, 60*time.Second, cfg.Execution.GetTimeout())
	assert.Equal(t, 5*time.Second, cfg.Search.GetTimeout())
}

func TestResolveWorkspace(t *testing.T) {
	base := t.TempDir()
	cfg := DefaultConfig()

	got, err := cfg.ResolveWorkspace(base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "jarvis_workspace"), got)

	cfg.Workspace.Dir = base
	got, err = cfg.ResolveWorkspace("/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("OLLAMA_MODEL=llama3.2\nMAX_RETRIES=4\n"), 0644))

	// t.Setenv above leaves the keys defined but empty; godotenv does not
	// override defined variables, so drop them for this test.
	os.Unsetenv("OLLAMA_MODEL")
	os.Unsetenv("MAX_RETRIES")
	t.Cleanup(func() {
		os.Unsetenv("OLLAMA_MODEL")
		os.Unsetenv("MAX_RETRIES")
	})

	require.NoError(t, LoadDotEnv(envPath, filepath.Join(dir, "missing.env")))

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Execution.MaxRetries)
}

func TestLoadDotEnv_NoFiles(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
