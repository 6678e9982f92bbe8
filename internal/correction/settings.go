package correction

import "jarvis/internal/config"

// ConfigFrom projects the application config onto loop bounds.
func ConfigFrom(c *config.Config) Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = c.Execution.MaxRetries
	cfg.SearchEnabled = c.Search.Enabled && c.Escalation.Mode != config.EscalationNever
	if c.Search.MaxResults > 0 {
		cfg.MaxSearchResults = c.Search.MaxResults
	}
	cfg.ActionTimeout = c.Execution.GetTimeout()
	return cfg
}
