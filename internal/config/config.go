package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the persistent application configuration
type Config struct {
	// Identities tracked at startup; the registry can be mutated later.
	Identities []string `json:"identities"`

	// Sweep behavior
	Sweep SweepConfig `json:"sweep"`

	// Post provider
	Source SourceConfig `json:"source"`

	// Alert delivery
	Webhook WebhookConfig `json:"webhook"`
}

// SweepConfig holds sweep scheduling and pipeline settings
type SweepConfig struct {
	IntervalMinutes int `json:"interval_minutes"` // Time between scheduled sweeps
	CooldownMinutes int `json:"cooldown_minutes"` // Alert dedup window per (identity, kind)
	Workers         int `json:"workers"`          // Parallel per-identity pipelines
	FetchLimit      int `json:"fetch_limit"`      // Statements fetched per identity per sweep
}

// SourceConfig holds post provider settings
type SourceConfig struct {
	Endpoint          string `json:"endpoint"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	RequestsPerMinute int    `json:"requests_per_minute"`
}

// WebhookConfig holds alert delivery settings.
// An empty URL means alerts are only logged.
type WebhookConfig struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Identities: []string{},
		Sweep: SweepConfig{
			IntervalMinutes: 5,
			CooldownMinutes: 30,
			Workers:         5,
			FetchLimit:      20,
		},
		Source: SourceConfig{
			TimeoutSeconds:    30,
			RequestsPerMinute: 60,
		},
		Webhook: WebhookConfig{
			TimeoutSeconds: 10,
		},
	}
}

// DataDir returns the flipwatch data directory, creating it if needed.
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".flipwatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file at path, falling back to defaults for a
// missing file. Environment variables override file values afterwards.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overrides endpoint/secret settings from the environment so
// they can live in a .env file instead of the JSON config.
func (c *Config) applyEnv() {
	if v := os.Getenv("FLIPWATCH_SOURCE_ENDPOINT"); v != "" {
		c.Source.Endpoint = v
	}
	if v := os.Getenv("FLIPWATCH_WEBHOOK_URL"); v != "" {
		c.Webhook.URL = v
	}
}
