package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sweep.CooldownMinutes != 30 {
		t.Errorf("cooldown = %d, want default 30", cfg.Sweep.CooldownMinutes)
	}
	if cfg.Sweep.IntervalMinutes != 5 {
		t.Errorf("interval = %d, want default 5", cfg.Sweep.IntervalMinutes)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Identities = []string{"@alice", "@bob"}
	cfg.Source.Endpoint = "https://provider.example.com"
	cfg.Sweep.CooldownMinutes = 45
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got.Identities) != 2 || got.Identities[0] != "@alice" {
		t.Errorf("identities = %v, want [@alice @bob]", got.Identities)
	}
	if got.Source.Endpoint != "https://provider.example.com" {
		t.Errorf("endpoint = %q", got.Source.Endpoint)
	}
	if got.Sweep.CooldownMinutes != 45 {
		t.Errorf("cooldown = %d, want 45", got.Sweep.CooldownMinutes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLIPWATCH_SOURCE_ENDPOINT", "https://override.example.com")
	t.Setenv("FLIPWATCH_WEBHOOK_URL", "https://hooks.example.com/x")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Source.Endpoint != "https://override.example.com" {
		t.Errorf("endpoint = %q, want env override", cfg.Source.Endpoint)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/x" {
		t.Errorf("webhook url = %q, want env override", cfg.Webhook.URL)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}
