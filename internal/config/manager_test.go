package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{
		"logging": {"level": "debug", "console": true, "file": {"enabled": false}},
		"http": {"addr": "127.0.0.1:9000", "read_timeout": "5s"},
		"platform": {"driver": "memory", "janitor_spec": "@every 30s"},
		"presenter": {"rate_per_sec": 5},
		"coordinator": {"shown_grace_ms": 2000},
		"journal": {"driver": "file", "path": "./j.jsonl"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Level = %q", cfg.Logging.Level)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Fatalf("Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Coordinator.ShownGrace() != 2000 {
		t.Fatalf("ShownGrace = %d", cfg.Coordinator.ShownGrace())
	}
	if m.Get() != cfg {
		t.Fatal("Get did not return committed config")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
logging:
  level: info
  console: true
platform:
  driver: memory
presenter:
  rate_per_sec: 3
http: {}
coordinator: {}
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Presenter.RatePerSec != 3 {
		t.Fatalf("RatePerSec = %d", cfg.Presenter.RatePerSec)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"logging": {}, "no_such_section": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestShownGraceDefault(t *testing.T) {
	t.Parallel()
	var c CoordinatorConfig
	if c.ShownGrace() != 15000 {
		t.Fatalf("default ShownGrace = %d, want 15000", c.ShownGrace())
	}
	neg := -1
	c.ShownGraceMs = &neg
	if c.ShownGrace() != 0 {
		t.Fatalf("negative ShownGrace = %d, want 0", c.ShownGrace())
	}
}

func TestLoadCredentialsPrecedence(t *testing.T) {
	envFile := writeFile(t, ".env",
		EnvProviderKey+"=file-key\n"+EnvProviderSenderID+"=file-sender\n")

	// Process environment wins over the .env file.
	t.Setenv(EnvProviderKey, "proc-key")

	creds, err := LoadCredentials(envFile)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.APIKey != "proc-key" {
		t.Fatalf("APIKey = %q, want proc-key", creds.APIKey)
	}
	if creds.SenderID != "file-sender" {
		t.Fatalf("SenderID = %q, want file-sender", creds.SenderID)
	}
}

func TestLoadCredentialsMissingKeys(t *testing.T) {
	t.Setenv(EnvProviderKey, "")
	t.Setenv(EnvProviderSenderID, "")
	if _, err := LoadCredentials(""); err == nil {
		t.Fatal("expected error for missing provider key")
	}
}
