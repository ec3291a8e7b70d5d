package config

import (
	"os"
	"path/filepath"
	"testing"

	"klein/internal/state"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "klein.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
host = "127.0.0.1"
port = 8080
log_level = "debug"

[provisioner]
enabled = true
image = "nasa-api"
network = "klein-net"
base_port = 9500
strict = true

[health]
path = "/heartbeat"
timeout_ms = 500
interval_ms = 10000

[proxy]
timeout_ms = 3000
token_seed = 7

[[servers]]
name = "n1"
host = "10.0.0.1"
port = 9001

[[servers]]
name = "n2"
port = 9002
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr() != "127.0.0.1:8080" {
		t.Errorf("unexpected listen addr %s", cfg.ListenAddr())
	}
	if !cfg.Provisioner.Enabled || !cfg.Provisioner.Strict {
		t.Error("provisioner flags not parsed")
	}
	if cfg.Provisioner.BasePort != 9500 {
		t.Errorf("unexpected base port %d", cfg.Provisioner.BasePort)
	}
	if cfg.Proxy.TokenSeed != 7 {
		t.Errorf("unexpected token seed %d", cfg.Proxy.TokenSeed)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(cfg.Servers))
	}

	backends := cfg.Backends(state.NewSource(1))
	if backends[0].Host != "10.0.0.1" {
		t.Errorf("explicit host not honored: %s", backends[0].Host)
	}
	if backends[1].Host != "localhost" {
		t.Errorf("expected provisioner host fallback, got %s", backends[1].Host)
	}
	if backends[0].ID == backends[1].ID {
		t.Error("backends share an id")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("unexpected default port %d", cfg.Port)
	}
	if cfg.Health.Path != "/heartbeat" {
		t.Errorf("unexpected default health path %s", cfg.Health.Path)
	}
	if cfg.HealthInterval() != 0 {
		t.Error("expected the periodic health loop disabled by default")
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("expected empty initial backend list, got %d", len(cfg.Servers))
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := writeConfig(t, "port = -1\n")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for an invalid port")
	}

	path = writeConfig(t, "[[servers]]\nhost = \"x\"\nport = 9000\n")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a nameless server")
	}
}
