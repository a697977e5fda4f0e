package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.Addr != "127.0.0.1:8787" {
		t.Errorf("Daemon.Addr = %q", cfg.Daemon.Addr)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout())
	}
	if Exists() {
		t.Error("Exists = true before Save")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Ledger.GatewayURL = "https://gw.example.com"
	cfg.Ledger.CrowdfundingContract = "0xCrowd"
	cfg.Ledger.MicrofinanceContract = "0xMicro"
	cfg.Identity.Address = "0xMe"
	cfg.TUI.RefreshIntervalSec = 5
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists = false after Save")
	}

	info, err := os.Stat(ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perm = %o, want 600", perm)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Fatalf("Load = %+v, want %+v", got, cfg)
	}
	if got.RefreshInterval() != 5*time.Second {
		t.Errorf("RefreshInterval = %v, want 5s", got.RefreshInterval())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "chainfund"), 0o755); err != nil {
		t.Fatal(err)
	}
	file := `
[ledger]
gateway_url = "http://file:8545"
crowdfunding_contract = "0xFileCrowd"

[identity]
address = "0xFile"
`
	if err := os.WriteFile(ConfigPath(), []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CHAINFUND_GATEWAY_URL", "http://env:8545")
	t.Setenv("CHAINFUND_ADDRESS", "0xEnv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.GatewayURL != "http://env:8545" {
		t.Errorf("GatewayURL = %q, want env value", cfg.Ledger.GatewayURL)
	}
	if cfg.Identity.Address != "0xEnv" {
		t.Errorf("Address = %q, want env value", cfg.Identity.Address)
	}
	if cfg.Ledger.CrowdfundingContract != "0xFileCrowd" {
		t.Errorf("CrowdfundingContract = %q, want file value", cfg.Ledger.CrowdfundingContract)
	}
	if cfg.TUI.RefreshIntervalSec != 30 {
		t.Errorf("RefreshIntervalSec = %d, want default 30", cfg.TUI.RefreshIntervalSec)
	}
}

func TestLoad_BadTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "chainfund"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ConfigPath(), []byte("[ledger\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted malformed TOML")
	}
}

func TestIntervalFallbacks(t *testing.T) {
	var cfg Config
	if cfg.PollInterval() != 15*time.Second || cfg.RefreshInterval() != 30*time.Second {
		t.Fatalf("zero config intervals = %v, %v", cfg.PollInterval(), cfg.RefreshInterval())
	}
}
