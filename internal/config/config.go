// Package config loads and saves chainfund's TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all chainfund configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Identity   IdentityConfig   `toml:"identity"`
	TUI        TUIConfig        `toml:"tui"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	LogLevel string `toml:"log_level"`
}

// LedgerConfig holds the gateway endpoint and contract addresses.
type LedgerConfig struct {
	GatewayURL           string `toml:"gateway_url,omitempty"`
	APIKey               string `toml:"api_key,omitempty"`
	CrowdfundingContract string `toml:"crowdfunding_contract,omitempty"`
	MicrofinanceContract string `toml:"microfinance_contract,omitempty"`
	RequestTimeoutSec    int    `toml:"request_timeout_sec"`
}

// IdentityConfig holds the caller's ledger address.
type IdentityConfig struct {
	Address string `toml:"address,omitempty"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// DaemonConfig holds the background poller's settings.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Ledger: LedgerConfig{
			RequestTimeoutSec: 30,
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 30,
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:8787",
			IntervalSec: 15,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// RequestTimeout returns the gateway request timeout.
func (c Config) RequestTimeout() time.Duration {
	return seconds(c.Ledger.RequestTimeoutSec, 30)
}

// RefreshInterval returns the TUI auto-refresh interval.
func (c Config) RefreshInterval() time.Duration {
	return seconds(c.TUI.RefreshIntervalSec, 30)
}

// PollInterval returns the daemon's ledger poll interval.
func (c Config) PollInterval() time.Duration {
	return seconds(c.Daemon.IntervalSec, 15)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chainfund")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "chainfund")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist,
// then applies environment overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
