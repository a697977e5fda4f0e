package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides are the settings the environment may override.
// Unset variables leave the file's values in place.
type envOverrides struct {
	GatewayURL   string `env:"CHAINFUND_GATEWAY_URL"`
	APIKey       string `env:"CHAINFUND_API_KEY"`
	Address      string `env:"CHAINFUND_ADDRESS"`
	Crowdfunding string `env:"CHAINFUND_CROWDFUNDING"`
	Microfinance string `env:"CHAINFUND_MICROFINANCE"`
	LogLevel     string `env:"CHAINFUND_LOG_LEVEL"`
	DaemonAddr   string `env:"CHAINFUND_DAEMON_ADDR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ApplyEnv overlays CHAINFUND_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := ParseEnv(&o); err != nil {
		return err
	}
	set(&cfg.Ledger.GatewayURL, o.GatewayURL)
	set(&cfg.Ledger.APIKey, o.APIKey)
	set(&cfg.Identity.Address, o.Address)
	set(&cfg.Ledger.CrowdfundingContract, o.Crowdfunding)
	set(&cfg.Ledger.MicrofinanceContract, o.Microfinance)
	set(&cfg.General.LogLevel, o.LogLevel)
	set(&cfg.Daemon.Addr, o.DaemonAddr)
	return nil
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
