// Package cmd implements the chainfund CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Ledger]")
	fmt.Printf("    Gateway URL:    %s\n", orNotSet(cfg.Ledger.GatewayURL))
	if cfg.Ledger.APIKey != "" {
		fmt.Printf("    API key:        %s\n", maskAPIKey(cfg.Ledger.APIKey))
	} else {
		fmt.Println("    API key:        not configured")
	}
	fmt.Printf("    Crowdfunding:   %s\n", orNotSet(cfg.Ledger.CrowdfundingContract))
	fmt.Printf("    Microfinance:   %s\n", orNotSet(cfg.Ledger.MicrofinanceContract))
	fmt.Printf("    Timeout:        %s\n", cfg.RequestTimeout())
	fmt.Println()

	fmt.Println("  [Identity]")
	fmt.Printf("    Address:        %s\n", orNotSet(cfg.Identity.Address))
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh:   %v\n", cfg.TUI.AutoRefresh)
	fmt.Printf("    Refresh every:  %s\n", cfg.RefreshInterval())
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Listen:         %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Poll every:     %s\n", cfg.PollInterval())
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:          %s\n", cfg.Appearance.Theme)
	fmt.Printf("    Log level:      %s\n", cfg.General.LogLevel)

	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
