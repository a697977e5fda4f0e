package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/chainfund/internal/actions"
	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/config"
	"github.com/theirongolddev/chainfund/internal/identity"
	"github.com/theirongolddev/chainfund/internal/ledger"
	"github.com/theirongolddev/chainfund/internal/mirror"
)

var (
	flagGateway  string
	flagAddress  string
	flagQuiet    bool
	flagLogLevel string
	flagForce    bool
	flagMine     bool
	flagJSON     bool
)

var rootCmd = &cobra.Command{
	Use:   "chainfund",
	Short: "Crowdfunding and microloan ledger client",
	Long:  "Browse campaigns and microloans on a ledger, see what you may do with each, and act on them.",
	RunE:  runStatus,

	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagGateway, "gateway", "", "Ledger gateway URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagAddress, "address", "", "Act as this ledger address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagGateway != "" {
		cfg.Ledger.GatewayURL = flagGateway
	}
	if flagAddress != "" {
		cfg.Identity.Address = flagAddress
	}
	if flagLogLevel != "" {
		cfg.General.LogLevel = flagLogLevel
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.General.LogLevel)}))
}

// client bundles everything a command needs to read from and act on the ledger.
type client struct {
	cfg    config.Config
	log    *slog.Logger
	ident  identity.Provider
	mirror *mirror.Mirror
	runner *actions.Runner
}

func contractsOf(cfg config.Config) (ledger.Contracts, error) {
	c := ledger.Contracts{
		Crowdfunding: strings.TrimSpace(cfg.Ledger.CrowdfundingContract),
		Microfinance: strings.TrimSpace(cfg.Ledger.MicrofinanceContract),
	}
	if c.Crowdfunding == "" || c.Microfinance == "" {
		return c, errors.New("contract addresses not configured; run `chainfund setup`")
	}
	return c, nil
}

// newClientFor wires the gateway, mirror and action runner for cfg.
func newClientFor(cfg config.Config, log *slog.Logger) (*client, error) {
	gw, err := ledger.NewHTTPGateway(cfg.Ledger.GatewayURL, cfg.Ledger.APIKey, cfg.RequestTimeout())
	if err != nil {
		if errors.Is(err, ledger.ErrNoGateway) {
			return nil, errors.New("no gateway configured; run `chainfund setup` or pass --gateway")
		}
		return nil, err
	}
	contracts, err := contractsOf(cfg)
	if err != nil {
		return nil, err
	}
	ident := identity.Static(strings.TrimSpace(cfg.Identity.Address))
	return &client{
		cfg:    cfg,
		log:    log,
		ident:  ident,
		mirror: mirror.New(gw, contracts),
		runner: actions.NewRunner(gw, contracts, ident, actions.Options{Logger: log, Now: time.Now}),
	}, nil
}

func newClient() (*client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newClientFor(cfg, newLogger(cfg))
}

// progress writes a status line to stderr unless --quiet.
func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
}

// loanProgress reports loan reads in place, like a progress counter.
func loanProgress(current, total int) {
	if flagQuiet {
		return
	}
	if current%25 == 0 || current == total {
		fmt.Fprintf(os.Stderr, "\r  Reading loans [%d/%d]", current, total)
	}
	if current == total {
		fmt.Fprintln(os.Stderr)
	}
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
