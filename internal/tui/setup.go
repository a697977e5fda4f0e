package tui

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/chainfund/internal/config"
	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

// setupValues is the editable subset of the configuration.
type setupValues struct {
	base config.Config

	gatewayURL   string
	apiKey       string
	crowdfunding string
	microfinance string
	address      string
	theme        string
	refreshSec   string
}

func newSetupValues(cfg config.Config) *setupValues {
	return &setupValues{
		base:         cfg,
		gatewayURL:   cfg.Ledger.GatewayURL,
		apiKey:       cfg.Ledger.APIKey,
		crowdfunding: cfg.Ledger.CrowdfundingContract,
		microfinance: cfg.Ledger.MicrofinanceContract,
		address:      cfg.Identity.Address,
		theme:        cfg.Appearance.Theme,
		refreshSec:   strconv.Itoa(int(cfg.RefreshInterval().Seconds())),
	}
}

// config returns base with the edited fields applied.
func (v *setupValues) config() config.Config {
	cfg := v.base
	cfg.Ledger.GatewayURL = strings.TrimSpace(v.gatewayURL)
	cfg.Ledger.APIKey = strings.TrimSpace(v.apiKey)
	cfg.Ledger.CrowdfundingContract = strings.TrimSpace(v.crowdfunding)
	cfg.Ledger.MicrofinanceContract = strings.TrimSpace(v.microfinance)
	cfg.Identity.Address = strings.TrimSpace(v.address)
	cfg.Appearance.Theme = v.theme
	if n, err := strconv.Atoi(strings.TrimSpace(v.refreshSec)); err == nil && n > 0 {
		cfg.TUI.RefreshIntervalSec = n
	}
	return cfg
}

func validGatewayURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL")
	}
	return nil
}

func validRefresh(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 10 {
		return errors.New("enter at least 10 seconds")
	}
	return nil
}

func themeOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(theme.Names()))
	for _, name := range theme.Names() {
		opts = append(opts, huh.NewOption(name, name))
	}
	return opts
}

func settingsGroups(v *setupValues) []*huh.Group {
	return []*huh.Group{
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway URL").
				Description("HTTP endpoint of the ledger gateway").
				Placeholder("https://gateway.example.org").
				Value(&v.gatewayURL).
				Validate(validGatewayURL),
			huh.NewInput().
				Title("API key").
				Description("Optional bearer token for the gateway").
				EchoMode(huh.EchoModePassword).
				Value(&v.apiKey),
			huh.NewInput().
				Title("Crowdfunding contract").
				Value(&v.crowdfunding).
				Validate(required("crowdfunding contract")),
			huh.NewInput().
				Title("Microfinance contract").
				Value(&v.microfinance).
				Validate(required("microfinance contract")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your address").
				Description("Leave empty to browse without acting").
				Value(&v.address),
			huh.NewSelect[string]().
				Title("Theme").
				Options(themeOptions()...).
				Value(&v.theme),
			huh.NewInput().
				Title("Auto-refresh every").
				Description("Seconds").
				Value(&v.refreshSec).
				Validate(validRefresh),
		),
	}
}

func newSetupForm(v *setupValues) *huh.Form {
	groups := append([]*huh.Group{
		huh.NewGroup(huh.NewNote().
			Title("Welcome to chainfund").
			Description("Point chainfund at a ledger gateway to browse campaigns and microloans.")),
	}, settingsGroups(v)...)
	return newForm(groups...)
}

func newSettingsForm(v *setupValues) *huh.Form {
	return newForm(settingsGroups(v)...)
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	if a.setupForm.State == huh.StateCompleted {
		a.needSetup = false
		a.setupForm = nil
		return a.saveSettings(a.setupVals)
	}

	if a.setupForm.State == huh.StateAborted {
		// Browse with whatever configuration exists.
		a.needSetup = false
		a.setupForm = nil
		return a, connectCmd(a.connect, a.cfg)
	}

	return a, cmd
}

// saveSettings persists the edited configuration and reconnects.
func (a App) saveSettings(v *setupValues) (tea.Model, tea.Cmd) {
	cfg := v.config()
	if err := config.Save(cfg); err != nil {
		a.setNotice("Saving settings failed: "+err.Error(), true)
	} else {
		a.setNotice("Settings saved", false)
	}
	a.cfg = cfg
	theme.SetActive(cfg.Appearance.Theme)
	a.refreshInterval = cfg.RefreshInterval()
	if a.refreshInterval < minRefreshInterval {
		a.refreshInterval = minRefreshInterval
	}

	a.backend = nil
	a.caller = ""
	a.loaded = false
	a.progress, a.progressMax = 0, 0
	return a, connectCmd(a.connect, cfg)
}
