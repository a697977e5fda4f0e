// Package tui provides the interactive Bubble Tea dashboard for chainfund.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/chainfund/internal/actions"
	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/config"
	"github.com/theirongolddev/chainfund/internal/identity"
	"github.com/theirongolddev/chainfund/internal/mirror"
	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/tui/components"
	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

// Backend is what the dashboard reads from and acts through.
type Backend struct {
	Mirror   *mirror.Mirror
	Runner   *actions.Runner
	Identity identity.Provider
}

// ConnectFunc builds a Backend from configuration.
type ConnectFunc func(cfg config.Config) (*Backend, error)

// Options configures NewApp.
type Options struct {
	Config    config.Config
	Connect   ConnectFunc
	NeedSetup bool // show the first-run form before connecting
	Now       func() time.Time
}

const (
	tabCampaigns = iota
	tabLoans
	tabSettings
)

// App is the root Bubble Tea model.
type App struct {
	cfg     config.Config
	connect ConnectFunc
	backend *Backend
	now     func() time.Time
	caller  string

	// Ledger data, replaced wholesale by each read.
	campaigns []model.CampaignSnapshot
	loans     []model.LoanSnapshot
	detail    campaignDetail
	loaded    bool
	loadErr   error
	fetchedAt time.Time
	loadTime  time.Duration

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	refreshing      bool
	lastAttempt     time.Time

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	camp      listState
	loan      listState

	// Modal action form
	form     *huh.Form
	formKind formKind
	formVals *formValues

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *setupValues
	needSetup bool

	pending map[string]bool // actions awaiting settlement, by subject key
	notice  notice

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

// listState is the cursor and view mode of a list tab.
type listState struct {
	cursor   int
	offset   int
	detail   bool
	mineOnly bool
}

type notice struct {
	text string
	err  bool
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 180
	minContentHeight = 5

	minRefreshInterval = 10 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	a := App{
		cfg:             opts.Config,
		connect:         opts.Connect,
		now:             now,
		autoRefresh:     opts.Config.TUI.AutoRefresh,
		refreshInterval: opts.Config.RefreshInterval(),
		needSetup:       opts.NeedSetup,
		pending:         make(map[string]bool),
		spinner:         sp,
		loadSub:         make(chan tea.Msg, 1),
	}
	if a.refreshInterval < minRefreshInterval {
		a.refreshInterval = minRefreshInterval
	}
	if a.needSetup {
		a.setupVals = newSetupValues(opts.Config)
		a.setupForm = newSetupForm(a.setupVals)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		tickCmd(),
	}
	if a.needSetup {
		cmds = append(cmds, a.setupForm.Init())
	} else {
		cmds = append(cmds, connectCmd(a.connect, a.cfg))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		if a.form != nil {
			a.form = a.form.WithWidth(a.formWidth())
		}
		return a, nil

	case tea.MouseMsg:
		if a.needSetup || a.form != nil || a.showHelp {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			a.moveCursor(1)
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.needSetup && a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if a.form != nil {
			return a.updateForm(msg)
		}
		return a.handleKey(msg)

	case connectedMsg:
		if msg.err != nil {
			a.loaded = true
			a.loadErr = msg.err
			return a, nil
		}
		a.backend = msg.backend
		a.caller = identity.Resolve(context.Background(), msg.backend.Identity)
		a.loaded = false
		a.loadErr = nil
		a.lastAttempt = a.now()
		return a, loadLedgerCmd(a.backend, a.now, a.loadSub)

	case progressMsg:
		a.progress = msg.current
		a.progressMax = msg.total
		return a, waitForLoadMsg(a.loadSub)

	case ledgerMsg:
		a.loaded = true
		a.refreshing = false
		a.loadTime = msg.took
		if msg.err != nil {
			if a.fetchedAt.IsZero() {
				a.loadErr = msg.err
			} else {
				// Keep showing the last good read.
				a.setNotice("Refresh failed: "+msg.err.Error(), true)
			}
			return a, nil
		}
		a.loadErr = nil
		a.campaigns = msg.state.Campaigns
		a.loans = msg.state.Loans
		a.fetchedAt = msg.state.FetchedAt
		a.clampCursors()
		if a.activeTab == tabCampaigns && a.camp.detail {
			return a, a.loadDetail()
		}
		return a, nil

	case detailMsg:
		if msg.id != a.detail.id {
			return a, nil
		}
		a.detail.loading = false
		a.detail.err = msg.err
		if msg.err == nil {
			a.detail.loaded = true
			a.detail.donations = msg.donations
			a.detail.nft = msg.nft
		}
		return a, nil

	case campaignActionMsg:
		return a.applyCampaignAction(msg)

	case loanActionMsg:
		return a.applyLoanAction(msg)

	case campaignsCreatedMsg:
		return a.applyCampaignsCreated(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.backend != nil && a.loaded && a.autoRefresh && !a.refreshing && a.form == nil {
			if a.now().Sub(a.lastAttempt) >= a.refreshInterval {
				a.refreshing = true
				a.lastAttempt = a.now()
				cmds = append(cmds, refreshCmd(a.backend, a.now))
			}
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to an open form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "tab", "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "shift+tab", "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "R":
		if a.backend == nil {
			a.loaded = false
			return a, connectCmd(a.connect, a.cfg)
		}
		if !a.refreshing {
			a.refreshing = true
			return a, refreshCmd(a.backend, a.now)
		}
		return a, nil
	case "a":
		a.autoRefresh = !a.autoRefresh
		a.cfg.TUI.AutoRefresh = a.autoRefresh
		// Persist to config (best-effort)
		_ = config.Save(a.cfg)
		return a, nil
	}
	if tab := components.TabIdxByKey(key); tab >= 0 {
		a.activeTab = tab
		return a, nil
	}

	switch a.activeTab {
	case tabCampaigns:
		return a.updateCampaignsKey(key)
	case tabLoans:
		return a.updateLoansKey(key)
	case tabSettings:
		return a.updateSettingsKey(key)
	}
	return a, nil
}

func (a *App) moveCursor(delta int) {
	switch a.activeTab {
	case tabCampaigns:
		if !a.camp.detail {
			a.camp.cursor = clamp(a.camp.cursor+delta, len(a.visibleCampaigns()))
		}
	case tabLoans:
		if !a.loan.detail {
			a.loan.cursor = clamp(a.loan.cursor+delta, len(a.visibleLoans()))
		}
	}
}

func (a *App) clampCursors() {
	a.camp.cursor = clamp(a.camp.cursor, len(a.visibleCampaigns()))
	a.loan.cursor = clamp(a.loan.cursor, len(a.visibleLoans()))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (a *App) setNotice(text string, isErr bool) {
	a.notice = notice{text: text, err: isErr}
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  chainfund needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	countStyle := lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ chainfund"))
	b.WriteString(subtitleStyle.Render(" · campaigns & microloans"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		pct := 100 * float64(a.progress) / float64(a.progressMax)
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Reading loans\n\n"))
		b.WriteString(components.FundingBar(pct, 30))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Reading the ledger..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, name string, binds [][2]string) {
		b.WriteString(sectionStyle.Render(name))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
		b.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", [][2]string{
		{"1 2 3", "Jump to tab"},
		{"← → tab", "Previous / Next tab"},
		{"j k", "Navigate lists"},
		{"Enter Esc", "Open / close details"},
		{"o", "Only mine"},
	})
	section(&b, "Campaigns", [][2]string{
		{"d", "Donate"},
		{"c", "Claim funds"},
		{"r", "Request refund"},
		{"m", "Mint receipt NFT"},
		{"n", "New campaign"},
	})
	section(&b, "Loans", [][2]string{
		{"f", "Fund loan"},
		{"p", "Repay loan"},
		{"n", "Request a loan"},
	})
	section(&b, "General", [][2]string{
		{"R", "Refresh now"},
		{"a", "Toggle auto-refresh"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)

	dataAge := ""
	if !a.fetchedAt.IsZero() {
		dataAge = "fetched " + cli.FormatAgo(a.fetchedAt, a.now())
	}
	ident := ""
	if a.caller != "" {
		ident = cli.FormatIdentity(a.caller)
	}
	statusBar := components.RenderStatusBar(w, components.StatusInfo{
		Identity:    ident,
		DataAge:     dataAge,
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
		Pending:     len(a.pending),
	})

	noticeLine := a.renderNotice(w)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar) - lipgloss.Height(noticeLine)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch {
	case a.form != nil:
		content = a.renderForm(cw)
	case a.loadErr != nil:
		content = a.renderLoadError(cw)
	case a.activeTab == tabCampaigns:
		content = a.renderCampaignsTab(cw, contentH)
	case a.activeTab == tabLoans:
		content = a.renderLoansTab(cw, contentH)
	case a.activeTab == tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, noticeLine, statusBar)

	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderNotice(w int) string {
	t := theme.Active
	style := lipgloss.NewStyle().Background(t.Background).Width(w)
	if a.notice.text == "" {
		return style.Render("")
	}
	fg := t.Green
	if a.notice.err {
		fg = t.Red
	}
	return style.Foreground(fg).Render(" " + truncStr(a.notice.text, w-2))
}

func (a App) renderLoadError(cw int) string {
	t := theme.Active
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	hint := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	body := errStyle.Render(a.loadErr.Error()) + "\n\n" +
		hint.Render("Press R to retry, 3 for settings, or run `chainfund setup`.")
	return components.ContentCard("Ledger unavailable", body, cw, true)
}

// ─── Helpers ────────────────────────────────────────────────────

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
