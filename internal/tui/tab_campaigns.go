package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/actions"
	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/tui/components"
	"github.com/theirongolddev/chainfund/internal/tui/theme"
)

// campaignDetail is the lazily read part of the selected campaign.
type campaignDetail struct {
	id        int
	loading   bool
	loaded    bool
	err       error
	donations []model.Donation
	nft       model.NFTDetails
}

func (a App) visibleCampaigns() []model.CampaignSnapshot {
	if a.camp.mineOnly {
		return engine.FilterByOwner(a.campaigns, a.caller)
	}
	return a.campaigns
}

func (a App) selectedCampaign() (model.CampaignSnapshot, bool) {
	list := a.visibleCampaigns()
	if a.camp.cursor < 0 || a.camp.cursor >= len(list) {
		return model.CampaignSnapshot{}, false
	}
	return list[a.camp.cursor], true
}

// campaignView derives eligibility for c, using the receipt token state
// when the detail for c has been read.
func (a App) campaignView(c model.CampaignSnapshot) model.CampaignView {
	if a.detail.loaded && a.detail.id == c.ID {
		return engine.DeriveCampaignViewWithNFT(c, a.detail.nft, a.caller, a.now())
	}
	return engine.DeriveCampaignView(c, a.caller, a.now())
}

func (a *App) loadDetail() tea.Cmd {
	c, ok := a.selectedCampaign()
	if !ok || a.backend == nil {
		return nil
	}
	if a.detail.id != c.ID {
		a.detail = campaignDetail{id: c.ID}
	}
	a.detail.loading = true
	return detailCmd(a.backend, c.ID)
}

// canAct reports whether an action on (subject, id) may be started, setting
// a notice explaining why when it may not.
func (a *App) canAct(subject actions.Subject, id int64) bool {
	if a.backend == nil {
		a.setNotice("Not connected to a ledger", true)
		return false
	}
	if a.caller == "" {
		a.setNotice("No identity connected; set an address in Settings", true)
		return false
	}
	if a.pending[pendingKey(subject, id)] {
		a.setNotice("An action for this item is still being sent", true)
		return false
	}
	return true
}

func (a App) updateCampaignsKey(key string) (tea.Model, tea.Cmd) {
	n := len(a.visibleCampaigns())

	switch key {
	case "j", "down":
		if !a.camp.detail && a.camp.cursor < n-1 {
			a.camp.cursor++
		}
		return a, nil
	case "k", "up":
		if !a.camp.detail && a.camp.cursor > 0 {
			a.camp.cursor--
		}
		return a, nil
	case "g", "home":
		a.camp.cursor = 0
		a.camp.offset = 0
		return a, nil
	case "G", "end":
		a.camp.cursor = clamp(n-1, n)
		return a, nil
	case "enter":
		if n == 0 {
			return a, nil
		}
		a.camp.detail = true
		return a, a.loadDetail()
	case "esc", "backspace":
		a.camp.detail = false
		return a, nil
	case "o":
		a.camp.mineOnly = !a.camp.mineOnly
		a.camp.cursor = 0
		a.camp.offset = 0
		a.camp.detail = false
		return a, nil
	case "n":
		if !a.canAct(actions.SubjectCampaign, -1) {
			return a, nil
		}
		v := &formValues{}
		return a.openForm(formNewCampaign, v, newCampaignForm(v))
	}

	c, ok := a.selectedCampaign()
	if !ok {
		return a, nil
	}
	view := a.campaignView(c)

	switch key {
	case "d":
		if !view.CanDonate {
			a.setNotice("Campaign has ended; donations are closed", true)
			return a, nil
		}
		if !a.canAct(actions.SubjectCampaign, int64(c.ID)) {
			return a, nil
		}
		v := &formValues{campaignID: c.ID}
		return a.openForm(formDonate, v, amountForm(v, "Donate to "+c.Title, "Send donation?"))
	case "c":
		if !view.CanClaim {
			a.setNotice("Only the owner can claim an ended, funded, unclaimed campaign", true)
			return a, nil
		}
		if !a.canAct(actions.SubjectCampaign, int64(c.ID)) {
			return a, nil
		}
		v := &formValues{campaignID: c.ID}
		return a.openForm(formClaim, v, confirmForm(v, "Claim "+cli.FormatAmount(c.AmountCollected)+"?", c.Title))
	case "r":
		if !view.CanRefund {
			a.setNotice("Refunds open once a campaign ends short of its goal", true)
			return a, nil
		}
		if !a.canAct(actions.SubjectCampaign, int64(c.ID)) {
			return a, nil
		}
		v := &formValues{campaignID: c.ID}
		return a.openForm(formRefund, v, confirmForm(v, "Request a refund?", c.Title))
	case "m":
		if !a.detail.loaded || a.detail.id != c.ID {
			a.setNotice("Open the campaign (enter) to check its receipt token first", true)
			return a, nil
		}
		if !view.CanMint {
			a.setNotice("A receipt can be minted once, for an ended funded campaign", true)
			return a, nil
		}
		if !a.canAct(actions.SubjectCampaign, int64(c.ID)) {
			return a, nil
		}
		v := &formValues{campaignID: c.ID}
		return a.openForm(formMint, v, confirmForm(v, "Mint the receipt NFT?", c.Title))
	}
	return a, nil
}

func (a App) renderCampaignsTab(cw, h int) string {
	t := theme.Active
	list := a.visibleCampaigns()

	if len(list) == 0 {
		msg := "No campaigns on the ledger yet. Press n to create one."
		if a.camp.mineOnly {
			msg = "You own no campaigns. Press o to show all."
		}
		return components.ContentCard("Campaigns",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(msg), cw, false)
	}

	summary := a.campaignMetrics(cw)
	bodyH := h - lipgloss.Height(summary)

	c := list[clamp(a.camp.cursor, len(list))]
	if a.camp.detail {
		return summary + "\n" + components.ContentCard(fmt.Sprintf("Campaign #%d", c.ID), a.renderCampaignDetail(c, cw), cw, true)
	}

	leftW := cw * 2 / 5
	if leftW < 36 {
		leftW = 36
	}
	rightW := cw - leftW

	title := "Campaigns"
	if a.camp.mineOnly {
		title = "My campaigns"
	}
	left := components.ContentCard(title, a.renderCampaignList(list, leftW, bodyH), leftW, true)
	right := components.ContentCard(fmt.Sprintf("Campaign #%d", c.ID), a.renderCampaignDetail(c, rightW), rightW, false)
	return summary + "\n" + components.CardRow([]string{left, right})
}

func (a App) campaignMetrics(cw int) string {
	open, funded := 0, 0
	raised := decimal.Zero
	for _, c := range a.campaigns {
		if !engine.IsEnded(c.Deadline, a.now()) {
			open++
		}
		if engine.GoalMet(c) {
			funded++
		}
		raised = raised.Add(c.AmountCollected)
	}
	return components.MetricCardRow([]components.Metric{
		{Label: "Campaigns", Value: cli.FormatNumber(int64(len(a.campaigns)))},
		{Label: "Open", Value: cli.FormatNumber(int64(open))},
		{Label: "Funded", Value: cli.FormatNumber(int64(funded))},
		{Label: "Raised", Value: cli.FormatAmountShort(raised) + " " + cli.Currency},
	}, cw)
}

func (a App) renderCampaignList(list []model.CampaignSnapshot, w, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)

	visible := h - 4 // card border (2) + title + footer hint
	if visible < 3 {
		visible = 3
	}
	offset := a.camp.offset
	if a.camp.cursor < offset {
		offset = a.camp.cursor
	}
	if a.camp.cursor >= offset+visible {
		offset = a.camp.cursor - visible + 1
	}
	end := offset + visible
	if end > len(list) {
		end = len(list)
	}

	var b strings.Builder
	for i := offset; i < end; i++ {
		c := list[i]
		pct := engine.PercentFunded(c.Target, c.AmountCollected)
		marker := fmt.Sprintf("%5.1f%%", pct)
		if engine.IsEnded(c.Deadline, a.now()) {
			marker = "ended "
		}
		titleW := inner - lipgloss.Width(marker) - 6
		line := fmt.Sprintf("%-4d %-*s %s", c.ID, titleW, truncStr(c.Title, titleW), marker)
		style := rowStyle
		if i == a.camp.cursor {
			style = selectedStyle
		}
		b.WriteString(style.Width(inner).Render(line))
		b.WriteString("\n")
	}
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	b.WriteString(hint.Render(fmt.Sprintf("%d of %d · enter details · o mine", a.camp.cursor+1, len(list))))
	return b.String()
}

func (a App) renderCampaignDetail(c model.CampaignSnapshot, w int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)
	view := a.campaignView(c)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	field := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-10s ", label)) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(truncStr(c.Title, inner)))
	b.WriteString("\n")
	if c.Description != "" {
		b.WriteString(mutedStyle.Width(inner).Render(c.Description))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(strings.Repeat("─", inner)))
	b.WriteString("\n")

	barW := inner - 8
	if barW > 40 {
		barW = 40
	}
	b.WriteString(components.FundingBar(view.PercentFunded, barW))
	b.WriteString("\n")
	b.WriteString(field("Raised", cli.FormatAmount(c.AmountCollected)+" of "+cli.FormatAmount(c.Target)))
	b.WriteString(field("Deadline", c.Deadline.Local().Format("Jan 02 2006 15:04")+"  "+cli.FormatDaysLeft(view.DaysLeft, view.IsEnded)))
	owner := cli.FormatIdentity(c.Owner)
	if view.IsOwner {
		owner += " (you)"
	}
	b.WriteString(field("Owner", owner))
	if c.Claimed {
		b.WriteString(field("Claimed", "yes"))
	}
	if c.Image != "" {
		b.WriteString(field("Image", truncStr(c.Image, inner-11)))
	}

	b.WriteString("\n")
	b.WriteString(a.renderCampaignActions(c, view))
	b.WriteString("\n")

	if a.camp.detail && a.detail.id == c.ID {
		b.WriteString("\n")
		b.WriteString(a.renderDonations(inner))
	}
	return b.String()
}

func (a App) renderCampaignActions(c model.CampaignSnapshot, view model.CampaignView) string {
	t := theme.Active
	on := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	off := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	if a.pending[pendingKey(actions.SubjectCampaign, int64(c.ID))] {
		return warn.Render(a.spinner.View() + " sending…")
	}

	mintKnown := a.detail.loaded && a.detail.id == c.ID
	opts := []struct {
		key, label string
		ok         bool
	}{
		{"d", "donate", view.CanDonate},
		{"c", "claim", view.CanClaim},
		{"r", "refund", view.CanRefund},
		{"m", "mint", mintKnown && view.CanMint},
	}
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		s := "[" + o.key + "]" + o.label
		if o.ok {
			parts = append(parts, on.Render(s))
		} else {
			parts = append(parts, off.Render(s))
		}
	}
	return strings.Join(parts, off.Render("  "))
}

func (a App) renderDonations(inner int) string {
	t := theme.Active
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	d := a.detail
	switch {
	case d.loading && !d.loaded:
		return mutedStyle.Render(a.spinner.View() + " reading donations…")
	case d.err != nil && !d.loaded:
		return lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render("Donations unavailable: " + d.err.Error())
	}

	var b strings.Builder
	if d.nft.HasNFT {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Receipt NFT #%d minted", d.nft.TokenID)))
		b.WriteString("\n\n")
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("DONATIONS (%d)", len(d.donations))))
	b.WriteString("\n")
	if len(d.donations) == 0 {
		b.WriteString(mutedStyle.Render("No donations yet"))
		return b.String()
	}
	for _, don := range d.donations {
		donor := cli.FormatIdentity(don.Donor)
		if engine.IsOwner(a.caller, don.Donor) {
			donor += " (you)"
		}
		amt := cli.FormatAmount(don.Amount)
		pad := inner - lipgloss.Width(donor) - lipgloss.Width(amt)
		if pad < 1 {
			pad = 1
		}
		b.WriteString(rowStyle.Render(donor + strings.Repeat(" ", pad) + amt))
		b.WriteString("\n")
	}
	return b.String()
}
