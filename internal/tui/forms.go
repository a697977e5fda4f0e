package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/chainfund/internal/actions"
	"github.com/theirongolddev/chainfund/internal/cli"
	"github.com/theirongolddev/chainfund/internal/tui/components"
	"github.com/theirongolddev/chainfund/internal/units"
)

var errNoConnector = errors.New("no ledger connection configured")

const (
	actionDonate  = "donate"
	actionClaim   = "claim"
	actionRefund  = "refund"
	actionMint    = "mint"
	actionFund    = "fund"
	actionRepay   = "repay"
	actionRequest = "request"
)

type formKind int

const (
	formNone formKind = iota
	formDonate
	formClaim
	formRefund
	formMint
	formFund
	formRepay
	formNewCampaign
	formNewLoan
	formSettings
)

// formValues holds the bound fields of the open form. It lives on the heap
// so copies of App made by Bubble Tea keep pointing at the same values.
type formValues struct {
	campaignID int
	loanID     int64

	amount  string
	confirm bool

	title        string
	description  string
	target       string
	deadlineDays string
	image        string

	purpose      string
	interestPct  string
	durationDays string

	settings *setupValues
}

// formKeyMap makes esc cancel a form as well as ctrl+c.
func formKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel"))
	return km
}

func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithKeyMap(formKeyMap()).
		WithShowHelp(true)
}

func validAmount(s string) error {
	wei, err := units.ToLedgerAmount(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter an amount like 0.5")
	}
	if wei.Sign() <= 0 {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

func validPositiveNumber(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return errors.New("enter a number greater than zero")
	}
	return nil
}

func validPercent(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f > 100 {
		return errors.New("enter a percentage between 0 and 100")
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func amountForm(v *formValues, title, confirmTitle string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Description("Amount in "+cli.Currency).
			Value(&v.amount).
			Validate(validAmount),
		huh.NewConfirm().
			Title(confirmTitle).
			Affirmative("Send").
			Negative("Cancel").
			Value(&v.confirm),
	))
}

func confirmForm(v *formValues, title, description string) *huh.Form {
	return newForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Send").
			Negative("Cancel").
			Value(&v.confirm),
	))
}

func newCampaignForm(v *formValues) *huh.Form {
	return newForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&v.title).Validate(required("title")),
			huh.NewText().Title("Description").Value(&v.description).Validate(required("description")),
			huh.NewInput().Title("Target").Description("Goal in "+cli.Currency).Value(&v.target).Validate(validAmount),
			huh.NewInput().Title("Runs for").Description("Days from now").Value(&v.deadlineDays).Validate(validPositiveNumber),
			huh.NewInput().Title("Image URL").Description("Optional").Value(&v.image),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Create campaign?").Affirmative("Create").Negative("Cancel").Value(&v.confirm),
		),
	)
}

func newLoanForm(v *formValues) *huh.Form {
	return newForm(
		huh.NewGroup(
			huh.NewInput().Title("Purpose").Value(&v.purpose).Validate(required("purpose")),
			huh.NewInput().Title("Amount").Description("Requested in "+cli.Currency).Value(&v.amount).Validate(validAmount),
			huh.NewInput().Title("Interest").Description("Percent, e.g. 5.5").Value(&v.interestPct).Validate(validPercent),
			huh.NewInput().Title("Duration").Description("Days").Value(&v.durationDays).Validate(validPositiveNumber),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Request loan?").Affirmative("Request").Negative("Cancel").Value(&v.confirm),
		),
	)
}

// openForm shows form as a modal over the current tab.
func (a App) openForm(kind formKind, v *formValues, form *huh.Form) (tea.Model, tea.Cmd) {
	a.formKind = kind
	a.formVals = v
	a.form = form.WithWidth(a.formWidth())
	a.notice = notice{}
	return a, a.form.Init()
}

func (a App) formWidth() int {
	w := a.contentWidth() - 8
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (a App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		kind, v := a.formKind, a.formVals
		a.closeForm()
		if kind == formSettings {
			return a.saveSettings(v.settings)
		}
		if !v.confirm {
			a.setNotice("Cancelled", false)
			return a, nil
		}
		return a.submitForm(kind, v)
	case huh.StateAborted:
		a.closeForm()
		a.setNotice("Cancelled", false)
		return a, nil
	}
	return a, cmd
}

func (a *App) closeForm() {
	a.form = nil
	a.formKind = formNone
	a.formVals = nil
}

func pendingKey(subject actions.Subject, id int64) string {
	return fmt.Sprintf("%s:%d", subject, id)
}

func (a App) submitForm(kind formKind, v *formValues) (tea.Model, tea.Cmd) {
	if a.backend == nil {
		a.setNotice("Not connected to a ledger", true)
		return a, nil
	}
	amount := strings.TrimSpace(v.amount)

	switch kind {
	case formDonate, formClaim, formRefund, formMint:
		action := map[formKind]string{
			formDonate: actionDonate,
			formClaim:  actionClaim,
			formRefund: actionRefund,
			formMint:   actionMint,
		}[kind]
		a.pending[pendingKey(actions.SubjectCampaign, int64(v.campaignID))] = true
		a.setNotice(fmt.Sprintf("Sending %s for campaign #%d…", action, v.campaignID), false)
		return a, campaignActionCmd(a.backend, v.campaignID, action, amount)

	case formFund, formRepay:
		action := actionFund
		if kind == formRepay {
			action = actionRepay
		}
		a.pending[pendingKey(actions.SubjectLoan, v.loanID)] = true
		a.setNotice(fmt.Sprintf("Sending %s for loan #%d…", action, v.loanID), false)
		return a, loanActionCmd(a.backend, v.loanID, action, amount)

	case formNewCampaign:
		days, _ := strconv.ParseFloat(strings.TrimSpace(v.deadlineDays), 64)
		in := actions.CampaignInput{
			Title:       v.title,
			Description: v.description,
			Target:      strings.TrimSpace(v.target),
			Deadline:    a.now().Add(time.Duration(days * float64(24*time.Hour))),
			Image:       v.image,
		}
		a.pending[pendingKey(actions.SubjectCampaign, -1)] = true
		a.setNotice("Creating campaign…", false)
		return a, createCampaignCmd(a.backend, in)

	case formNewLoan:
		pct, _ := strconv.ParseFloat(strings.TrimSpace(v.interestPct), 64)
		days, _ := strconv.ParseFloat(strings.TrimSpace(v.durationDays), 64)
		in := actions.LoanInput{
			Purpose:         v.purpose,
			Amount:          amount,
			InterestPercent: pct,
			DurationDays:    days,
		}
		a.pending[pendingKey(actions.SubjectLoan, -1)] = true
		a.setNotice("Requesting loan…", false)
		return a, createLoanCmd(a.backend, in)
	}
	return a, nil
}

// actionError turns an action failure into a notice. A refresh failure
// after a successful send schedules a full re-read.
func (a *App) actionError(what string, err error) tea.Cmd {
	if errors.Is(err, actions.ErrRefresh) {
		a.setNotice(what+" sent; re-reading the ledger", false)
		if a.backend != nil && !a.refreshing {
			a.refreshing = true
			return refreshCmd(a.backend, a.now)
		}
		return nil
	}
	a.setNotice(what+" failed: "+err.Error(), true)
	return nil
}

func (a App) applyCampaignAction(msg campaignActionMsg) (tea.Model, tea.Cmd) {
	delete(a.pending, pendingKey(actions.SubjectCampaign, int64(msg.id)))
	what := fmt.Sprintf("%s for campaign #%d", capitalize(msg.action), msg.id)
	if msg.err != nil {
		return a, a.actionError(what, msg.err)
	}

	for i := range a.campaigns {
		if a.campaigns[i].ID == msg.id {
			a.campaigns[i] = msg.res.Campaign
		}
	}
	if a.detail.id == msg.id {
		a.detail.loaded = true
		a.detail.err = nil
		a.detail.donations = msg.res.Donations
		a.detail.nft = msg.res.NFT
	}
	a.setNotice(what+" confirmed"+receiptSuffix(msg.res.Receipt.TxHash), false)
	return a, nil
}

func (a App) applyLoanAction(msg loanActionMsg) (tea.Model, tea.Cmd) {
	delete(a.pending, pendingKey(actions.SubjectLoan, msg.id))
	what := fmt.Sprintf("%s for loan #%d", capitalize(msg.action), msg.id)
	if msg.id < 0 {
		what = "Loan request"
	}
	if msg.err != nil {
		return a, a.actionError(what, msg.err)
	}
	a.loans = msg.res.Loans
	a.clampCursors()
	a.setNotice(what+" confirmed"+receiptSuffix(msg.res.Receipt.TxHash), false)
	return a, nil
}

func (a App) applyCampaignsCreated(msg campaignsCreatedMsg) (tea.Model, tea.Cmd) {
	delete(a.pending, pendingKey(actions.SubjectCampaign, -1))
	if msg.err != nil {
		return a, a.actionError("New campaign", msg.err)
	}
	a.campaigns = msg.res.Campaigns
	a.clampCursors()
	a.setNotice("New campaign confirmed"+receiptSuffix(msg.res.Receipt.TxHash), false)
	return a, nil
}

func receiptSuffix(hash string) string {
	if hash == "" {
		return ""
	}
	return " (tx " + cli.FormatIdentity(hash) + ")"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a App) renderForm(cw int) string {
	title := map[formKind]string{
		formDonate:      fmt.Sprintf("Donate to campaign #%d", a.formVals.campaignID),
		formClaim:       fmt.Sprintf("Claim funds of campaign #%d", a.formVals.campaignID),
		formRefund:      fmt.Sprintf("Refund from campaign #%d", a.formVals.campaignID),
		formMint:        fmt.Sprintf("Mint receipt for campaign #%d", a.formVals.campaignID),
		formFund:        fmt.Sprintf("Fund loan #%d", a.formVals.loanID),
		formRepay:       fmt.Sprintf("Repay loan #%d", a.formVals.loanID),
		formNewCampaign: "New campaign",
		formNewLoan:     "Request a loan",
		formSettings:    "Settings",
	}[a.formKind]
	return components.ContentCard(title, a.form.View(), cw, true)
}
