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

func (a App) visibleLoans() []model.LoanSnapshot {
	if a.loan.mineOnly {
		return engine.FilterByBorrower(a.loans, a.caller)
	}
	return a.loans
}

func (a App) selectedLoan() (model.LoanSnapshot, bool) {
	list := a.visibleLoans()
	if a.loan.cursor < 0 || a.loan.cursor >= len(list) {
		return model.LoanSnapshot{}, false
	}
	return list[a.loan.cursor], true
}

func (a App) updateLoansKey(key string) (tea.Model, tea.Cmd) {
	n := len(a.visibleLoans())

	switch key {
	case "j", "down":
		if !a.loan.detail && a.loan.cursor < n-1 {
			a.loan.cursor++
		}
		return a, nil
	case "k", "up":
		if !a.loan.detail && a.loan.cursor > 0 {
			a.loan.cursor--
		}
		return a, nil
	case "g", "home":
		a.loan.cursor = 0
		a.loan.offset = 0
		return a, nil
	case "G", "end":
		a.loan.cursor = clamp(n-1, n)
		return a, nil
	case "enter":
		if n > 0 {
			a.loan.detail = true
		}
		return a, nil
	case "esc", "backspace":
		a.loan.detail = false
		return a, nil
	case "o":
		a.loan.mineOnly = !a.loan.mineOnly
		a.loan.cursor = 0
		a.loan.offset = 0
		a.loan.detail = false
		return a, nil
	case "n":
		if !a.canAct(actions.SubjectLoan, -1) {
			return a, nil
		}
		v := &formValues{}
		return a.openForm(formNewLoan, v, newLoanForm(v))
	}

	l, ok := a.selectedLoan()
	if !ok {
		return a, nil
	}
	view := engine.DeriveLoanView(l, a.caller, a.now())

	switch key {
	case "f":
		if !view.CanFund {
			if view.IsOwner {
				a.setNotice("You cannot fund your own loan", true)
			} else {
				a.setNotice("Only pending loans can be funded", true)
			}
			return a, nil
		}
		if !a.canAct(actions.SubjectLoan, l.ID) {
			return a, nil
		}
		v := &formValues{loanID: l.ID, amount: engine.FundingGap(l).String()}
		return a.openForm(formFund, v, amountForm(v, "Fund: "+l.Purpose, "Send funds?"))
	case "p":
		if !view.CanRepay {
			a.setNotice("Only the borrower can repay an active loan", true)
			return a, nil
		}
		if !a.canAct(actions.SubjectLoan, l.ID) {
			return a, nil
		}
		v := &formValues{loanID: l.ID, amount: engine.AmountDue(l).String()}
		return a.openForm(formRepay, v, amountForm(v, "Repay: "+l.Purpose, "Send repayment?"))
	}
	return a, nil
}

func (a App) renderLoansTab(cw, h int) string {
	t := theme.Active
	list := a.visibleLoans()

	if len(list) == 0 {
		msg := "No loans on the ledger yet. Press n to request one."
		if a.loan.mineOnly {
			msg = "You have no loans. Press o to show all."
		}
		return components.ContentCard("Loans",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(msg), cw, false)
	}

	summary := a.loanMetrics(cw)
	bodyH := h - lipgloss.Height(summary)

	l := list[clamp(a.loan.cursor, len(list))]
	if a.loan.detail {
		return summary + "\n" + components.ContentCard(fmt.Sprintf("Loan #%d", l.ID), a.renderLoanDetail(l, cw), cw, true)
	}

	leftW := cw / 2
	if leftW < 44 {
		leftW = 44
	}
	rightW := cw - leftW

	title := "Loans"
	if a.loan.mineOnly {
		title = "My loans"
	}
	left := components.ContentCard(title, a.renderLoanList(list, leftW, bodyH), leftW, true)
	right := components.ContentCard(fmt.Sprintf("Loan #%d", l.ID), a.renderLoanDetail(l, rightW), rightW, false)
	return summary + "\n" + components.CardRow([]string{left, right})
}

func (a App) loanMetrics(cw int) string {
	pending, active := 0, 0
	lent, repaid := decimal.Zero, decimal.Zero
	for _, l := range a.loans {
		switch l.Status {
		case model.LoanPending:
			pending++
		case model.LoanActive:
			active++
		}
		lent = lent.Add(l.TotalContributed)
		repaid = repaid.Add(l.AmountRepaid)
	}
	return components.MetricCardRow([]components.Metric{
		{Label: "Loans", Value: cli.FormatNumber(int64(len(a.loans)))},
		{Label: "Pending", Value: cli.FormatNumber(int64(pending))},
		{Label: "Active", Value: cli.FormatNumber(int64(active))},
		{Label: "Lent", Value: cli.FormatAmountShort(lent) + " " + cli.Currency},
		{Label: "Repaid", Value: cli.FormatAmountShort(repaid) + " " + cli.Currency},
	}, cw)
}

func (a App) renderLoanList(list []model.LoanSnapshot, w, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)

	visible := h - 4
	if visible < 3 {
		visible = 3
	}
	offset := a.loan.offset
	if a.loan.cursor < offset {
		offset = a.loan.cursor
	}
	if a.loan.cursor >= offset+visible {
		offset = a.loan.cursor - visible + 1
	}
	end := offset + visible
	if end > len(list) {
		end = len(list)
	}

	var b strings.Builder
	for i := offset; i < end; i++ {
		l := list[i]
		stage := fmt.Sprintf("%-9s", engine.StageOf(l.Status))
		amt := cli.FormatAmountShort(l.Amount)
		purposeW := inner - 5 - lipgloss.Width(stage) - 12 - 2
		line := fmt.Sprintf("%-4d %-*s %12s %s", l.ID, purposeW, truncStr(l.Purpose, purposeW), amt, stage)
		style := rowStyle
		if i == a.loan.cursor {
			style = selectedStyle
		}
		b.WriteString(style.Width(inner).Render(line))
		b.WriteString("\n")
	}
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	b.WriteString(hint.Render(fmt.Sprintf("%d of %d · enter details · o mine", a.loan.cursor+1, len(list))))
	return b.String()
}

func (a App) renderLoanDetail(l model.LoanSnapshot, w int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)
	view := engine.DeriveLoanView(l, a.caller, a.now())

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	field := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-11s ", label)) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(truncStr(l.Purpose, inner-12)))
	b.WriteString(" ")
	b.WriteString(components.StageBadge(cli.FormatStage(view.Stage, l.Status), t.StageColor(view.Stage)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", inner)))
	b.WriteString("\n")

	barW := inner - 8
	if barW > 40 {
		barW = 40
	}
	b.WriteString(components.FundingBar(view.PercentFunded, barW))
	b.WriteString("\n")
	b.WriteString(field("Requested", cli.FormatAmount(l.Amount)))
	b.WriteString(field("Funded", cli.FormatAmount(l.TotalContributed)))
	b.WriteString(field("Repaid", cli.FormatAmount(l.AmountRepaid)))
	b.WriteString(field("Interest", cli.FormatInterest(l.InterestRate)))
	b.WriteString(field("Duration", cli.FormatDays(view.DurationDays)))
	if !l.StartTime.IsZero() {
		b.WriteString(field("Started", l.StartTime.Local().Format("Jan 02 2006 15:04")))
	}
	if l.Status == model.LoanActive || l.Status == model.LoanPending {
		b.WriteString(field("Remaining", cli.FormatDaysLeft(view.RemainingDays, view.RemainingDays == 0 && !l.StartTime.IsZero())))
	}
	if l.Status == model.LoanActive {
		b.WriteString(field("Due", cli.FormatAmount(engine.AmountDue(l))))
	}
	borrower := cli.FormatIdentity(l.Borrower)
	if view.IsOwner {
		borrower += " (you)"
	}
	b.WriteString(field("Borrower", borrower))
	b.WriteString("\n")
	b.WriteString(a.renderLoanActions(l, view))
	return b.String()
}

func (a App) renderLoanActions(l model.LoanSnapshot, view model.LoanView) string {
	t := theme.Active
	on := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	off := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	if a.pending[pendingKey(actions.SubjectLoan, l.ID)] {
		return warn.Render(a.spinner.View() + " sending…")
	}

	render := func(label string, ok bool) string {
		if ok {
			return on.Render(label)
		}
		return off.Render(label)
	}
	return render("[f]fund", view.CanFund) + off.Render("  ") + render("[p]repay", view.CanRepay)
}
