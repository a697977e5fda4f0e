package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/model"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0 ETH"},
		{"1234.5", "1,234.5 ETH"},
		{"0.000000000000000001", "0.000000000000000001 ETH"},
		{"1000000", "1,000,000 ETH"},
		{"-0.5", "-0.5 ETH"},
	}
	for _, tt := range tests {
		if got := FormatAmount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatAmount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAmountShort(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1.23456", "1.2346"},
		{"12345.1", "12,345.1"},
		{"0.00001", "<0.0001"},
	}
	for _, tt := range tests {
		if got := FormatAmountShort(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatAmountShort(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDaysLeft(t *testing.T) {
	if got := FormatDaysLeft(0, true); got != "Ended" {
		t.Errorf("ended = %q, want Ended", got)
	}
	if got := FormatDaysLeft(1, false); got != "1 day left" {
		t.Errorf("one day = %q", got)
	}
	if got := FormatDaysLeft(30, false); got != "30 days left" {
		t.Errorf("thirty days = %q", got)
	}
}

func TestFormatInterest(t *testing.T) {
	if got := FormatInterest(550); got != "5.5%" {
		t.Errorf("FormatInterest(550) = %q, want 5.5%%", got)
	}
	if got := FormatInterest(1000); got != "10%" {
		t.Errorf("FormatInterest(1000) = %q, want 10%%", got)
	}
}

func TestFormatStage(t *testing.T) {
	if got := FormatStage(model.StageActive, model.LoanActive); got != "Active" {
		t.Errorf("FormatStage(Active) = %q", got)
	}
	if got := FormatStage(model.StageUnknown, 7); got != "Unknown (7)" {
		t.Errorf("FormatStage(Unknown) = %q", got)
	}
}

func TestFormatIdentity(t *testing.T) {
	if got := FormatIdentity(""); got != "-" {
		t.Errorf("empty = %q", got)
	}
	if got := FormatIdentity("0xA"); got != "0xA" {
		t.Errorf("short = %q", got)
	}
	if got := FormatIdentity("0x1234567890abcdef1234"); got != "0x1234…1234" {
		t.Errorf("long = %q", got)
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := FormatAgo(time.Time{}, now); got != "never" {
		t.Errorf("zero = %q, want never", got)
	}
	if got := FormatAgo(now.Add(-3*time.Minute), now); got != "3 minutes ago" {
		t.Errorf("3m = %q", got)
	}
}

func TestFormatDelta(t *testing.T) {
	if got := FormatDelta(decimal.RequireFromString("2.5")); got != "+2.5" {
		t.Errorf("positive = %q", got)
	}
	if got := FormatDelta(decimal.RequireFromString("-1")); got != "-1" {
		t.Errorf("negative = %q", got)
	}
}

func TestRenderTable_AlignsMultiByteCells(t *testing.T) {
	out := RenderTable(Table{
		Headers:  []string{"Owner", "Raised"},
		Rows:     [][]string{{"0x1234…abcd", "1"}, {"0xA", "10"}},
		TextCols: 1,
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Fatalf("line %d width = %d, want %d:\n%s", i, w, want, out)
		}
	}
}

func TestRenderFundingBar(t *testing.T) {
	out := RenderFundingBar(50, 10)
	if !strings.Contains(out, "50.0%") {
		t.Fatalf("RenderFundingBar = %q, want 50.0%%", out)
	}
	if got := strings.Count(out, "█"); got != 5 {
		t.Fatalf("filled cells = %d, want 5", got)
	}
	if RenderFundingBar(10, 0) != "" {
		t.Fatal("zero width should render nothing")
	}
}
