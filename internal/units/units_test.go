package units

import (
	"errors"
	"math"
	"math/big"
	"testing"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int literal %q", s)
	}
	return n
}

func TestToDisplayAmount(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0"},
		{"1", "0.000000000000000001"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"123456789012345678901234567890", "123456789012.34567890123456789"},
	}
	for _, tt := range tests {
		got, err := ToDisplayAmount(mustBig(t, tt.wei))
		if err != nil {
			t.Fatalf("ToDisplayAmount(%s) error: %v", tt.wei, err)
		}
		if got != tt.want {
			t.Errorf("ToDisplayAmount(%s) = %q, want %q", tt.wei, got, tt.want)
		}
	}
}

func TestToDisplayAmount_RejectsNegative(t *testing.T) {
	if _, err := ToDisplayAmount(big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if _, err := ToDisplayAmount(nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("nil err = %v, want ErrInvalidAmount", err)
	}
}

func TestToLedgerAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"0.1", "100000000000000000"},
		{".5", "500000000000000000"},
		{"2.", "2000000000000000000"},
		{" 3.25 ", "3250000000000000000"},
		{"0.000000000000000001", "1"},
	}
	for _, tt := range tests {
		got, err := ToLedgerAmount(tt.in)
		if err != nil {
			t.Fatalf("ToLedgerAmount(%q) error: %v", tt.in, err)
		}
		if got.String() != tt.want {
			t.Errorf("ToLedgerAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestToLedgerAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", ".", "-1", "+1", "1e18", "abc", "1.2.3", "0.0000000000000000001", "1,5"} {
		if _, err := ToLedgerAmount(in); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ToLedgerAmount(%q) err = %v, want ErrInvalidAmount", in, err)
		}
	}
}

func TestAmountRoundTrip(t *testing.T) {
	values := []string{
		"0", "1", "7", "999999999999999999", "1000000000000000000",
		"1000000000000000001", "42000000000000000000000", "340282366920938463463374607431768211455",
	}
	for _, v := range values {
		x := mustBig(t, v)
		s, err := ToDisplayAmount(x)
		if err != nil {
			t.Fatalf("ToDisplayAmount(%s): %v", v, err)
		}
		back, err := ToLedgerAmount(s)
		if err != nil {
			t.Fatalf("ToLedgerAmount(%q): %v", s, err)
		}
		if back.Cmp(x) != 0 {
			t.Errorf("round trip %s -> %q -> %s", v, s, back)
		}
	}
}

func TestDaysToSeconds(t *testing.T) {
	got, err := DaysToSeconds(30)
	if err != nil {
		t.Fatalf("DaysToSeconds(30): %v", err)
	}
	if got != 2592000 {
		t.Fatalf("DaysToSeconds(30) = %d, want 2592000", got)
	}
	if SecondsToDays(got) != 30 {
		t.Fatalf("SecondsToDays(%d) = %d, want 30", got, SecondsToDays(got))
	}

	for _, bad := range []float64{-1, 1.5, math.NaN(), math.Inf(1)} {
		if _, err := DaysToSeconds(bad); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("DaysToSeconds(%v) err = %v, want ErrInvalidDuration", bad, err)
		}
	}
}

func TestSecondsToDays_Truncates(t *testing.T) {
	if got := SecondsToDays(SecondsPerDay*2 + 5); got != 2 {
		t.Fatalf("SecondsToDays = %d, want 2", got)
	}
	if got := SecondsToDays(-10); got != 0 {
		t.Fatalf("SecondsToDays(-10) = %d, want 0", got)
	}
}

func TestPercentToBasisPoints(t *testing.T) {
	tests := []struct {
		pct  float64
		want int64
	}{
		{0, 0},
		{5, 500},
		{5.5, 550},
		{12.34, 1234},
		{1.005, 101}, // tie rounds up
		{0.004, 0},
		{0.005, 1},
	}
	for _, tt := range tests {
		got, err := PercentToBasisPoints(tt.pct)
		if err != nil {
			t.Fatalf("PercentToBasisPoints(%v): %v", tt.pct, err)
		}
		if got != tt.want {
			t.Errorf("PercentToBasisPoints(%v) = %d, want %d", tt.pct, got, tt.want)
		}
	}

	if _, err := PercentToBasisPoints(-0.1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative percent err = %v, want ErrInvalidAmount", err)
	}
	if got := BasisPointsToPercent(550); got != 5.5 {
		t.Fatalf("BasisPointsToPercent(550) = %v, want 5.5", got)
	}
}
