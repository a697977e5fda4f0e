package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/model"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func campaign(target, collected string, deadline time.Time, claimed bool) model.CampaignSnapshot {
	return model.CampaignSnapshot{
		ID:              0,
		Owner:           "0xOwner",
		Title:           "Well",
		Target:          dec(target),
		AmountCollected: dec(collected),
		Deadline:        deadline,
		Claimed:         claimed,
	}
}

func TestDaysLeft(t *testing.T) {
	tests := []struct {
		name   string
		target time.Time
		want   int
	}{
		{"exact days", t0.Add(3 * day), 3},
		{"partial day rounds up", t0.Add(2*day + time.Second), 3},
		{"one second", t0.Add(time.Second), 1},
		{"now", t0, 0},
		{"past", t0.Add(-time.Hour), 0},
		{"far past", t0.Add(-365 * day), 0},
	}
	for _, tt := range tests {
		if got := DaysLeft(tt.target, t0); got != tt.want {
			t.Fatalf("%s: DaysLeft = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestIsEnded(t *testing.T) {
	if IsEnded(t0.Add(time.Second), t0) {
		t.Fatal("IsEnded before deadline = true, want false")
	}
	if !IsEnded(t0, t0) {
		t.Fatal("IsEnded at deadline = false, want true")
	}
	if !IsEnded(t0.Add(-time.Second), t0) {
		t.Fatal("IsEnded after deadline = false, want true")
	}
}

func TestEffectiveDeadline(t *testing.T) {
	end := t0.Add(5 * day)
	start := t0.Add(-day)
	const thirty = 30 * 86400

	if got := EffectiveDeadline(start, end, thirty, t0); !got.Equal(end) {
		t.Fatalf("recorded end: got %v, want %v", got, end)
	}
	if got := EffectiveDeadline(start, time.Time{}, thirty, t0); !got.Equal(t0.Add(30 * day)) {
		t.Fatalf("started: got %v, want %v", got, t0.Add(30*day))
	}
	future := t0.Add(2 * day)
	if got := EffectiveDeadline(future, time.Time{}, thirty, t0); !got.Equal(future.Add(30 * day)) {
		t.Fatalf("future start: got %v, want %v", got, future.Add(30*day))
	}
	if got := EffectiveDeadline(time.Time{}, time.Time{}, thirty, t0); !got.Equal(t0.Add(30 * day)) {
		t.Fatalf("not started: got %v, want %v", got, t0.Add(30*day))
	}
}

func TestPercentFunded(t *testing.T) {
	tests := []struct {
		target, collected string
		want              float64
	}{
		{"10", "0", 0},
		{"10", "4", 40},
		{"10", "10", 100},
		{"10", "25", 100},
		{"0", "5", 0},
		{"-1", "5", 0},
		{"10", "-3", 0},
		{"3", "1", 100.0 / 3},
	}
	for _, tt := range tests {
		got := PercentFunded(dec(tt.target), dec(tt.collected))
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("PercentFunded(%s, %s) = %v, want %v", tt.target, tt.collected, got, tt.want)
		}
	}
}

func TestPercentFundedBoundedAndMonotone(t *testing.T) {
	target := dec("7.5")
	prev := -1.0
	for i := 0; i <= 200; i++ {
		collected := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(10))
		got := PercentFunded(target, collected)
		if got < 0 || got > 100 {
			t.Fatalf("PercentFunded(%s) = %v, outside [0,100]", collected, got)
		}
		if got < prev {
			t.Fatalf("PercentFunded(%s) = %v, decreased from %v", collected, got, prev)
		}
		prev = got
	}
}

func TestOwnerClaimsFundedCampaign(t *testing.T) {
	s := campaign("10", "10", t0.Add(-day), false)
	v := DeriveCampaignView(s, "0xOwner", t0)

	if !v.CanClaim {
		t.Fatal("CanClaim = false, want true")
	}
	if v.CanRefund {
		t.Fatal("CanRefund = true, want false")
	}
	if !v.IsEnded || !v.IsOwner {
		t.Fatalf("IsEnded = %v, IsOwner = %v, want both true", v.IsEnded, v.IsOwner)
	}
	if v.CanDonate {
		t.Fatal("CanDonate on ended campaign = true, want false")
	}
}

func TestAnyoneRefundsUnderfundedCampaign(t *testing.T) {
	s := campaign("10", "4", t0.Add(-day), false)
	for _, caller := range []string{"0xOwner", "0xDonor", ""} {
		v := DeriveCampaignView(s, caller, t0)
		if !v.CanRefund {
			t.Fatalf("caller %q: CanRefund = false, want true", caller)
		}
		if v.CanClaim {
			t.Fatalf("caller %q: CanClaim = true, want false", caller)
		}
	}
}

func TestClaimGating(t *testing.T) {
	past := t0.Add(-day)
	future := t0.Add(day)

	tests := []struct {
		name   string
		s      model.CampaignSnapshot
		caller string
	}{
		{"already claimed", campaign("10", "10", past, true), "0xOwner"},
		{"not ended", campaign("10", "10", future, false), "0xOwner"},
		{"goal missed", campaign("10", "9.999", past, false), "0xOwner"},
		{"not owner", campaign("10", "10", past, false), "0xDonor"},
		{"case differs", campaign("10", "10", past, false), "0xowner"},
		{"no identity", campaign("10", "10", past, false), ""},
	}
	for _, tt := range tests {
		if v := DeriveCampaignView(tt.s, tt.caller, t0); v.CanClaim {
			t.Fatalf("%s: CanClaim = true, want false", tt.name)
		}
	}
}

func TestClaimAndRefundMutuallyExclusive(t *testing.T) {
	deadlines := []time.Time{t0.Add(-day), t0, t0.Add(day)}
	amounts := []string{"0", "4", "9.99", "10", "11"}
	for _, d := range deadlines {
		for _, a := range amounts {
			for _, claimed := range []bool{false, true} {
				for _, caller := range []string{"0xOwner", "0xOther", ""} {
					v := DeriveCampaignView(campaign("10", a, d, claimed), caller, t0)
					if v.CanClaim && v.CanRefund {
						t.Fatalf("deadline=%v collected=%s claimed=%v caller=%q: claim and refund both offered", d, a, claimed, caller)
					}
					if claimed && v.CanClaim {
						t.Fatalf("deadline=%v collected=%s caller=%q: CanClaim on claimed campaign", d, a, caller)
					}
				}
			}
		}
	}
}

func TestOpenCampaignView(t *testing.T) {
	s := campaign("10", "2.5", t0.Add(2*day+time.Hour), false)
	v := DeriveCampaignView(s, "0xDonor", t0)
	if v.IsEnded || v.CanRefund || v.CanClaim {
		t.Fatalf("open campaign view = %+v, want no claim/refund", v)
	}
	if !v.CanDonate {
		t.Fatal("CanDonate = false, want true")
	}
	if v.DaysLeft != 3 {
		t.Fatalf("DaysLeft = %d, want 3", v.DaysLeft)
	}
	if v.PercentFunded != 25 {
		t.Fatalf("PercentFunded = %v, want 25", v.PercentFunded)
	}
}

func TestCanMint(t *testing.T) {
	funded := campaign("10", "12", t0.Add(-day), true)
	if v := DeriveCampaignViewWithNFT(funded, model.NFTDetails{}, "0xDonor", t0); !v.CanMint {
		t.Fatal("CanMint for funded ended campaign = false, want true")
	}
	if v := DeriveCampaignViewWithNFT(funded, model.NFTDetails{HasNFT: true, TokenID: 4}, "0xOwner", t0); v.CanMint {
		t.Fatal("CanMint after mint = true, want false")
	}
	open := campaign("10", "12", t0.Add(day), false)
	if v := DeriveCampaignViewWithNFT(open, model.NFTDetails{}, "0xOwner", t0); v.CanMint {
		t.Fatal("CanMint for open campaign = true, want false")
	}
	failed := campaign("10", "3", t0.Add(-day), false)
	if v := DeriveCampaignViewWithNFT(failed, model.NFTDetails{}, "0xOwner", t0); v.CanMint {
		t.Fatal("CanMint for failed campaign = true, want false")
	}
}

func TestFilterByOwner(t *testing.T) {
	cs := []model.CampaignSnapshot{
		{ID: 0, Owner: "0xA"},
		{ID: 1, Owner: "0xB"},
		{ID: 2, Owner: "0xA"},
	}
	got := FilterByOwner(cs, "0xA")
	if len(got) != 2 || got[0].ID != 0 || got[1].ID != 2 {
		t.Fatalf("FilterByOwner = %+v, want ids [0 2]", got)
	}
	if got := FilterByOwner(cs, ""); len(got) != 0 {
		t.Fatalf("FilterByOwner without identity = %d campaigns, want 0", len(got))
	}
}
