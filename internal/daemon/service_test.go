package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/ledger"
	"github.com/theirongolddev/chainfund/internal/ledger/ledgertest"
	"github.com/theirongolddev/chainfund/internal/mirror"
	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/store"
)

var clock = time.Unix(1_800_000_000, 0).UTC()

func wei(ether int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(ether), big.NewInt(1e18))
}

func newTestService(t *testing.T) (*Service, *ledgertest.Ledger) {
	t.Helper()
	l := ledgertest.New()
	l.AddCampaign(ledgertest.Campaign{Owner: "0xA", Title: "Well", Target: wei(10), Collected: wei(4), Deadline: 1_900_000_000})
	l.AddCampaign(ledgertest.Campaign{Owner: "0xB", Title: "School", Target: wei(5), Deadline: 1_900_000_000})
	l.AddCampaign(ledgertest.Campaign{Owner: "0xA", Title: "Clinic", Target: wei(1), Collected: wei(1), Deadline: 1_700_000_000})
	l.AddLoan(ledgertest.Loan{Borrower: "0xA", Purpose: "seed", Amount: wei(2), InterestRate: 500, Duration: 30 * 86400})
	l.AddLoan(ledgertest.Loan{Borrower: "0xB", Purpose: "rent", Amount: wei(1), Duration: 86400, Status: 1, Contributed: wei(1), Start: 1_799_990_000})

	cache, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	svc := New(Config{
		Interval:     10 * time.Second,
		EventsBuffer: 10,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:          func() time.Time { return clock },
	}, mirror.New(l, ledgertest.Contracts()), cache)
	return svc, l
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Campaigns:       3,
		OpenCampaigns:   2,
		FundedCampaigns: 1,
		Raised:          decimal.RequireFromString("5"),
		Loans:           2,
		LoansByStage:    map[model.LoanStage]int{model.StagePending: 2},
		Lent:            decimal.RequireFromString("0.5"),
	}
	curr := Snapshot{
		Campaigns:       4,
		OpenCampaigns:   3,
		FundedCampaigns: 1,
		Raised:          decimal.RequireFromString("7.25"),
		Loans:           2,
		LoansByStage:    map[model.LoanStage]int{model.StagePending: 1, model.StageActive: 1},
		Lent:            decimal.RequireFromString("2"),
	}

	delta := diffSnapshots(prev, curr)
	if delta.Campaigns != 1 {
		t.Fatalf("Campaigns delta = %d, want 1", delta.Campaigns)
	}
	if delta.OpenCampaigns != 1 {
		t.Fatalf("OpenCampaigns delta = %d, want 1", delta.OpenCampaigns)
	}
	if !delta.Raised.Equal(decimal.RequireFromString("2.25")) {
		t.Fatalf("Raised delta = %s, want 2.25", delta.Raised)
	}
	if !delta.Lent.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("Lent delta = %s, want 1.5", delta.Lent)
	}
	if delta.Stages[model.StagePending] != -1 || delta.Stages[model.StageActive] != 1 {
		t.Fatalf("Stages delta = %v, want Pending -1 and Active +1", delta.Stages)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a non-zero delta")
	}
}

func TestDiffSnapshots_StageEmptied(t *testing.T) {
	prev := Snapshot{LoansByStage: map[model.LoanStage]int{model.StageActive: 1}}
	curr := Snapshot{LoansByStage: map[model.LoanStage]int{}}
	if got := diffSnapshots(prev, curr).Stages[model.StageActive]; got != -1 {
		t.Fatalf("Active delta = %d, want -1", got)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s, _ := newTestService(t)
	s.cfg.EventsBuffer = 2

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestPollOnce_SnapshotThenDelta(t *testing.T) {
	s, l := newTestService(t)
	ctx := context.Background()

	s.pollOnce(ctx)
	st := s.snapshotStatus()
	if st.LastError != "" {
		t.Fatalf("LastError = %q", st.LastError)
	}
	if st.Summary.Campaigns != 3 || st.Summary.OpenCampaigns != 2 || st.Summary.FundedCampaigns != 1 {
		t.Fatalf("Summary = %+v", st.Summary)
	}
	if st.Summary.LoansByStage[model.StagePending] != 1 || st.Summary.LoansByStage[model.StageActive] != 1 {
		t.Fatalf("LoansByStage = %v", st.Summary.LoansByStage)
	}
	if !st.Summary.Raised.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("Raised = %s, want 5", st.Summary.Raised)
	}
	if st.EventCount != 1 {
		t.Fatalf("EventCount = %d, want 1", st.EventCount)
	}

	// Nothing changed: no new event.
	s.pollOnce(ctx)
	if got := s.snapshotStatus().EventCount; got != 1 {
		t.Fatalf("EventCount after idle poll = %d, want 1", got)
	}

	_, err := l.Send(ctx, ledger.Tx{
		Contract: ledgertest.Crowdfunding,
		Method:   ledger.MethodDonateToCampaign,
		Args:     []any{1},
		Value:    wei(2),
		From:     "0xD",
	})
	if err != nil {
		t.Fatalf("donate: %v", err)
	}
	s.pollOnce(ctx)

	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	s.mu.RUnlock()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	last := events[1]
	if last.Type != "ledger_delta" || last.ID != 2 {
		t.Fatalf("last event = %s #%d, want ledger_delta #2", last.Type, last.ID)
	}
	if !last.Delta.Raised.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("Raised delta = %s, want 2", last.Delta.Raised)
	}

	stored, _ := s.cache.Campaigns()
	if !stored[1].AmountCollected.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("stored campaign 1 collected = %s, want 2", stored[1].AmountCollected)
	}
}

func TestPollOnce_FailureKeepsStoredState(t *testing.T) {
	s, l := newTestService(t)
	ctx := context.Background()
	s.pollOnce(ctx)

	l.FailCall(ledger.MethodGetLoanDetails, errors.New("node down"))
	s.pollOnce(ctx)

	st := s.snapshotStatus()
	if !strings.Contains(st.LastError, "node down") {
		t.Fatalf("LastError = %q, want node down", st.LastError)
	}
	if st.PollCount != 2 {
		t.Fatalf("PollCount = %d, want 2", st.PollCount)
	}
	campaigns, loans, err := s.cache.Counts()
	if err != nil || campaigns != 3 || loans != 2 {
		t.Fatalf("Counts = %d, %d, %v, want 3, 2", campaigns, loans, err)
	}
}

func getJSON(t *testing.T, srv *httptest.Server, path string, want int, out any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s = %d (%s), want %d", path, resp.StatusCode, body, want)
	}
	if out == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func TestHandleCampaigns(t *testing.T) {
	s, _ := newTestService(t)
	s.pollOnce(context.Background())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var all []CampaignEntry
	getJSON(t, srv, "/v1/campaigns", http.StatusOK, &all)
	if len(all) != 3 {
		t.Fatalf("campaigns = %d, want 3", len(all))
	}
	if all[0].View.IsOwner {
		t.Fatal("IsOwner = true without a caller")
	}

	var mine []CampaignEntry
	getJSON(t, srv, "/v1/campaigns?caller=0xA&mine=1", http.StatusOK, &mine)
	if len(mine) != 2 || mine[0].Campaign.ID != 0 || mine[1].Campaign.ID != 2 {
		t.Fatalf("mine = %+v, want campaigns 0 and 2", mine)
	}
	clinic := mine[1].View
	if !clinic.IsEnded || !clinic.CanClaim || clinic.CanRefund || clinic.CanDonate {
		t.Fatalf("ended funded view = %+v", clinic)
	}
	if mine[0].View.PercentFunded != 40 {
		t.Fatalf("PercentFunded = %v, want 40", mine[0].View.PercentFunded)
	}
}

func TestHandleCampaign(t *testing.T) {
	s, l := newTestService(t)
	ctx := context.Background()
	if _, err := l.Send(ctx, ledger.Tx{
		Contract: ledgertest.Crowdfunding, Method: ledger.MethodDonateToCampaign,
		Args: []any{0}, Value: wei(1), From: "0xD",
	}); err != nil {
		t.Fatal(err)
	}
	s.pollOnce(ctx)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var detail CampaignDetail
	getJSON(t, srv, "/v1/campaigns/0", http.StatusOK, &detail)
	if detail.Campaign.Title != "Well" {
		t.Fatalf("Title = %q", detail.Campaign.Title)
	}
	if len(detail.Donations) != 1 || detail.Donations[0].Donor != "0xD" {
		t.Fatalf("Donations = %+v", detail.Donations)
	}
	if detail.NFT == nil || detail.NFT.HasNFT {
		t.Fatalf("NFT = %+v, want present without token", detail.NFT)
	}
	if stored, _ := s.cache.Donations(0); len(stored) != 1 {
		t.Fatalf("stored donations = %d, want 1", len(stored))
	}

	// With the ledger unreachable, the stored donations are served.
	l.FailCall(ledger.MethodGetDonators, errors.New("node down"))
	detail = CampaignDetail{}
	getJSON(t, srv, "/v1/campaigns/0", http.StatusOK, &detail)
	if len(detail.Donations) != 1 {
		t.Fatalf("fallback donations = %+v", detail.Donations)
	}

	getJSON(t, srv, "/v1/campaigns/9", http.StatusNotFound, nil)
	getJSON(t, srv, "/v1/campaigns/abc", http.StatusBadRequest, nil)
}

func TestHandleLoans(t *testing.T) {
	s, _ := newTestService(t)
	s.pollOnce(context.Background())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var pending LoanEntry
	getJSON(t, srv, "/v1/loans/0?caller=0xB", http.StatusOK, &pending)
	if pending.View.Stage != model.StagePending || !pending.View.CanFund || pending.View.CanRepay {
		t.Fatalf("pending view for lender = %+v", pending.View)
	}
	if pending.View.InterestPercent != 5 || pending.View.DurationDays != 30 {
		t.Fatalf("figures = %v%%, %d days", pending.View.InterestPercent, pending.View.DurationDays)
	}

	var active LoanEntry
	getJSON(t, srv, "/v1/loans/1?caller=0xB", http.StatusOK, &active)
	if active.View.Stage != model.StageActive || !active.View.CanRepay || active.View.CanFund {
		t.Fatalf("active view for borrower = %+v", active.View)
	}

	var none []LoanEntry
	getJSON(t, srv, "/v1/loans?mine=true", http.StatusOK, &none)
	if len(none) != 0 {
		t.Fatalf("mine without caller = %d loans, want 0", len(none))
	}

	getJSON(t, srv, "/v1/loans/5", http.StatusNotFound, nil)
	getJSON(t, srv, "/v1/loans/-1", http.StatusBadRequest, nil)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestService(t)
	s.pollOnce(context.Background())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	getJSON(t, srv, "/v1/status", http.StatusOK, &Status{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`chainfund_polls_total{result="ok"} 1`,
		`chainfund_http_requests_total{route="/v1/status",status="200"} 1`,
		`chainfund_loans{stage="Pending"} 1`,
		`chainfund_campaigns{state="open"} 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
