package snapshot

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/chainfund/internal/model"
)

const oneEther = "1000000000000000000"

func TestMapCampaigns_Objects(t *testing.T) {
	raw := json.RawMessage(`[
		{"owner":"0xA","title":"Well","description":"Clean water","target":"10000000000000000000",
		 "deadline":1740830400,"amountCollected":{"type":"BigNumber","hex":"0x0de0b6b3a7640000"},
		 "image":"https://img/1.png","claimed":false},
		{"owner":"0xB","title":"School","description":"Books","target":"` + oneEther + `",
		 "deadline":"1740830400","amountCollected":"0","image":"","claimed":true}
	]`)

	got, err := MapCampaigns(raw)
	if err != nil {
		t.Fatalf("MapCampaigns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	c := got[0]
	if c.ID != 0 || got[1].ID != 1 {
		t.Fatalf("ids = %d, %d, want 0, 1", c.ID, got[1].ID)
	}
	if c.Target.String() != "10" {
		t.Errorf("Target = %s, want 10", c.Target)
	}
	if c.AmountCollected.String() != "1" {
		t.Errorf("AmountCollected = %s, want 1", c.AmountCollected)
	}
	if want := time.Unix(1740830400, 0).UTC(); !c.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", c.Deadline, want)
	}
	if c.Owner != "0xA" || c.Title != "Well" || c.Image != "https://img/1.png" {
		t.Errorf("text fields = %+v", c)
	}
	if !got[1].Claimed {
		t.Error("Claimed = false, want true")
	}
}

func TestMapCampaigns_Tuples(t *testing.T) {
	raw := json.RawMessage(`[["0xA","Well","Clean water","` + oneEther + `",1740830400,"500000000000000000","img",false]]`)

	got, err := MapCampaigns(raw)
	if err != nil {
		t.Fatalf("MapCampaigns: %v", err)
	}
	if got[0].AmountCollected.String() != "0.5" {
		t.Fatalf("AmountCollected = %s, want 0.5", got[0].AmountCollected)
	}
}

func TestMapCampaigns_MissingTarget(t *testing.T) {
	raw := json.RawMessage(`[
		{"owner":"0xA","title":"ok","description":"","target":"` + oneEther + `","deadline":1,"amountCollected":"0","image":"","claimed":false},
		{"owner":"0xB","title":"broken","description":"","deadline":1,"amountCollected":"0","image":"","claimed":false}
	]`)

	got, err := MapCampaigns(raw)
	if !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("err = %v, want ErrMalformedSnapshot", err)
	}
	if got != nil {
		t.Fatalf("got %d campaigns alongside error, want none", len(got))
	}
	if !strings.Contains(err.Error(), "campaigns[1].target") {
		t.Fatalf("err = %q, want field path campaigns[1].target", err)
	}
}

func TestMapCampaign_Rejects(t *testing.T) {
	tests := map[string]string{
		"null target":     `{"owner":"0xA","title":"","description":"","target":null,"deadline":1,"amountCollected":"0","image":"","claimed":false}`,
		"zero target":     `{"owner":"0xA","title":"","description":"","target":"0","deadline":1,"amountCollected":"0","image":"","claimed":false}`,
		"negative amount": `{"owner":"0xA","title":"","description":"","target":"1","deadline":1,"amountCollected":"-1","image":"","claimed":false}`,
		"fractional wei":  `{"owner":"0xA","title":"","description":"","target":"1.5","deadline":1,"amountCollected":"0","image":"","claimed":false}`,
		"claimed string":  `{"owner":"0xA","title":"","description":"","target":"1","deadline":1,"amountCollected":"0","image":"","claimed":"no"}`,
		"owner number":    `{"owner":7,"title":"","description":"","target":"1","deadline":1,"amountCollected":"0","image":"","claimed":false}`,
		"short tuple":     `["0xA","t","d","1",1,"0","img"]`,
		"scalar":          `"campaign"`,
	}
	for name, raw := range tests {
		if _, err := MapCampaign(0, json.RawMessage(raw)); !errors.Is(err, ErrMalformedSnapshot) {
			t.Errorf("%s: err = %v, want ErrMalformedSnapshot", name, err)
		}
	}
}

func TestMapDonations(t *testing.T) {
	raw := json.RawMessage(`[["0xA","0xB","0xA"],["` + oneEther + `","250000000000000000",{"type":"BigNumber","hex":"0x01"}]]`)

	got, err := MapDonations(3, raw)
	if err != nil {
		t.Fatalf("MapDonations: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (repeat donors kept)", len(got))
	}
	want := []struct{ donor, amount string }{
		{"0xA", "1"},
		{"0xB", "0.25"},
		{"0xA", "0.000000000000000001"},
	}
	for i, w := range want {
		if got[i].CampaignID != 3 || got[i].Donor != w.donor || got[i].Amount.String() != w.amount {
			t.Errorf("donation %d = %+v, want %s %s", i, got[i], w.donor, w.amount)
		}
	}
}

func TestMapDonations_Mismatched(t *testing.T) {
	for _, raw := range []string{
		`[["0xA","0xB"],["1"]]`,
		`[["0xA"]]`,
		`{"donors":[]}`,
		`[["0xA"],["x"]]`,
	} {
		got, err := MapDonations(0, json.RawMessage(raw))
		if !errors.Is(err, ErrMalformedSnapshot) || got != nil {
			t.Errorf("MapDonations(%s) = %v, %v, want nil, ErrMalformedSnapshot", raw, got, err)
		}
	}
}

func TestMapDonations_Empty(t *testing.T) {
	got, err := MapDonations(0, json.RawMessage(`[[],[]]`))
	if err != nil || len(got) != 0 {
		t.Fatalf("MapDonations(empty) = %v, %v, want empty", got, err)
	}
}

func TestMapLoan(t *testing.T) {
	raw := json.RawMessage(`{"id":"4","borrower":"0xBorrower","purpose":"seed stock",
		"amount":"2000000000000000000","interestRate":550,"duration":2592000,
		"startTime":0,"endTime":"0x0","amountRepaid":"0",
		"status":0,"totalContributed":"500000000000000000"}`)

	got, err := MapLoan(9, raw)
	if err != nil {
		t.Fatalf("MapLoan: %v", err)
	}
	if got.ID != 4 {
		t.Errorf("ID = %d, want explicit id 4", got.ID)
	}
	if !got.StartTime.IsZero() || !got.EndTime.IsZero() {
		t.Errorf("StartTime/EndTime = %v/%v, want zero", got.StartTime, got.EndTime)
	}
	if got.Amount.String() != "2" || got.TotalContributed.String() != "0.5" {
		t.Errorf("Amount = %s, TotalContributed = %s", got.Amount, got.TotalContributed)
	}
	if got.InterestRate != 550 || got.DurationSecs != 2592000 {
		t.Errorf("InterestRate = %d, DurationSecs = %d", got.InterestRate, got.DurationSecs)
	}
	if got.Status != model.LoanPending {
		t.Errorf("Status = %d, want Pending", got.Status)
	}
}

func TestMapLoan_Tuple(t *testing.T) {
	raw := json.RawMessage(`[7,"0xB","rent","` + oneEther + `",100,86400,1740830400,1740916800,"0",1,"` + oneEther + `"]`)
	got, err := MapLoan(7, raw)
	if err != nil {
		t.Fatalf("MapLoan: %v", err)
	}
	if got.Status != model.LoanActive {
		t.Errorf("Status = %d, want Active", got.Status)
	}
	if want := time.Unix(1740916800, 0).UTC(); !got.EndTime.Equal(want) {
		t.Errorf("EndTime = %v, want %v", got.EndTime, want)
	}
}

func TestMapLoan_ImplicitID(t *testing.T) {
	raw := json.RawMessage(`{"borrower":"0xB","purpose":"","amount":"1","interestRate":0,"duration":0,
		"startTime":0,"endTime":0,"amountRepaid":"0","status":2,"totalContributed":"1"}`)
	got, err := MapLoan(12, raw)
	if err != nil {
		t.Fatalf("MapLoan: %v", err)
	}
	if got.ID != 12 {
		t.Fatalf("ID = %d, want 12", got.ID)
	}
}

func TestMapLoan_UnknownStatusCarried(t *testing.T) {
	raw := json.RawMessage(`{"id":1,"borrower":"0xB","purpose":"","amount":"1","interestRate":0,"duration":0,
		"startTime":0,"endTime":0,"amountRepaid":"0","status":7,"totalContributed":"0"}`)
	got, err := MapLoan(1, raw)
	if err != nil {
		t.Fatalf("MapLoan: %v", err)
	}
	if got.Status != 7 {
		t.Fatalf("Status = %d, want 7", got.Status)
	}
}

func TestMapLoan_Malformed(t *testing.T) {
	tests := map[string]string{
		"missing borrower": `{"id":1,"purpose":"","amount":"1","interestRate":0,"duration":0,"startTime":0,"endTime":0,"amountRepaid":"0","status":0,"totalContributed":"0"}`,
		"negative rate":    `{"id":1,"borrower":"0xB","purpose":"","amount":"1","interestRate":-5,"duration":0,"startTime":0,"endTime":0,"amountRepaid":"0","status":0,"totalContributed":"0"}`,
		"bad duration":     `{"id":1,"borrower":"0xB","purpose":"","amount":"1","interestRate":0,"duration":"soon","startTime":0,"endTime":0,"amountRepaid":"0","status":0,"totalContributed":"0"}`,
		"short tuple":      `[1,"0xB","","1",0,0,0,0,"0",0]`,
		"endless duration": `{"id":1,"borrower":"0xB","purpose":"","amount":"1","interestRate":0,"duration":"100000000000","startTime":0,"endTime":0,"amountRepaid":"0","status":0,"totalContributed":"0"}`,
	}
	for name, raw := range tests {
		if _, err := MapLoan(1, json.RawMessage(raw)); !errors.Is(err, ErrMalformedSnapshot) {
			t.Errorf("%s: err = %v, want ErrMalformedSnapshot", name, err)
		}
	}
}

func TestMapLoanCount(t *testing.T) {
	for raw, want := range map[string]int64{`3`: 3, `"12"`: 12, `{"type":"BigNumber","hex":"0x0a"}`: 10} {
		got, err := MapLoanCount(json.RawMessage(raw))
		if err != nil || got != want {
			t.Errorf("MapLoanCount(%s) = %d, %v, want %d", raw, got, err, want)
		}
	}
	if _, err := MapLoanCount(json.RawMessage(`null`)); !errors.Is(err, ErrMalformedSnapshot) {
		t.Errorf("MapLoanCount(null) err = %v, want ErrMalformedSnapshot", err)
	}
	if _, err := MapLoanCount(json.RawMessage(`"0xffffffffffffff"`)); !errors.Is(err, ErrMalformedSnapshot) {
		t.Errorf("MapLoanCount(huge) err = %v, want ErrMalformedSnapshot", err)
	}
}

func TestMapNFTDetails(t *testing.T) {
	got, err := MapNFTDetails(2, json.RawMessage(`{"hasNFT":true,"tokenId":"17"}`))
	if err != nil {
		t.Fatalf("MapNFTDetails: %v", err)
	}
	if !got.HasNFT || got.TokenID != 17 {
		t.Fatalf("got %+v, want HasNFT with token 17", got)
	}

	got, err = MapNFTDetails(2, json.RawMessage(`[false,0]`))
	if err != nil || got.HasNFT {
		t.Fatalf("MapNFTDetails(tuple) = %+v, %v", got, err)
	}
}
