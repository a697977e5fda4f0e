package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/theirongolddev/chainfund/internal/ledger"
	"github.com/theirongolddev/chainfund/internal/units"
)

func TestCreateCampaign(t *testing.T) {
	r, l := setup(t, "0xOwner")

	res, err := r.CreateCampaign(context.Background(), CampaignInput{
		Title:       "  Clean water ",
		Description: "A well for the village",
		Target:      "12.5",
		Deadline:    now.Add(30 * 24 * time.Hour),
		Image:       "https://example.com/well.png",
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if len(res.Campaigns) != 1 {
		t.Fatalf("campaigns = %d, want 1", len(res.Campaigns))
	}
	c := res.Campaigns[0]
	if c.Owner != "0xOwner" || c.Title != "Clean water" || c.Target.String() != "12.5" {
		t.Fatalf("campaign = %+v", c)
	}

	tx := l.Sends()[0]
	if tx.Method != ledger.MethodCreateCampaign || tx.Args[3] != "12500000000000000000" {
		t.Fatalf("tx = %+v", tx)
	}
}

func TestCreateCampaign_Invalid(t *testing.T) {
	r, l := setup(t, "0xOwner")
	ctx := context.Background()
	valid := CampaignInput{Title: "t", Description: "d", Target: "1", Deadline: now.Add(time.Hour)}

	tests := []struct {
		name  string
		edit  func(*CampaignInput)
		field string
	}{
		{"blank title", func(in *CampaignInput) { in.Title = "   " }, "Title"},
		{"no description", func(in *CampaignInput) { in.Description = "" }, "Description"},
		{"bad image", func(in *CampaignInput) { in.Image = "not a url" }, "Image"},
		{"past deadline", func(in *CampaignInput) { in.Deadline = now.Add(-time.Minute) }, "Deadline"},
		{"no deadline", func(in *CampaignInput) { in.Deadline = time.Time{} }, "Deadline"},
	}
	for _, tt := range tests {
		in := valid
		tt.edit(&in)
		_, err := r.CreateCampaign(ctx, in)
		var ve *ValidationError
		if !errors.As(err, &ve) || !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ValidationError", tt.name, err)
			continue
		}
		if ve.Fields[0].Field != tt.field {
			t.Errorf("%s: field = %s, want %s", tt.name, ve.Fields[0].Field, tt.field)
		}
	}

	in := valid
	in.Target = "ten"
	if _, err := r.CreateCampaign(ctx, in); !errors.Is(err, units.ErrInvalidAmount) {
		t.Errorf("bad target err = %v, want ErrInvalidAmount", err)
	}
	if n := len(l.Sends()); n != 0 {
		t.Fatalf("%d invalid campaigns sent", n)
	}
}

func TestCreateLoan_ConvertsUnits(t *testing.T) {
	r, l := setup(t, "0xBorrower")

	res, err := r.CreateLoan(context.Background(), LoanInput{
		Purpose:         "sewing machine",
		Amount:          "0.75",
		InterestPercent: 7.5,
		DurationDays:    45,
	})
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	tx := l.Sends()[0]
	if tx.Args[1] != "750000000000000000" {
		t.Errorf("amount arg = %v", tx.Args[1])
	}
	if tx.Args[2] != int64(750) {
		t.Errorf("rate arg = %v, want 750", tx.Args[2])
	}
	if tx.Args[3] != int64(45*86400) {
		t.Errorf("duration arg = %v, want %d", tx.Args[3], 45*86400)
	}

	loan, ok := res.Loan(0)
	if !ok || loan.Borrower != "0xBorrower" || loan.InterestRate != 750 || loan.DurationSecs != 45*86400 {
		t.Fatalf("loan = %+v", loan)
	}
}

func TestCreateLoan_Invalid(t *testing.T) {
	r, l := setup(t, "0xBorrower")
	ctx := context.Background()

	if _, err := r.CreateLoan(ctx, LoanInput{Purpose: "x", Amount: "1", DurationDays: 1.5}); !errors.Is(err, units.ErrInvalidDuration) {
		t.Errorf("fractional days err = %v, want ErrInvalidDuration", err)
	}
	if _, err := r.CreateLoan(ctx, LoanInput{Purpose: "x", Amount: "1", DurationDays: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero days err = %v, want ErrInvalidInput", err)
	}
	if _, err := r.CreateLoan(ctx, LoanInput{Purpose: "x", Amount: "1", InterestPercent: 150, DurationDays: 10}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("150%% interest err = %v, want ErrInvalidInput", err)
	}
	if _, err := r.CreateLoan(ctx, LoanInput{Amount: "1", DurationDays: 10}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("no purpose err = %v, want ErrInvalidInput", err)
	}
	if n := len(l.Sends()); n != 0 {
		t.Fatalf("%d invalid loans sent", n)
	}
}
