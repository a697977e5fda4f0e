// Package snapshot maps raw ledger call results into typed snapshots.
//
// Mapping fails closed: a record with a missing or mis-shaped required field
// aborts the whole call with ErrMalformedSnapshot and no partial result, since
// a half-mapped entity could make the eligibility engine approve an action.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/theirongolddev/chainfund/internal/model"
)

// ErrMalformedSnapshot indicates a ledger result that does not have the expected shape.
var ErrMalformedSnapshot = errors.New("snapshot: malformed ledger data")

const (
	// MaxLoanCount bounds numberOfLoans. Larger counts are treated as corrupt.
	MaxLoanCount = 1 << 20
	// MaxDurationSecs is the longest loan term a time.Duration can hold.
	MaxDurationSecs = math.MaxInt64 / int64(time.Second)
)

func malformed(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedSnapshot, path, fmt.Sprintf(format, args...))
}

// Field order of the crowdfunding contract's Campaign struct.
var campaignFields = []string{
	"owner", "title", "description", "target", "deadline",
	"amountCollected", "image", "claimed",
}

const (
	cOwner = iota
	cTitle
	cDescription
	cTarget
	cDeadline
	cAmountCollected
	cImage
	cClaimed
)

// Field order of the microfinance contract's Loan struct.
var loanFields = []string{
	"id", "borrower", "purpose", "amount", "interestRate", "duration",
	"startTime", "endTime", "amountRepaid", "status", "totalContributed",
}

const (
	lID = iota
	lBorrower
	lPurpose
	lAmount
	lInterestRate
	lDuration
	lStartTime
	lEndTime
	lAmountRepaid
	lStatus
	lTotalContributed
)

var nftFields = []string{"hasNFT", "tokenId"}

// MapCampaigns maps the result of getCampaigns. The ledger does not return
// campaign ids; a campaign's id is its position in the list.
func MapCampaigns(raw json.RawMessage) ([]model.CampaignSnapshot, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed("campaigns", "want array: %v", err)
	}

	campaigns := make([]model.CampaignSnapshot, 0, len(items))
	for i, item := range items {
		c, err := MapCampaign(i, item)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

// MapCampaign maps a single campaign record at ordinal position id.
func MapCampaign(id int, raw json.RawMessage) (model.CampaignSnapshot, error) {
	r, err := newRecord(fmt.Sprintf("campaigns[%d]", id), raw, campaignFields)
	if err != nil {
		return model.CampaignSnapshot{}, err
	}

	var (
		c    = model.CampaignSnapshot{ID: id}
		errs []error
	)
	c.Owner, err = r.str(cOwner)
	errs = append(errs, err)
	c.Title, err = r.str(cTitle)
	errs = append(errs, err)
	c.Description, err = r.str(cDescription)
	errs = append(errs, err)
	c.Target, err = r.amount(cTarget)
	errs = append(errs, err)
	c.Deadline, err = r.unixTime(cDeadline)
	errs = append(errs, err)
	c.AmountCollected, err = r.amount(cAmountCollected)
	errs = append(errs, err)
	c.Image, err = r.str(cImage)
	errs = append(errs, err)
	c.Claimed, err = r.boolean(cClaimed)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return model.CampaignSnapshot{}, err
	}
	if !c.Target.IsPositive() {
		return model.CampaignSnapshot{}, malformed(r.path+".target", "must be positive")
	}
	return c, nil
}

// MapDonations maps the result of getDonators: two parallel arrays of donor
// identities and wei amounts. Order is kept and repeat donors are not merged.
func MapDonations(campaignID int, raw json.RawMessage) ([]model.Donation, error) {
	path := fmt.Sprintf("donations[%d]", campaignID)

	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return nil, malformed(path, "want [donors, amounts]")
	}
	var donors []string
	if err := json.Unmarshal(pair[0], &donors); err != nil {
		return nil, malformed(path+".donors", "want array of strings")
	}
	var amounts []json.RawMessage
	if err := json.Unmarshal(pair[1], &amounts); err != nil {
		return nil, malformed(path+".amounts", "want array")
	}
	if len(donors) != len(amounts) {
		return nil, malformed(path, "%d donors but %d amounts", len(donors), len(amounts))
	}

	donations := make([]model.Donation, 0, len(donors))
	for i, donor := range donors {
		r := record{
			path:   fmt.Sprintf("%s[%d]", path, i),
			fields: []string{"amount"},
			pos:    []json.RawMessage{amounts[i]},
		}
		amount, err := r.amount(0)
		if err != nil {
			return nil, err
		}
		donations = append(donations, model.Donation{
			CampaignID: campaignID,
			Donor:      donor,
			Amount:     amount,
		})
	}
	return donations, nil
}

// MapLoanCount maps the result of numberOfLoans.
func MapLoanCount(raw json.RawMessage) (int64, error) {
	r := record{path: "numberOfLoans", fields: []string{"count"}, pos: []json.RawMessage{raw}}
	n, err := r.int64(0)
	if err != nil {
		return 0, err
	}
	if n > MaxLoanCount {
		return 0, malformed("numberOfLoans.count", "%d exceeds %d", n, MaxLoanCount)
	}
	return n, nil
}

// MapLoan maps the result of getLoanDetails(requested). The record's own id
// field is authoritative; requested is used only when the ledger omits it.
func MapLoan(requested int64, raw json.RawMessage) (model.LoanSnapshot, error) {
	r, err := newRecord(fmt.Sprintf("loans[%d]", requested), raw, loanFields)
	if err != nil {
		return model.LoanSnapshot{}, err
	}

	var (
		l      = model.LoanSnapshot{ID: requested}
		status int64
		errs   []error
	)
	if r.has(lID) {
		l.ID, err = r.int64(lID)
		errs = append(errs, err)
	}
	l.Borrower, err = r.str(lBorrower)
	errs = append(errs, err)
	l.Purpose, err = r.str(lPurpose)
	errs = append(errs, err)
	l.Amount, err = r.amount(lAmount)
	errs = append(errs, err)
	l.InterestRate, err = r.int64(lInterestRate)
	errs = append(errs, err)
	l.DurationSecs, err = r.int64(lDuration)
	if err == nil && l.DurationSecs > MaxDurationSecs {
		err = malformed(r.path+".duration", "%d seconds out of range", l.DurationSecs)
	}
	errs = append(errs, err)
	l.StartTime, err = r.unixTime(lStartTime)
	errs = append(errs, err)
	l.EndTime, err = r.unixTime(lEndTime)
	errs = append(errs, err)
	l.AmountRepaid, err = r.amount(lAmountRepaid)
	errs = append(errs, err)
	status, err = r.int64(lStatus)
	errs = append(errs, err)
	l.TotalContributed, err = r.amount(lTotalContributed)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return model.LoanSnapshot{}, err
	}
	// Out-of-range codes are carried through and labelled Unknown by the engine.
	l.Status = model.LoanStatus(status)
	return l, nil
}

// MapNFTDetails maps the result of getCampaignNFTDetails.
func MapNFTDetails(campaignID int, raw json.RawMessage) (model.NFTDetails, error) {
	r, err := newRecord(fmt.Sprintf("nft[%d]", campaignID), raw, nftFields)
	if err != nil {
		return model.NFTDetails{}, err
	}
	hasNFT, err := r.boolean(0)
	if err != nil {
		return model.NFTDetails{}, err
	}
	tokenID, err := r.int64(1)
	if err != nil {
		return model.NFTDetails{}, err
	}
	return model.NFTDetails{HasNFT: hasNFT, TokenID: tokenID}, nil
}
