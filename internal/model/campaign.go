// Package model defines the ledger snapshot types and the derived views
// chainfund computes from them.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignSnapshot is one crowdfunding campaign as read from the ledger.
// Snapshots are values: a refresh replaces them wholesale.
type CampaignSnapshot struct {
	ID              int             `json:"id"` // ordinal position in the ledger's campaign list
	Owner           string          `json:"owner"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Target          decimal.Decimal `json:"target"`
	AmountCollected decimal.Decimal `json:"amount_collected"`
	Deadline        time.Time       `json:"deadline"`
	Image           string          `json:"image"`
	Claimed         bool            `json:"claimed"`
}

// Donation is a single contribution to a campaign, in ledger order.
// The same donor may appear more than once.
type Donation struct {
	CampaignID int             `json:"campaign_id"`
	Donor      string          `json:"donor"`
	Amount     decimal.Decimal `json:"amount"`
}

// NFTDetails describes the receipt token minted for a funded campaign.
type NFTDetails struct {
	HasNFT  bool  `json:"has_nft"`
	TokenID int64 `json:"token_id"`
}

// CampaignView holds the eligibility and progress derived for one caller at one instant.
type CampaignView struct {
	IsEnded       bool    `json:"is_ended"`
	IsOwner       bool    `json:"is_owner"`
	CanDonate     bool    `json:"can_donate"`
	CanClaim      bool    `json:"can_claim"`
	CanRefund     bool    `json:"can_refund"`
	CanMint       bool    `json:"can_mint"`
	PercentFunded float64 `json:"percent_funded"`
	DaysLeft      int     `json:"days_left"`
}
