package engine

import (
	"time"

	"github.com/theirongolddev/chainfund/internal/model"
)

// IsOwner reports whether caller is exactly the ledger identity owner.
// Identities are opaque and compared byte for byte; an empty caller owns nothing.
func IsOwner(caller, owner string) bool {
	return caller != "" && caller == owner
}

// GoalMet reports whether a campaign has collected at least its target.
func GoalMet(s model.CampaignSnapshot) bool {
	return s.AmountCollected.GreaterThanOrEqual(s.Target)
}

// DeriveCampaignView computes what caller may do with campaign s at now.
func DeriveCampaignView(s model.CampaignSnapshot, caller string, now time.Time) model.CampaignView {
	isEnded := IsEnded(s.Deadline, now)
	isOwner := IsOwner(caller, s.Owner)
	goalMet := GoalMet(s)
	unclaimed := !s.Claimed

	return model.CampaignView{
		IsEnded:       isEnded,
		IsOwner:       isOwner,
		CanDonate:     !isEnded,
		CanClaim:      isOwner && isEnded && unclaimed && goalMet,
		CanRefund:     isEnded && !goalMet,
		PercentFunded: PercentFunded(s.Target, s.AmountCollected),
		DaysLeft:      DaysLeft(s.Deadline, now),
	}
}

// DeriveCampaignViewWithNFT extends DeriveCampaignView with receipt minting:
// a successfully funded, ended campaign may mint one receipt token.
func DeriveCampaignViewWithNFT(s model.CampaignSnapshot, nft model.NFTDetails, caller string, now time.Time) model.CampaignView {
	v := DeriveCampaignView(s, caller, now)
	v.CanMint = v.IsEnded && GoalMet(s) && !nft.HasNFT
	return v
}

// FilterByOwner returns the campaigns owned by caller, in their original order.
func FilterByOwner(campaigns []model.CampaignSnapshot, caller string) []model.CampaignSnapshot {
	if caller == "" {
		return nil
	}
	var out []model.CampaignSnapshot
	for _, c := range campaigns {
		if IsOwner(caller, c.Owner) {
			out = append(out, c)
		}
	}
	return out
}
