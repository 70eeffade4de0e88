package domain

import "fmt"

// RewardKind tags the effect a completed purchase applies to the user.
type RewardKind string

const (
	RewardKindNone RewardKind = "none"
	RewardKindGold RewardKind = "gold"
	RewardKindVip  RewardKind = "vip"
)

// RewardEffect is the normalized reward payload stored on a transaction at
// creation time, so the completion path never parses ad-hoc blobs. Exactly
// one of Gold / VipDays is meaningful depending on Kind.
type RewardEffect struct {
	Kind    RewardKind `json:"kind"`
	Gold    int64      `json:"gold,omitempty"`
	VipDays int        `json:"vip_days,omitempty"`
}

// GoldCredit builds a gold-credit reward effect.
func GoldCredit(amount int64) RewardEffect {
	return RewardEffect{Kind: RewardKindGold, Gold: amount}
}

// VipExtension builds a VIP-day extension reward effect.
func VipExtension(days int) RewardEffect {
	return RewardEffect{Kind: RewardKindVip, VipDays: days}
}

// NoReward builds an empty reward effect.
func NoReward() RewardEffect {
	return RewardEffect{Kind: RewardKindNone}
}

// Validate checks internal consistency of the effect.
func (r RewardEffect) Validate() error {
	switch r.Kind {
	case RewardKindGold:
		if r.Gold <= 0 {
			return fmt.Errorf("gold reward must be positive, got %d", r.Gold)
		}
	case RewardKindVip:
		if r.VipDays <= 0 {
			return fmt.Errorf("vip reward must be a positive day count, got %d", r.VipDays)
		}
	case RewardKindNone:
		// nothing to check
	default:
		return fmt.Errorf("unknown reward kind %q", r.Kind)
	}
	return nil
}

// GoldDelta returns the signed gold change this effect applies, 0 for
// non-gold rewards.
func (r RewardEffect) GoldDelta() int64 {
	if r.Kind == RewardKindGold {
		return r.Gold
	}
	return 0
}
