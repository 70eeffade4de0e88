package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserWallet is the subset of the user entity owned by the wallet engine.
// gold_balance is kept non-negative by a conditional update at the storage
// layer; no other component writes these fields.
type UserWallet struct {
	UserID       uuid.UUID  `json:"user_id"`
	GoldBalance  int64      `json:"gold_balance"`
	VipTier      int        `json:"vip_tier"`
	VipExpiresAt *time.Time `json:"vip_expires_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// VipActive reports whether the user has unexpired VIP at the given instant.
func (w *UserWallet) VipActive(now time.Time) bool {
	return w.VipExpiresAt != nil && w.VipExpiresAt.After(now)
}

// StackVipExpiry computes the new VIP expiry when crediting additional days:
// the extension is applied from the later of now and the current expiry, so
// repeated purchases stack instead of overwriting remaining time.
func StackVipExpiry(now time.Time, current *time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}
