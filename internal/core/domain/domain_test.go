package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_IsTerminal(t *testing.T) {
	tx := &Transaction{Status: TransactionStatusPending}
	assert.False(t, tx.IsTerminal())

	tx.Status = TransactionStatusCompleted
	assert.True(t, tx.IsTerminal())

	tx.Status = TransactionStatusFailed
	assert.True(t, tx.IsTerminal())
}

func TestLockKeys(t *testing.T) {
	userID := uuid.New()
	txID := uuid.New()

	assert.Equal(t, "wallet:"+userID.String(), WalletLockKey(userID))
	assert.Equal(t, "tx_lock:"+txID.String(), TransactionLockKey(txID))
}

func TestRewardEffect_Validate(t *testing.T) {
	assert.NoError(t, GoldCredit(50).Validate())
	assert.NoError(t, VipExtension(30).Validate())
	assert.NoError(t, NoReward().Validate())

	assert.Error(t, GoldCredit(0).Validate())
	assert.Error(t, GoldCredit(-5).Validate())
	assert.Error(t, VipExtension(0).Validate())
	assert.Error(t, RewardEffect{Kind: "mystery"}.Validate())
}

func TestRewardEffect_GoldDelta(t *testing.T) {
	assert.Equal(t, int64(50), GoldCredit(50).GoldDelta())
	assert.Zero(t, VipExtension(30).GoldDelta())
	assert.Zero(t, NoReward().GoldDelta())
}

func TestStackVipExpiry_NoCurrentVip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := StackVipExpiry(now, nil, 30)
	assert.Equal(t, now.AddDate(0, 0, 30), got)
}

func TestStackVipExpiry_ExpiredVip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := now.AddDate(0, 0, -10)

	got := StackVipExpiry(now, &expired, 30)
	assert.Equal(t, now.AddDate(0, 0, 30), got)
}

func TestStackVipExpiry_StacksOnActiveVip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := now.AddDate(0, 0, 15)

	// Buying 30 more days before expiry extends from the current expiry,
	// not from now.
	got := StackVipExpiry(now, &current, 30)
	assert.Equal(t, current.AddDate(0, 0, 30), got)
}

func TestUserWallet_VipActive(t *testing.T) {
	now := time.Now()
	w := &UserWallet{}
	assert.False(t, w.VipActive(now))

	future := now.Add(24 * time.Hour)
	w.VipExpiresAt = &future
	assert.True(t, w.VipActive(now))

	past := now.Add(-time.Hour)
	w.VipExpiresAt = &past
	assert.False(t, w.VipActive(now))
}
