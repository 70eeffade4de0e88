package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of balance-affecting operation.
type TransactionType string

const (
	TransactionTypePurchaseGold  TransactionType = "PURCHASE_GOLD"
	TransactionTypePurchaseVip   TransactionType = "PURCHASE_VIP"
	TransactionTypeSpendGold     TransactionType = "SPEND_GOLD"
	TransactionTypeAdminAdjust   TransactionType = "ADMIN_ADJUST"
	TransactionTypeCheckinReward TransactionType = "CHECKIN_REWARD"
)

// TransactionStatus represents the lifecycle state of a transaction.
// PENDING transitions to COMPLETED or FAILED at most once; terminal states
// are never re-entered.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// ProviderInternal marks transactions that never touch an external gateway
// (gold spends, check-in rewards, admin adjustments).
const ProviderInternal = "internal"

// Transaction is a ledger entry. The ID doubles as the provider-facing order
// reference for gateway purchases.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	Type         TransactionType   `json:"type"`
	Amount       int64             `json:"amount"`       // money charged, smallest unit; 0 for internal ops
	RewardValue  int64             `json:"reward_value"` // signed gold delta applied at completion
	Reward       RewardEffect      `json:"reward"`       // normalized payload, parsed once at creation
	Status       TransactionStatus `json:"status"`
	Provider     string            `json:"provider"`
	ProviderTxID *string           `json:"provider_tx_id,omitempty"` // gateway reference, set once verified
	FraudFlagged bool              `json:"fraud_flagged"`
	Description  string            `json:"description"`
	ReferenceID  string            `json:"reference_id,omitempty"` // caller-supplied correlation (episode id, admin note id)
	CreatedAt    time.Time         `json:"created_at"`
	ProcessedAt  *time.Time        `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// WalletLockKey is the coordination key serializing balance mutations for a user.
func WalletLockKey(userID uuid.UUID) string {
	return "wallet:" + userID.String()
}

// TransactionLockKey is the coordination key serializing completion of a
// single transaction.
func TransactionLockKey(txID uuid.UUID) string {
	return "tx_lock:" + txID.String()
}
