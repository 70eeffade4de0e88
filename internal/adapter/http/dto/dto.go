package dto

// CreatePaymentRequest is the request body for initiating a gateway payment.
type CreatePaymentRequest struct {
	Type        string `json:"type" binding:"required,oneof=PURCHASE_GOLD PURCHASE_VIP"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Provider    string `json:"provider" binding:"required"`
	RewardGold  int64  `json:"reward_gold,omitempty"`
	RewardDays  int    `json:"reward_days,omitempty"`
	Description string `json:"description" binding:"max=255"`
}

// CreatePaymentResponse is the response body for a created payment.
type CreatePaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// SpendRequest is the request body for an internal gold spend.
type SpendRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"required,max=255"`
	ReferenceID string `json:"reference_id" binding:"max=100"`
}

// CreditRequest is the request body for an admin gold credit.
type CreditRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Type        string `json:"type" binding:"required,oneof=ADMIN_ADJUST CHECKIN_REWARD"`
	Description string `json:"description" binding:"required,max=255"`
	ReferenceID string `json:"reference_id" binding:"max=100"`
}

// BalanceMutationResponse is the response for spend/credit operations.
type BalanceMutationResponse struct {
	TransactionID string `json:"transaction_id"`
	NewBalance    int64  `json:"new_balance"`
}

// WalletResponse is the response for balance queries.
type WalletResponse struct {
	GoldBalance  int64   `json:"gold_balance"`
	VipTier      int     `json:"vip_tier"`
	VipExpiresAt *string `json:"vip_expires_at,omitempty"`
}

// TransactionResponse is one ledger entry in a history listing.
type TransactionResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      int64   `json:"amount"`
	RewardValue int64   `json:"reward_value"`
	Status      string  `json:"status"`
	Provider    string  `json:"provider"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}
