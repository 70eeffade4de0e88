package ports

import (
	"context"
	"time"

	"stream-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Coordination primitives (Redis-backed) ---

// DistributedLock is a TTL-bounded mutual-exclusion primitive keyed by an
// arbitrary resource name. Acquire is a single atomic set-if-absent; the TTL
// bounds the damage of a crashed holder.
type DistributedLock interface {
	// Acquire returns a holder token and ok=true on success, ok=false if the
	// lock is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release deletes the lock only if token still matches the holder.
	Release(ctx context.Context, key, token string) error
}

// IdempotencyGuard is a write-once marker store for finalized external
// transaction ids. Claim must be a single atomic check-and-set.
type IdempotencyGuard interface {
	// Claim returns true only for the first caller for a given id within the
	// TTL window.
	Claim(ctx context.Context, externalID string) (bool, error)
	Forget(ctx context.Context, externalID string) error
}

// BalanceCache is a read-through cache for user wallet state.
type BalanceCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error) // nil, nil on miss
	Set(ctx context.Context, w *domain.UserWallet) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// AttemptCounter tracks per-user payment attempts in fixed time windows.
type AttemptCounter interface {
	// Increment bumps the counter for the current window and returns the
	// running count within it.
	Increment(ctx context.Context, userID string, window time.Duration) (int64, error)
}

// --- Fraud heuristic ---

// FraudAssessment is the advisory outcome of a pre-payment check.
type FraudAssessment struct {
	Flagged bool
	Reasons []string
}

// FraudChecker flags anomalous payment attempts. Advisory only — a flagged
// payment proceeds, it is just marked for review.
type FraudChecker interface {
	Check(ctx context.Context, userID uuid.UUID, amount int64) (FraudAssessment, error)
}

// --- Provider adapters ---

// CallbackResult is the provider-independent outcome of a verified callback.
type CallbackResult struct {
	OrderID      string // our transaction id, echoed by the gateway
	ProviderTxID string // the gateway's own reference
	Success      bool
	Amount       int64
	ResponseCode string
}

// ProviderAdapter translates between the engine and one payment gateway.
// VerifyCallback recomputes the provider's keyed hash over the callback
// params; a mismatch is a hard rejection.
type ProviderAdapter interface {
	Name() string
	BuildRedirectURL(tx *domain.Transaction) (string, error)
	VerifyCallback(params map[string]string) (*CallbackResult, error)
}

// ProviderResolver maps a provider name from a request path to its adapter.
type ProviderResolver interface {
	Get(name string) (ProviderAdapter, error)
}

// --- Service Ports (Business Logic) ---

// SpendRequest holds validated input for an internal gold spend.
type SpendRequest struct {
	UserID      uuid.UUID
	Amount      int64
	Description string
	ReferenceID string
}

// SpendResult is returned from a successful spend.
type SpendResult struct {
	NewBalance  int64
	Transaction *domain.Transaction
}

// CreditRequest holds validated input for an internal gold credit.
type CreditRequest struct {
	UserID      uuid.UUID
	Amount      int64
	Type        domain.TransactionType // ADMIN_ADJUST, CHECKIN_REWARD
	Description string
	ReferenceID string
}

// CreditResult is returned from a successful credit.
type CreditResult struct {
	NewBalance  int64
	Transaction *domain.Transaction
}

// WalletService owns all internally-triggered balance mutations.
type WalletService interface {
	Spend(ctx context.Context, req SpendRequest) (*SpendResult, error)
	Credit(ctx context.Context, req CreditRequest) (*CreditResult, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error)
}

// CreatePaymentRequest holds validated input for initiating a gateway payment.
type CreatePaymentRequest struct {
	UserID      uuid.UUID
	Type        domain.TransactionType // PURCHASE_GOLD or PURCHASE_VIP
	Amount      int64
	Provider    string
	Reward      domain.RewardEffect
	Description string
}

// CreatePaymentResult is returned to the payment-creation caller.
type CreatePaymentResult struct {
	TransactionID uuid.UUID
	RedirectURL   string
}

// PaymentService creates PENDING transactions and hands off to the gateway.
type PaymentService interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)
}

// CompletionResult reports the outcome of processing a verified callback.
type CompletionResult struct {
	TransactionID    uuid.UUID
	Status           domain.TransactionStatus
	AlreadyProcessed bool
}

// IntegrityService orchestrates idempotency checking and atomic execution
// for externally-triggered payment completions.
type IntegrityService interface {
	EnsureIdempotency(ctx context.Context, txID uuid.UUID) (bool, error)
	ExecuteAtomic(ctx context.Context, lockKey string, ttl time.Duration, fn func(pgx.Tx) error) error
	CompletePayment(ctx context.Context, cb CallbackResult) (*CompletionResult, error)
}

// ReconciliationService resolves transactions stuck in PENDING.
type ReconciliationService interface {
	SweepStale(ctx context.Context) (int, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   string
}

// TokenService validates bearer tokens issued by the platform's auth system.
type TokenService interface {
	Generate(userID uuid.UUID, role string, ttl time.Duration) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}
