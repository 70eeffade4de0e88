package ports

import (
	"context"
	"time"

	"stream-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserWalletRepository defines persistence operations for the wallet fields
// of the user entity. Methods accepting pgx.Tx run inside atomic blocks.
type UserWalletRepository interface {
	Create(ctx context.Context, w *domain.UserWallet) error
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error)
	// DecrementGold applies a conditional decrement guarded by
	// gold_balance >= amount. ok=false means insufficient balance and is
	// authoritative — callers must not retry blindly.
	DecrementGold(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (newBalance int64, ok bool, err error)
	IncrementGold(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (newBalance int64, err error)
	ExtendVip(ctx context.Context, tx pgx.Tx, userID uuid.UUID, tier int, expiresAt time.Time) error
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// MarkTerminal transitions a PENDING transaction to a terminal status.
	// The update is guarded by status = 'PENDING'; ok=false means the row
	// was already terminal (or missing) and nothing changed.
	MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, providerTxID *string) (ok bool, err error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
