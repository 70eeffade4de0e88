package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stream-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserWalletRepo implements ports.UserWalletRepository backed by PostgreSQL.
type UserWalletRepo struct {
	pool Pool
}

// NewUserWalletRepo creates a new UserWalletRepo.
func NewUserWalletRepo(pool Pool) *UserWalletRepo {
	return &UserWalletRepo{pool: pool}
}

// Create inserts a new wallet row for a user.
func (r *UserWalletRepo) Create(ctx context.Context, w *domain.UserWallet) error {
	query := `
		INSERT INTO users (id, gold_balance, vip_tier, vip_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`

	_, err := r.pool.Exec(ctx, query, w.UserID, w.GoldBalance, w.VipTier, w.VipExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting user wallet: %w", err)
	}
	return nil
}

// GetWallet fetches the wallet fields for a user.
func (r *UserWalletRepo) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error) {
	query := `
		SELECT id, gold_balance, vip_tier, vip_expires_at, updated_at
		FROM users
		WHERE id = $1`

	var w domain.UserWallet
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&w.UserID, &w.GoldBalance, &w.VipTier, &w.VipExpiresAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user wallet: %w", err)
	}
	return &w, nil
}

// DecrementGold subtracts amount from the balance only when the balance
// covers it. The WHERE clause makes the check and the write one statement,
// so concurrent spends cannot interleave between read and update.
func (r *UserWalletRepo) DecrementGold(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, bool, error) {
	query := `
		UPDATE users
		SET gold_balance = gold_balance - $2, updated_at = now()
		WHERE id = $1 AND gold_balance >= $2
		RETURNING gold_balance`

	var newBalance int64
	err := tx.QueryRow(ctx, query, userID, amount).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("decrementing gold: %w", err)
	}
	return newBalance, true, nil
}

// IncrementGold adds amount to the balance.
func (r *UserWalletRepo) IncrementGold(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET gold_balance = gold_balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING gold_balance`

	var newBalance int64
	err := tx.QueryRow(ctx, query, userID, amount).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("incrementing gold: user %s not found", userID)
		}
		return 0, fmt.Errorf("incrementing gold: %w", err)
	}
	return newBalance, nil
}

// ExtendVip sets the VIP tier and expiry computed by the caller.
func (r *UserWalletRepo) ExtendVip(ctx context.Context, tx pgx.Tx, userID uuid.UUID, tier int, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET vip_tier = $2, vip_expires_at = $3, updated_at = now()
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query, userID, tier, expiresAt)
	if err != nil {
		return fmt.Errorf("extending vip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("extending vip: user %s not found", userID)
	}
	return nil
}
