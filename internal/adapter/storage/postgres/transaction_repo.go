package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stream-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository backed by PostgreSQL.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, type, amount, reward_value, reward_notes, status,
		provider, provider_tx_id, fraud_flagged, description, reference_id, created_at, processed_at`

// Create inserts a new ledger entry.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	reward, err := json.Marshal(t.Reward)
	if err != nil {
		return fmt.Errorf("encoding reward: %w", err)
	}

	query := `
		INSERT INTO transactions
			(id, user_id, type, amount, reward_value, reward_notes, status,
			 provider, provider_tx_id, fraud_flagged, description, reference_id, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.UserID, t.Type, t.Amount, t.RewardValue, reward, t.Status,
		t.Provider, t.ProviderTxID, t.FraudFlagged, t.Description, t.ReferenceID,
		t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

// GetByID fetches a single transaction.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying transaction: %w", err)
	}
	return t, nil
}

// MarkTerminal flips a PENDING transaction to a terminal status. The status
// guard in the WHERE clause makes the transition first-write-wins.
func (r *TransactionRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus, providerTxID *string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = $2,
		    provider_tx_id = COALESCE($3, provider_tx_id),
		    processed_at = now()
		WHERE id = $1 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, id, status, providerTxID)
	if err != nil {
		return false, fmt.Errorf("marking transaction terminal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListStalePending returns PENDING transactions created before the cutoff,
// oldest first, for the reconciliation sweeper.
func (r *TransactionRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("querying stale transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByUser returns a user's transactions, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying user transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var reward []byte
	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.RewardValue, &reward, &t.Status,
		&t.Provider, &t.ProviderTxID, &t.FraudFlagged, &t.Description, &t.ReferenceID,
		&t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(reward) > 0 {
		if err := json.Unmarshal(reward, &t.Reward); err != nil {
			return nil, fmt.Errorf("decoding reward: %w", err)
		}
	}
	return &t, nil
}
