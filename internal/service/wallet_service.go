package service

import (
	"context"
	"fmt"
	"time"

	"stream-wallet-engine/config"
	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/internal/metrics"
	"stream-wallet-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService. All internally-triggered
// balance mutations go through here; the per-wallet lock serializes them and
// the conditional decrement at the storage layer backstops the lock.
type WalletServiceImpl struct {
	lock       ports.DistributedLock
	walletRepo ports.UserWalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	cache      ports.BalanceCache
	cfg        config.WalletConfig
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	lock ports.DistributedLock,
	walletRepo ports.UserWalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	cache ports.BalanceCache,
	cfg config.WalletConfig,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		lock:       lock,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		cache:      cache,
		cfg:        cfg,
		log:        log,
	}
}

// Spend debits gold from a user's wallet and records a COMPLETED ledger
// entry, as one atomic database transaction under the wallet lock.
func (s *WalletServiceImpl) Spend(ctx context.Context, req ports.SpendRequest) (*ports.SpendResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	lockKey := domain.WalletLockKey(req.UserID)
	token, ok, err := s.lock.Acquire(ctx, lockKey, s.cfg.SpendLockTTL)
	if err != nil {
		return nil, apperror.ErrLockUnavailable(err)
	}
	if !ok {
		metrics.LockContentionTotal.WithLabelValues("wallet").Inc()
		return nil, apperror.ErrResourceBusy("wallet")
	}
	defer s.releaseLock(ctx, lockKey, token)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// The WHERE balance >= amount guard makes this safe even if the lock
	// expired mid-operation; zero rows is authoritative.
	newBalance, ok, err := s.walletRepo.DecrementGold(ctx, dbTx, req.UserID, req.Amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decrement gold: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Type:        domain.TransactionTypeSpendGold,
		Amount:      0,
		RewardValue: -req.Amount,
		Reward:      domain.NoReward(),
		Status:      domain.TransactionStatusCompleted,
		Provider:    domain.ProviderInternal,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create spend transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.invalidateCache(ctx, req.UserID)
	metrics.WalletTransactionsTotal.WithLabelValues(string(txn.Type), string(txn.Status)).Inc()

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("user_id", req.UserID.String()).
		Int64("amount", req.Amount).
		Int64("new_balance", newBalance).
		Msg("gold spend completed")

	return &ports.SpendResult{NewBalance: newBalance, Transaction: txn}, nil
}

// Credit adds gold to a user's wallet (check-in rewards, admin adjustments).
func (s *WalletServiceImpl) Credit(ctx context.Context, req ports.CreditRequest) (*ports.CreditResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	switch req.Type {
	case domain.TransactionTypeAdminAdjust, domain.TransactionTypeCheckinReward:
	default:
		return nil, apperror.Validation(fmt.Sprintf("unsupported credit type %q", req.Type))
	}

	lockKey := domain.WalletLockKey(req.UserID)
	token, ok, err := s.lock.Acquire(ctx, lockKey, s.cfg.SpendLockTTL)
	if err != nil {
		return nil, apperror.ErrLockUnavailable(err)
	}
	if !ok {
		metrics.LockContentionTotal.WithLabelValues("wallet").Inc()
		return nil, apperror.ErrResourceBusy("wallet")
	}
	defer s.releaseLock(ctx, lockKey, token)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	newBalance, err := s.walletRepo.IncrementGold(ctx, dbTx, req.UserID, req.Amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("increment gold: %w", err))
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Type:        req.Type,
		Amount:      0,
		RewardValue: req.Amount,
		Reward:      domain.GoldCredit(req.Amount),
		Status:      domain.TransactionStatusCompleted,
		Provider:    domain.ProviderInternal,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
		CreatedAt:   now,
		ProcessedAt: &now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create credit transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.invalidateCache(ctx, req.UserID)
	metrics.WalletTransactionsTotal.WithLabelValues(string(txn.Type), string(txn.Status)).Inc()

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("user_id", req.UserID.String()).
		Int64("amount", req.Amount).
		Msg("gold credit completed")

	return &ports.CreditResult{NewBalance: newBalance, Transaction: txn}, nil
}

// GetBalance is a plain read through the balance cache; no locking.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache read failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	w, err := s.walletRepo.GetWallet(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("user")
	}

	if err := s.cache.Set(ctx, w); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache write failed")
	}
	return w, nil
}

func (s *WalletServiceImpl) releaseLock(ctx context.Context, key, token string) {
	if err := s.lock.Release(ctx, key, token); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("lock release failed")
	}
}

func (s *WalletServiceImpl) invalidateCache(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache invalidation failed")
	}
}
