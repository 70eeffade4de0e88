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
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// IntegrityServiceImpl implements ports.IntegrityService. It is the
// coordination layer for externally-triggered payment completions: the
// idempotency guard absorbs provider retry storms before any lock is
// contended, the per-transaction lock serializes racing deliveries that slip
// past the guard, and the status-guarded terminal update is the last line of
// defense.
type IntegrityServiceImpl struct {
	lock       ports.DistributedLock
	guard      ports.IdempotencyGuard
	walletRepo ports.UserWalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	cache      ports.BalanceCache
	cfg        config.WalletConfig
	log        zerolog.Logger
}

// NewIntegrityService creates a new IntegrityServiceImpl.
func NewIntegrityService(
	lock ports.DistributedLock,
	guard ports.IdempotencyGuard,
	walletRepo ports.UserWalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	cache ports.BalanceCache,
	cfg config.WalletConfig,
	log zerolog.Logger,
) *IntegrityServiceImpl {
	return &IntegrityServiceImpl{
		lock:       lock,
		guard:      guard,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		cache:      cache,
		cfg:        cfg,
		log:        log,
	}
}

// EnsureIdempotency claims the completion marker for a transaction. Only the
// first caller within the TTL window gets true.
func (s *IntegrityServiceImpl) EnsureIdempotency(ctx context.Context, txID uuid.UUID) (bool, error) {
	first, err := s.guard.Claim(ctx, txID.String())
	if err != nil {
		return false, apperror.ErrLockUnavailable(err)
	}
	return first, nil
}

// ExecuteAtomic acquires the named lock, runs fn inside one database
// transaction, and releases the lock regardless of outcome.
func (s *IntegrityServiceImpl) ExecuteAtomic(ctx context.Context, lockKey string, ttl time.Duration, fn func(pgx.Tx) error) error {
	token, ok, err := s.lock.Acquire(ctx, lockKey, ttl)
	if err != nil {
		return apperror.ErrLockUnavailable(err)
	}
	if !ok {
		metrics.LockContentionTotal.WithLabelValues("transaction").Inc()
		return apperror.ErrResourceBusy("transaction")
	}
	defer func() {
		if err := s.lock.Release(ctx, lockKey, token); err != nil {
			s.log.Warn().Err(err).Str("key", lockKey).Msg("lock release failed")
		}
	}()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := fn(dbTx); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// CompletePayment processes a verified provider callback. The callback has
// already passed signature verification; nothing here re-checks it.
func (s *IntegrityServiceImpl) CompletePayment(ctx context.Context, cb ports.CallbackResult) (*ports.CompletionResult, error) {
	txID, err := uuid.Parse(cb.OrderID)
	if err != nil {
		return nil, apperror.Validation("malformed order reference")
	}

	first, err := s.EnsureIdempotency(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !first {
		return s.alreadyProcessed(ctx, txID), nil
	}

	txn, err := s.txRepo.GetByID(ctx, txID)
	if err != nil {
		s.forgetClaim(ctx, txID)
		return nil, apperror.InternalError(fmt.Errorf("load transaction: %w", err))
	}
	if txn == nil {
		s.forgetClaim(ctx, txID)
		return nil, apperror.ErrNotFound("transaction")
	}
	if txn.IsTerminal() {
		// Normal outcome of at-least-once delivery, not an error.
		return &ports.CompletionResult{TransactionID: txID, Status: txn.Status, AlreadyProcessed: true}, nil
	}

	if cb.Success && cb.Amount != txn.Amount {
		// Signature already verified, so this is a configuration mismatch
		// rather than tampering. Flag it loudly but trust the gateway.
		s.log.Warn().
			Str("tx_id", txID.String()).
			Int64("expected", txn.Amount).
			Int64("reported", cb.Amount).
			Msg("callback amount differs from transaction amount")
	}

	result := &ports.CompletionResult{TransactionID: txID}
	err = s.ExecuteAtomic(ctx, domain.TransactionLockKey(txID), s.cfg.CompletionLockTTL, func(dbTx pgx.Tx) error {
		var providerTxID *string
		if cb.ProviderTxID != "" {
			providerTxID = &cb.ProviderTxID
		}

		if !cb.Success {
			ok, err := s.txRepo.MarkTerminal(ctx, dbTx, txID, domain.TransactionStatusFailed, providerTxID)
			if err != nil {
				return apperror.InternalError(fmt.Errorf("mark failed: %w", err))
			}
			if !ok {
				result.AlreadyProcessed = true
				result.Status = domain.TransactionStatusCompleted
				return nil
			}
			result.Status = domain.TransactionStatusFailed
			return nil
		}

		ok, err := s.txRepo.MarkTerminal(ctx, dbTx, txID, domain.TransactionStatusCompleted, providerTxID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("mark completed: %w", err))
		}
		if !ok {
			// A racing completer won between our read and this update.
			result.AlreadyProcessed = true
			result.Status = domain.TransactionStatusCompleted
			return nil
		}

		// Balance mutation inlined into the same atomic block; calling the
		// locked wallet path here would nest lock acquisitions.
		if err := s.applyReward(ctx, dbTx, txn); err != nil {
			return err
		}

		result.Status = domain.TransactionStatusCompleted
		return nil
	})
	if err != nil {
		// Give a later legitimate retry a clean claim.
		s.forgetClaim(ctx, txID)
		metrics.PaymentCallbacksTotal.WithLabelValues(txn.Provider, "error").Inc()
		return nil, err
	}

	if !result.AlreadyProcessed {
		s.invalidateCache(ctx, txn.UserID)
		metrics.WalletTransactionsTotal.WithLabelValues(string(txn.Type), string(result.Status)).Inc()
	}
	outcome := "completed"
	if result.Status == domain.TransactionStatusFailed {
		outcome = "failed"
	}
	if result.AlreadyProcessed {
		outcome = "replay"
	}
	metrics.PaymentCallbacksTotal.WithLabelValues(txn.Provider, outcome).Inc()

	s.log.Info().
		Str("tx_id", txID.String()).
		Str("user_id", txn.UserID.String()).
		Str("status", string(result.Status)).
		Bool("already_processed", result.AlreadyProcessed).
		Str("response_code", cb.ResponseCode).
		Msg("payment completion processed")

	return result, nil
}

// applyReward applies exactly one reward effect inside the completion's
// database transaction.
func (s *IntegrityServiceImpl) applyReward(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) error {
	switch txn.Reward.Kind {
	case domain.RewardKindGold:
		if _, err := s.walletRepo.IncrementGold(ctx, dbTx, txn.UserID, txn.Reward.Gold); err != nil {
			return apperror.InternalError(fmt.Errorf("credit gold reward: %w", err))
		}
	case domain.RewardKindVip:
		w, err := s.walletRepo.GetWallet(ctx, txn.UserID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("load wallet for vip extension: %w", err))
		}
		if w == nil {
			return apperror.ErrNotFound("user")
		}
		now := time.Now().UTC()
		expiry := domain.StackVipExpiry(now, w.VipExpiresAt, txn.Reward.VipDays)
		tier := w.VipTier
		if tier < 1 {
			tier = 1
		}
		if err := s.walletRepo.ExtendVip(ctx, dbTx, txn.UserID, tier, expiry); err != nil {
			return apperror.InternalError(fmt.Errorf("extend vip: %w", err))
		}
	case domain.RewardKindNone:
		// nothing to apply
	default:
		return apperror.InternalError(fmt.Errorf("unknown reward kind %q on transaction %s", txn.Reward.Kind, txn.ID))
	}
	return nil
}

// alreadyProcessed builds the success-shaped replay result, looking up the
// terminal status when the row is still readable.
func (s *IntegrityServiceImpl) alreadyProcessed(ctx context.Context, txID uuid.UUID) *ports.CompletionResult {
	status := domain.TransactionStatusCompleted
	if txn, err := s.txRepo.GetByID(ctx, txID); err == nil && txn != nil {
		status = txn.Status
	}
	return &ports.CompletionResult{TransactionID: txID, Status: status, AlreadyProcessed: true}
}

func (s *IntegrityServiceImpl) forgetClaim(ctx context.Context, txID uuid.UUID) {
	if err := s.guard.Forget(ctx, txID.String()); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txID.String()).Msg("idempotency claim rollback failed")
	}
}

func (s *IntegrityServiceImpl) invalidateCache(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("balance cache invalidation failed")
	}
}
