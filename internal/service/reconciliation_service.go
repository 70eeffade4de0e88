package service

import (
	"context"
	"fmt"
	"time"

	"stream-wallet-engine/config"
	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/internal/metrics"

	"github.com/rs/zerolog"
)

// ReconciliationServiceImpl implements ports.ReconciliationService. It is the
// backstop for transactions whose provider callback never arrives: stale
// PENDING rows are moved to FAILED with no balance effect, since PENDING
// transactions never touched the balance.
type ReconciliationServiceImpl struct {
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	cfg        config.SweeperConfig
	log        zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationServiceImpl.
func NewReconciliationService(
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	cfg config.SweeperConfig,
	log zerolog.Logger,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		txRepo:     txRepo,
		transactor: transactor,
		cfg:        cfg,
		log:        log,
	}
}

// SweepStale fails all PENDING transactions older than the staleness
// threshold and returns how many rows it transitioned. Per-row errors are
// logged and skipped, never aborting the batch. Idempotent: the status guard
// on the terminal update makes a second pass over the same set a no-op.
func (s *ReconciliationServiceImpl) SweepStale(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.StaleThreshold)

	stale, err := s.txRepo.ListStalePending(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing stale transactions: %w", err)
	}

	swept := 0
	for i := range stale {
		txn := &stale[i]
		failed, err := s.failOne(ctx, txn)
		if err != nil {
			s.log.Error().Err(err).Str("tx_id", txn.ID.String()).Msg("sweep failed for transaction, skipping")
			continue
		}
		if failed {
			swept++
			metrics.SweeperFailedTotal.Inc()
		}
	}

	if swept > 0 {
		s.log.Info().Int("swept", swept).Int("candidates", len(stale)).Msg("stale transactions resolved to FAILED")
	}
	return swept, nil
}

func (s *ReconciliationServiceImpl) failOne(ctx context.Context, txn *domain.Transaction) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// ok=false means a late callback completed it between listing and now;
	// that is a win, not an error.
	ok, err := s.txRepo.MarkTerminal(ctx, dbTx, txn.ID, domain.TransactionStatusFailed, nil)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	if !ok {
		return false, nil
	}

	metrics.WalletTransactionsTotal.WithLabelValues(string(txn.Type), string(domain.TransactionStatusFailed)).Inc()
	return true, nil
}

// Run executes SweepStale on a fixed interval until the context is
// cancelled. Started as a goroutine from main.
func (s *ReconciliationServiceImpl) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("stale_threshold", s.cfg.StaleThreshold).
		Msg("reconciliation sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconciliation sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepStale(ctx); err != nil {
				s.log.Error().Err(err).Msg("sweep pass failed")
			}
		}
	}
}
