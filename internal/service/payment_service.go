package service

import (
	"context"
	"fmt"
	"time"

	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentServiceImpl implements ports.PaymentService. It creates PENDING
// ledger entries and hands the user off to the gateway; completion is owned
// by the integrity service.
type PaymentServiceImpl struct {
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	fraud      ports.FraudChecker
	providers  ports.ProviderResolver
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	fraud ports.FraudChecker,
	providers ports.ProviderResolver,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		txRepo:     txRepo,
		transactor: transactor,
		fraud:      fraud,
		providers:  providers,
		log:        log,
	}
}

// CreatePayment validates the request, runs the advisory fraud check,
// persists a PENDING transaction with its normalized reward payload, and
// returns the gateway redirect URL.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req ports.CreatePaymentRequest) (*ports.CreatePaymentResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := req.Reward.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	switch req.Type {
	case domain.TransactionTypePurchaseGold:
		if req.Reward.Kind != domain.RewardKindGold {
			return nil, apperror.Validation("gold purchase requires a gold reward")
		}
	case domain.TransactionTypePurchaseVip:
		if req.Reward.Kind != domain.RewardKindVip {
			return nil, apperror.Validation("vip purchase requires a vip reward")
		}
	default:
		return nil, apperror.Validation(fmt.Sprintf("unsupported payment type %q", req.Type))
	}

	adapter, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	// Advisory only: a flagged attempt proceeds, marked on the row. A fraud
	// check error never blocks payment creation.
	assessment, err := s.fraud.Check(ctx, req.UserID, req.Amount)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", req.UserID.String()).Msg("fraud check failed, proceeding unflagged")
		assessment = ports.FraudAssessment{}
	}

	txn := &domain.Transaction{
		ID:           uuid.New(),
		UserID:       req.UserID,
		Type:         req.Type,
		Amount:       req.Amount,
		RewardValue:  req.Reward.GoldDelta(),
		Reward:       req.Reward,
		Status:       domain.TransactionStatusPending,
		Provider:     adapter.Name(),
		FraudFlagged: assessment.Flagged,
		Description:  req.Description,
		CreatedAt:    time.Now().UTC(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	redirectURL, err := adapter.BuildRedirectURL(txn)
	if err != nil {
		// The PENDING row stays; the sweeper resolves it if never paid.
		return nil, apperror.InternalError(fmt.Errorf("build redirect url: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("user_id", req.UserID.String()).
		Str("provider", txn.Provider).
		Int64("amount", req.Amount).
		Bool("fraud_flagged", txn.FraudFlagged).
		Msg("payment created")

	return &ports.CreatePaymentResult{TransactionID: txn.ID, RedirectURL: redirectURL}, nil
}
