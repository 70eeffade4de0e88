package service

import (
	"context"
	"fmt"

	"stream-wallet-engine/config"
	"stream-wallet-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FraudServiceImpl implements ports.FraudChecker. The check is advisory: a
// flagged payment still proceeds, it is only marked for review on the
// transaction row.
type FraudServiceImpl struct {
	counter ports.AttemptCounter
	cfg     config.FraudConfig
	log     zerolog.Logger
}

// NewFraudService creates a new FraudServiceImpl.
func NewFraudService(counter ports.AttemptCounter, cfg config.FraudConfig, log zerolog.Logger) *FraudServiceImpl {
	return &FraudServiceImpl{
		counter: counter,
		cfg:     cfg,
		log:     log,
	}
}

// Check evaluates velocity and single-amount heuristics for a payment
// attempt. Counter-store errors degrade to "not flagged" so a Redis outage
// never blocks payments.
func (s *FraudServiceImpl) Check(ctx context.Context, userID uuid.UUID, amount int64) (ports.FraudAssessment, error) {
	var assessment ports.FraudAssessment

	count, err := s.counter.Increment(ctx, userID.String(), s.cfg.Window)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("fraud counter unavailable, skipping velocity check")
	} else if count > s.cfg.MaxPaymentsPerWindow {
		assessment.Flagged = true
		assessment.Reasons = append(assessment.Reasons,
			fmt.Sprintf("velocity: %d payment attempts within %s", count, s.cfg.Window))
	}

	if amount > s.cfg.MaxSingleAmount {
		assessment.Flagged = true
		assessment.Reasons = append(assessment.Reasons,
			fmt.Sprintf("amount %d exceeds single-payment threshold %d", amount, s.cfg.MaxSingleAmount))
	}

	if assessment.Flagged {
		s.log.Warn().
			Str("user_id", userID.String()).
			Int64("amount", amount).
			Strs("reasons", assessment.Reasons).
			Msg("payment attempt flagged for review")
	}

	return assessment, nil
}
