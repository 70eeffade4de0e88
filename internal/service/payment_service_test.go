package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stream-wallet-engine/config"
	"stream-wallet-engine/internal/adapter/provider"
	redisstore "stream-wallet-engine/internal/adapter/storage/redis"
	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	svc      *PaymentServiceImpl
	txs      *inMemoryTransactionRepo
	fraudCfg config.FraudConfig
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &paymentFixture{
		txs: newInMemoryTransactionRepo(),
		fraudCfg: config.FraudConfig{
			MaxPaymentsPerWindow: 3,
			Window:               10 * time.Minute,
			MaxSingleAmount:      1_000_000,
		},
	}
	fraud := NewFraudService(redisstore.NewFraudCounterStore(client), f.fraudCfg, zerolog.Nop())
	vnpay := provider.NewVNPayAdapter(config.VNPayConfig{
		TmnCode:    "TESTMC01",
		HashSecret: testVNPaySecret,
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://app.example.com/payment/return",
	})
	f.svc = NewPaymentService(f.txs, newInMemoryTransactor(), fraud, provider.NewRegistry(vnpay), zerolog.Nop())
	return f
}

func TestPaymentService_CreatePayment(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()

	result, err := f.svc.CreatePayment(context.Background(), ports.CreatePaymentRequest{
		UserID:      userID,
		Type:        domain.TransactionTypePurchaseGold,
		Amount:      50000,
		Provider:    "vnpay",
		Reward:      domain.GoldCredit(100),
		Description: "100 gold pack",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RedirectURL)
	assert.Contains(t, result.RedirectURL, result.TransactionID.String())

	txn, err := f.txs.GetByID(context.Background(), result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
	assert.Equal(t, "vnpay", txn.Provider)
	assert.Equal(t, domain.RewardKindGold, txn.Reward.Kind)
	assert.Equal(t, int64(100), txn.RewardValue)
	assert.False(t, txn.FraudFlagged)
}

func TestPaymentService_CreatePayment_FlagsLargeAmount(t *testing.T) {
	f := newPaymentFixture(t)

	result, err := f.svc.CreatePayment(context.Background(), ports.CreatePaymentRequest{
		UserID:   uuid.New(),
		Type:     domain.TransactionTypePurchaseGold,
		Amount:   5_000_000, // above MaxSingleAmount
		Provider: "vnpay",
		Reward:   domain.GoldCredit(10000),
	})
	require.NoError(t, err)

	txn, err := f.txs.GetByID(context.Background(), result.TransactionID)
	require.NoError(t, err)
	assert.True(t, txn.FraudFlagged)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
}

func TestPaymentService_CreatePayment_FlagsVelocity(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()

	req := ports.CreatePaymentRequest{
		UserID:   userID,
		Type:     domain.TransactionTypePurchaseGold,
		Amount:   50000,
		Provider: "vnpay",
		Reward:   domain.GoldCredit(100),
	}

	var last *ports.CreatePaymentResult
	for i := 0; i < 4; i++ {
		result, err := f.svc.CreatePayment(context.Background(), req)
		require.NoError(t, err)
		last = result
	}

	// Fourth attempt within the window crosses MaxPaymentsPerWindow=3.
	txn, err := f.txs.GetByID(context.Background(), last.TransactionID)
	require.NoError(t, err)
	assert.True(t, txn.FraudFlagged)
}

func TestPaymentService_CreatePayment_UnknownProvider(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.CreatePayment(context.Background(), ports.CreatePaymentRequest{
		UserID:   uuid.New(),
		Type:     domain.TransactionTypePurchaseGold,
		Amount:   50000,
		Provider: "zalopay",
		Reward:   domain.GoldCredit(100),
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_003", appErr.Code)
}

func TestPaymentService_CreatePayment_Validation(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()

	cases := []struct {
		name string
		req  ports.CreatePaymentRequest
	}{
		{"zero amount", ports.CreatePaymentRequest{
			UserID: userID, Type: domain.TransactionTypePurchaseGold,
			Amount: 0, Provider: "vnpay", Reward: domain.GoldCredit(100),
		}},
		{"mismatched reward kind", ports.CreatePaymentRequest{
			UserID: userID, Type: domain.TransactionTypePurchaseGold,
			Amount: 50000, Provider: "vnpay", Reward: domain.VipExtension(30),
		}},
		{"spend type via payment", ports.CreatePaymentRequest{
			UserID: userID, Type: domain.TransactionTypeSpendGold,
			Amount: 50000, Provider: "vnpay", Reward: domain.GoldCredit(100),
		}},
		{"invalid reward payload", ports.CreatePaymentRequest{
			UserID: userID, Type: domain.TransactionTypePurchaseVip,
			Amount: 50000, Provider: "vnpay", Reward: domain.RewardEffect{Kind: domain.RewardKindVip, VipDays: -1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreatePayment(context.Background(), tc.req)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "WAL_003", appErr.Code)
		})
	}
}
