package handler

import (
	"errors"
	"net/http"

	"stream-wallet-engine/internal/adapter/http/dto"
	"stream-wallet-engine/internal/adapter/http/middleware"
	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/internal/metrics"
	"stream-wallet-engine/pkg/apperror"
	"stream-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PaymentHandler handles payment creation and provider callbacks.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	integrity  ports.IntegrityService
	providers  ports.ProviderResolver
	log        zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(
	paymentSvc ports.PaymentService,
	integrity ports.IntegrityService,
	providers ports.ProviderResolver,
	log zerolog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		paymentSvc: paymentSvc,
		integrity:  integrity,
		providers:  providers,
		log:        log,
	}
}

// CreatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	var reward domain.RewardEffect
	switch domain.TransactionType(req.Type) {
	case domain.TransactionTypePurchaseGold:
		reward = domain.GoldCredit(req.RewardGold)
	case domain.TransactionTypePurchaseVip:
		reward = domain.VipExtension(req.RewardDays)
	}

	result, err := h.paymentSvc.CreatePayment(c.Request.Context(), ports.CreatePaymentRequest{
		UserID:      userID,
		Type:        domain.TransactionType(req.Type),
		Amount:      req.Amount,
		Provider:    req.Provider,
		Reward:      reward,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreatePaymentResponse{
		TransactionID: result.TransactionID.String(),
		RedirectURL:   result.RedirectURL,
	})
}

// Callback handles GET /api/v1/payments/:provider/callback. The response
// shape is dictated by each provider's IPN protocol, not by our envelope.
func (h *PaymentHandler) Callback(c *gin.Context) {
	providerName := c.Param("provider")

	adapter, err := h.providers.Get(providerName)
	if err != nil {
		metrics.PaymentCallbacksTotal.WithLabelValues(providerName, "rejected").Inc()
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown provider"})
		return
	}

	params := make(map[string]string)
	for k := range c.Request.URL.Query() {
		params[k] = c.Query(k)
	}

	cb, err := adapter.VerifyCallback(params)
	if err != nil {
		// Logged with enough context for fraud review; generic rejection out.
		h.log.Warn().
			Str("provider", providerName).
			Str("client_ip", c.ClientIP()).
			Interface("params", params).
			Msg("callback signature rejected")
		metrics.PaymentCallbacksTotal.WithLabelValues(providerName, "rejected").Inc()
		h.providerAck(c, providerName, ackInvalidSignature)
		return
	}

	result, err := h.integrity.CompletePayment(c.Request.Context(), *cb)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case "PAY_002":
				h.providerAck(c, providerName, ackNotFound)
				return
			case "WAL_002", "SYS_002":
				// Busy or coordination outage: tell the provider to retry.
				h.providerAck(c, providerName, ackRetry)
				return
			}
		}
		h.log.Error().Err(err).Str("provider", providerName).Str("order_id", cb.OrderID).Msg("callback completion failed")
		h.providerAck(c, providerName, ackRetry)
		return
	}

	if result.AlreadyProcessed {
		h.providerAck(c, providerName, ackAlreadyProcessed)
		return
	}
	h.providerAck(c, providerName, ackOK)
}

type ackCode int

const (
	ackOK ackCode = iota
	ackAlreadyProcessed
	ackNotFound
	ackInvalidSignature
	ackRetry
)

// providerAck emits the acknowledgment each gateway protocol expects.
func (h *PaymentHandler) providerAck(c *gin.Context, providerName string, code ackCode) {
	switch providerName {
	case "momo":
		resultCode := map[ackCode]int{
			ackOK:               0,
			ackAlreadyProcessed: 0, // success-shaped so MoMo stops retrying
			ackNotFound:         45,
			ackInvalidSignature: 11,
			ackRetry:            99,
		}[code]
		c.JSON(http.StatusOK, gin.H{"resultCode": resultCode, "message": momoAckMessage(code)})
	default: // vnpay shape
		rsp := map[ackCode]string{
			ackOK:               "00",
			ackAlreadyProcessed: "02",
			ackNotFound:         "01",
			ackInvalidSignature: "97",
			ackRetry:            "99",
		}[code]
		c.JSON(http.StatusOK, gin.H{"RspCode": rsp, "Message": vnpayAckMessage(code)})
	}
}

func vnpayAckMessage(code ackCode) string {
	switch code {
	case ackOK:
		return "Confirm Success"
	case ackAlreadyProcessed:
		return "Order already confirmed"
	case ackNotFound:
		return "Order not found"
	case ackInvalidSignature:
		return "Invalid signature"
	default:
		return "Unknown error"
	}
}

func momoAckMessage(code ackCode) string {
	switch code {
	case ackOK, ackAlreadyProcessed:
		return "Success"
	case ackNotFound:
		return "Order not found"
	case ackInvalidSignature:
		return "Invalid signature"
	default:
		return "Internal error, retry later"
	}
}
