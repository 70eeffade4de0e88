package handler

import (
	"strconv"
	"time"

	"stream-wallet-engine/internal/adapter/http/dto"
	"stream-wallet-engine/internal/adapter/http/middleware"
	"stream-wallet-engine/internal/core/domain"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/pkg/apperror"
	"stream-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet reads and internal balance mutations.
type WalletHandler struct {
	walletSvc ports.WalletService
	txRepo    ports.TransactionRepository
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, txRepo ports.TransactionRepository) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, txRepo: txRepo}
}

// Spend handles POST /api/v1/wallet/spend.
func (h *WalletHandler) Spend(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.walletSvc.Spend(c.Request.Context(), ports.SpendRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceMutationResponse{
		TransactionID: result.Transaction.ID.String(),
		NewBalance:    result.NewBalance,
	})
}

// Credit handles POST /api/v1/wallet/credit (admin only).
func (h *WalletHandler) Credit(c *gin.Context) {
	var req dto.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid user_id"))
		return
	}

	result, err := h.walletSvc.Credit(c.Request.Context(), ports.CreditRequest{
		UserID:      targetID,
		Amount:      req.Amount,
		Type:        domain.TransactionType(req.Type),
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceMutationResponse{
		TransactionID: result.Transaction.ID.String(),
		NewBalance:    result.NewBalance,
	})
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	w, err := h.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.WalletResponse{
		GoldBalance: w.GoldBalance,
		VipTier:     w.VipTier,
	}
	if w.VipExpiresAt != nil {
		s := w.VipExpiresAt.UTC().Format(time.RFC3339)
		resp.VipExpiresAt = &s
	}
	response.OK(c, resp)
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	txns, err := h.txRepo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	out := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, toTransactionResponse(&txns[i]))
	}
	response.OK(c, out)
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:          t.ID.String(),
		Type:        string(t.Type),
		Amount:      t.Amount,
		RewardValue: t.RewardValue,
		Status:      string(t.Status),
		Provider:    t.Provider,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.ProcessedAt != nil {
		s := t.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
