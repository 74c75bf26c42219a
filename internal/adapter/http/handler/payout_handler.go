package handler

import (
	"payment-aggregator/internal/adapter/http/dto"
	"payment-aggregator/internal/adapter/http/middleware"
	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"
	"payment-aggregator/pkg/response"

	"github.com/gin-gonic/gin"
)

// PayoutHandler handles disbursement endpoints.
type PayoutHandler struct {
	payoutSvc ports.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(payoutSvc ports.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc}
}

// Generate handles POST /api/v1/payout.
func (h *PayoutHandler) Generate(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rec, err := h.payoutSvc.Generate(c.Request.Context(), ports.PayoutRequest{
		MerchantID:         merchantID,
		ExternalTxnID:      req.TxnID,
		Amount:             req.Amount,
		BeneficiaryName:    req.BeneficiaryName,
		BeneficiaryAccount: req.BeneficiaryAccount,
		IFSC:               req.IFSC,
		BankName:           req.BankName,
		Mobile:             req.Mobile,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromRecord(rec))
}

// Status handles GET /api/v1/payout/:txn_id. With ?refresh=true the
// provider's status endpoint is consulted before answering, so a stalled
// payout can settle without waiting for its callback.
func (h *PayoutHandler) Status(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	txnID := c.Param("txn_id")

	var rec *domain.TransactionRecord
	var err error
	if c.Query("refresh") == "true" {
		rec, err = h.payoutSvc.PollStatus(c.Request.Context(), txnID)
	} else {
		rec, err = h.payoutSvc.Status(c.Request.Context(), txnID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if rec.MerchantID != merchantID {
		response.Error(c, apperror.ErrNotFound("transaction"))
		return
	}

	response.OK(c, dto.FromRecord(rec))
}
