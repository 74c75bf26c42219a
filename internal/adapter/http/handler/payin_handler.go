package handler

import (
	"payment-aggregator/internal/adapter/http/dto"
	"payment-aggregator/internal/adapter/http/middleware"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"
	"payment-aggregator/pkg/response"

	"github.com/gin-gonic/gin"
)

// PayinHandler handles collection endpoints.
type PayinHandler struct {
	payinSvc ports.PayinService
}

// NewPayinHandler creates a new PayinHandler.
func NewPayinHandler(payinSvc ports.PayinService) *PayinHandler {
	return &PayinHandler{payinSvc: payinSvc}
}

// Generate handles POST /api/v1/payin.
func (h *PayinHandler) Generate(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PayinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rec, err := h.payinSvc.Generate(c.Request.Context(), ports.PayinRequest{
		MerchantID:    merchantID,
		ExternalTxnID: req.TxnID,
		Amount:        req.Amount,
		PayerName:     req.PayerName,
		PayerEmail:    req.PayerEmail,
		PayerMobile:   req.PayerMobile,
		ClientIP:      c.ClientIP(),
		DeviceInfo:    req.DeviceInfo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromRecord(rec))
}

// Status handles GET /api/v1/payin/:txn_id.
func (h *PayinHandler) Status(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	rec, err := h.payinSvc.Status(c.Request.Context(), c.Param("txn_id"))
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
