package handler

import (
	"payment-aggregator/internal/adapter/http/dto"
	"payment-aggregator/internal/adapter/http/middleware"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"
	"payment-aggregator/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles merchant self-service endpoints.
type MerchantHandler struct {
	merchantSvc ports.MerchantManagementService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantManagementService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc}
}

// GetProfile handles GET /api/v1/merchant/me.
func (h *MerchantHandler) GetProfile(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	profile, err := h.merchantSvc.GetProfile(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, profile)
}

// SwitchProviders handles PUT /api/v1/merchant/me/providers.
func (h *MerchantHandler) SwitchProviders(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SwitchProvidersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.merchantSvc.SwitchProviders(c.Request.Context(), merchantID, req.PayinProvider, req.PayoutProvider); err != nil {
		response.Error(c, err)
		return
	}

	profile, err := h.merchantSvc.GetProfile(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, profile)
}

// UpdateCallbackURLs handles PUT /api/v1/merchant/me/callback-urls.
func (h *MerchantHandler) UpdateCallbackURLs(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.UpdateCallbackURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.merchantSvc.UpdateCallbackURLs(c.Request.Context(), merchantID, req.PayinCallbackURL, req.PayoutCallbackURL); err != nil {
		response.Error(c, err)
		return
	}

	profile, err := h.merchantSvc.GetProfile(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, profile)
}
