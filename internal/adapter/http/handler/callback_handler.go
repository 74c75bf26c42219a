package handler

import (
	"strings"

	"payment-aggregator/internal/adapter/gateway"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"
	"payment-aggregator/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CallbackHandler receives provider callbacks, normalizes them into the
// common notice shape and feeds them to the callback processor. Duplicate
// and unknown callbacks are acknowledged, never errored, so providers stop
// retrying.
type CallbackHandler struct {
	callbackSvc ports.CallbackService
	upibridge   *gateway.UPIBridge // nil when the provider is not configured
	log         zerolog.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(callbackSvc ports.CallbackService, upibridge *gateway.UPIBridge, log zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{callbackSvc: callbackSvc, upibridge: upibridge, log: log}
}

type testPayCallback struct {
	OrderID   string `json:"order_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
	UTR       string `json:"utr"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// TestPayPayin handles POST /callback/testpay/payin.
func (h *CallbackHandler) TestPayPayin(c *gin.Context) {
	h.testPay(c, true)
}

// TestPayPayout handles POST /callback/testpay/payout.
func (h *CallbackHandler) TestPayPayout(c *gin.Context) {
	h.testPay(c, false)
}

func (h *CallbackHandler) testPay(c *gin.Context, payin bool) {
	var req testPayCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	notice := ports.CallbackNotice{
		ExternalTxnID:    req.OrderID,
		Success:          strings.EqualFold(req.Status, "success"),
		UTR:              req.UTR,
		GatewayReference: req.Reference,
		ProviderMessage:  req.Message,
	}
	h.process(c, "testpay", payin, notice)
}

type fintechCallback struct {
	OrderID   string `json:"orderId" binding:"required"`
	Status    string `json:"status" binding:"required"`
	UTR       string `json:"utr"`
	Reference string `json:"referenceId"`
	Message   string `json:"message"`
}

// FintechPayin handles POST /callback/fintech/payin.
func (h *CallbackHandler) FintechPayin(c *gin.Context) {
	h.fintech(c, true)
}

// FintechPayout handles POST /callback/fintech/payout.
func (h *CallbackHandler) FintechPayout(c *gin.Context) {
	h.fintech(c, false)
}

func (h *CallbackHandler) fintech(c *gin.Context, payin bool) {
	var req fintechCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	notice := ports.CallbackNotice{
		ExternalTxnID:    req.OrderID,
		Success:          req.Status == "SUCCESS",
		UTR:              req.UTR,
		GatewayReference: req.Reference,
		ProviderMessage:  req.Message,
	}
	h.process(c, "fintech", payin, notice)
}

type upiBridgeCallback struct {
	TxnID      string `form:"txnid" binding:"required"`
	Amount     string `form:"amount" binding:"required"`
	Status     string `form:"status" binding:"required"`
	Firstname  string `form:"firstname"`
	Email      string `form:"email"`
	Hash       string `form:"hash" binding:"required"`
	MihpayID   string `form:"mihpayid"`
	BankRefNum string `form:"bank_ref_num"`
	Error      string `form:"error_Message"`
}

// UPIBridge handles POST /callback/upibridge. The provider posts a
// form-encoded body whose hash must verify before the notice reaches the
// processor; a bad hash is a hard rejection, not an idempotent ack.
func (h *CallbackHandler) UPIBridge(c *gin.Context) {
	if h.upibridge == nil {
		response.Error(c, apperror.ErrUnknownProvider("upibridge"))
		return
	}

	var req upiBridgeCallback
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if !h.upibridge.VerifyCallbackHash(req.TxnID, req.Amount, req.Status, req.Firstname, req.Email, req.Hash) {
		h.log.Warn().Str("txnid", req.TxnID).Msg("upibridge callback hash mismatch")
		response.Error(c, apperror.ErrInvalidCallbackSignature())
		return
	}

	notice := ports.CallbackNotice{
		ExternalTxnID:    req.TxnID,
		Success:          req.Status == "success",
		UTR:              req.BankRefNum,
		GatewayReference: req.MihpayID,
		ProviderMessage:  req.Error,
	}
	h.process(c, "upibridge", true, notice)
}

func (h *CallbackHandler) process(c *gin.Context, provider string, payin bool, notice ports.CallbackNotice) {
	var result *ports.CallbackResult
	var err error
	if payin {
		result, err = h.callbackSvc.ProcessPayinCallback(c.Request.Context(), notice)
	} else {
		result, err = h.callbackSvc.ProcessPayoutCallback(c.Request.Context(), notice)
	}
	if err != nil {
		h.log.Error().Err(err).Str("provider", provider).Str("txn_id", notice.ExternalTxnID).Msg("callback processing failed")
		response.Error(c, err)
		return
	}

	if !result.Applied {
		h.log.Info().Str("provider", provider).Str("txn_id", notice.ExternalTxnID).Msg("callback ignored as duplicate or unknown")
	}
	response.OK(c, gin.H{"acknowledged": true, "applied": result.Applied})
}
