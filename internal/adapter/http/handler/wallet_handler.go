package handler

import (
	"strconv"
	"time"

	"payment-aggregator/internal/adapter/http/dto"
	"payment-aggregator/internal/adapter/http/middleware"
	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"
	"payment-aggregator/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet, ledger and transaction listing endpoints.
type WalletHandler struct {
	settlementSvc ports.SettlementService
	reportingSvc  ports.ReportingService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(settlementSvc ports.SettlementService, reportingSvc ports.ReportingService) *WalletHandler {
	return &WalletHandler{settlementSvc: settlementSvc, reportingSvc: reportingSvc}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.reportingSvc.GetWallet(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromWallet(wallet))
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	err := h.settlementSvc.TransferBetweenWallets(c.Request.Context(), merchantID,
		domain.WalletKind(req.From), domain.WalletKind(req.To), req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	wallet, err := h.reportingSvc.GetWallet(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromWallet(wallet))
}

// BankSettlement handles POST /api/v1/wallet/settlement.
func (h *WalletHandler) BankSettlement(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.BankSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rec, err := h.settlementSvc.BankSettlement(c.Request.Context(), ports.BankSettlementRequest{
		MerchantID:         merchantID,
		ExternalTxnID:      req.TxnID,
		Amount:             req.Amount,
		ChargeAmount:       req.ChargeAmount,
		BeneficiaryName:    req.BeneficiaryName,
		BeneficiaryAccount: req.BeneficiaryAccount,
		IFSC:               req.IFSC,
		BankName:           req.BankName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromRecord(rec))
}

// ListLedger handles GET /api/v1/ledger.
func (h *WalletHandler) ListLedger(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := pagination(c)
	params := ports.LedgerListParams{
		MerchantID: merchantID,
		Page:       page,
		PageSize:   pageSize,
	}
	if kind := c.Query("wallet"); kind != "" {
		wk := domain.WalletKind(kind)
		if wk != domain.WalletKindCollection && wk != domain.WalletKindDisbursement {
			response.Error(c, apperror.Validation("wallet must be COLLECTION or DISBURSEMENT"))
			return
		}
		params.WalletKind = &wk
	}
	if dir := c.Query("direction"); dir != "" {
		d := domain.EntryDirection(dir)
		if d != domain.EntryDirectionCredit && d != domain.EntryDirectionDebit {
			response.Error(c, apperror.Validation("direction must be CREDIT or DEBIT"))
			return
		}
		params.Direction = &d
	}
	var err error
	if params.From, params.To, err = timeRange(c); err != nil {
		response.Error(c, err)
		return
	}

	entries, total, err := h.reportingSvc.ListLedger(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.FromLedgerEntry(&entries[i]))
	}
	response.OK(c, dto.NewListResponse(items, total, page, pageSize))
}

// ListTransactions handles GET /api/v1/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, pageSize := pagination(c)
	params := ports.TransactionListParams{
		MerchantID: merchantID,
		Page:       page,
		PageSize:   pageSize,
	}
	if kind := c.Query("kind"); kind != "" {
		k := domain.TransactionKind(kind)
		switch k {
		case domain.TransactionKindPayin, domain.TransactionKindPayout, domain.TransactionKindSettlement:
			params.Kind = &k
		default:
			response.Error(c, apperror.Validation("kind must be PAYIN, PAYOUT or SETTLEMENT"))
			return
		}
	}
	if status := c.Query("status"); status != "" {
		s := domain.TransactionStatus(status)
		switch s {
		case domain.TransactionStatusPending, domain.TransactionStatusSuccess, domain.TransactionStatusFailed:
			params.Status = &s
		default:
			response.Error(c, apperror.Validation("status must be PENDING, SUCCESS or FAILED"))
			return
		}
	}
	var err error
	if params.From, params.To, err = timeRange(c); err != nil {
		response.Error(c, err)
		return
	}

	records, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.FromRecord(&records[i]))
	}
	response.OK(c, dto.NewListResponse(items, total, page, pageSize))
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func timeRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, apperror.Validation("from must be an RFC3339 timestamp")
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, apperror.Validation("to must be an RFC3339 timestamp")
		}
		to = &t
	}
	return from, to, nil
}
