package dto

import (
	"time"

	"payment-aggregator/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CommissionTier mirrors one tier of a commission schedule.
type CommissionTier struct {
	Kind  string          `json:"kind" binding:"required,oneof=FLAT PERCENTAGE"`
	Value decimal.Decimal `json:"value" binding:"required"`
}

// CommissionSchedule mirrors a two-tier commission configuration.
type CommissionSchedule struct {
	Threshold    decimal.Decimal `json:"threshold" binding:"required"`
	BelowOrEqual CommissionTier  `json:"below_or_equal" binding:"required"`
	Above        CommissionTier  `json:"above" binding:"required"`
}

// ToDomain converts the schedule into its domain form.
func (s CommissionSchedule) ToDomain() domain.CommissionSchedule {
	return domain.CommissionSchedule{
		Threshold:    s.Threshold,
		BelowOrEqual: domain.ChargeTier{Kind: domain.ChargeKind(s.BelowOrEqual.Kind), Value: s.BelowOrEqual.Value},
		Above:        domain.ChargeTier{Kind: domain.ChargeKind(s.Above.Kind), Value: s.Above.Value},
	}
}

// RegisterRequest is the request body for merchant registration.
type RegisterRequest struct {
	Username           string             `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password           string             `json:"password" binding:"required,min=8,max=128"`
	MerchantName       string             `json:"merchant_name" binding:"required,min=1,max=100"`
	PayinProvider      string             `json:"payin_provider" binding:"required"`
	PayoutProvider     string             `json:"payout_provider" binding:"required"`
	PayinCommission    CommissionSchedule `json:"payin_commission" binding:"required"`
	PayoutCommission   CommissionSchedule `json:"payout_commission" binding:"required"`
	MinRetainedBalance decimal.Decimal    `json:"min_retained_balance"`
}

// RegisterResponse is the response body for successful registration.
// The secret key is shown in plaintext only here.
type RegisterResponse struct {
	MerchantID string `json:"merchant_id"`
	SecretKey  string `json:"secret_key"`
}

// LoginRequest is the request body for merchant login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// PayinRequest is the request body for generating a collection.
type PayinRequest struct {
	TxnID       string          `json:"txn_id" binding:"required,max=100,safe_id"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PayerName   string          `json:"payer_name" binding:"required,max=100"`
	PayerEmail  string          `json:"payer_email" binding:"required,email"`
	PayerMobile string          `json:"payer_mobile" binding:"required,min=10,max=15"`
	DeviceInfo  string          `json:"device_info,omitempty"`
}

// PayoutRequest is the request body for initiating a disbursement.
type PayoutRequest struct {
	TxnID              string          `json:"txn_id" binding:"required,max=100,safe_id"`
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	BeneficiaryName    string          `json:"beneficiary_name" binding:"required,max=100"`
	BeneficiaryAccount string          `json:"beneficiary_account" binding:"required,max=34"`
	IFSC               string          `json:"ifsc" binding:"required,max=11"`
	BankName           string          `json:"bank_name,omitempty"`
	Mobile             string          `json:"mobile,omitempty"`
}

// TransferRequest moves funds between the merchant's two wallets.
type TransferRequest struct {
	From   string          `json:"from" binding:"required,oneof=COLLECTION DISBURSEMENT"`
	To     string          `json:"to" binding:"required,oneof=COLLECTION DISBURSEMENT"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// BankSettlementRequest settles collection funds to the merchant's bank.
type BankSettlementRequest struct {
	TxnID              string          `json:"txn_id" binding:"required,max=100,safe_id"`
	Amount             decimal.Decimal `json:"amount" binding:"required"`
	ChargeAmount       decimal.Decimal `json:"charge_amount"`
	BeneficiaryName    string          `json:"beneficiary_name" binding:"required,max=100"`
	BeneficiaryAccount string          `json:"beneficiary_account" binding:"required,max=34"`
	IFSC               string          `json:"ifsc" binding:"required,max=11"`
	BankName           string          `json:"bank_name,omitempty"`
}

// SwitchProvidersRequest changes the merchant's active gateway per direction.
type SwitchProvidersRequest struct {
	PayinProvider  *string `json:"payin_provider,omitempty"`
	PayoutProvider *string `json:"payout_provider,omitempty"`
}

// UpdateCallbackURLsRequest replaces the merchant's notification endpoints.
type UpdateCallbackURLsRequest struct {
	PayinCallbackURL  *string `json:"payin_callback_url,omitempty" binding:"omitempty,safe_url"`
	PayoutCallbackURL *string `json:"payout_callback_url,omitempty" binding:"omitempty,safe_url"`
}

// TransactionResponse is the client view of a transaction record.
type TransactionResponse struct {
	TxnID            string          `json:"txn_id"`
	Kind             string          `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	ChargeAmount     decimal.Decimal `json:"charge_amount"`
	Gateway          string          `json:"gateway"`
	Status           string          `json:"status"`
	FailureReason    *string         `json:"failure_reason,omitempty"`
	GatewayReference *string         `json:"gateway_reference,omitempty"`
	UTR              *string         `json:"utr,omitempty"`
	PaymentIntent    *string         `json:"payment_intent,omitempty"`
	QRImage          *string         `json:"qr_image,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// FromRecord maps a domain record into its response shape.
func FromRecord(rec *domain.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		TxnID:            rec.ExternalTxnID,
		Kind:             string(rec.Kind),
		Amount:           rec.Amount,
		ChargeAmount:     rec.ChargeAmount,
		Gateway:          rec.GatewayName,
		Status:           string(rec.Status),
		FailureReason:    rec.FailureReason,
		GatewayReference: rec.GatewayReference,
		UTR:              rec.UTR,
		PaymentIntent:    rec.PaymentIntent,
		QRImage:          rec.QRImage,
		CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        rec.UpdatedAt.Format(time.RFC3339),
	}
}

// WalletResponse is the client view of the merchant's wallet.
type WalletResponse struct {
	CollectionBalance   decimal.Decimal `json:"collection_balance"`
	DisbursementBalance decimal.Decimal `json:"disbursement_balance"`
	MinRetainedBalance  decimal.Decimal `json:"min_retained_balance"`
}

// FromWallet maps a domain wallet into its response shape.
func FromWallet(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		CollectionBalance:   w.CollectionBalance,
		DisbursementBalance: w.DisbursementBalance,
		MinRetainedBalance:  w.MinRetainedBalance,
	}
}

// LedgerEntryResponse is the client view of one ledger entry.
type LedgerEntryResponse struct {
	WalletKind           string          `json:"wallet_kind"`
	Direction            string          `json:"direction"`
	Amount               decimal.Decimal `json:"amount"`
	ChargeAmount         decimal.Decimal `json:"charge_amount"`
	BeforeBalance        decimal.Decimal `json:"before_balance"`
	AfterBalance         decimal.Decimal `json:"after_balance"`
	RelatedTransactionID string          `json:"related_transaction_id"`
	Description          string          `json:"description"`
	CreatedAt            string          `json:"created_at"`
}

// FromLedgerEntry maps a domain ledger entry into its response shape.
func FromLedgerEntry(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		WalletKind:           string(e.WalletKind),
		Direction:            string(e.Direction),
		Amount:               e.Amount,
		ChargeAmount:         e.ChargeAmount,
		BeforeBalance:        e.BeforeBalance,
		AfterBalance:         e.AfterBalance,
		RelatedTransactionID: e.RelatedTransactionID,
		Description:          e.Description,
		CreatedAt:            e.CreatedAt.Format(time.RFC3339),
	}
}

// ListResponse wraps a paginated collection.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewListResponse builds the pagination envelope.
func NewListResponse[T any](items []T, total int64, page, pageSize int) ListResponse[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return ListResponse[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

