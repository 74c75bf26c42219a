package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of money movement a record tracks.
type TransactionKind string

const (
	TransactionKindPayin      TransactionKind = "PAYIN"
	TransactionKindPayout     TransactionKind = "PAYOUT"
	TransactionKindSettlement TransactionKind = "SETTLEMENT"
)

// TransactionStatus represents the lifecycle state of a transaction record.
// A record is created Pending and transitions to exactly one terminal state
// exactly once; that transition is the idempotency gate for callbacks.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// TransactionRecord is the request/response envelope for a pay-in, pay-out
// or settlement. ExternalTxnID is caller-supplied and unique across records.
type TransactionRecord struct {
	ID               uuid.UUID         `json:"id"`
	MerchantID       uuid.UUID         `json:"merchant_id"`
	ExternalTxnID    string            `json:"external_txn_id"`
	Kind             TransactionKind   `json:"kind"`
	Amount           decimal.Decimal   `json:"amount"`
	ChargeAmount     decimal.Decimal   `json:"charge_amount"`
	GatewayName      string            `json:"gateway_name"`
	Status           TransactionStatus `json:"status"`
	FailureReason    *string           `json:"failure_reason,omitempty"`
	GatewayReference *string           `json:"gateway_reference,omitempty"`
	UTR              *string           `json:"utr,omitempty"` // Bank reference reported on success
	PaymentIntent    *string           `json:"payment_intent,omitempty"`
	QRImage          *string           `json:"qr_image,omitempty"`

	// Pay-in payer details
	PayerName   string `json:"payer_name,omitempty"`
	PayerEmail  string `json:"payer_email,omitempty"`
	PayerMobile string `json:"payer_mobile,omitempty"`

	// Pay-out / settlement beneficiary details
	BeneficiaryName    string `json:"beneficiary_name,omitempty"`
	BeneficiaryAccount string `json:"beneficiary_account,omitempty"`
	BeneficiaryIFSC    string `json:"beneficiary_ifsc,omitempty"`
	BankName           string `json:"bank_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal returns true if the record reached a final state.
func (t *TransactionRecord) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}

// NetAmount is the amount credited to the collection wallet for a
// successful pay-in: the collected amount minus the commission charge.
func (t *TransactionRecord) NetAmount() decimal.Decimal {
	return t.Amount.Sub(t.ChargeAmount)
}

// GrossAmount is the total debited from the disbursement wallet for a
// pay-out: the disbursed amount plus the commission charge.
func (t *TransactionRecord) GrossAmount() decimal.Decimal {
	return t.Amount.Add(t.ChargeAmount)
}
