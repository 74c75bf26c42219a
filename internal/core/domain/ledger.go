package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryDirection is the direction of a ledger entry.
type EntryDirection string

const (
	EntryDirectionCredit EntryDirection = "CREDIT"
	EntryDirectionDebit  EntryDirection = "DEBIT"
)

// LedgerEntry is the immutable record of one balance mutation. Entries are
// write-once and are the sole source of truth for balance reconstruction:
// a credit moves the balance from BeforeBalance to BeforeBalance+Amount,
// a debit to BeforeBalance-(Amount+ChargeAmount).
type LedgerEntry struct {
	ID                   uuid.UUID       `json:"id"`
	MerchantID           uuid.UUID       `json:"merchant_id"`
	WalletKind           WalletKind      `json:"wallet_kind"`
	Direction            EntryDirection  `json:"direction"`
	Amount               decimal.Decimal `json:"amount"`
	ChargeAmount         decimal.Decimal `json:"charge_amount"`
	BeforeBalance        decimal.Decimal `json:"before_balance"`
	AfterBalance         decimal.Decimal `json:"after_balance"`
	RelatedTransactionID string          `json:"related_transaction_id"`
	Description          string          `json:"description"`
	CreatedAt            time.Time       `json:"created_at"`
}

// Delta returns the signed balance movement this entry records.
func (e *LedgerEntry) Delta() decimal.Decimal {
	if e.Direction == EntryDirectionDebit {
		return e.Amount.Add(e.ChargeAmount).Neg()
	}
	return e.Amount
}

// Reconciles reports whether the before/after pair matches the entry's
// amount and direction exactly.
func (e *LedgerEntry) Reconciles() bool {
	return e.BeforeBalance.Add(e.Delta()).Equal(e.AfterBalance)
}
