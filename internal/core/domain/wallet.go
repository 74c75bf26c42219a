package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKind identifies one of the two balances every merchant holds.
type WalletKind string

const (
	WalletKindCollection   WalletKind = "COLLECTION"
	WalletKindDisbursement WalletKind = "DISBURSEMENT"
)

// Wallet holds a merchant's two independent balances. Balances are mutated
// only by the settlement engine, under that merchant's keyed mutex.
// MinRetainedBalance is a floor enforced on disbursement debits only.
type Wallet struct {
	ID                  uuid.UUID       `json:"id"`
	MerchantID          uuid.UUID       `json:"merchant_id"`
	CollectionBalance   decimal.Decimal `json:"collection_balance"`
	DisbursementBalance decimal.Decimal `json:"disbursement_balance"`
	MinRetainedBalance  decimal.Decimal `json:"min_retained_balance"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Balance returns the balance for the given wallet kind.
func (w *Wallet) Balance(kind WalletKind) decimal.Decimal {
	if kind == WalletKindDisbursement {
		return w.DisbursementBalance
	}
	return w.CollectionBalance
}

// Floor returns the minimum balance the given wallet kind must retain
// after a debit. Only the disbursement wallet carries a floor.
func (w *Wallet) Floor(kind WalletKind) decimal.Decimal {
	if kind == WalletKindDisbursement {
		return w.MinRetainedBalance
	}
	return decimal.Zero
}

// SetBalance replaces the balance for the given wallet kind.
func (w *Wallet) SetBalance(kind WalletKind, balance decimal.Decimal) {
	if kind == WalletKindDisbursement {
		w.DisbursementBalance = balance
		return
	}
	w.CollectionBalance = balance
}
