package ports

import (
	"context"
	"time"

	"payment-aggregator/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByUsername(ctx context.Context, username string) (*domain.Merchant, error)
	UpdateProviders(ctx context.Context, id uuid.UUID, payinProvider, payoutProvider *string) error
	UpdateCallbackURLs(ctx context.Context, id uuid.UUID, payinURL, payoutURL *string) error
}

// WalletRepository defines persistence operations for merchant wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.Wallet, error)
	GetByMerchantIDForUpdate(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind domain.WalletKind, balance decimal.Decimal) error
}

// LedgerRepository defines persistence for the append-only ledger.
// Entries are write-once; there is no update operation by design.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByMerchant(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	GetLatest(ctx context.Context, merchantID uuid.UUID, kind domain.WalletKind) (*domain.LedgerEntry, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	MerchantID uuid.UUID
	WalletKind *domain.WalletKind
	Direction  *domain.EntryDirection
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// TransactionRepository defines persistence for transaction records.
type TransactionRepository interface {
	// Create inserts a new Pending record. A unique index on external_txn_id
	// rejects caller-side duplicate submission.
	Create(ctx context.Context, rec *domain.TransactionRecord) error
	// CreateInTx inserts a record as part of a larger storage transaction
	// (pay-out provisional debit, bank settlement).
	CreateInTx(ctx context.Context, tx pgx.Tx, rec *domain.TransactionRecord) error
	GetByExternalID(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error)
	// ClaimPending atomically transitions the record matching
	// (externalTxnID, status=Pending) to the given terminal status and
	// returns it. It returns (nil, nil) when no Pending record matched:
	// the callback is a duplicate or refers to an unknown transaction.
	ClaimPending(ctx context.Context, claim Claim) (*domain.TransactionRecord, error)
	// SetGatewayResult records the provider's acceptance artifacts on a
	// still-Pending record (reference, intent, QR).
	SetGatewayResult(ctx context.Context, id uuid.UUID, reference, intent, qrImage *string) error
	List(ctx context.Context, params TransactionListParams) ([]domain.TransactionRecord, int64, error)
}

// Claim is the atomic conditional status transition out of Pending.
type Claim struct {
	ExternalTxnID    string
	Status           domain.TransactionStatus
	UTR              *string
	GatewayReference *string
	FailureReason    *string
}

// TransactionListParams holds filter + pagination for listing records.
type TransactionListParams struct {
	MerchantID uuid.UUID
	Kind       *domain.TransactionKind
	Status     *domain.TransactionStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LeaseStore is the shared-store half of the leased keyed mutex: a lease
// record per resource with an expiry, renewable while held and reclaimable
// once expired.
type LeaseStore interface {
	// Acquire takes the lease for resourceID if it is free or expired.
	// Returns the lease id on success, "" if the lease is held elsewhere.
	Acquire(ctx context.Context, resourceID string, ttl time.Duration) (string, error)
	// Renew extends the lease's expiry if leaseID still owns it.
	Renew(ctx context.Context, resourceID, leaseID string, ttl time.Duration) (bool, error)
	// Release deletes the lease if leaseID still owns it.
	Release(ctx context.Context, resourceID, leaseID string) error
}
