package ports

import (
	"context"
	"time"

	"payment-aggregator/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KeyedMutex serializes critical sections per key. At most one critical
// section for a given key runs at any time; callers for other keys are
// unaffected. The key is the merchant id.
type KeyedMutex interface {
	RunExclusive(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// SettlementResult reports the balance movement of one settlement.
type SettlementResult struct {
	BeforeBalance decimal.Decimal
	AfterBalance  decimal.Decimal
}

// SettlementRequest describes one balance mutation paired with one ledger entry.
type SettlementRequest struct {
	MerchantID           uuid.UUID
	WalletKind           domain.WalletKind
	Direction            domain.EntryDirection
	Amount               decimal.Decimal
	ChargeAmount         decimal.Decimal
	RelatedTransactionID string
	Description          string
}

// BankSettlementRequest debits the collection wallet and records a
// settlement transaction towards the merchant's bank account.
type BankSettlementRequest struct {
	MerchantID         uuid.UUID
	ExternalTxnID      string
	Amount             decimal.Decimal
	ChargeAmount       decimal.Decimal
	BeneficiaryName    string
	BeneficiaryAccount string
	IFSC               string
	BankName           string
}

// SettlementService is the engine that mutates wallet balances. Every
// mutation commits atomically with exactly one ledger entry. Settle and
// TransferBetweenWallets must be invoked while holding the merchant's
// KeyedMutex; the convenience flows acquire it themselves.
type SettlementService interface {
	// Settle performs one floor-checked balance mutation plus ledger append
	// in a single storage transaction. Caller must hold the merchant's mutex.
	Settle(ctx context.Context, req SettlementRequest) (*SettlementResult, error)
	// TransferBetweenWallets moves amount between the merchant's two wallets:
	// a debit entry and a credit entry in one storage transaction.
	TransferBetweenWallets(ctx context.Context, merchantID uuid.UUID, from, to domain.WalletKind, amount decimal.Decimal) error
	// BankSettlement debits amount+charge from the collection wallet and
	// creates a Pending settlement record, all in one storage transaction.
	BankSettlement(ctx context.Context, req BankSettlementRequest) (*domain.TransactionRecord, error)
}

// PayinRequest is the validated intake for generating a collection.
type PayinRequest struct {
	MerchantID    uuid.UUID
	ExternalTxnID string
	Amount        decimal.Decimal
	PayerName     string
	PayerEmail    string
	PayerMobile   string
	ClientIP      string
	DeviceInfo    string
}

// PayinService handles pay-in generation and status queries.
type PayinService interface {
	Generate(ctx context.Context, req PayinRequest) (*domain.TransactionRecord, error)
	// Status is the authoritative status query by external transaction id.
	Status(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error)
}

// PayoutRequest is the validated intake for initiating a disbursement.
type PayoutRequest struct {
	MerchantID         uuid.UUID
	ExternalTxnID      string
	Amount             decimal.Decimal
	BeneficiaryName    string
	BeneficiaryAccount string
	IFSC               string
	BankName           string
	Mobile             string
}

// PayoutService handles pay-out initiation and status polling. The wallet
// debit and floor check happen synchronously at initiation, inside the
// merchant's mutex; the later callback only confirms or reverses it.
type PayoutService interface {
	Generate(ctx context.Context, req PayoutRequest) (*domain.TransactionRecord, error)
	Status(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error)
	// PollStatus queries the provider's status endpoint and feeds the result
	// through the callback processor's claim path.
	PollStatus(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error)
}

// CallbackResult is the outcome of processing one provider callback.
type CallbackResult struct {
	// Applied is false when the claim found no Pending record: the callback
	// is a duplicate or unknown and was answered as an idempotent no-op.
	Applied bool
	Record  *domain.TransactionRecord
}

// CallbackService consumes normalized provider callbacks and drives the
// transaction state machine plus the settlement engine.
type CallbackService interface {
	ProcessPayinCallback(ctx context.Context, notice CallbackNotice) (*CallbackResult, error)
	ProcessPayoutCallback(ctx context.Context, notice CallbackNotice) (*CallbackResult, error)
}

// Notification is the best-effort outbound merchant notification, sent
// after the ledger commit. Delivery failure is logged and never retried.
type Notification struct {
	Event         string          `json:"event"`
	ExternalTxnID string          `json:"txn_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	ChargeAmount  decimal.Decimal `json:"charge_amount"`
	UTR           *string         `json:"utr"`
	StartedAt     time.Time       `json:"txn_start_date"`
	CompletedAt   time.Time       `json:"txn_complete_date"`
	Message       string          `json:"message"`
}

// NotifierService delivers outcome notifications to merchant callback URLs.
type NotifierService interface {
	Notify(ctx context.Context, merchantID uuid.UUID, kind domain.TransactionKind, n Notification)
}

// ReportingService exposes read-only views over wallets, ledgers and records.
type ReportingService interface {
	GetWallet(ctx context.Context, merchantID uuid.UUID) (*domain.Wallet, error)
	ListLedger(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.TransactionRecord, int64, error)
}

// MerchantProfile is the merchant's own view of their account.
type MerchantProfile struct {
	ID                uuid.UUID `json:"id"`
	Username          string    `json:"username"`
	MerchantName      string    `json:"merchant_name"`
	PayinProvider     string    `json:"payin_provider"`
	PayoutProvider    string    `json:"payout_provider"`
	PayinCallbackURL  *string   `json:"payin_callback_url,omitempty"`
	PayoutCallbackURL *string   `json:"payout_callback_url,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         string    `json:"created_at"`
}

// MerchantManagementService covers merchant self-service operations:
// profile, provider switching and notification endpoints.
type MerchantManagementService interface {
	GetProfile(ctx context.Context, merchantID uuid.UUID) (*MerchantProfile, error)
	// SwitchProviders changes the active pay-in and/or pay-out provider.
	// Nil leaves a direction unchanged; names must be registered adapters.
	SwitchProviders(ctx context.Context, merchantID uuid.UUID, payinProvider, payoutProvider *string) error
	UpdateCallbackURLs(ctx context.Context, merchantID uuid.UUID, payinURL, payoutURL *string) error
}

// RegisterRequest provisions a new merchant account.
type RegisterRequest struct {
	Username           string
	Password           string
	MerchantName       string
	PayinProvider      string
	PayoutProvider     string
	PayinCommission    domain.CommissionSchedule
	PayoutCommission   domain.CommissionSchedule
	MinRetainedBalance decimal.Decimal
}

// RegisterResponse returns the new account's credentials. The secret key
// signs outbound notifications and is shown in plaintext only here.
type RegisterResponse struct {
	MerchantID uuid.UUID `json:"merchant_id"`
	SecretKey  string    `json:"secret_key"`
}

// AuthService defines merchant registration and authentication.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(merchantID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (uuid.UUID, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// SignatureService handles HMAC-SHA256 signing of outbound notifications.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}
