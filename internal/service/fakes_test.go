package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/internal/lock"
	"payment-aggregator/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.merchants {
		if existing.Username == m.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMerchantRepo) GetByUsername(ctx context.Context, username string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryMerchantRepo) UpdateProviders(ctx context.Context, id uuid.UUID, payinProvider, payoutProvider *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok {
		return fmt.Errorf("merchant not found")
	}
	if payinProvider != nil {
		m.PayinProvider = *payinProvider
	}
	if payoutProvider != nil {
		m.PayoutProvider = *payoutProvider
	}
	return nil
}

func (r *inMemoryMerchantRepo) UpdateCallbackURLs(ctx context.Context, id uuid.UUID, payinURL, payoutURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[id]
	if !ok {
		return fmt.Errorf("merchant not found")
	}
	if payinURL != nil {
		m.PayinCallbackURL = payinURL
	}
	if payoutURL != nil {
		m.PayoutCallbackURL = payoutURL
	}
	return nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.MerchantID == merchantID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByMerchantIDForUpdate(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByMerchantID(ctx, merchantID)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, kind domain.WalletKind, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.SetBalance(kind, balance)
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryLedgerRepo) ListByMerchant(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEntry
	for _, e := range r.entries {
		if e.MerchantID != params.MerchantID {
			continue
		}
		if params.WalletKind != nil && e.WalletKind != *params.WalletKind {
			continue
		}
		if params.Direction != nil && e.Direction != *params.Direction {
			continue
		}
		result = append(result, e)
	}
	return result, int64(len(result)), nil
}

func (r *inMemoryLedgerRepo) GetLatest(ctx context.Context, merchantID uuid.UUID, kind domain.WalletKind) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.MerchantID == merchantID && e.WalletKind == kind {
			return &e, nil
		}
	}
	return nil, nil
}

// all returns a snapshot of every entry, in append order.
func (r *inMemoryLedgerRepo) all() []domain.LedgerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LedgerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.TransactionRecord
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{records: make(map[string]*domain.TransactionRecord)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, rec *domain.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ExternalTxnID]; exists {
		return apperror.ErrDuplicateTransaction()
	}
	cp := *rec
	r.records[rec.ExternalTxnID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) CreateInTx(ctx context.Context, tx pgx.Tx, rec *domain.TransactionRecord) error {
	return r.Create(ctx, rec)
}

func (r *inMemoryTransactionRepo) GetByExternalID(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[externalTxnID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryTransactionRepo) ClaimPending(ctx context.Context, claim ports.Claim) (*domain.TransactionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[claim.ExternalTxnID]
	if !ok || rec.Status != domain.TransactionStatusPending {
		return nil, nil
	}
	rec.Status = claim.Status
	if claim.UTR != nil {
		rec.UTR = claim.UTR
	}
	if claim.GatewayReference != nil {
		rec.GatewayReference = claim.GatewayReference
	}
	rec.FailureReason = claim.FailureReason
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	return &cp, nil
}

func (r *inMemoryTransactionRepo) SetGatewayResult(ctx context.Context, id uuid.UUID, reference, intent, qrImage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID != id {
			continue
		}
		if reference != nil {
			rec.GatewayReference = reference
		}
		if intent != nil {
			rec.PaymentIntent = intent
		}
		if qrImage != nil {
			rec.QRImage = qrImage
		}
		return nil
	}
	return fmt.Errorf("transaction not found")
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.TransactionRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.TransactionRecord
	for _, rec := range r.records {
		if rec.MerchantID != params.MerchantID {
			continue
		}
		if params.Kind != nil && rec.Kind != *params.Kind {
			continue
		}
		if params.Status != nil && rec.Status != *params.Status {
			continue
		}
		result = append(result, *rec)
	}
	return result, int64(len(result)), nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- Fake Gateway Adapter & Registry ---

// fakeAdapter is a scriptable gateway adapter. Zero value accepts
// everything with a canned reference.
type fakeAdapter struct {
	mu   sync.Mutex
	name string

	payinResult  *ports.InitiationResult
	payinErr     error
	payoutResult *ports.InitiationResult
	payoutErr    error
	pollNotice   *ports.CallbackNotice
	pollErr      error

	lastPayin  *ports.PayinInitiation
	lastPayout *ports.PayoutInitiation
	pollCalls  int
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name}
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) InitiatePayin(ctx context.Context, req ports.PayinInitiation) (*ports.InitiationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastPayin = &req
	if a.payinErr != nil {
		return nil, a.payinErr
	}
	if a.payinResult != nil {
		return a.payinResult, nil
	}
	return &ports.InitiationResult{Accepted: true, GatewayReference: "REF-" + req.ExternalTxnID}, nil
}

func (a *fakeAdapter) InitiatePayout(ctx context.Context, req ports.PayoutInitiation) (*ports.InitiationResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastPayout = &req
	if a.payoutErr != nil {
		return nil, a.payoutErr
	}
	if a.payoutResult != nil {
		return a.payoutResult, nil
	}
	return &ports.InitiationResult{Accepted: true, GatewayReference: "REF-" + req.ExternalTxnID}, nil
}

func (a *fakeAdapter) CheckPayoutStatus(ctx context.Context, externalTxnID string) (*ports.CallbackNotice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pollCalls++
	if a.pollErr != nil {
		return nil, a.pollErr
	}
	return a.pollNotice, nil
}

type fakeRegistry struct {
	adapters map[string]ports.GatewayAdapter
}

func newFakeRegistry(adapters ...ports.GatewayAdapter) *fakeRegistry {
	r := &fakeRegistry{adapters: make(map[string]ports.GatewayAdapter)}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *fakeRegistry) Get(name string) (ports.GatewayAdapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// --- Fake Notifier ---

type notifyCall struct {
	MerchantID   uuid.UUID
	Kind         domain.TransactionKind
	Notification ports.Notification
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) Notify(ctx context.Context, merchantID uuid.UUID, kind domain.TransactionKind, notification ports.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{MerchantID: merchantID, Kind: kind, Notification: notification})
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *fakeNotifier) last() *notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return nil
	}
	c := n.calls[len(n.calls)-1]
	return &c
}

// --- Fixture ---

// fixture wires the in-memory repos into a full service stack backed by
// the real settlement engine and an in-process keyed mutex.
type fixture struct {
	merchants *inMemoryMerchantRepo
	wallets   *inMemoryWalletRepo
	ledger    *inMemoryLedgerRepo
	txns      *inMemoryTransactionRepo
	mutex     *lock.Local
	adapter   *fakeAdapter
	registry  *fakeRegistry
	notifier  *fakeNotifier
	engine    *SettlementEngine
	callbacks *CallbackProcessor
	payin     *PayinServiceImpl
	payout    *PayoutServiceImpl

	merchant *domain.Merchant
	wallet   *domain.Wallet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		merchants: newInMemoryMerchantRepo(),
		wallets:   newInMemoryWalletRepo(),
		ledger:    newInMemoryLedgerRepo(),
		txns:      newInMemoryTransactionRepo(),
		mutex:     lock.NewLocal(),
		adapter:   newFakeAdapter("testpay"),
		notifier:  &fakeNotifier{},
	}
	f.registry = newFakeRegistry(f.adapter)

	log := zerolog.Nop()
	transactor := &inMemoryTransactor{}
	f.engine = NewSettlementEngine(f.wallets, f.ledger, f.txns, transactor, f.mutex, log)
	f.callbacks = NewCallbackProcessor(f.txns, f.mutex, f.engine, f.notifier, log)
	f.payin = NewPayinService(f.merchants, f.txns, f.registry, log)
	f.payout = NewPayoutService(
		f.merchants, f.wallets, f.ledger, f.txns, transactor,
		f.registry, f.mutex, f.engine, f.callbacks, log,
	)

	now := time.Now().UTC()
	f.merchant = &domain.Merchant{
		ID:             uuid.New(),
		Username:       "acme",
		MerchantName:   "Acme Traders",
		SecretKey:      "test-secret-key",
		PayinProvider:  "testpay",
		PayoutProvider: "testpay",
		PayinCommission: domain.CommissionSchedule{
			Threshold:    decimal.NewFromInt(1000),
			BelowOrEqual: domain.ChargeTier{Kind: domain.ChargeKindFlat, Value: decimal.NewFromInt(5)},
			Above:        domain.ChargeTier{Kind: domain.ChargeKindPercentage, Value: decimal.NewFromInt(2)},
		},
		PayoutCommission: domain.CommissionSchedule{
			Threshold:    decimal.NewFromInt(1000),
			BelowOrEqual: domain.ChargeTier{Kind: domain.ChargeKindFlat, Value: decimal.NewFromInt(10)},
			Above:        domain.ChargeTier{Kind: domain.ChargeKindPercentage, Value: decimal.NewFromInt(1)},
		},
		Status:    domain.MerchantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.merchants.Create(context.Background(), f.merchant); err != nil {
		t.Fatalf("seed merchant: %v", err)
	}

	f.wallet = &domain.Wallet{
		ID:                  uuid.New(),
		MerchantID:          f.merchant.ID,
		CollectionBalance:   decimal.NewFromInt(1000),
		DisbursementBalance: decimal.NewFromInt(1000),
		MinRetainedBalance:  decimal.NewFromInt(100),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := f.wallets.Create(context.Background(), f.wallet); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return f
}

// balance reads the current balance of the merchant's wallet kind.
func (f *fixture) balance(t *testing.T, kind domain.WalletKind) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByMerchantID(context.Background(), f.merchant.ID)
	if err != nil || w == nil {
		t.Fatalf("fetch wallet: %v", err)
	}
	return w.Balance(kind)
}

// record reads the stored record for the external transaction id.
func (f *fixture) record(t *testing.T, externalTxnID string) *domain.TransactionRecord {
	t.Helper()
	rec, err := f.txns.GetByExternalID(context.Background(), externalTxnID)
	if err != nil {
		t.Fatalf("fetch record: %v", err)
	}
	return rec
}

// --- Fake HTTP Client ---

type fakeHTTPClient struct {
	status   int
	err      error
	requests chan *http.Request
	bodies   chan []byte
}

func newFakeHTTPClient(status int) *fakeHTTPClient {
	return &fakeHTTPClient{
		status:   status,
		requests: make(chan *http.Request, 8),
		bodies:   make(chan []byte, 8),
	}
}

func (c *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	var body []byte
	if req.Body != nil {
		buf := make([]byte, 64*1024)
		n, _ := req.Body.Read(buf)
		body = buf[:n]
		req.Body.Close()
	}
	c.requests <- req
	c.bodies <- body
	return &http.Response{StatusCode: c.status, Body: http.NoBody}, nil
}
