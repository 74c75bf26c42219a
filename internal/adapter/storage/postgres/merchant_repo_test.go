package postgres

import (
	"context"
	"testing"
	"time"

	"payment-aggregator/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMerchant() *domain.Merchant {
	schedule := domain.CommissionSchedule{
		Threshold:    decimal.RequireFromString("1000"),
		BelowOrEqual: domain.ChargeTier{Kind: domain.ChargeKindFlat, Value: decimal.RequireFromString("10")},
		Above:        domain.ChargeTier{Kind: domain.ChargeKindPercentage, Value: decimal.RequireFromString("2")},
	}
	return &domain.Merchant{
		ID:               uuid.New(),
		Username:         "acme",
		PasswordHash:     "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		MerchantName:     "Acme Traders",
		SecretKey:        "whsec_abc123",
		PayinProvider:    "testpay",
		PayoutProvider:   "fintech",
		PayinCommission:  schedule,
		PayoutCommission: schedule,
		Status:           domain.MerchantStatusActive,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
}

func merchantColumnNames() []string {
	return []string{"id", "username", "password_hash", "merchant_name", "secret_key",
		"payin_provider", "payout_provider", "payin_callback_url", "payout_callback_url",
		"payin_charge_threshold", "payin_below_kind", "payin_below_value", "payin_above_kind", "payin_above_value",
		"payout_charge_threshold", "payout_below_kind", "payout_below_value", "payout_above_kind", "payout_above_value",
		"status", "created_at", "updated_at"}
}

func merchantRow(m *domain.Merchant) *pgxmock.Rows {
	return pgxmock.NewRows(merchantColumnNames()).AddRow(
		m.ID, m.Username, m.PasswordHash, m.MerchantName, m.SecretKey,
		m.PayinProvider, m.PayoutProvider, m.PayinCallbackURL, m.PayoutCallbackURL,
		m.PayinCommission.Threshold,
		m.PayinCommission.BelowOrEqual.Kind, m.PayinCommission.BelowOrEqual.Value,
		m.PayinCommission.Above.Kind, m.PayinCommission.Above.Value,
		m.PayoutCommission.Threshold,
		m.PayoutCommission.BelowOrEqual.Kind, m.PayoutCommission.BelowOrEqual.Value,
		m.PayoutCommission.Above.Kind, m.PayoutCommission.Above.Value,
		m.Status, m.CreatedAt, m.UpdatedAt,
	)
}

func TestMerchantRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	m := newTestMerchant()

	mock.ExpectExec("INSERT INTO merchants").
		WithArgs(m.ID, m.Username, m.PasswordHash, m.MerchantName, m.SecretKey,
			m.PayinProvider, m.PayoutProvider, m.PayinCallbackURL, m.PayoutCallbackURL,
			m.PayinCommission.Threshold,
			m.PayinCommission.BelowOrEqual.Kind, m.PayinCommission.BelowOrEqual.Value,
			m.PayinCommission.Above.Kind, m.PayinCommission.Above.Value,
			m.PayoutCommission.Threshold,
			m.PayoutCommission.BelowOrEqual.Kind, m.PayoutCommission.BelowOrEqual.Value,
			m.PayoutCommission.Above.Kind, m.PayoutCommission.Above.Value,
			m.Status, m.CreatedAt, m.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), m)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByUsername(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	m := newTestMerchant()

	mock.ExpectQuery("SELECT (.+) FROM merchants WHERE username").
		WithArgs(m.Username).
		WillReturnRows(merchantRow(m))

	got, err := repo.GetByUsername(context.Background(), m.Username)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, domain.ChargeKindFlat, got.PayinCommission.BelowOrEqual.Kind)
	assert.True(t, m.PayinCommission.Threshold.Equal(got.PayinCommission.Threshold))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM merchants WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(merchantColumnNames()))

	got, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_UpdateProviders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	id := uuid.New()
	payin := "upibridge"

	mock.ExpectExec("UPDATE merchants").
		WithArgs(&payin, (*string)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateProviders(context.Background(), id, &payin, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerchantRepo_UpdateCallbackURLs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMerchantRepo(mock)
	id := uuid.New()
	payinURL := "https://merchant.example.com/payin-hook"
	payoutURL := "https://merchant.example.com/payout-hook"

	mock.ExpectExec("UPDATE merchants").
		WithArgs(&payinURL, &payoutURL, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.UpdateCallbackURLs(context.Background(), id, &payinURL, &payoutURL)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
