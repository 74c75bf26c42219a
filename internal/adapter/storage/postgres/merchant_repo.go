package postgres

import (
	"context"
	"errors"
	"fmt"

	"payment-aggregator/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

const merchantColumns = `id, username, password_hash, merchant_name, secret_key,
		payin_provider, payout_provider, payin_callback_url, payout_callback_url,
		payin_charge_threshold, payin_below_kind, payin_below_value, payin_above_kind, payin_above_value,
		payout_charge_threshold, payout_below_kind, payout_below_value, payout_above_kind, payout_above_value,
		status, created_at, updated_at`

func scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(
		&m.ID, &m.Username, &m.PasswordHash, &m.MerchantName, &m.SecretKey,
		&m.PayinProvider, &m.PayoutProvider, &m.PayinCallbackURL, &m.PayoutCallbackURL,
		&m.PayinCommission.Threshold,
		&m.PayinCommission.BelowOrEqual.Kind, &m.PayinCommission.BelowOrEqual.Value,
		&m.PayinCommission.Above.Kind, &m.PayinCommission.Above.Value,
		&m.PayoutCommission.Threshold,
		&m.PayoutCommission.BelowOrEqual.Kind, &m.PayoutCommission.BelowOrEqual.Value,
		&m.PayoutCommission.Above.Kind, &m.PayoutCommission.Above.Value,
		&m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a new merchant into the database.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (` + merchantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	_, err := r.pool.Exec(ctx, query,
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
	if err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by its UUID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`

	m, err := scanMerchant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by id: %w", err)
	}
	return m, nil
}

// GetByUsername fetches a merchant by username.
func (r *MerchantRepo) GetByUsername(ctx context.Context, username string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE username = $1`

	m, err := scanMerchant(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by username: %w", err)
	}
	return m, nil
}

// UpdateProviders switches the merchant's active pay-in and/or pay-out
// provider. Nil arguments leave the current provider unchanged.
func (r *MerchantRepo) UpdateProviders(ctx context.Context, id uuid.UUID, payinProvider, payoutProvider *string) error {
	query := `UPDATE merchants
		SET payin_provider = COALESCE($1, payin_provider),
			payout_provider = COALESCE($2, payout_provider),
			updated_at = NOW()
		WHERE id = $3`

	_, err := r.pool.Exec(ctx, query, payinProvider, payoutProvider, id)
	if err != nil {
		return fmt.Errorf("update merchant providers: %w", err)
	}
	return nil
}

// UpdateCallbackURLs replaces the merchant's notification endpoints.
// Nil arguments leave the current URL unchanged.
func (r *MerchantRepo) UpdateCallbackURLs(ctx context.Context, id uuid.UUID, payinURL, payoutURL *string) error {
	query := `UPDATE merchants
		SET payin_callback_url = COALESCE($1, payin_callback_url),
			payout_callback_url = COALESCE($2, payout_callback_url),
			updated_at = NOW()
		WHERE id = $3`

	_, err := r.pool.Exec(ctx, query, payinURL, payoutURL, id)
	if err != nil {
		return fmt.Errorf("update merchant callback urls: %w", err)
	}
	return nil
}
