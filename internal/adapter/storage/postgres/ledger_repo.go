package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Entries are append-only:
// the table has no UPDATE or DELETE path.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const ledgerColumns = `id, merchant_id, wallet_kind, direction, amount, charge_amount,
		before_balance, after_balance, related_transaction_id, description, created_at`

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(
		&e.ID, &e.MerchantID, &e.WalletKind, &e.Direction, &e.Amount, &e.ChargeAmount,
		&e.BeforeBalance, &e.AfterBalance, &e.RelatedTransactionID, &e.Description, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create appends a ledger entry inside the given transaction, so the entry
// commits atomically with the balance write it records.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		entry.ID, entry.MerchantID, entry.WalletKind, entry.Direction,
		entry.Amount, entry.ChargeAmount, entry.BeforeBalance, entry.AfterBalance,
		entry.RelatedTransactionID, entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByMerchant returns a filtered, paginated slice of entries newest
// first, plus the total count for the filter.
func (r *LedgerRepo) ListByMerchant(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	where := []string{"merchant_id = $1"}
	args := []any{params.MerchantID}

	if params.WalletKind != nil {
		args = append(args, *params.WalletKind)
		where = append(where, fmt.Sprintf("wallet_kind = $%d", len(args)))
	}
	if params.Direction != nil {
		args = append(args, *params.Direction)
		where = append(where, fmt.Sprintf("direction = $%d", len(args)))
	}
	if params.From != nil {
		args = append(args, *params.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, *params.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM ledger_entries WHERE ` + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT `+ledgerColumns+` FROM ledger_entries WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, total, nil
}

// GetLatest returns the newest entry for the merchant's wallet kind, or nil
// when no entry exists yet. Used to reconcile a wallet's stored balance
// against its ledger tail.
func (r *LedgerRepo) GetLatest(ctx context.Context, merchantID uuid.UUID, kind domain.WalletKind) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE merchant_id = $1 AND wallet_kind = $2
		ORDER BY created_at DESC LIMIT 1`

	e, err := scanLedgerEntry(r.pool.QueryRow(ctx, query, merchantID, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest ledger entry: %w", err)
	}
	return e, nil
}
