package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, merchant_id, external_txn_id, kind, amount, charge_amount,
		gateway_name, status, failure_reason, gateway_reference, utr, payment_intent, qr_image,
		payer_name, payer_email, payer_mobile,
		beneficiary_name, beneficiary_account, beneficiary_ifsc, bank_name,
		created_at, updated_at`

const transactionPlaceholders = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22`

func transactionArgs(t *domain.TransactionRecord) []any {
	return []any{
		t.ID, t.MerchantID, t.ExternalTxnID, t.Kind, t.Amount, t.ChargeAmount,
		t.GatewayName, t.Status, t.FailureReason, t.GatewayReference, t.UTR, t.PaymentIntent, t.QRImage,
		t.PayerName, t.PayerEmail, t.PayerMobile,
		t.BeneficiaryName, t.BeneficiaryAccount, t.BeneficiaryIFSC, t.BankName,
		t.CreatedAt, t.UpdatedAt,
	}
}

func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	t := &domain.TransactionRecord{}
	err := row.Scan(
		&t.ID, &t.MerchantID, &t.ExternalTxnID, &t.Kind, &t.Amount, &t.ChargeAmount,
		&t.GatewayName, &t.Status, &t.FailureReason, &t.GatewayReference, &t.UTR, &t.PaymentIntent, &t.QRImage,
		&t.PayerName, &t.PayerEmail, &t.PayerMobile,
		&t.BeneficiaryName, &t.BeneficiaryAccount, &t.BeneficiaryIFSC, &t.BankName,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// isUniqueViolation reports whether err is the unique index on
// external_txn_id rejecting a duplicate submission.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new Pending record. A duplicate external_txn_id returns
// apperror.ErrDuplicateTransaction.
func (r *TransactionRepo) Create(ctx context.Context, rec *domain.TransactionRecord) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES (` + transactionPlaceholders + `)`

	_, err := r.pool.Exec(ctx, query, transactionArgs(rec)...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateTransaction()
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateInTx inserts a record as part of a larger storage transaction, so
// the record commits atomically with the wallet mutation that funds it.
func (r *TransactionRepo) CreateInTx(ctx context.Context, tx pgx.Tx, rec *domain.TransactionRecord) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES (` + transactionPlaceholders + `)`

	_, err := tx.Exec(ctx, query, transactionArgs(rec)...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateTransaction()
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByExternalID fetches a record by its caller-supplied id, or nil when
// no record exists.
func (r *TransactionRepo) GetByExternalID(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE external_txn_id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, externalTxnID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by external id: %w", err)
	}
	return t, nil
}

// ClaimPending atomically transitions the matching Pending record to the
// claim's terminal status and returns the updated record. The WHERE clause
// on status makes the claim a single-winner gate: a duplicate callback, or
// one racing against another, matches zero rows and returns (nil, nil).
func (r *TransactionRepo) ClaimPending(ctx context.Context, claim ports.Claim) (*domain.TransactionRecord, error) {
	query := `UPDATE transactions
		SET status = $1,
			utr = COALESCE($2, utr),
			gateway_reference = COALESCE($3, gateway_reference),
			failure_reason = $4,
			updated_at = NOW()
		WHERE external_txn_id = $5 AND status = $6
		RETURNING ` + transactionColumns

	t, err := scanTransaction(r.pool.QueryRow(ctx, query,
		claim.Status, claim.UTR, claim.GatewayReference, claim.FailureReason,
		claim.ExternalTxnID, domain.TransactionStatusPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim pending transaction: %w", err)
	}
	return t, nil
}

// SetGatewayResult records the provider's acceptance artifacts on a record
// that stays Pending: the provider reference, the UPI intent and the QR.
func (r *TransactionRepo) SetGatewayResult(ctx context.Context, id uuid.UUID, reference, intent, qrImage *string) error {
	query := `UPDATE transactions
		SET gateway_reference = COALESCE($1, gateway_reference),
			payment_intent = COALESCE($2, payment_intent),
			qr_image = COALESCE($3, qr_image),
			updated_at = NOW()
		WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, reference, intent, qrImage, id)
	if err != nil {
		return fmt.Errorf("set gateway result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set gateway result: transaction %s not found", id)
	}
	return nil
}

// List returns a filtered, paginated slice of records newest first, plus
// the total count for the filter.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.TransactionRecord, int64, error) {
	where := []string{"merchant_id = $1"}
	args := []any{params.MerchantID}

	if params.Kind != nil {
		args = append(args, *params.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
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
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
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
	query := fmt.Sprintf(`SELECT `+transactionColumns+` FROM transactions WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		records = append(records, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return records, total, nil
}
