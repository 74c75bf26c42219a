package service

import (
	"context"
	"fmt"
	"time"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettlementEngine implements ports.SettlementService. It is the only code
// path that writes wallet balances: every mutation runs inside one storage
// transaction holding the wallet row lock, and commits together with
// exactly one ledger entry per balance write.
type SettlementEngine struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	mutex      ports.KeyedMutex
	log        zerolog.Logger
}

// NewSettlementEngine creates the settlement engine.
func NewSettlementEngine(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	mutex ports.KeyedMutex,
	log zerolog.Logger,
) *SettlementEngine {
	return &SettlementEngine{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		txRepo:     txRepo,
		transactor: transactor,
		mutex:      mutex,
		log:        log,
	}
}

// Settle performs one balance mutation plus its ledger entry. Debits are
// floor-checked: the balance after the debit must not fall below the
// wallet's floor for that kind. The caller must hold the merchant's mutex.
func (s *SettlementEngine) Settle(ctx context.Context, req ports.SettlementRequest) (*ports.SettlementResult, error) {
	// Negative inputs would flip the entry's delta sign and corrupt the
	// ledger's non-negativity invariants.
	if req.Amount.IsNegative() || req.ChargeAmount.IsNegative() {
		return nil, apperror.ErrInvalidAmount("Amount and charge must not be negative")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByMerchantIDForUpdate(ctx, dbTx, req.MerchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entry := &domain.LedgerEntry{
		ID:                   uuid.New(),
		MerchantID:           req.MerchantID,
		WalletKind:           req.WalletKind,
		Direction:            req.Direction,
		Amount:               req.Amount,
		ChargeAmount:         req.ChargeAmount,
		RelatedTransactionID: req.RelatedTransactionID,
		Description:          req.Description,
		CreatedAt:            time.Now().UTC(),
	}

	before := wallet.Balance(req.WalletKind)
	after := before.Add(entry.Delta())

	if req.Direction == domain.EntryDirectionDebit && after.LessThan(wallet.Floor(req.WalletKind)) {
		return nil, apperror.ErrInsufficientBalance(before.String(), req.Amount.Add(req.ChargeAmount).String())
	}

	entry.BeforeBalance = before
	entry.AfterBalance = after

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, req.WalletKind, after); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit settlement: %w", err))
	}

	s.log.Info().
		Str("merchant_id", req.MerchantID.String()).
		Str("wallet_kind", string(req.WalletKind)).
		Str("direction", string(req.Direction)).
		Str("amount", req.Amount.String()).
		Str("charge", req.ChargeAmount.String()).
		Str("after_balance", after.String()).
		Str("related_txn", req.RelatedTransactionID).
		Msg("settlement applied")

	return &ports.SettlementResult{BeforeBalance: before, AfterBalance: after}, nil
}

// TransferBetweenWallets moves amount from one of the merchant's wallets to
// the other: a debit entry and a credit entry committed atomically. The
// transfer itself carries no charge. Acquires the merchant's mutex.
func (s *SettlementEngine) TransferBetweenWallets(ctx context.Context, merchantID uuid.UUID, from, to domain.WalletKind, amount decimal.Decimal) error {
	if from == to {
		return apperror.Validation("Source and destination wallet must differ")
	}
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount("Transfer amount must be positive")
	}

	return s.mutex.RunExclusive(ctx, merchantID.String(), func(ctx context.Context) error {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		wallet, err := s.walletRepo.GetByMerchantIDForUpdate(ctx, dbTx, merchantID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return apperror.ErrNotFound("wallet")
		}

		transferID := fmt.Sprintf("TRF-%s", uuid.New().String())
		now := time.Now().UTC()

		fromBefore := wallet.Balance(from)
		fromAfter := fromBefore.Sub(amount)
		if fromAfter.LessThan(wallet.Floor(from)) {
			return apperror.ErrInsufficientBalance(fromBefore.String(), amount.String())
		}

		toBefore := wallet.Balance(to)
		toAfter := toBefore.Add(amount)

		debit := &domain.LedgerEntry{
			ID:                   uuid.New(),
			MerchantID:           merchantID,
			WalletKind:           from,
			Direction:            domain.EntryDirectionDebit,
			Amount:               amount,
			BeforeBalance:        fromBefore,
			AfterBalance:         fromAfter,
			RelatedTransactionID: transferID,
			Description:          fmt.Sprintf("transfer to %s wallet", to),
			CreatedAt:            now,
		}
		credit := &domain.LedgerEntry{
			ID:                   uuid.New(),
			MerchantID:           merchantID,
			WalletKind:           to,
			Direction:            domain.EntryDirectionCredit,
			Amount:               amount,
			BeforeBalance:        toBefore,
			AfterBalance:         toAfter,
			RelatedTransactionID: transferID,
			Description:          fmt.Sprintf("transfer from %s wallet", from),
			CreatedAt:            now,
		}

		if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, from, fromAfter); err != nil {
			return apperror.InternalError(fmt.Errorf("debit %s wallet: %w", from, err))
		}
		if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, to, toAfter); err != nil {
			return apperror.InternalError(fmt.Errorf("credit %s wallet: %w", to, err))
		}
		if err := s.ledgerRepo.Create(ctx, dbTx, debit); err != nil {
			return apperror.InternalError(fmt.Errorf("append debit entry: %w", err))
		}
		if err := s.ledgerRepo.Create(ctx, dbTx, credit); err != nil {
			return apperror.InternalError(fmt.Errorf("append credit entry: %w", err))
		}

		if err := dbTx.Commit(ctx); err != nil {
			return apperror.InternalError(fmt.Errorf("commit transfer: %w", err))
		}

		s.log.Info().
			Str("merchant_id", merchantID.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Str("amount", amount.String()).
			Msg("wallet transfer applied")
		return nil
	})
}

// BankSettlement debits amount+charge from the collection wallet and
// records a Pending settlement towards the merchant's bank account, in one
// storage transaction. Acquires the merchant's mutex.
func (s *SettlementEngine) BankSettlement(ctx context.Context, req ports.BankSettlementRequest) (*domain.TransactionRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount("Settlement amount must be positive")
	}
	if req.ChargeAmount.IsNegative() {
		return nil, apperror.ErrInvalidAmount("Charge amount must not be negative")
	}
	if req.BeneficiaryAccount == "" || req.IFSC == "" {
		return nil, apperror.ErrMissingBankDetails()
	}

	var rec *domain.TransactionRecord
	err := s.mutex.RunExclusive(ctx, req.MerchantID.String(), func(ctx context.Context) error {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		wallet, err := s.walletRepo.GetByMerchantIDForUpdate(ctx, dbTx, req.MerchantID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return apperror.ErrNotFound("wallet")
		}

		gross := req.Amount.Add(req.ChargeAmount)
		before := wallet.CollectionBalance
		after := before.Sub(gross)
		if after.LessThan(wallet.Floor(domain.WalletKindCollection)) {
			return apperror.ErrInsufficientBalance(before.String(), gross.String())
		}

		now := time.Now().UTC()
		rec = &domain.TransactionRecord{
			ID:                 uuid.New(),
			MerchantID:         req.MerchantID,
			ExternalTxnID:      req.ExternalTxnID,
			Kind:               domain.TransactionKindSettlement,
			Amount:             req.Amount,
			ChargeAmount:       req.ChargeAmount,
			GatewayName:        "bank",
			Status:             domain.TransactionStatusPending,
			BeneficiaryName:    req.BeneficiaryName,
			BeneficiaryAccount: req.BeneficiaryAccount,
			BeneficiaryIFSC:    req.IFSC,
			BankName:           req.BankName,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		entry := &domain.LedgerEntry{
			ID:                   uuid.New(),
			MerchantID:           req.MerchantID,
			WalletKind:           domain.WalletKindCollection,
			Direction:            domain.EntryDirectionDebit,
			Amount:               req.Amount,
			ChargeAmount:         req.ChargeAmount,
			BeforeBalance:        before,
			AfterBalance:         after,
			RelatedTransactionID: req.ExternalTxnID,
			Description:          "bank settlement",
			CreatedAt:            now,
		}

		if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, domain.WalletKindCollection, after); err != nil {
			return apperror.InternalError(fmt.Errorf("debit collection wallet: %w", err))
		}
		if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
			return apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
		}
		if err := s.txRepo.CreateInTx(ctx, dbTx, rec); err != nil {
			return err
		}

		if err := dbTx.Commit(ctx); err != nil {
			return apperror.InternalError(fmt.Errorf("commit bank settlement: %w", err))
		}

		s.log.Info().
			Str("merchant_id", req.MerchantID.String()).
			Str("external_txn_id", req.ExternalTxnID).
			Str("amount", req.Amount.String()).
			Msg("bank settlement recorded")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
