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
)

// PayoutServiceImpl implements ports.PayoutService. A pay-out debits the
// disbursement wallet provisionally at initiation, under the merchant's
// mutex; the provider outcome later confirms the debit (Success) or
// reverses it (Failed).
type PayoutServiceImpl struct {
	merchantRepo ports.MerchantRepository
	walletRepo   ports.WalletRepository
	ledgerRepo   ports.LedgerRepository
	txRepo       ports.TransactionRepository
	transactor   ports.DBTransactor
	registry     ports.GatewayRegistry
	mutex        ports.KeyedMutex
	settlement   ports.SettlementService
	callbacks    ports.CallbackService
	log          zerolog.Logger
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	merchantRepo ports.MerchantRepository,
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	registry ports.GatewayRegistry,
	mutex ports.KeyedMutex,
	settlement ports.SettlementService,
	callbacks ports.CallbackService,
	log zerolog.Logger,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		merchantRepo: merchantRepo,
		walletRepo:   walletRepo,
		ledgerRepo:   ledgerRepo,
		txRepo:       txRepo,
		transactor:   transactor,
		registry:     registry,
		mutex:        mutex,
		settlement:   settlement,
		callbacks:    callbacks,
		log:          log,
	}
}

// Generate validates the request, provisionally debits amount+charge from
// the disbursement wallet (floor-checked, atomically with the debit ledger
// entry and the Pending record), then initiates with the provider outside
// the lock. A synchronous rejection claims the record to Failed and
// reverses the debit.
func (s *PayoutServiceImpl) Generate(ctx context.Context, req ports.PayoutRequest) (*domain.TransactionRecord, error) {
	if req.Amount.LessThan(minTransactionAmount) {
		return nil, apperror.ErrInvalidAmount(fmt.Sprintf("Amount must be at least %s", minTransactionAmount))
	}
	if req.ExternalTxnID == "" {
		return nil, apperror.Validation("Transaction id is required")
	}
	if req.BeneficiaryAccount == "" || req.IFSC == "" || req.BeneficiaryName == "" {
		return nil, apperror.ErrMissingBankDetails()
	}

	merchant, err := s.merchantRepo.GetByID(ctx, req.MerchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	if !merchant.IsActive() {
		return nil, apperror.ErrMerchantSuspended()
	}

	adapter, ok := s.registry.Get(merchant.PayoutProvider)
	if !ok {
		return nil, apperror.ErrUnknownProvider(merchant.PayoutProvider)
	}
	if adapter.Name() == ports.ProviderMaintenance {
		return nil, apperror.ErrServerMaintenance()
	}

	charge := merchant.PayoutCommission.Charge(req.Amount)
	now := time.Now().UTC()
	rec := &domain.TransactionRecord{
		ID:                 uuid.New(),
		MerchantID:         merchant.ID,
		ExternalTxnID:      req.ExternalTxnID,
		Kind:               domain.TransactionKindPayout,
		Amount:             req.Amount,
		ChargeAmount:       charge,
		GatewayName:        adapter.Name(),
		Status:             domain.TransactionStatusPending,
		BeneficiaryName:    req.BeneficiaryName,
		BeneficiaryAccount: req.BeneficiaryAccount,
		BeneficiaryIFSC:    req.IFSC,
		BankName:           req.BankName,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	// Provisional debit: one tx {floor-checked balance write, debit entry,
	// Pending record} under the merchant's mutex.
	err = s.mutex.RunExclusive(ctx, merchant.ID.String(), func(ctx context.Context) error {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		wallet, err := s.walletRepo.GetByMerchantIDForUpdate(ctx, dbTx, merchant.ID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return apperror.ErrNotFound("wallet")
		}

		gross := rec.GrossAmount()
		before := wallet.DisbursementBalance
		after := before.Sub(gross)
		if after.LessThan(wallet.MinRetainedBalance) {
			return apperror.ErrInsufficientBalance(before.String(), gross.String())
		}

		entry := &domain.LedgerEntry{
			ID:                   uuid.New(),
			MerchantID:           merchant.ID,
			WalletKind:           domain.WalletKindDisbursement,
			Direction:            domain.EntryDirectionDebit,
			Amount:               req.Amount,
			ChargeAmount:         charge,
			BeforeBalance:        before,
			AfterBalance:         after,
			RelatedTransactionID: req.ExternalTxnID,
			Description:          "payout initiated",
			CreatedAt:            now,
		}

		if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, domain.WalletKindDisbursement, after); err != nil {
			return apperror.InternalError(fmt.Errorf("debit disbursement wallet: %w", err))
		}
		if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
			return apperror.InternalError(fmt.Errorf("append ledger entry: %w", err))
		}
		if err := s.txRepo.CreateInTx(ctx, dbTx, rec); err != nil {
			return err
		}
		if err := dbTx.Commit(ctx); err != nil {
			return apperror.InternalError(fmt.Errorf("commit payout debit: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Initiate with the provider outside the lock.
	result, err := adapter.InitiatePayout(ctx, ports.PayoutInitiation{
		ExternalTxnID:      req.ExternalTxnID,
		Amount:             req.Amount,
		BeneficiaryName:    req.BeneficiaryName,
		BeneficiaryAccount: req.BeneficiaryAccount,
		IFSC:               req.IFSC,
		BankName:           req.BankName,
		Mobile:             req.Mobile,
	})
	if err != nil {
		s.rejectAndReverse(ctx, rec, err.Error())
		return nil, err
	}
	if !result.Accepted {
		s.rejectAndReverse(ctx, rec, result.FailureReason)
		return nil, apperror.ErrGateway(result.FailureReason, nil)
	}

	if result.GatewayReference != "" {
		reference := result.GatewayReference
		if err := s.txRepo.SetGatewayResult(ctx, rec.ID, &reference, nil, nil); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("store gateway result: %w", err))
		}
		rec.GatewayReference = &reference
	}

	s.log.Info().
		Str("merchant_id", merchant.ID.String()).
		Str("external_txn_id", rec.ExternalTxnID).
		Str("gateway", rec.GatewayName).
		Str("amount", rec.Amount.String()).
		Msg("pay-out initiated")
	return rec, nil
}

// Status returns the authoritative record for the transaction id.
func (s *PayoutServiceImpl) Status(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error) {
	rec, err := s.txRepo.GetByExternalID(ctx, externalTxnID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch transaction: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return rec, nil
}

// PollStatus queries the provider's pull-based status endpoint and feeds a
// terminal answer through the callback processor, so polling and callbacks
// share the same single-winner claim.
func (s *PayoutServiceImpl) PollStatus(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error) {
	rec, err := s.Status(ctx, externalTxnID)
	if err != nil {
		return nil, err
	}
	if rec.IsTerminal() {
		return rec, nil
	}

	adapter, ok := s.registry.Get(rec.GatewayName)
	if !ok {
		return nil, apperror.ErrUnknownProvider(rec.GatewayName)
	}
	checker, ok := adapter.(ports.PayoutStatusChecker)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("Provider %q does not support status polling", rec.GatewayName))
	}

	notice, err := checker.CheckPayoutStatus(ctx, externalTxnID)
	if err != nil {
		return nil, err
	}
	if notice == nil {
		// Still pending upstream.
		return rec, nil
	}

	outcome, err := s.callbacks.ProcessPayoutCallback(ctx, *notice)
	if err != nil {
		return nil, err
	}
	return outcome.Record, nil
}

// rejectAndReverse claims the provisionally debited record to Failed and
// credits the gross amount back to the disbursement wallet. Winning the
// claim is what authorizes the reversal; a lost claim means a callback
// already settled the record.
func (s *PayoutServiceImpl) rejectAndReverse(ctx context.Context, rec *domain.TransactionRecord, reason string) {
	err := s.mutex.RunExclusive(ctx, rec.MerchantID.String(), func(ctx context.Context) error {
		claimed, err := s.txRepo.ClaimPending(ctx, ports.Claim{
			ExternalTxnID: rec.ExternalTxnID,
			Status:        domain.TransactionStatusFailed,
			FailureReason: &reason,
		})
		if err != nil {
			return err
		}
		if claimed == nil {
			return nil
		}
		_, err = s.settlement.Settle(ctx, ports.SettlementRequest{
			MerchantID:           rec.MerchantID,
			WalletKind:           domain.WalletKindDisbursement,
			Direction:            domain.EntryDirectionCredit,
			Amount:               rec.GrossAmount(),
			RelatedTransactionID: rec.ExternalTxnID,
			Description:          "payout rejected, debit reversed",
		})
		return err
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("external_txn_id", rec.ExternalTxnID).
			Msg("failed to reverse rejected payout")
	}
}
