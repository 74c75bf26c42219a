package service

import (
	"context"
	"fmt"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/rs/zerolog"
)

// CallbackProcessor implements ports.CallbackService. The claim on the
// Pending record is the idempotency gate: whichever caller transitions the
// record out of Pending wins, and everyone else gets an applied=false
// no-op. Settlement happens only after a won claim, under the merchant's
// mutex, so a record's money moves at most once.
type CallbackProcessor struct {
	txRepo     ports.TransactionRepository
	mutex      ports.KeyedMutex
	settlement ports.SettlementService
	notifier   ports.NotifierService
	log        zerolog.Logger
}

// NewCallbackProcessor creates a new CallbackProcessor.
func NewCallbackProcessor(
	txRepo ports.TransactionRepository,
	mutex ports.KeyedMutex,
	settlement ports.SettlementService,
	notifier ports.NotifierService,
	log zerolog.Logger,
) *CallbackProcessor {
	return &CallbackProcessor{
		txRepo:     txRepo,
		mutex:      mutex,
		settlement: settlement,
		notifier:   notifier,
		log:        log,
	}
}

// ProcessPayinCallback applies a pay-in outcome. A successful outcome
// credits the net amount (amount minus charge) to the collection wallet,
// atomically with the credit ledger entry. A failed outcome only claims
// the record.
func (s *CallbackProcessor) ProcessPayinCallback(ctx context.Context, notice ports.CallbackNotice) (*ports.CallbackResult, error) {
	claimed, err := s.claim(ctx, notice)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return s.duplicate(ctx, notice)
	}

	if claimed.Status == domain.TransactionStatusSuccess {
		err = s.mutex.RunExclusive(ctx, claimed.MerchantID.String(), func(ctx context.Context) error {
			_, err := s.settlement.Settle(ctx, ports.SettlementRequest{
				MerchantID:           claimed.MerchantID,
				WalletKind:           domain.WalletKindCollection,
				Direction:            domain.EntryDirectionCredit,
				Amount:               claimed.NetAmount(),
				ChargeAmount:         claimed.ChargeAmount,
				RelatedTransactionID: claimed.ExternalTxnID,
				Description:          "payin settled",
			})
			return err
		})
		if err != nil {
			// The claim already committed; the credit must not be lost.
			s.log.Error().Err(err).
				Str("external_txn_id", claimed.ExternalTxnID).
				Msg("payin claimed but settlement failed, needs reconciliation")
			return nil, err
		}
	}

	s.log.Info().
		Str("external_txn_id", claimed.ExternalTxnID).
		Str("status", string(claimed.Status)).
		Msg("pay-in callback applied")
	s.notifier.Notify(ctx, claimed.MerchantID, domain.TransactionKindPayin, buildNotification(claimed, notice.ProviderMessage))
	return &ports.CallbackResult{Applied: true, Record: claimed}, nil
}

// ProcessPayoutCallback applies a pay-out outcome. The money already left
// the disbursement wallet at initiation, so a successful outcome is claim
// plus UTR only; a failed outcome reverses the provisional debit by
// crediting the gross amount back.
func (s *CallbackProcessor) ProcessPayoutCallback(ctx context.Context, notice ports.CallbackNotice) (*ports.CallbackResult, error) {
	claimed, err := s.claim(ctx, notice)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return s.duplicate(ctx, notice)
	}

	if claimed.Status == domain.TransactionStatusFailed {
		err = s.mutex.RunExclusive(ctx, claimed.MerchantID.String(), func(ctx context.Context) error {
			_, err := s.settlement.Settle(ctx, ports.SettlementRequest{
				MerchantID:           claimed.MerchantID,
				WalletKind:           domain.WalletKindDisbursement,
				Direction:            domain.EntryDirectionCredit,
				Amount:               claimed.GrossAmount(),
				RelatedTransactionID: claimed.ExternalTxnID,
				Description:          "payout failed, debit reversed",
			})
			return err
		})
		if err != nil {
			s.log.Error().Err(err).
				Str("external_txn_id", claimed.ExternalTxnID).
				Msg("payout claimed failed but reversal did not apply, needs reconciliation")
			return nil, err
		}
	}

	s.log.Info().
		Str("external_txn_id", claimed.ExternalTxnID).
		Str("status", string(claimed.Status)).
		Msg("pay-out callback applied")
	s.notifier.Notify(ctx, claimed.MerchantID, domain.TransactionKindPayout, buildNotification(claimed, notice.ProviderMessage))
	return &ports.CallbackResult{Applied: true, Record: claimed}, nil
}

// claim transitions the Pending record to the notice's terminal status.
func (s *CallbackProcessor) claim(ctx context.Context, notice ports.CallbackNotice) (*domain.TransactionRecord, error) {
	status := domain.TransactionStatusFailed
	var failureReason *string
	if notice.Success {
		status = domain.TransactionStatusSuccess
	} else if notice.ProviderMessage != "" {
		failureReason = &notice.ProviderMessage
	}

	claimed, err := s.txRepo.ClaimPending(ctx, ports.Claim{
		ExternalTxnID:    notice.ExternalTxnID,
		Status:           status,
		UTR:              nilIfEmpty(notice.UTR),
		GatewayReference: nilIfEmpty(notice.GatewayReference),
		FailureReason:    failureReason,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("claim transaction: %w", err))
	}
	return claimed, nil
}

// duplicate answers a callback that lost the claim: the record is already
// terminal (or unknown). Answered as success so the provider stops
// retrying; nothing is mutated.
func (s *CallbackProcessor) duplicate(ctx context.Context, notice ports.CallbackNotice) (*ports.CallbackResult, error) {
	rec, err := s.txRepo.GetByExternalID(ctx, notice.ExternalTxnID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch transaction: %w", err))
	}
	s.log.Info().
		Str("external_txn_id", notice.ExternalTxnID).
		Bool("known", rec != nil).
		Msg("stale or duplicate callback ignored")
	return &ports.CallbackResult{Applied: false, Record: rec}, nil
}

func buildNotification(rec *domain.TransactionRecord, message string) ports.Notification {
	return ports.Notification{
		Event:         string(rec.Kind),
		ExternalTxnID: rec.ExternalTxnID,
		Status:        string(rec.Status),
		Amount:        rec.Amount,
		ChargeAmount:  rec.ChargeAmount,
		UTR:           rec.UTR,
		StartedAt:     rec.CreatedAt,
		CompletedAt:   rec.UpdatedAt,
		Message:       message,
	}
}
