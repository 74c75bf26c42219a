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

// minTransactionAmount is the smallest accepted pay-in or pay-out amount.
var minTransactionAmount = decimal.NewFromInt(1)

// PayinServiceImpl implements ports.PayinService.
type PayinServiceImpl struct {
	merchantRepo ports.MerchantRepository
	txRepo       ports.TransactionRepository
	registry     ports.GatewayRegistry
	log          zerolog.Logger
}

// NewPayinService creates a new PayinServiceImpl.
func NewPayinService(
	merchantRepo ports.MerchantRepository,
	txRepo ports.TransactionRepository,
	registry ports.GatewayRegistry,
	log zerolog.Logger,
) *PayinServiceImpl {
	return &PayinServiceImpl{
		merchantRepo: merchantRepo,
		txRepo:       txRepo,
		registry:     registry,
		log:          log,
	}
}

// Generate creates a Pending pay-in record and asks the merchant's provider
// for a collection intent. The provider call happens outside any lock: no
// wallet is touched until the success callback settles the money. A
// synchronous provider rejection claims the record to Failed immediately.
func (s *PayinServiceImpl) Generate(ctx context.Context, req ports.PayinRequest) (*domain.TransactionRecord, error) {
	if req.Amount.LessThan(minTransactionAmount) {
		return nil, apperror.ErrInvalidAmount(fmt.Sprintf("Amount must be at least %s", minTransactionAmount))
	}
	if req.ExternalTxnID == "" {
		return nil, apperror.Validation("Transaction id is required")
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

	adapter, ok := s.registry.Get(merchant.PayinProvider)
	if !ok {
		return nil, apperror.ErrUnknownProvider(merchant.PayinProvider)
	}
	if adapter.Name() == ports.ProviderMaintenance {
		return nil, apperror.ErrServerMaintenance()
	}

	// The success callback credits amount minus charge; a charge at or
	// above the amount would credit a negative net.
	charge := merchant.PayinCommission.Charge(req.Amount)
	if charge.GreaterThanOrEqual(req.Amount) {
		return nil, apperror.ErrInvalidAmount(fmt.Sprintf("Amount must exceed the %s commission charge", charge))
	}

	now := time.Now().UTC()
	rec := &domain.TransactionRecord{
		ID:            uuid.New(),
		MerchantID:    merchant.ID,
		ExternalTxnID: req.ExternalTxnID,
		Kind:          domain.TransactionKindPayin,
		Amount:        req.Amount,
		ChargeAmount:  charge,
		GatewayName:   adapter.Name(),
		Status:        domain.TransactionStatusPending,
		PayerName:     req.PayerName,
		PayerEmail:    req.PayerEmail,
		PayerMobile:   req.PayerMobile,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.txRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	result, err := adapter.InitiatePayin(ctx, ports.PayinInitiation{
		ExternalTxnID: req.ExternalTxnID,
		Amount:        req.Amount,
		PayerName:     req.PayerName,
		PayerEmail:    req.PayerEmail,
		PayerMobile:   req.PayerMobile,
		ClientIP:      req.ClientIP,
		DeviceInfo:    req.DeviceInfo,
	})
	if err != nil {
		s.failPending(ctx, req.ExternalTxnID, err.Error())
		return nil, err
	}
	if !result.Accepted {
		s.failPending(ctx, req.ExternalTxnID, result.FailureReason)
		return nil, apperror.ErrGateway(result.FailureReason, nil)
	}

	reference := nilIfEmpty(result.GatewayReference)
	intent := nilIfEmpty(result.PaymentIntent)
	qr := nilIfEmpty(result.QRImage)
	if err := s.txRepo.SetGatewayResult(ctx, rec.ID, reference, intent, qr); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("store gateway result: %w", err))
	}
	rec.GatewayReference = reference
	rec.PaymentIntent = intent
	rec.QRImage = qr

	s.log.Info().
		Str("merchant_id", merchant.ID.String()).
		Str("external_txn_id", rec.ExternalTxnID).
		Str("gateway", rec.GatewayName).
		Str("amount", rec.Amount.String()).
		Msg("pay-in generated")
	return rec, nil
}

// Status returns the authoritative record for the transaction id.
func (s *PayinServiceImpl) Status(ctx context.Context, externalTxnID string) (*domain.TransactionRecord, error) {
	rec, err := s.txRepo.GetByExternalID(ctx, externalTxnID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch transaction: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return rec, nil
}

// failPending claims the just-created record to Failed after a synchronous
// provider rejection. A lost claim means a callback beat us to it, which is
// fine; claim errors are logged and swallowed since the caller already has
// the primary error to report.
func (s *PayinServiceImpl) failPending(ctx context.Context, externalTxnID, reason string) {
	_, err := s.txRepo.ClaimPending(ctx, ports.Claim{
		ExternalTxnID: externalTxnID,
		Status:        domain.TransactionStatusFailed,
		FailureReason: &reason,
	})
	if err != nil {
		s.log.Error().Err(err).Str("external_txn_id", externalTxnID).Msg("failed to mark rejected transaction")
	}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
