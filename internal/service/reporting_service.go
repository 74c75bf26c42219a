package service

import (
	"context"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService: read-only views over
// wallets, the ledger and transaction records.
type reportingService struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	txRepo     ports.TransactionRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	txRepo ports.TransactionRepository,
) ports.ReportingService {
	return &reportingService{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		txRepo:     txRepo,
	}
}

// GetWallet returns the merchant's wallet with both balances.
func (s *reportingService) GetWallet(ctx context.Context, merchantID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByMerchantID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// ListLedger returns a filtered page of ledger entries.
func (s *reportingService) ListLedger(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	entries, total, err := s.ledgerRepo.ListByMerchant(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return entries, total, nil
}

// ListTransactions returns a filtered page of transaction records.
func (s *reportingService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.TransactionRecord, int64, error) {
	records, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return records, total, nil
}
