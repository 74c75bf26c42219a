package service

import (
	"context"
	"strings"
	"testing"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementEngine_CreditAppendsLedgerEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.engine.Settle(ctx, ports.SettlementRequest{
		MerchantID:           f.merchant.ID,
		WalletKind:           domain.WalletKindCollection,
		Direction:            domain.EntryDirectionCredit,
		Amount:               decimal.NewFromInt(250),
		ChargeAmount:         decimal.NewFromInt(5),
		RelatedTransactionID: "ORDER-1",
		Description:          "payin settled",
	})
	require.NoError(t, err)

	assert.True(t, result.BeforeBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, result.AfterBalance.Equal(decimal.NewFromInt(1250)))
	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(1250)))

	entries := f.ledger.all()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, domain.EntryDirectionCredit, entry.Direction)
	assert.Equal(t, "ORDER-1", entry.RelatedTransactionID)
	assert.True(t, entry.Reconciles(), "entry before/after must match amount and direction")
}

func TestSettlementEngine_DebitSubtractsAmountPlusCharge(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.Settle(context.Background(), ports.SettlementRequest{
		MerchantID:   f.merchant.ID,
		WalletKind:   domain.WalletKindCollection,
		Direction:    domain.EntryDirectionDebit,
		Amount:       decimal.NewFromInt(300),
		ChargeAmount: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	// 1000 - (300 + 10)
	assert.True(t, result.AfterBalance.Equal(decimal.NewFromInt(690)))
	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(690)))
}

func TestSettlementEngine_DebitBelowFloorRejected(t *testing.T) {
	f := newFixture(t)

	// Disbursement floor is 100; 1000 - 901 would leave 99.
	_, err := f.engine.Settle(context.Background(), ports.SettlementRequest{
		MerchantID: f.merchant.ID,
		WalletKind: domain.WalletKindDisbursement,
		Direction:  domain.EntryDirectionDebit,
		Amount:     decimal.NewFromInt(901),
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)

	assert.True(t, f.balance(t, domain.WalletKindDisbursement).Equal(decimal.NewFromInt(1000)), "rejected debit must not move the balance")
	assert.Empty(t, f.ledger.all(), "rejected debit must not append a ledger entry")
}

func TestSettlementEngine_DebitExactlyToFloorAllowed(t *testing.T) {
	f := newFixture(t)

	result, err := f.engine.Settle(context.Background(), ports.SettlementRequest{
		MerchantID: f.merchant.ID,
		WalletKind: domain.WalletKindDisbursement,
		Direction:  domain.EntryDirectionDebit,
		Amount:     decimal.NewFromInt(900),
	})
	require.NoError(t, err)
	assert.True(t, result.AfterBalance.Equal(decimal.NewFromInt(100)), "landing exactly on the floor is allowed")
}

func TestSettlementEngine_CollectionFloorIsZero(t *testing.T) {
	f := newFixture(t)

	// The collection wallet has no retained minimum: draining to zero works.
	_, err := f.engine.Settle(context.Background(), ports.SettlementRequest{
		MerchantID: f.merchant.ID,
		WalletKind: domain.WalletKindCollection,
		Direction:  domain.EntryDirectionDebit,
		Amount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	_, err = f.engine.Settle(context.Background(), ports.SettlementRequest{
		MerchantID: f.merchant.ID,
		WalletKind: domain.WalletKindCollection,
		Direction:  domain.EntryDirectionDebit,
		Amount:     decimal.NewFromInt(1),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)
}

func TestSettlementEngine_NegativeAmountsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var appErr *apperror.AppError

	// A negative charge flips the debit's delta into a credit.
	_, err := f.engine.Settle(ctx, ports.SettlementRequest{
		MerchantID:   f.merchant.ID,
		WalletKind:   domain.WalletKindCollection,
		Direction:    domain.EntryDirectionDebit,
		Amount:       decimal.NewFromInt(100),
		ChargeAmount: decimal.NewFromInt(-500),
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)

	_, err = f.engine.Settle(ctx, ports.SettlementRequest{
		MerchantID: f.merchant.ID,
		WalletKind: domain.WalletKindCollection,
		Direction:  domain.EntryDirectionCredit,
		Amount:     decimal.NewFromInt(-100),
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)

	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(1000)))
	assert.Empty(t, f.ledger.all())
}

func TestSettlementEngine_UnknownWallet(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Settle(context.Background(), ports.SettlementRequest{
		MerchantID: uuid.New(),
		WalletKind: domain.WalletKindCollection,
		Direction:  domain.EntryDirectionCredit,
		Amount:     decimal.NewFromInt(10),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_003", appErr.Code)
}

func TestTransferBetweenWallets(t *testing.T) {
	f := newFixture(t)

	err := f.engine.TransferBetweenWallets(context.Background(), f.merchant.ID,
		domain.WalletKindCollection, domain.WalletKindDisbursement, decimal.NewFromInt(400))
	require.NoError(t, err)

	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(600)))
	assert.True(t, f.balance(t, domain.WalletKindDisbursement).Equal(decimal.NewFromInt(1400)))

	entries := f.ledger.all()
	require.Len(t, entries, 2)
	debit, credit := entries[0], entries[1]
	assert.Equal(t, domain.EntryDirectionDebit, debit.Direction)
	assert.Equal(t, domain.WalletKindCollection, debit.WalletKind)
	assert.Equal(t, domain.EntryDirectionCredit, credit.Direction)
	assert.Equal(t, domain.WalletKindDisbursement, credit.WalletKind)
	assert.Equal(t, debit.RelatedTransactionID, credit.RelatedTransactionID, "both legs share one transfer id")
	assert.True(t, strings.HasPrefix(debit.RelatedTransactionID, "TRF-"))
	assert.True(t, debit.Reconciles())
	assert.True(t, credit.Reconciles())
}

func TestTransferBetweenWallets_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var appErr *apperror.AppError

	err := f.engine.TransferBetweenWallets(ctx, f.merchant.ID,
		domain.WalletKindCollection, domain.WalletKindCollection, decimal.NewFromInt(10))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_003", appErr.Code)

	err = f.engine.TransferBetweenWallets(ctx, f.merchant.ID,
		domain.WalletKindCollection, domain.WalletKindDisbursement, decimal.NewFromInt(-5))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)
}

func TestTransferBetweenWallets_InsufficientSource(t *testing.T) {
	f := newFixture(t)

	// Disbursement floor 100: moving 950 of 1000 would breach it.
	err := f.engine.TransferBetweenWallets(context.Background(), f.merchant.ID,
		domain.WalletKindDisbursement, domain.WalletKindCollection, decimal.NewFromInt(950))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)
	assert.True(t, f.balance(t, domain.WalletKindDisbursement).Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(1000)))
	assert.Empty(t, f.ledger.all())
}

func TestBankSettlement(t *testing.T) {
	f := newFixture(t)

	rec, err := f.engine.BankSettlement(context.Background(), ports.BankSettlementRequest{
		MerchantID:         f.merchant.ID,
		ExternalTxnID:      "SETTLE-1",
		Amount:             decimal.NewFromInt(500),
		ChargeAmount:       decimal.NewFromInt(15),
		BeneficiaryName:    "Acme Traders",
		BeneficiaryAccount: "000111222333",
		IFSC:               "HDFC0001234",
		BankName:           "HDFC",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionKindSettlement, rec.Kind)
	assert.Equal(t, domain.TransactionStatusPending, rec.Status)
	assert.Equal(t, "bank", rec.GatewayName)

	// 1000 - (500 + 15)
	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(485)))

	stored := f.record(t, "SETTLE-1")
	require.NotNil(t, stored)
	assert.Equal(t, domain.TransactionStatusPending, stored.Status)

	entries := f.ledger.all()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryDirectionDebit, entries[0].Direction)
	assert.Equal(t, "SETTLE-1", entries[0].RelatedTransactionID)
	assert.True(t, entries[0].Reconciles())
}

func TestBankSettlement_MissingBankDetails(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.BankSettlement(context.Background(), ports.BankSettlementRequest{
		MerchantID:    f.merchant.ID,
		ExternalTxnID: "SETTLE-2",
		Amount:        decimal.NewFromInt(100),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_002", appErr.Code)
}

func TestBankSettlement_NegativeChargeRejected(t *testing.T) {
	f := newFixture(t)

	// A negative charge would shrink the gross below the amount and, once
	// it exceeds the amount, turn the debit into a net credit.
	_, err := f.engine.BankSettlement(context.Background(), ports.BankSettlementRequest{
		MerchantID:         f.merchant.ID,
		ExternalTxnID:      "SETTLE-NEG",
		Amount:             decimal.NewFromInt(100),
		ChargeAmount:       decimal.NewFromInt(-500),
		BeneficiaryAccount: "000111222333",
		IFSC:               "HDFC0001234",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)

	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(1000)), "rejected settlement must not move the balance")
	assert.Empty(t, f.ledger.all())
	assert.Nil(t, f.record(t, "SETTLE-NEG"))
}

func TestBankSettlement_InsufficientBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.BankSettlement(context.Background(), ports.BankSettlementRequest{
		MerchantID:         f.merchant.ID,
		ExternalTxnID:      "SETTLE-3",
		Amount:             decimal.NewFromInt(1000),
		ChargeAmount:       decimal.NewFromInt(1),
		BeneficiaryAccount: "000111222333",
		IFSC:               "HDFC0001234",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)

	assert.Nil(t, f.record(t, "SETTLE-3"), "failed settlement must not leave a record behind")
	assert.True(t, f.balance(t, domain.WalletKindCollection).Equal(decimal.NewFromInt(1000)))
}
