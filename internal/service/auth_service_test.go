package service

import (
	"context"
	"testing"
	"time"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*fixture, *AuthServiceImpl) {
	t.Helper()
	f := newFixture(t)
	tokenSvc := NewJWTTokenService("test-jwt-secret", time.Hour, "payment-aggregator")
	auth := NewAuthService(f.merchants, f.wallets, f.registry, NewArgon2HashService(), tokenSvc)
	return f, auth
}

func registerRequest(username string) ports.RegisterRequest {
	return ports.RegisterRequest{
		Username:       username,
		Password:       "s3cret-password",
		MerchantName:   "New Trader",
		PayinProvider:  "testpay",
		PayoutProvider: "testpay",
		PayinCommission: domain.CommissionSchedule{
			Threshold:    decimal.NewFromInt(1000),
			BelowOrEqual: domain.ChargeTier{Kind: domain.ChargeKindFlat, Value: decimal.NewFromInt(5)},
			Above:        domain.ChargeTier{Kind: domain.ChargeKindPercentage, Value: decimal.NewFromInt(2)},
		},
		PayoutCommission: domain.CommissionSchedule{
			Threshold:    decimal.NewFromInt(1000),
			BelowOrEqual: domain.ChargeTier{Kind: domain.ChargeKindFlat, Value: decimal.NewFromInt(10)},
			Above:        domain.ChargeTier{Kind: domain.ChargeKindPercentage, Value: decimal.NewFromInt(1)},
		},
		MinRetainedBalance: decimal.NewFromInt(50),
	}
}

func TestAuthRegister(t *testing.T) {
	f, auth := newAuthFixture(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, registerRequest("newtrader"))
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{64}$`, resp.SecretKey, "secret key is 32 random bytes, hex-encoded")

	merchant, err := f.merchants.GetByID(ctx, resp.MerchantID)
	require.NoError(t, err)
	require.NotNil(t, merchant)
	assert.Equal(t, "newtrader", merchant.Username)
	assert.Equal(t, domain.MerchantStatusActive, merchant.Status)
	assert.NotEqual(t, "s3cret-password", merchant.PasswordHash)

	wallet, err := f.wallets.GetByMerchantID(ctx, resp.MerchantID)
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.True(t, wallet.CollectionBalance.IsZero())
	assert.True(t, wallet.DisbursementBalance.IsZero())
	assert.True(t, wallet.MinRetainedBalance.Equal(decimal.NewFromInt(50)))
}

func TestAuthRegister_DuplicateUsername(t *testing.T) {
	_, auth := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, registerRequest("dup"))
	require.NoError(t, err)

	_, err = auth.Register(ctx, registerRequest("dup"))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_003", appErr.Code)
}

func TestAuthRegister_UnknownProvider(t *testing.T) {
	_, auth := newAuthFixture(t)

	req := registerRequest("badprovider")
	req.PayoutProvider = "ghost"
	_, err := auth.Register(context.Background(), req)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CFG_001", appErr.Code)
}

func TestAuthLogin(t *testing.T) {
	_, auth := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, registerRequest("logintest"))
	require.NoError(t, err)

	token, expiry, err := auth.Login(ctx, "logintest", "s3cret-password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiry.After(time.Now()))
}

func TestAuthLogin_InvalidCredentials(t *testing.T) {
	_, auth := newAuthFixture(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, registerRequest("wrongpass"))
	require.NoError(t, err)

	var appErr *apperror.AppError

	_, _, err = auth.Login(ctx, "wrongpass", "not-the-password")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)

	_, _, err = auth.Login(ctx, "no-such-user", "whatever")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_001", appErr.Code)
}

func TestAuthLogin_SuspendedMerchant(t *testing.T) {
	f, auth := newAuthFixture(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, registerRequest("suspendme"))
	require.NoError(t, err)

	f.merchants.mu.Lock()
	f.merchants.merchants[resp.MerchantID].Status = domain.MerchantStatusSuspended
	f.merchants.mu.Unlock()

	_, _, err = auth.Login(ctx, "suspendme", "s3cret-password")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AUTH_003", appErr.Code)
}
