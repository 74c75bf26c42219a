package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestPay_InitiatePayin_Accepted(t *testing.T) {
	var gotReq testPayRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payin", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(testPayResponse{
			Status:    "accepted",
			Reference: "TP-001",
			UPIIntent: "upi://pay?pa=agg@bank&am=1000.00",
			QRImage:   "data:image/png;base64,abc",
		})
	}))
	defer srv.Close()

	g := NewTestPay(TestPayConfig{BaseURL: srv.URL, APIKey: "secret-key"}, srv.Client(), zerolog.Nop())

	result, err := g.InitiatePayin(context.Background(), ports.PayinInitiation{
		ExternalTxnID: "ORDER-001",
		Amount:        decimal.RequireFromString("1000"),
		PayerName:     "Asha Rao",
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, "TP-001", result.GatewayReference)
	assert.Equal(t, "upi://pay?pa=agg@bank&am=1000.00", result.PaymentIntent)
	assert.Equal(t, "1000.00", gotReq.Amount, "amounts go on the wire with two decimals")
}

func TestTestPay_InitiatePayin_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testPayResponse{Status: "rejected", Message: "limit exceeded"})
	}))
	defer srv.Close()

	g := NewTestPay(TestPayConfig{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())

	result, err := g.InitiatePayin(context.Background(), ports.PayinInitiation{
		ExternalTxnID: "ORDER-002",
		Amount:        decimal.RequireFromString("99999"),
	})
	require.NoError(t, err, "a provider rejection is a result, not an error")
	assert.False(t, result.Accepted)
	assert.Equal(t, "limit exceeded", result.FailureReason)
}

func TestTestPay_InitiatePayout_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payout", r.URL.Path)
		var req testPayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1234567890", req.AccountNo)
		json.NewEncoder(w).Encode(testPayResponse{Status: "accepted", Reference: "TP-PO-1"})
	}))
	defer srv.Close()

	g := NewTestPay(TestPayConfig{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())

	result, err := g.InitiatePayout(context.Background(), ports.PayoutInitiation{
		ExternalTxnID:      "PO-001",
		Amount:             decimal.RequireFromString("500"),
		BeneficiaryName:    "Ravi Kumar",
		BeneficiaryAccount: "1234567890",
		IFSC:               "HDFC0001234",
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, "TP-PO-1", result.GatewayReference)
}

func TestTestPay_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewTestPay(TestPayConfig{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())

	_, err := g.InitiatePayin(context.Background(), ports.PayinInitiation{
		ExternalTxnID: "ORDER-003",
		Amount:        decimal.RequireFromString("100"),
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "GTW_001", appErr.Code)
}
