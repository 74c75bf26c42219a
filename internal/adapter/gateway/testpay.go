package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/rs/zerolog"
)

// TestPayConfig configures the testpay adapter.
type TestPayConfig struct {
	BaseURL string
	APIKey  string
}

// TestPay is the simplest provider integration: authenticated JSON POSTs
// that answer synchronously with a UPI intent and QR for pay-ins.
type TestPay struct {
	cfg    TestPayConfig
	client HTTPClient
	log    zerolog.Logger
}

// NewTestPay creates the testpay adapter.
func NewTestPay(cfg TestPayConfig, client HTTPClient, log zerolog.Logger) *TestPay {
	return &TestPay{cfg: cfg, client: client, log: log}
}

// Name returns the provider name.
func (g *TestPay) Name() string { return "testpay" }

type testPayRequest struct {
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
	AccountNo string `json:"account_no,omitempty"`
	IFSC      string `json:"ifsc,omitempty"`
	BankName  string `json:"bank_name,omitempty"`
}

type testPayResponse struct {
	Status    string `json:"status"` // accepted | rejected
	Reference string `json:"reference"`
	UPIIntent string `json:"upi_intent"`
	QRImage   string `json:"qr_image"`
	Message   string `json:"message"`
}

// InitiatePayin requests a collection intent.
func (g *TestPay) InitiatePayin(ctx context.Context, req ports.PayinInitiation) (*ports.InitiationResult, error) {
	body := testPayRequest{
		OrderID: req.ExternalTxnID,
		Amount:  req.Amount.StringFixed(2),
		Name:    req.PayerName,
		Email:   req.PayerEmail,
		Mobile:  req.PayerMobile,
	}
	return g.post(ctx, "/api/payin", body)
}

// InitiatePayout requests a disbursement.
func (g *TestPay) InitiatePayout(ctx context.Context, req ports.PayoutInitiation) (*ports.InitiationResult, error) {
	body := testPayRequest{
		OrderID:   req.ExternalTxnID,
		Amount:    req.Amount.StringFixed(2),
		Name:      req.BeneficiaryName,
		Mobile:    req.Mobile,
		AccountNo: req.BeneficiaryAccount,
		IFSC:      req.IFSC,
		BankName:  req.BankName,
	}
	return g.post(ctx, "/api/payout", body)
}

func (g *TestPay) post(ctx context.Context, path string, body testPayRequest) (*ports.InitiationResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal testpay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build testpay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.ErrGatewayTimeout(err)
		}
		return nil, apperror.ErrGateway("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.ErrGateway(fmt.Sprintf("testpay returned status %d", resp.StatusCode), nil)
	}

	var out testPayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrGateway("testpay returned malformed response", err)
	}

	if out.Status != "accepted" {
		g.log.Info().Str("order_id", body.OrderID).Str("message", out.Message).Msg("testpay rejected request")
		return &ports.InitiationResult{Accepted: false, FailureReason: out.Message}, nil
	}
	return &ports.InitiationResult{
		Accepted:         true,
		GatewayReference: out.Reference,
		PaymentIntent:    out.UPIIntent,
		QRImage:          out.QRImage,
	}, nil
}
