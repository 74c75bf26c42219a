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

// FintechConfig configures the fintech adapter.
type FintechConfig struct {
	BaseURL string
	Token   string
}

// Fintech integrates a bearer-authenticated JSON provider supporting both
// directions plus a pull-based payout status endpoint, so stalled payouts
// can be settled without waiting for a callback.
type Fintech struct {
	cfg    FintechConfig
	client HTTPClient
	log    zerolog.Logger
}

// NewFintech creates the fintech adapter.
func NewFintech(cfg FintechConfig, client HTTPClient, log zerolog.Logger) *Fintech {
	return &Fintech{cfg: cfg, client: client, log: log}
}

// Name returns the provider name.
func (g *Fintech) Name() string { return "fintech" }

type fintechPayinRequest struct {
	OrderID string `json:"orderId"`
	Amount  string `json:"amount"`
	Name    string `json:"customerName,omitempty"`
	Email   string `json:"customerEmail,omitempty"`
	Mobile  string `json:"customerMobile,omitempty"`
}

type fintechPayoutRequest struct {
	OrderID         string `json:"orderId"`
	Amount          string `json:"amount"`
	BeneficiaryName string `json:"beneficiaryName"`
	AccountNumber   string `json:"accountNumber"`
	IFSC            string `json:"ifsc"`
	BankName        string `json:"bankName,omitempty"`
	Mobile          string `json:"mobile,omitempty"`
}

type fintechResponse struct {
	Status    string `json:"status"` // SUCCESS | FAILED | PENDING
	OrderID   string `json:"orderId"`
	Reference string `json:"referenceId"`
	UTR       string `json:"utr"`
	Intent    string `json:"intent"`
	QRImage   string `json:"qrImage"`
	Message   string `json:"message"`
}

// InitiatePayin requests a collection intent.
func (g *Fintech) InitiatePayin(ctx context.Context, req ports.PayinInitiation) (*ports.InitiationResult, error) {
	body := fintechPayinRequest{
		OrderID: req.ExternalTxnID,
		Amount:  req.Amount.StringFixed(2),
		Name:    req.PayerName,
		Email:   req.PayerEmail,
		Mobile:  req.PayerMobile,
	}
	out, err := g.call(ctx, http.MethodPost, "/api/v1/collect", body)
	if err != nil {
		return nil, err
	}
	return g.normalize(out), nil
}

// InitiatePayout requests a disbursement.
func (g *Fintech) InitiatePayout(ctx context.Context, req ports.PayoutInitiation) (*ports.InitiationResult, error) {
	body := fintechPayoutRequest{
		OrderID:         req.ExternalTxnID,
		Amount:          req.Amount.StringFixed(2),
		BeneficiaryName: req.BeneficiaryName,
		AccountNumber:   req.BeneficiaryAccount,
		IFSC:            req.IFSC,
		BankName:        req.BankName,
		Mobile:          req.Mobile,
	}
	out, err := g.call(ctx, http.MethodPost, "/api/v1/disburse", body)
	if err != nil {
		return nil, err
	}
	return g.normalize(out), nil
}

// CheckPayoutStatus implements ports.PayoutStatusChecker. A still-PENDING
// answer returns nil so the caller leaves the record untouched.
func (g *Fintech) CheckPayoutStatus(ctx context.Context, externalTxnID string) (*ports.CallbackNotice, error) {
	out, err := g.call(ctx, http.MethodGet, "/api/v1/disburse/status/"+externalTxnID, nil)
	if err != nil {
		return nil, err
	}
	if out.Status == "PENDING" {
		return nil, nil
	}
	return &ports.CallbackNotice{
		ExternalTxnID:    externalTxnID,
		Success:          out.Status == "SUCCESS",
		UTR:              out.UTR,
		GatewayReference: out.Reference,
		ProviderMessage:  out.Message,
	}, nil
}

func (g *Fintech) call(ctx context.Context, method, path string, body any) (*fintechResponse, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal fintech request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build fintech request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.Token)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.ErrGatewayTimeout(err)
		}
		return nil, apperror.ErrGateway("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.ErrGateway(fmt.Sprintf("fintech returned status %d", resp.StatusCode), nil)
	}

	var out fintechResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrGateway("fintech returned malformed response", err)
	}
	return &out, nil
}

// normalize maps an initiation response. The provider answers SUCCESS or
// PENDING for an accepted request; only FAILED is a rejection.
func (g *Fintech) normalize(out *fintechResponse) *ports.InitiationResult {
	if out.Status == "FAILED" {
		g.log.Info().Str("order_id", out.OrderID).Str("message", out.Message).Msg("fintech rejected request")
		return &ports.InitiationResult{Accepted: false, FailureReason: out.Message}
	}
	return &ports.InitiationResult{
		Accepted:         true,
		GatewayReference: out.Reference,
		PaymentIntent:    out.Intent,
		QRImage:          out.QRImage,
	}
}
