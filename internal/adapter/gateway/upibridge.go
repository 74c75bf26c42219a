package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/rs/zerolog"
)

// UPIBridgeConfig configures the upibridge adapter.
type UPIBridgeConfig struct {
	BaseURL    string
	Key        string
	Salt       string
	SuccessURL string
	FailureURL string
}

// UPIBridge integrates a PayU-style provider: form-encoded initiation
// carrying a SHA-512 request hash, and callbacks whose integrity is checked
// against a reverse-ordered hash before they reach the callback processor.
// The provider is collection-only; payouts are rejected without a call.
type UPIBridge struct {
	cfg    UPIBridgeConfig
	client HTTPClient
	log    zerolog.Logger
}

// NewUPIBridge creates the upibridge adapter.
func NewUPIBridge(cfg UPIBridgeConfig, client HTTPClient, log zerolog.Logger) *UPIBridge {
	return &UPIBridge{cfg: cfg, client: client, log: log}
}

// Name returns the provider name.
func (g *UPIBridge) Name() string { return "upibridge" }

const upiBridgeProductInfo = "payment"

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// requestHash computes the initiation hash:
// key|txnid|amount|productinfo|firstname|email|||||||||||salt
func (g *UPIBridge) requestHash(txnID, amount, firstname, email string) string {
	payload := strings.Join([]string{
		g.cfg.Key, txnID, amount, upiBridgeProductInfo, firstname, email,
		"", "", "", "", "", "", "", "", "", "",
		g.cfg.Salt,
	}, "|")
	return sha512Hex(payload)
}

// VerifyCallbackHash checks an inbound callback's integrity. The provider
// reverses the field order and leads with the salt:
// salt|status|||||||||||email|firstname|productinfo|amount|txnid|key
func (g *UPIBridge) VerifyCallbackHash(txnID, amount, status, firstname, email, hash string) bool {
	payload := strings.Join([]string{
		g.cfg.Salt, status,
		"", "", "", "", "", "", "", "", "", "",
		email, firstname, upiBridgeProductInfo, amount, txnID, g.cfg.Key,
	}, "|")
	expected := sha512Hex(payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(hash))) == 1
}

type upiBridgeResponse struct {
	Status string `json:"status"` // success | failure
	Result struct {
		MihpayID    string `json:"mihpayid"`
		PaymentLink string `json:"payment_link"`
		QRString    string `json:"qr_string"`
	} `json:"result"`
	Message string `json:"message"`
}

// InitiatePayin submits a form-encoded collection request.
func (g *UPIBridge) InitiatePayin(ctx context.Context, req ports.PayinInitiation) (*ports.InitiationResult, error) {
	amount := req.Amount.StringFixed(2)

	form := url.Values{}
	form.Set("key", g.cfg.Key)
	form.Set("txnid", req.ExternalTxnID)
	form.Set("amount", amount)
	form.Set("productinfo", upiBridgeProductInfo)
	form.Set("firstname", req.PayerName)
	form.Set("email", req.PayerEmail)
	form.Set("phone", req.PayerMobile)
	form.Set("surl", g.cfg.SuccessURL)
	form.Set("furl", g.cfg.FailureURL)
	form.Set("hash", g.requestHash(req.ExternalTxnID, amount, req.PayerName, req.PayerEmail))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/payment/initiate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build upibridge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.ErrGatewayTimeout(err)
		}
		return nil, apperror.ErrGateway("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.ErrGateway(fmt.Sprintf("upibridge returned status %d", resp.StatusCode), nil)
	}

	var out upiBridgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrGateway("upibridge returned malformed response", err)
	}

	if out.Status != "success" {
		g.log.Info().Str("txnid", req.ExternalTxnID).Str("message", out.Message).Msg("upibridge rejected pay-in")
		return &ports.InitiationResult{Accepted: false, FailureReason: out.Message}, nil
	}
	return &ports.InitiationResult{
		Accepted:         true,
		GatewayReference: out.Result.MihpayID,
		PaymentIntent:    normalizeUPIIntent(out.Result.PaymentLink),
		QRImage:          out.Result.QRString,
	}, nil
}

// InitiatePayout always fails: the provider has no disbursement API.
func (g *UPIBridge) InitiatePayout(ctx context.Context, req ports.PayoutInitiation) (*ports.InitiationResult, error) {
	return nil, apperror.ErrProviderInactive()
}

// normalizeUPIIntent rewrites provider-flavored intent links onto the
// standard upi:// scheme so clients render them uniformly.
func normalizeUPIIntent(link string) string {
	for _, scheme := range []string{"gpay://upi/", "phonepe://", "paytmmp://"} {
		if rest, ok := strings.CutPrefix(link, scheme); ok {
			return "upi://" + rest
		}
	}
	return link
}
