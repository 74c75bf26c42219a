package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"payment-aggregator/internal/core/domain"
	"payment-aggregator/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// notifyTimeout bounds one delivery attempt.
const notifyTimeout = 10 * time.Second

// HTTPClient is the outbound client interface, substitutable in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotifierImpl implements ports.NotifierService. Delivery is best-effort
// and single-attempt: the merchant's status endpoint is the authoritative
// fallback, so a failed delivery is logged and dropped, never retried.
type NotifierImpl struct {
	merchantRepo ports.MerchantRepository
	sigSvc       ports.SignatureService
	httpClient   HTTPClient
	log          zerolog.Logger
}

// NewNotifier creates a new NotifierImpl.
func NewNotifier(
	merchantRepo ports.MerchantRepository,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	log zerolog.Logger,
) *NotifierImpl {
	return &NotifierImpl{
		merchantRepo: merchantRepo,
		sigSvc:       sigSvc,
		httpClient:   httpClient,
		log:          log,
	}
}

// Notify delivers the notification to the merchant's callback URL for the
// transaction kind. The POST body is signed with the merchant's secret key
// (HMAC-SHA256, X-Signature header). Runs asynchronously; a merchant with
// no URL configured for the kind is skipped.
func (s *NotifierImpl) Notify(ctx context.Context, merchantID uuid.UUID, kind domain.TransactionKind, n ports.Notification) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		s.log.Error().Err(err).Str("merchant_id", merchantID.String()).Msg("notify: failed to fetch merchant")
		return
	}
	if merchant == nil {
		s.log.Warn().Str("merchant_id", merchantID.String()).Msg("notify: merchant not found")
		return
	}

	var url *string
	switch kind {
	case domain.TransactionKindPayout:
		url = merchant.PayoutCallbackURL
	default:
		url = merchant.PayinCallbackURL
	}
	if url == nil || *url == "" {
		s.log.Debug().
			Str("merchant_id", merchantID.String()).
			Str("kind", string(kind)).
			Msg("notify: no callback URL configured, skipping")
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		s.log.Error().Err(err).Str("txn_id", n.ExternalTxnID).Msg("notify: failed to marshal payload")
		return
	}
	signature := s.sigSvc.Sign(merchant.SecretKey, string(payload))

	go s.deliver(*url, payload, signature, n.ExternalTxnID)
}

// deliver makes the single delivery attempt on a fresh context, detached
// from the request that triggered it.
func (s *NotifierImpl) deliver(url string, payload []byte, signature, txnID string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		s.log.Error().Err(err).Str("txn_id", txnID).Msg("notify: failed to build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Str("txn_id", txnID).Msg("notify: delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.log.Info().Str("txn_id", txnID).Int("status", resp.StatusCode).Msg("notify: delivered")
		return
	}
	s.log.Warn().Str("txn_id", txnID).Int("status", resp.StatusCode).Msg("notify: non-2xx response, dropped")
}
