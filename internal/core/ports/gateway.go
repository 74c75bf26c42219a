package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PayinInitiation is the common request shape for generating a collection
// intent with an upstream provider.
type PayinInitiation struct {
	ExternalTxnID string
	Amount        decimal.Decimal
	PayerName     string
	PayerEmail    string
	PayerMobile   string
	ClientIP      string
	DeviceInfo    string
}

// PayoutInitiation is the common request shape for initiating a disbursement
// with an upstream provider.
type PayoutInitiation struct {
	ExternalTxnID      string
	Amount             decimal.Decimal
	BeneficiaryName    string
	BeneficiaryAccount string
	IFSC               string
	BankName           string
	Mobile             string
}

// InitiationResult is the normalized provider response. Accepted means the
// provider took the request for asynchronous settlement; a non-accepted
// result carries the provider's failure message.
type InitiationResult struct {
	Accepted         bool
	GatewayReference string
	PaymentIntent    string // Renderable UPI intent URI, pay-in only
	QRImage          string
	FailureReason    string
}

// CallbackNotice is a provider callback normalized into the common shape
// consumed by the callback processor.
type CallbackNotice struct {
	ExternalTxnID    string
	Success          bool
	UTR              string
	GatewayReference string
	ProviderMessage  string
}

// ProviderMaintenance is the reserved name of the kill-switch
// pseudo-provider. Services reject requests routed to it as a
// configuration error before any record or balance is touched.
const ProviderMaintenance = "maintenance"

// GatewayAdapter is one upstream payment provider. Adapters own
// provider-specific request shaping, authentication and response
// normalization. An adapter that does not support a direction returns a
// configuration error without any network call.
type GatewayAdapter interface {
	Name() string
	InitiatePayin(ctx context.Context, req PayinInitiation) (*InitiationResult, error)
	InitiatePayout(ctx context.Context, req PayoutInitiation) (*InitiationResult, error)
}

// PayoutStatusChecker is implemented by adapters whose providers expose a
// pull-based payout status endpoint.
type PayoutStatusChecker interface {
	CheckPayoutStatus(ctx context.Context, externalTxnID string) (*CallbackNotice, error)
}

// GatewayRegistry resolves a configured provider name to its adapter.
type GatewayRegistry interface {
	Get(name string) (GatewayAdapter, bool)
}
