package gateway

import (
	"context"

	"payment-aggregator/internal/core/ports"
)

// Maintenance is the kill-switch pseudo-provider. Pointing a merchant's
// provider at it rejects every initiation synchronously without touching
// the network, which takes the merchant offline without config redeploys.
type Maintenance struct{}

// NewMaintenance creates the maintenance pseudo-provider.
func NewMaintenance() *Maintenance {
	return &Maintenance{}
}

// Name returns the provider name.
func (g *Maintenance) Name() string { return ports.ProviderMaintenance }

// InitiatePayin always declines, shaped as a normal non-accepted result
// rather than an error.
func (g *Maintenance) InitiatePayin(ctx context.Context, req ports.PayinInitiation) (*ports.InitiationResult, error) {
	return &ports.InitiationResult{Accepted: false, FailureReason: "provider under maintenance"}, nil
}

// InitiatePayout always declines.
func (g *Maintenance) InitiatePayout(ctx context.Context, req ports.PayoutInitiation) (*ports.InitiationResult, error) {
	return &ports.InitiationResult{Accepted: false, FailureReason: "provider under maintenance"}, nil
}
