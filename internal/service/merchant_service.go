package service

import (
	"context"
	"time"

	"payment-aggregator/internal/core/ports"
	"payment-aggregator/pkg/apperror"

	"github.com/google/uuid"
)

// merchantService implements ports.MerchantManagementService.
type merchantService struct {
	merchantRepo ports.MerchantRepository
	registry     ports.GatewayRegistry
}

// NewMerchantService creates a new merchant management service.
func NewMerchantService(
	merchantRepo ports.MerchantRepository,
	registry ports.GatewayRegistry,
) ports.MerchantManagementService {
	return &merchantService{
		merchantRepo: merchantRepo,
		registry:     registry,
	}
}

// GetProfile returns the merchant's own account view.
func (s *merchantService) GetProfile(ctx context.Context, merchantID uuid.UUID) (*ports.MerchantProfile, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}

	return &ports.MerchantProfile{
		ID:                merchant.ID,
		Username:          merchant.Username,
		MerchantName:      merchant.MerchantName,
		PayinProvider:     merchant.PayinProvider,
		PayoutProvider:    merchant.PayoutProvider,
		PayinCallbackURL:  merchant.PayinCallbackURL,
		PayoutCallbackURL: merchant.PayoutCallbackURL,
		Status:            string(merchant.Status),
		CreatedAt:         merchant.CreatedAt.Format(time.RFC3339),
	}, nil
}

// SwitchProviders changes the merchant's active providers. Names are
// validated against the registry, so a typo cannot silently route every
// transaction into the unknown-provider error path.
func (s *merchantService) SwitchProviders(ctx context.Context, merchantID uuid.UUID, payinProvider, payoutProvider *string) error {
	if payinProvider == nil && payoutProvider == nil {
		return apperror.Validation("At least one provider must be given")
	}
	for _, name := range []*string{payinProvider, payoutProvider} {
		if name == nil {
			continue
		}
		if _, ok := s.registry.Get(*name); !ok {
			return apperror.ErrUnknownProvider(*name)
		}
	}

	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if merchant == nil {
		return apperror.ErrNotFound("merchant")
	}

	if err := s.merchantRepo.UpdateProviders(ctx, merchantID, payinProvider, payoutProvider); err != nil {
		return apperror.InternalError(err)
	}
	return nil
}

// UpdateCallbackURLs replaces the merchant's notification endpoints.
func (s *merchantService) UpdateCallbackURLs(ctx context.Context, merchantID uuid.UUID, payinURL, payoutURL *string) error {
	if payinURL == nil && payoutURL == nil {
		return apperror.Validation("At least one callback URL must be given")
	}

	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return apperror.InternalError(err)
	}
	if merchant == nil {
		return apperror.ErrNotFound("merchant")
	}

	if err := s.merchantRepo.UpdateCallbackURLs(ctx, merchantID, payinURL, payoutURL); err != nil {
		return apperror.InternalError(err)
	}
	return nil
}
