package domain

import (
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the state of a merchant account.
type MerchantStatus string

const (
	MerchantStatusActive      MerchantStatus = "ACTIVE"
	MerchantStatusSuspended   MerchantStatus = "SUSPENDED"
	MerchantStatusDeactivated MerchantStatus = "DEACTIVATED"
)

// Merchant represents a registered merchant account.
// Provider names select the gateway adapter used for pay-in and pay-out;
// callback URLs receive best-effort outcome notifications.
type Merchant struct {
	ID                uuid.UUID          `json:"id"`
	Username          string             `json:"username"`
	PasswordHash      string             `json:"-"` // Never expose
	MerchantName      string             `json:"merchant_name"`
	SecretKey         string             `json:"-"` // Signs outbound notifications, never expose
	PayinProvider     string             `json:"payin_provider"`
	PayoutProvider    string             `json:"payout_provider"`
	PayinCallbackURL  *string            `json:"payin_callback_url,omitempty"`
	PayoutCallbackURL *string            `json:"payout_callback_url,omitempty"`
	PayinCommission   CommissionSchedule `json:"payin_commission"`
	PayoutCommission  CommissionSchedule `json:"payout_commission"`
	Status            MerchantStatus     `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// IsActive returns true if the merchant account is active.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}
