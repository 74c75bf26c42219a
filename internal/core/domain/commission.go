package domain

import "github.com/shopspring/decimal"

// ChargeKind selects how a commission tier computes its charge.
type ChargeKind string

const (
	ChargeKindFlat       ChargeKind = "FLAT"
	ChargeKindPercentage ChargeKind = "PERCENTAGE"
)

// chargeScale is the uniform rounding precision for computed charges:
// round-half-even at 4 decimal places.
const chargeScale = 4

// ChargeTier is one tier of a commission schedule.
type ChargeTier struct {
	Kind  ChargeKind      `json:"kind" mapstructure:"kind"`
	Value decimal.Decimal `json:"value" mapstructure:"value"`
}

// Apply computes the tier's charge for the given amount.
func (t ChargeTier) Apply(amount decimal.Decimal) decimal.Decimal {
	if t.Kind == ChargeKindPercentage {
		return t.Value.Mul(amount).Div(decimal.NewFromInt(100)).RoundBank(chargeScale)
	}
	return t.Value.RoundBank(chargeScale)
}

// CommissionSchedule is a two-tier commission configuration. Amounts less
// than or equal to Threshold use the BelowOrEqual tier; amounts strictly
// above it use the Above tier. The threshold is inclusive on the lower side.
type CommissionSchedule struct {
	Threshold    decimal.Decimal `json:"threshold" mapstructure:"threshold"`
	BelowOrEqual ChargeTier      `json:"below_or_equal" mapstructure:"below_or_equal"`
	Above        ChargeTier      `json:"above" mapstructure:"above"`
}

// Charge returns the commission for the given amount.
func (s CommissionSchedule) Charge(amount decimal.Decimal) decimal.Decimal {
	if amount.GreaterThan(s.Threshold) {
		return s.Above.Apply(amount)
	}
	return s.BelowOrEqual.Apply(amount)
}
