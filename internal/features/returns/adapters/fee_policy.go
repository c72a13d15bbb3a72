package adapters

import (
	"context"

	"reverse-logistics/internal/features/returns/domain"

	"github.com/shopspring/decimal"
)

// FeePolicy deducts a flat restocking fee percentage from the returned
// goods value.
type FeePolicy struct {
	percent decimal.Decimal
}

// NewFeePolicy creates a policy charging percent (0-100) of the gross value.
func NewFeePolicy(percent float64) *FeePolicy {
	p := decimal.NewFromFloat(percent)
	if p.IsNegative() {
		p = decimal.Zero
	}
	if p.GreaterThan(decimal.NewFromInt(100)) {
		p = decimal.NewFromInt(100)
	}
	return &FeePolicy{percent: p}
}

// Apply returns gross minus the fee, rounded to cents.
func (p *FeePolicy) Apply(_ context.Context, _ string, gross decimal.Decimal, _ []domain.Item) (decimal.Decimal, error) {
	fee := gross.Mul(p.percent).Div(decimal.NewFromInt(100))
	return gross.Sub(fee).Round(2), nil
}
