package domain

import (
	qc "reverse-logistics/internal/features/qc/domain"

	"github.com/shopspring/decimal"
)

// Snapshot is the value view of a return order used by the refund rules.
type Snapshot struct {
	Items           []Item
	RequestedAmount decimal.Decimal
	RefundAmount    decimal.Decimal
	QC              qc.Record
}

// Snapshot captures the fields the refund rules read.
func (o *ReturnOrder) Snapshot() Snapshot {
	return Snapshot{
		Items:           o.Items,
		RequestedAmount: o.RequestedAmount,
		RefundAmount:    o.RefundAmount,
		QC:              o.QC,
	}
}

// CalculateActualRefund derives the refund after QC. An approved QC keeps the
// preliminary amount, a rejected QC refunds nothing, and a partial QC deducts
// the rejected lines prorated by the policy ratio refund/requested:
//
//	refund - sum(rejected qty * unit price) * refund / requested
//
// Rejected quantities are capped at the returned quantity and the result
// never drops below zero.
func CalculateActualRefund(s Snapshot) decimal.Decimal {
	switch s.QC.Result {
	case qc.ResultApproved:
		return s.RefundAmount
	case qc.ResultRejected:
		return decimal.Zero
	}
	if !s.RequestedAmount.IsPositive() {
		return decimal.Zero
	}

	returned := map[string]Item{}
	for _, it := range s.Items {
		returned[it.Key()] = it
	}

	deduction := decimal.Zero
	for _, r := range s.QC.RejectedItems {
		key := r.SKU
		if key == "" {
			key = r.ProductID
		}
		it, ok := returned[key]
		if !ok {
			continue
		}
		qty := r.Quantity
		if qty > it.Quantity {
			qty = it.Quantity
		}
		deduction = deduction.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(qty))))
	}

	ratio := s.RefundAmount.Div(s.RequestedAmount)
	refund := s.RefundAmount.Sub(deduction.Mul(ratio)).Round(2)
	if refund.IsNegative() {
		return decimal.Zero
	}
	return refund
}

// IsEligibleForRefund reports whether the payment may be issued: the QC is
// final and passed at least partly, or an admin override is recorded, and
// there is money to return.
func IsEligibleForRefund(s Snapshot, override bool) bool {
	if !s.RefundAmount.IsPositive() {
		return false
	}
	if override {
		return true
	}
	if !s.QC.Completed() {
		return false
	}
	return s.QC.Result == qc.ResultApproved || s.QC.Result == qc.ResultPartial
}
