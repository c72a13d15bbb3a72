package domain

import (
	"testing"
	"time"

	"reverse-logistics/internal/core/apperror"
	qc "reverse-logistics/internal/features/qc/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func twoItems() []Item {
	return []Item{
		{SKU: "A", Quantity: 1, UnitPrice: d("500")},
		{SKU: "B", Quantity: 1, UnitPrice: d("300")},
	}
}

func completed(result qc.Result, accepted, rejected []qc.Item) qc.Record {
	at := now
	return qc.Record{Status: qc.StatusCompleted, Result: result, AcceptedItems: accepted, RejectedItems: rejected, CompletedAt: &at}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusRequested, StatusApproved, true},
		{StatusRequested, StatusRejected, true},
		{StatusApproved, StatusPickupScheduled, true},
		{StatusPickupScheduled, StatusInTransit, true},
		{StatusInTransit, StatusQCPending, true},
		{StatusQCPending, StatusQCCompleted, true},
		{StatusQCCompleted, StatusRefunded, true},
		{StatusQCCompleted, StatusRejected, true},
		{StatusQCPending, StatusCancelled, true},
		{StatusRequested, StatusPickupScheduled, false},
		{StatusApproved, StatusRejected, false},
		{StatusRefunded, StatusCancelled, false},
		{StatusCancelled, StatusRequested, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransition_RejectedNeedsOverride(t *testing.T) {
	o := &ReturnOrder{Status: StatusRejected}

	err := o.Transition(StatusRefunded, "admin-1", "refund_completed", "", now)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Empty(t, o.Timeline)

	o.Log("admin-1", ActionRefundOverride, "goodwill", now)
	require.NoError(t, o.Transition(StatusRefunded, "admin-1", "refund_completed", "", now))
	assert.Equal(t, StatusRefunded, o.Status)
}

func TestCalculateActualRefund(t *testing.T) {
	items := twoItems()

	tests := []struct {
		name   string
		refund string
		rec    qc.Record
		want   string
	}{
		{
			name:   "Approved",
			refund: "800",
			rec:    completed(qc.ResultApproved, []qc.Item{{SKU: "A", Quantity: 1}, {SKU: "B", Quantity: 1}}, nil),
			want:   "800",
		},
		{
			name:   "PartialDeductsRejectedLine",
			refund: "800",
			rec:    completed(qc.ResultPartial, []qc.Item{{SKU: "A", Quantity: 1}}, []qc.Item{{SKU: "B", Quantity: 1}}),
			want:   "500",
		},
		{
			name:   "PartialProratesRestockingFee",
			refund: "720",
			rec:    completed(qc.ResultPartial, []qc.Item{{SKU: "A", Quantity: 1}}, []qc.Item{{SKU: "B", Quantity: 1}}),
			want:   "450",
		},
		{
			name:   "PartialCapsOverReportedQuantity",
			refund: "800",
			rec:    completed(qc.ResultPartial, []qc.Item{{SKU: "A", Quantity: 1}}, []qc.Item{{SKU: "B", Quantity: 5}}),
			want:   "500",
		},
		{
			name:   "RejectedRefundsNothing",
			refund: "800",
			rec:    completed(qc.ResultRejected, nil, []qc.Item{{SKU: "A", Quantity: 1}, {SKU: "B", Quantity: 1}}),
			want:   "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateActualRefund(Snapshot{Items: items, RequestedAmount: d("800"), RefundAmount: d(tt.refund), QC: tt.rec})
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestIsEligibleForRefund(t *testing.T) {
	partial := completed(qc.ResultPartial, nil, nil)
	rejected := completed(qc.ResultRejected, nil, nil)

	assert.True(t, IsEligibleForRefund(Snapshot{RefundAmount: d("500"), QC: partial}, false))
	assert.False(t, IsEligibleForRefund(Snapshot{RefundAmount: d("0"), QC: partial}, false))
	assert.False(t, IsEligibleForRefund(Snapshot{RefundAmount: d("500"), QC: rejected}, false))
	assert.False(t, IsEligibleForRefund(Snapshot{RefundAmount: d("500"), QC: qc.Record{Status: qc.StatusPending}}, false))
	assert.True(t, IsEligibleForRefund(Snapshot{RefundAmount: d("500"), QC: rejected}, true))
}

func TestPriceItems(t *testing.T) {
	lines := []OrderLine{
		{SKU: "A", Quantity: 2, UnitPrice: d("500"), Category: "shoes"},
		{SKU: "B", Quantity: 1, UnitPrice: d("300")},
	}
	price := d("500")

	items, err := PriceItems([]ItemRequest{{SKU: "A", Quantity: 1, UnitPrice: &price}, {SKU: "B", Quantity: 1}}, lines, map[string]int{"A": 1})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "shoes", items[0].Category)
	assert.True(t, d("800").Equal(Total(items)))

	wrong := d("450")
	_, err = PriceItems([]ItemRequest{
		{SKU: "A", Quantity: 2},
		{SKU: "B", Quantity: 1, UnitPrice: &wrong},
		{SKU: "Z", Quantity: 1},
	}, lines, map[string]int{"A": 1})
	require.ErrorIs(t, err, apperror.ErrValidation)
	e, _ := apperror.As(err)
	assert.Equal(t, "only 1 left to return", e.Fields["items[0].quantity"])
	assert.Contains(t, e.Fields, "items[1].unit_price")
	assert.Contains(t, e.Fields, "items[2]")
}

func TestCreateRequest_Validate(t *testing.T) {
	ok := CreateRequest{
		OrderID:      "1001",
		Reason:       ReasonDamaged,
		RefundMethod: RefundWallet,
		Items:        []ItemRequest{{SKU: "A", Quantity: 1}},
	}
	require.NoError(t, ok.Validate())

	bad := CreateRequest{
		Reason:       ReasonOther,
		RefundMethod: "cash",
		Items:        []ItemRequest{{SKU: "A", Quantity: 1}, {SKU: "A", Quantity: 2}},
	}
	err := bad.Validate()
	require.ErrorIs(t, err, apperror.ErrValidation)
	e, _ := apperror.As(err)
	for _, f := range []string{"order_id", "description", "refund_method", "items[1]"} {
		assert.Contains(t, e.Fields, f)
	}
}

func TestDecisionAndOverrideValidation(t *testing.T) {
	assert.NoError(t, Decision{Decision: ReviewApproved}.Validate())
	assert.ErrorIs(t, Decision{Decision: ReviewRejected}.Validate(), apperror.ErrValidation)
	assert.ErrorIs(t, Decision{Decision: "maybe"}.Validate(), apperror.ErrValidation)

	amount := d("900")
	assert.NoError(t, RefundRequest{}.Validate(d("800")))
	assert.ErrorIs(t, RefundRequest{Override: true, Amount: &amount, Reason: "goodwill"}.Validate(d("800")), apperror.ErrValidation)

	assert.NoError(t, PickupRequest{Courier: "coordinadora_co", ScheduledDate: now}.Validate(now))
	assert.ErrorIs(t, PickupRequest{Courier: "x", ScheduledDate: now.AddDate(0, 0, -2)}.Validate(now), apperror.ErrValidation)
}
