package domain

import (
	"testing"
	"time"

	"reverse-logistics/internal/core/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestSubmission_Validate(t *testing.T) {
	item := func(sku string) Item { return Item{SKU: sku, Quantity: 1} }

	tests := []struct {
		name  string
		sub   Submission
		field string
	}{
		{"UnknownResult", Submission{Result: "maybe", Inspector: "w1", Accepted: []Item{item("A")}}, "result"},
		{"NoInspector", Submission{Result: ResultApproved, Accepted: []Item{item("A")}}, "inspector"},
		{"NoItems", Submission{Result: ResultApproved, Inspector: "w1"}, "items"},
		{"ApprovedWithRejected", Submission{Result: ResultApproved, Inspector: "w1", Accepted: []Item{item("A")}, Rejected: []Item{item("B")}}, "rejected_items"},
		{"RejectedWithAccepted", Submission{Result: ResultRejected, Inspector: "w1", Accepted: []Item{item("A")}}, "accepted_items"},
		{"PartialOneSided", Submission{Result: ResultPartial, Inspector: "w1", Accepted: []Item{item("A")}}, "items"},
		{"ZeroQuantity", Submission{Result: ResultApproved, Inspector: "w1", Accepted: []Item{{SKU: "A"}}}, "accepted_items[0].quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			require.ErrorIs(t, err, apperror.ErrValidation)
			e, _ := apperror.As(err)
			assert.Contains(t, e.Fields, tt.field)
		})
	}

	ok := Submission{Result: ResultPartial, Inspector: "w1", Accepted: []Item{item("A")}, Rejected: []Item{item("B")}}
	assert.NoError(t, ok.Validate())
}

func TestComplete_OnlyOnce(t *testing.T) {
	pending, err := AttachPhotos(Record{}, []string{"https://cdn/qc/1.jpg"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pending.Status)

	sub := Submission{
		Result:    ResultPartial,
		Inspector: "w1",
		Accepted:  []Item{{SKU: "A", Quantity: 1}},
		Rejected:  []Item{{SKU: "B", Quantity: 1, Category: " Cosmetics "}},
	}

	done, err := Complete(pending, sub, now)
	require.NoError(t, err)
	assert.True(t, done.Completed())
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, []string{"https://cdn/qc/1.jpg"}, done.Photos)
	assert.Equal(t, ConditionSellable, done.AcceptedItems[0].Condition)
	assert.Equal(t, ConditionDamaged, done.RejectedItems[0].Condition)
	assert.Equal(t, "cosmetics", done.RejectedItems[0].Category)

	again, err := Complete(done, Submission{Result: ResultRejected, Inspector: "w2", Rejected: []Item{{SKU: "A", Quantity: 1}}}, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrQCAlreadyRecorded)
	assert.Equal(t, done, again)

	_, err = AttachPhotos(done, []string{"late.jpg"})
	assert.ErrorIs(t, err, ErrQCAlreadyRecorded)
}

func TestCondition(t *testing.T) {
	assert.True(t, ConditionDamaged.Unsellable())
	assert.True(t, ConditionMissing.Unsellable())
	assert.False(t, ConditionOpened.Unsellable())
	assert.False(t, Condition("wet").Valid())
}

func TestSubmission_CheckAgainst(t *testing.T) {
	lines := []Line{
		{SKU: "A", ProductID: "101", Quantity: 1},
		{SKU: "B", Quantity: 2},
	}

	ok := Submission{
		Accepted: []Item{{ProductID: "101", Quantity: 1}, {SKU: "B", Quantity: 1}},
		Rejected: []Item{{SKU: "B", Quantity: 1}},
	}
	assert.NoError(t, ok.CheckAgainst(lines))

	bad := Submission{
		Accepted: []Item{{SKU: "A", Quantity: 1}, {ProductID: "999", Quantity: 1}},
		Rejected: []Item{{ProductID: "101", Quantity: 1}},
	}
	err := bad.CheckAgainst(lines)
	require.ErrorIs(t, err, apperror.ErrValidation)
	appErr, _ := apperror.As(err)
	assert.Equal(t, map[string]string{
		"accepted_items[1]":          "is not part of the returned items",
		"rejected_items[0].quantity": "exceeds the returned quantity of 1",
	}, appErr.Fields)
}
