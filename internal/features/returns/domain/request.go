package domain

import (
	"fmt"
	"strings"
	"time"

	"reverse-logistics/internal/core/apperror"

	"github.com/shopspring/decimal"
)

// ItemRequest is one line the customer wants to return. UnitPrice is
// optional; when sent it must match the order.
type ItemRequest struct {
	ProductID string           `json:"product_id,omitempty"`
	SKU       string           `json:"sku"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Key identifies the requested line.
func (i ItemRequest) Key() string {
	if i.SKU != "" {
		return i.SKU
	}
	return i.ProductID
}

// CreateRequest opens a return order.
type CreateRequest struct {
	OrderID      string        `json:"order_id"`
	CustomerID   string        `json:"customer_id,omitempty"`
	Reason       Reason        `json:"return_reason"`
	Description  string        `json:"description,omitempty"`
	RefundMethod RefundMethod  `json:"refund_method"`
	Items        []ItemRequest `json:"items"`
}

// Validate checks the request shape. Prices and quantities are checked
// against the order separately.
func (r CreateRequest) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(r.OrderID) == "" {
		fields["order_id"] = "is required"
	}
	if !r.Reason.Valid() {
		fields["return_reason"] = "unknown return reason"
	}
	if r.Reason == ReasonOther && strings.TrimSpace(r.Description) == "" {
		fields["description"] = "is required when the reason is other"
	}
	if !r.RefundMethod.Valid() {
		fields["refund_method"] = "unknown refund method"
	}
	if len(r.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	seen := map[string]bool{}
	for i, it := range r.Items {
		key := fmt.Sprintf("items[%d]", i)
		switch {
		case it.Key() == "":
			fields[key] = "product_id or sku is required"
		case seen[it.Key()]:
			fields[key] = "duplicate item"
		case it.Quantity <= 0:
			fields[key+".quantity"] = "must be positive"
		case it.UnitPrice != nil && it.UnitPrice.IsNegative():
			fields[key+".unit_price"] = "must not be negative"
		}
		seen[it.Key()] = true
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid return request", fields)
	}
	return nil
}

// OrderLine is a line of the original order.
type OrderLine struct {
	ProductID string
	SKU       string
	Name      string
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PriceItems checks the request against the order lines and returns the
// priced items. alreadyReturned holds quantities claimed by other open
// returns of the same order.
func PriceItems(req []ItemRequest, lines []OrderLine, alreadyReturned map[string]int) ([]Item, error) {
	byKey := map[string]OrderLine{}
	for _, l := range lines {
		if l.SKU != "" {
			byKey[l.SKU] = l
		}
		if l.ProductID != "" {
			byKey[l.ProductID] = l
		}
	}

	fields := map[string]string{}
	items := make([]Item, 0, len(req))
	for i, r := range req {
		key := fmt.Sprintf("items[%d]", i)
		line, ok := byKey[r.Key()]
		if !ok {
			fields[key] = "item is not part of the order"
			continue
		}
		lineKey := line.SKU
		if lineKey == "" {
			lineKey = line.ProductID
		}
		if left := line.Quantity - alreadyReturned[lineKey]; r.Quantity > left {
			fields[key+".quantity"] = fmt.Sprintf("only %d left to return", max(left, 0))
			continue
		}
		if r.UnitPrice != nil && !r.UnitPrice.Equal(line.UnitPrice) {
			fields[key+".unit_price"] = "does not match the order price " + line.UnitPrice.StringFixed(2)
			continue
		}
		items = append(items, Item{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			Category:  line.Category,
			Quantity:  r.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("return items do not match the order", fields)
	}
	return items, nil
}

// Total sums the line totals.
func Total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// NewReturnOrder builds a requested return order.
func NewReturnOrder(id, returnID string, r CreateRequest, companyID, customerID, shipmentID string,
	items []Item, refund decimal.Decimal, pickupSLA time.Duration, actor string, now time.Time) *ReturnOrder {
	o := &ReturnOrder{
		ID:              id,
		ReturnID:        returnID,
		OrderID:         r.OrderID,
		ShipmentID:      shipmentID,
		CompanyID:       companyID,
		CustomerID:      customerID,
		Status:          StatusRequested,
		SellerReview:    SellerReview{Status: ReviewPending},
		Reason:          r.Reason,
		Description:     r.Description,
		Items:           items,
		RefundMethod:    r.RefundMethod,
		RequestedAmount: Total(items),
		RefundAmount:    refund,
		Refund:          Refund{Status: RefundPending},
		SLA:             SLA{PickupDeadline: now.Add(pickupSLA)},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Log(actor, "return_requested", string(r.Reason), now)
	return o
}

// Decision is the seller's review input.
type Decision struct {
	Decision ReviewStatus `json:"decision"`
	Reason   string       `json:"reason,omitempty"`
}

// Validate requires a reason for rejections.
func (d Decision) Validate() error {
	switch d.Decision {
	case ReviewApproved:
		return nil
	case ReviewRejected:
		if strings.TrimSpace(d.Reason) == "" {
			return apperror.Validation("invalid review", map[string]string{"reason": "is required when rejecting"})
		}
		return nil
	}
	return apperror.Validation("invalid review", map[string]string{"decision": "must be approved or rejected"})
}

// PickupRequest books the return pickup.
type PickupRequest struct {
	Courier       string    `json:"courier"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

// Validate checks the pickup is bookable at now.
func (p PickupRequest) Validate(now time.Time) error {
	fields := map[string]string{}
	if strings.TrimSpace(p.Courier) == "" {
		fields["courier"] = "is required"
	}
	if p.ScheduledDate.IsZero() {
		fields["scheduled_date"] = "is required"
	} else if p.ScheduledDate.Before(now.Truncate(24 * time.Hour)) {
		fields["scheduled_date"] = "must not be in the past"
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid pickup request", fields)
	}
	return nil
}

// RefundRequest carries an optional admin override of the QC verdict.
type RefundRequest struct {
	Override bool             `json:"override,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// Validate checks an override names an amount within the requested total.
func (r RefundRequest) Validate(requested decimal.Decimal) error {
	if !r.Override {
		return nil
	}
	fields := map[string]string{}
	if strings.TrimSpace(r.Reason) == "" {
		fields["reason"] = "is required for an override"
	}
	switch {
	case r.Amount == nil:
		fields["amount"] = "is required for an override"
	case !r.Amount.IsPositive():
		fields["amount"] = "must be positive"
	case r.Amount.GreaterThan(requested):
		fields["amount"] = "must not exceed the returned value " + requested.StringFixed(2)
	}
	if len(fields) > 0 {
		return apperror.Validation("invalid refund override", fields)
	}
	return nil
}
