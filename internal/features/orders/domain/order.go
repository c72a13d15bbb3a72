package domain

import (
	"strings"
	"time"

	"reverse-logistics/internal/core/apperror"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	// OrderStatusPending is used for store statuses with no known mapping.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusCreated indicates the order has been placed but not yet shipped.
	OrderStatusCreated OrderStatus = "CREATED"
	// OrderStatusShipped indicates the order has been handed to the carrier.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusCancelled covers cancelled, refunded and failed orders.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var (
	ErrOrderNotFound = apperror.NotFound("ORDER_NOT_FOUND", "order not found")
	// ErrEmailMismatch is returned when a customer looks up an order with the wrong email.
	ErrEmailMismatch = apperror.New(apperror.KindForbidden, "EMAIL_MISMATCH", "email does not match order record")
)

// TrackingInfo represents shipment tracking details for an order.
type TrackingInfo struct {
	// TrackingProvider is the courier key, e.g. coordinadora_co.
	TrackingProvider string `json:"tracking_provider"`
	// TrackingNumber is the unique tracking identifier provided by the carrier.
	TrackingNumber string `json:"tracking_number"`
}

// Order represents a customer order in the store.
type Order struct {
	// ID is the unique identifier for the order.
	ID string `json:"order_id"`
	// CompanyID is the seller the store belongs to.
	CompanyID string `json:"company_id"`
	// CustomerID is the store customer, or guest:<email> for guest checkouts.
	CustomerID string `json:"customer_id"`
	// Status represents the current state of the order (e.g., CREATED, SHIPPED).
	Status    OrderStatus `json:"status"`
	FirstName string      `json:"name"`
	LastName  string      `json:"last_name"`
	// Address is the shipping address for the order.
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	// PaymentMethod is the display name of the payment method.
	PaymentMethod string          `json:"payment_method"`
	Currency      string          `json:"currency,omitempty"`
	Total         decimal.Decimal `json:"total"`
	// Tracking contains shipment tracking information (can be multiple for partial shipments/returns).
	Tracking []TrackingInfo `json:"tracking"`
	// CreatedAt is the timestamp when the order was created.
	CreatedAt time.Time   `json:"create_date"`
	Items     []OrderItem `json:"items"`
}

// OrderItem represents an individual item within an order.
type OrderItem struct {
	ProductID string `json:"product_id,omitempty"`
	// Quantity is the number of units purchased.
	Quantity int `json:"quantity"`
	// SKU is empty for fee lines.
	SKU  string `json:"sku"`
	Name string `json:"name"`
	// Picture is the URL to an image of the product.
	Picture   string          `json:"picture"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Shipment returns the most recent tracking entry with a number.
func (o *Order) Shipment() (TrackingInfo, bool) {
	for i := len(o.Tracking) - 1; i >= 0; i-- {
		if o.Tracking[i].TrackingNumber != "" {
			return o.Tracking[i], true
		}
	}
	return TrackingInfo{}, false
}

// Contact returns the phone number, falling back to the email.
func (o *Order) Contact() string {
	if o.Phone != "" {
		return o.Phone
	}
	return o.Email
}

// Matches reports whether email is the order's contact email.
func (o *Order) Matches(email string) bool {
	return o.Email != "" && strings.EqualFold(strings.TrimSpace(email), o.Email)
}
