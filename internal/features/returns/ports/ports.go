package ports

import (
	"context"
	"errors"
	"time"

	"reverse-logistics/internal/core/pagination"
	qcservice "reverse-logistics/internal/features/qc/service"
	"reverse-logistics/internal/features/returns/domain"

	"github.com/shopspring/decimal"
)

// ErrDuplicateReturnID is returned by Create when the human readable id
// is already taken.
var ErrDuplicateReturnID = errors.New("return id already exists")

// Filter narrows a return order listing.
type Filter struct {
	CompanyID   string
	CustomerID  string
	Status      domain.Status
	Reason      domain.Reason
	Breached    *bool
	ShipmentIDs []string
	OrderIDs    []string
	ReturnIDs   []string
}

// Stats aggregates return orders for reporting.
type Stats struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
	ByReason       map[string]int64 `json:"by_reason"`
	Breached       int64            `json:"breached"`
	RefundedAmount decimal.Decimal  `json:"refunded_amount"`
}

// Repository persists return orders with optimistic concurrency. Deleted
// orders are invisible to every read.
type Repository interface {
	Create(ctx context.Context, o *domain.ReturnOrder) error
	Get(ctx context.Context, id string) (*domain.ReturnOrder, error)
	// Update writes o if its Version is still current and bumps it.
	Update(ctx context.Context, o *domain.ReturnOrder) error
	List(ctx context.Context, f Filter, p pagination.Params) ([]domain.ReturnOrder, int64, error)
	// FindPickupBreaches returns orders awaiting pickup past their deadline
	// whose breach has not been escalated yet.
	FindPickupBreaches(ctx context.Context, now time.Time, limit int) ([]domain.ReturnOrder, error)
	// ReturnedQuantities sums item quantities of the order's live returns.
	ReturnedQuantities(ctx context.Context, orderID string) (map[string]int, error)
	Stats(ctx context.Context, companyID, customerID string) (Stats, error)
}

// Order is the original sale a return refers to.
type Order struct {
	ID         string
	CompanyID  string
	CustomerID string
	ShipmentID string
	Lines      []domain.OrderLine
}

// OrderLookup resolves the original order.
type OrderLookup interface {
	// GetOrder returns an apperror not-found error for unknown orders.
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// RefundPolicy turns the returned goods value into the refundable amount.
type RefundPolicy interface {
	Apply(ctx context.Context, companyID string, gross decimal.Decimal, items []domain.Item) (decimal.Decimal, error)
}

// PickupBooking carries what the courier needs to collect a return.
type PickupBooking struct {
	ReturnID      string    `json:"return_id"`
	OrderID       string    `json:"order_id"`
	CompanyID     string    `json:"company_id"`
	Courier       string    `json:"courier"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

// PickupConfirmation is the courier's answer to a booking.
type PickupConfirmation struct {
	AWB           string    `json:"awb"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

// Courier books and cancels return pickups.
type Courier interface {
	SchedulePickup(ctx context.Context, b PickupBooking) (PickupConfirmation, error)
	CancelPickup(ctx context.Context, courier, awb string) error
}

// RefundInstruction is sent to the payment collaborator. Reference is the
// idempotency key: repeating it returns the first transaction.
type RefundInstruction struct {
	CompanyID  string          `json:"company_id"`
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference"`
}

// Payment issues refunds.
type Payment interface {
	Refund(ctx context.Context, r RefundInstruction) (string, error)
}

// Notifier delivers escalation messages.
type Notifier interface {
	Notify(ctx context.Context, channel, recipient, template string, data map[string]string) error
}

// PhotoUploader stores QC evidence and returns public URLs.
type PhotoUploader interface {
	Upload(ctx context.Context, folder string, photos []qcservice.Photo) ([]string, error)
}

// SearchIndex resolves free-text search to order and shipment references.
type SearchIndex interface {
	FindOrdersMatching(ctx context.Context, companyID, term string) ([]string, error)
	FindShipmentsMatching(ctx context.Context, companyID, term string) ([]string, error)
}
