package collaborators

import (
	"context"
	"errors"
	"time"

	"reverse-logistics/internal/features/returns/ports"
)

// PaymentClient issues refunds. The instruction reference is forwarded as
// the idempotency key, so a repeated call returns the first transaction.
type PaymentClient struct {
	client
}

// NewPaymentClient creates a PaymentClient for baseURL.
func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{client: newClient("payment", baseURL, timeout)}
}

// Refund implements ports.Payment.
func (c *PaymentClient) Refund(ctx context.Context, r ports.RefundInstruction) (string, error) {
	var resp struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := c.post(ctx, "/refunds", r, &resp); err != nil {
		return "", err
	}
	if resp.TransactionID == "" {
		return "", errors.New("payment returned an empty transaction id")
	}
	return resp.TransactionID, nil
}
