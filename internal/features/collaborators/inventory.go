package collaborators

import (
	"context"
	"time"
)

// InventoryClient applies stock movements.
type InventoryClient struct {
	client
}

// NewInventoryClient creates an InventoryClient for baseURL.
func NewInventoryClient(baseURL string, timeout time.Duration) *InventoryClient {
	return &InventoryClient{client: newClient("inventory", baseURL, timeout)}
}

type stockAdjustment struct {
	SKU       string `json:"sku"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

// AdjustStock moves delta units of sku. The inventory service ignores a
// reference it has already applied.
func (c *InventoryClient) AdjustStock(ctx context.Context, sku string, delta int, reason, reference string) error {
	return c.post(ctx, "/stock/adjustments", stockAdjustment{
		SKU:       sku,
		Delta:     delta,
		Reason:    reason,
		Reference: reference,
	}, nil)
}
