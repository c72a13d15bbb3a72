package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"reverse-logistics/internal/core/cache"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/features/orders/domain"
	"reverse-logistics/internal/features/orders/ports"

	"go.uber.org/zap"
)

const orderCacheKeyPrefix = "orders:"

// CachedOrderProvider keeps fetched orders in the cache. Searches always go
// to the store. A cache outage degrades to direct reads.
type CachedOrderProvider struct {
	next  ports.OrderProvider
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedOrderProvider wraps next with a read-through cache.
func NewCachedOrderProvider(next ports.OrderProvider, c cache.Cache, ttl time.Duration) *CachedOrderProvider {
	return &CachedOrderProvider{next: next, cache: c, ttl: ttl, log: logger.Named("orders_cache")}
}

// GetOrder serves the order from the cache, loading it on a miss.
func (p *CachedOrderProvider) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	key := orderCacheKeyPrefix + orderID

	data, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		var order domain.Order
		if err := json.Unmarshal(data, &order); err == nil {
			return &order, nil
		}
		p.log.Warn("Dropping unreadable cached order", zap.String("order_id", orderID))
	case !errors.Is(err, cache.ErrKeyNotFound):
		p.log.Warn("Order cache read failed", zap.String("order_id", orderID), zap.Error(err))
	}

	order, err := p.next.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(order); err == nil {
		if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
			p.log.Warn("Order cache write failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return order, nil
}

// SearchOrders is not cached.
func (p *CachedOrderProvider) SearchOrders(ctx context.Context, term string, limit int) ([]domain.Order, error) {
	return p.next.SearchOrders(ctx, term, limit)
}
