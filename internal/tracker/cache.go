package tracker

import (
	"time"

	"github.com/krobus00/trading-client/internal/entity"
)

// cacheOrderLocked moves an evicted order into the bounded TTL cache of
// recently closed orders. Must be called with t.mu held.
func (t *Tracker) cacheOrderLocked(order *entity.InFlightOrder) {
	now := time.Now().UTC()

	for id, cached := range t.cachedOrders {
		if now.Sub(cached.evictedAt) > t.cfg.CachedOrderTTL {
			t.dropCachedLocked(id)
		}
	}

	if len(t.cachedOrders) >= t.cfg.MaxCachedOrders {
		oldestID := ""
		oldestAt := now
		for id, cached := range t.cachedOrders {
			if cached.evictedAt.Before(oldestAt) {
				oldestAt = cached.evictedAt
				oldestID = id
			}
		}
		if oldestID != "" {
			t.dropCachedLocked(oldestID)
		}
	}

	t.cachedOrders[order.ClientOrderID] = cachedOrder{order: order, evictedAt: now}
}

func (t *Tracker) dropCachedLocked(clientOrderID string) {
	cached, ok := t.cachedOrders[clientOrderID]
	if !ok {
		return
	}

	delete(t.cachedOrders, clientOrderID)
	delete(t.orderLocks, clientOrderID)
	if exchangeOrderID := cached.order.ExchangeOrderID(); exchangeOrderID != "" {
		delete(t.exchangeIDIndex, exchangeOrderID)
	}
}

// FetchCachedOrder looks up a recently closed order. Producers use it to
// tell "late duplicate for a done order" apart from "order we never knew".
func (t *Tracker) FetchCachedOrder(clientOrderID string) (*entity.InFlightOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cached, ok := t.cachedOrders[clientOrderID]
	if !ok {
		return nil, false
	}
	if time.Now().UTC().Sub(cached.evictedAt) > t.cfg.CachedOrderTTL {
		return nil, false
	}
	return cached.order, true
}
