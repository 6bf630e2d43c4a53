package tracker

import (
	"context"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/sirupsen/logrus"
)

// ProcessOrderNotFound counts one not-found response from the exchange for
// an actively tracked order. Beyond the configured limit the exchange's
// bookkeeping for the order is considered untrustworthy: the order is
// demoted to the lost-order registry, marked failed and permanently excluded
// from completion, while staying reachable so late fills are still recorded
// for accounting.
func (t *Tracker) ProcessOrderNotFound(ctx context.Context, clientOrderID string) error {
	if clientOrderID == "" {
		return ErrUpdateMissingOrderID
	}

	t.mu.Lock()
	order, ok := t.activeOrders[clientOrderID]
	if !ok {
		t.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"exchange":        t.cfg.Exchange,
			"client_order_id": clientOrderID,
		}).Debug("not-found signal for untracked order ignored")
		return nil
	}

	t.notFoundRecords[clientOrderID]++
	count := t.notFoundRecords[clientOrderID]
	if count <= t.cfg.LostOrderCountLimit {
		t.mu.Unlock()
		return nil
	}

	delete(t.activeOrders, clientOrderID)
	t.lostOrders[clientOrderID] = order
	lock := t.orderLocks[clientOrderID]
	t.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"exchange":        t.cfg.Exchange,
		"client_order_id": clientOrderID,
		"not_found_count": count,
	}).Warn("order repeatedly not found, marking as lost")

	lock.Lock()
	order.ApplyOrderUpdate(&entity.OrderUpdate{
		ClientOrderID: clientOrderID,
		Symbol:        order.Symbol,
		NewState:      entity.OrderStateFailed,
	})
	lock.Unlock()

	t.deleteSnapshot(ctx, clientOrderID)

	t.sink.OrderFailure(ctx, entity.OrderFailureEvent{
		Timestamp:     order.LastUpdateAt(),
		Exchange:      t.cfg.Exchange,
		ClientOrderID: clientOrderID,
		Symbol:        order.Symbol,
		Type:          order.Type,
		Reason:        "order not found on exchange beyond limit",
	})

	return nil
}

// ActiveOrders returns a copy of the active table.
func (t *Tracker) ActiveOrders() map[string]*entity.InFlightOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()

	orders := make(map[string]*entity.InFlightOrder, len(t.activeOrders))
	for id, order := range t.activeOrders {
		orders[id] = order
	}
	return orders
}

// LostOrders returns a copy of the lost-order registry.
func (t *Tracker) LostOrders() map[string]*entity.InFlightOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()

	orders := make(map[string]*entity.InFlightOrder, len(t.lostOrders))
	for id, order := range t.lostOrders {
		orders[id] = order
	}
	return orders
}

// AllFillableOrders lists orders that still need fill polling: everything
// active plus lost orders, which keep accumulating fills for accounting.
func (t *Tracker) AllFillableOrders() []*entity.InFlightOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()

	orders := make([]*entity.InFlightOrder, 0, len(t.activeOrders)+len(t.lostOrders))
	for _, order := range t.activeOrders {
		orders = append(orders, order)
	}
	for _, order := range t.lostOrders {
		orders = append(orders, order)
	}
	return orders
}

// AllUpdatableOrders lists orders eligible for status polling. Lost orders
// are excluded: the exchange already denied they exist.
func (t *Tracker) AllUpdatableOrders() []*entity.InFlightOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()

	orders := make([]*entity.InFlightOrder, 0, len(t.activeOrders))
	for _, order := range t.activeOrders {
		orders = append(orders, order)
	}
	return orders
}

// FetchOrder looks up one order across the active table and the lost-order
// registry.
func (t *Tracker) FetchOrder(clientOrderID string) (*entity.InFlightOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if order, ok := t.activeOrders[clientOrderID]; ok {
		return order, true
	}
	if order, ok := t.lostOrders[clientOrderID]; ok {
		return order, true
	}
	return nil, false
}

// NotFoundCount reports how many not-found responses have been recorded for
// an order.
func (t *Tracker) NotFoundCount(clientOrderID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.notFoundRecords[clientOrderID]
}
