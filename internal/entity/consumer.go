package entity

import "context"

// UpdateConsumer is the surface producers push normalized updates into. The
// order tracker is the only production implementation; tests substitute
// fakes.
type UpdateConsumer interface {
	ProcessOrderUpdate(ctx context.Context, update *OrderUpdate) error
	ProcessTradeUpdate(ctx context.Context, trade *TradeUpdate) error
	ProcessOrderNotFound(ctx context.Context, clientOrderID string) error
}
