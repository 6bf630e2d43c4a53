package eventsink

import (
	"context"

	"github.com/krobus00/trading-client/internal/entity"
)

// Fanout delivers every event to each wired sink in order.
type Fanout struct {
	sinks []entity.EventSink
}

func NewFanout(sinks ...entity.EventSink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) OrderCreated(ctx context.Context, event entity.OrderCreatedEvent) {
	for _, sink := range f.sinks {
		sink.OrderCreated(ctx, event)
	}
}

func (f *Fanout) OrderFilled(ctx context.Context, event entity.OrderFilledEvent) {
	for _, sink := range f.sinks {
		sink.OrderFilled(ctx, event)
	}
}

func (f *Fanout) OrderCancelled(ctx context.Context, event entity.OrderCancelledEvent) {
	for _, sink := range f.sinks {
		sink.OrderCancelled(ctx, event)
	}
}

func (f *Fanout) OrderFailure(ctx context.Context, event entity.OrderFailureEvent) {
	for _, sink := range f.sinks {
		sink.OrderFailure(ctx, event)
	}
}

func (f *Fanout) OrderCompleted(ctx context.Context, event entity.OrderCompletedEvent) {
	for _, sink := range f.sinks {
		sink.OrderCompleted(ctx, event)
	}
}
