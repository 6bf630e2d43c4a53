package eventsink

import (
	"context"
	"testing"

	"github.com/krobus00/trading-client/internal/entity"
)

type countingSink struct {
	events int
}

func (s *countingSink) OrderCreated(context.Context, entity.OrderCreatedEvent)     { s.events++ }
func (s *countingSink) OrderFilled(context.Context, entity.OrderFilledEvent)       { s.events++ }
func (s *countingSink) OrderCancelled(context.Context, entity.OrderCancelledEvent) { s.events++ }
func (s *countingSink) OrderFailure(context.Context, entity.OrderFailureEvent)     { s.events++ }
func (s *countingSink) OrderCompleted(context.Context, entity.OrderCompletedEvent) { s.events++ }

func TestFanoutDeliversToAllSinks(t *testing.T) {
	first := &countingSink{}
	second := &countingSink{}
	fanout := NewFanout(first, second)

	ctx := context.Background()
	fanout.OrderCreated(ctx, entity.OrderCreatedEvent{})
	fanout.OrderFilled(ctx, entity.OrderFilledEvent{})
	fanout.OrderCancelled(ctx, entity.OrderCancelledEvent{})
	fanout.OrderFailure(ctx, entity.OrderFailureEvent{})
	fanout.OrderCompleted(ctx, entity.OrderCompletedEvent{})

	if first.events != 5 {
		t.Errorf("first sink events = %d, want 5", first.events)
	}
	if second.events != 5 {
		t.Errorf("second sink events = %d, want 5", second.events)
	}
}
