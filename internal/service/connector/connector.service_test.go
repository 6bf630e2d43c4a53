package connector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/krobus00/trading-client/internal/service/exchange"
	"github.com/krobus00/trading-client/internal/tracker"
)

type recorderSink struct {
	created   []entity.OrderCreatedEvent
	filled    []entity.OrderFilledEvent
	cancelled []entity.OrderCancelledEvent
	failures  []entity.OrderFailureEvent
	completed []entity.OrderCompletedEvent
}

func (s *recorderSink) OrderCreated(_ context.Context, event entity.OrderCreatedEvent) {
	s.created = append(s.created, event)
}

func (s *recorderSink) OrderFilled(_ context.Context, event entity.OrderFilledEvent) {
	s.filled = append(s.filled, event)
}

func (s *recorderSink) OrderCancelled(_ context.Context, event entity.OrderCancelledEvent) {
	s.cancelled = append(s.cancelled, event)
}

func (s *recorderSink) OrderFailure(_ context.Context, event entity.OrderFailureEvent) {
	s.failures = append(s.failures, event)
}

func (s *recorderSink) OrderCompleted(_ context.Context, event entity.OrderCompletedEvent) {
	s.completed = append(s.completed, event)
}

func newTestService(t *testing.T) (*Service, *exchange.PaperExchange, *tracker.Tracker, *recorderSink) {
	t.Helper()

	ex := exchange.NewPaperExchange(decimal.NewFromFloat(0.1))
	sink := &recorderSink{}
	tr := tracker.New(tracker.Config{
		Exchange:            string(ex.Name()),
		TradeFillsAvailable: ex.TradeFillsAvailable(),
	}, sink, nil)
	ex.SetConsumer(tr)

	return NewService(ex, tr), ex, tr, sink
}

func placeTestOrder(t *testing.T, svc *Service) string {
	t.Helper()

	clientOrderID, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTC-USDT",
		Side:   entity.OrderSideBuy,
		Type:   entity.OrderTypeLimit,
		Price:  decimal.NewFromInt(10000),
		Amount: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return clientOrderID
}

func TestPlaceOrderTracksAndOpens(t *testing.T) {
	svc, _, tr, sink := newTestService(t)

	clientOrderID := placeTestOrder(t, svc)
	if !strings.HasPrefix(clientOrderID, "paper") {
		t.Errorf("client order id = %q, want paper prefix", clientOrderID)
	}

	order, ok := tr.FetchOrder(clientOrderID)
	if !ok {
		t.Fatal("placed order not tracked")
	}
	if !order.IsOpen() {
		t.Errorf("state = %s, want OPEN", order.CurrentState())
	}
	if order.ExchangeOrderID() == "" {
		t.Error("exchange order id not adopted from submission ack")
	}
	if len(sink.created) != 1 {
		t.Errorf("created events = %d, want 1", len(sink.created))
	}
}

func TestPlaceOrderRejectionBecomesFailure(t *testing.T) {
	svc, _, tr, sink := newTestService(t)

	clientOrderID, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTC-USDT",
		Side:   entity.OrderSideBuy,
		Type:   entity.OrderTypeLimit,
		Price:  decimal.NewFromInt(10000),
		Amount: decimal.Zero,
	})
	if !errors.Is(err, ErrSubmitOrderFailed) {
		t.Fatalf("err = %v, want ErrSubmitOrderFailed", err)
	}

	if len(sink.failures) != 1 {
		t.Fatalf("failure events = %d, want 1", len(sink.failures))
	}
	if sink.failures[0].Reason == "" {
		t.Error("failure event carries no rejection reason")
	}

	// The failed order moved to the closed-order cache.
	if _, ok := tr.FetchOrder(clientOrderID); ok {
		t.Error("rejected order still actively tracked")
	}
	cached, ok := tr.FetchCachedOrder(clientOrderID)
	if !ok {
		t.Fatal("rejected order not in closed-order cache")
	}
	if !cached.IsFailure() {
		t.Errorf("cached state = %s, want FAILED", cached.CurrentState())
	}
}

func TestCancelOrderSynchronousVenue(t *testing.T) {
	svc, _, tr, sink := newTestService(t)
	clientOrderID := placeTestOrder(t, svc)

	if err := svc.CancelOrder(context.Background(), clientOrderID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	if len(sink.cancelled) != 1 {
		t.Fatalf("cancelled events = %d, want 1", len(sink.cancelled))
	}
	if _, ok := tr.FetchOrder(clientOrderID); ok {
		t.Error("cancelled order still tracked")
	}

	if err := svc.CancelOrder(context.Background(), "unknown"); !errors.Is(err, ErrOrderNotTracked) {
		t.Errorf("cancel of unknown order err = %v, want ErrOrderNotTracked", err)
	}
}

func TestWaitForCompletion(t *testing.T) {
	svc, ex, _, sink := newTestService(t)
	clientOrderID := placeTestOrder(t, svc)

	fill, err := ex.Fill(clientOrderID, decimal.NewFromInt(10000), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if err := svc.orderTracker.ProcessTradeUpdate(context.Background(), fill); err != nil {
		t.Fatalf("ProcessTradeUpdate: %v", err)
	}

	// Already complete; the order now lives in the closed-order cache and
	// the wait passes immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.WaitForCompletion(ctx, clientOrderID); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	if len(sink.completed) != 1 {
		t.Errorf("completed events = %d, want 1", len(sink.completed))
	}

	if err := svc.WaitForCompletion(ctx, "unknown"); !errors.Is(err, ErrOrderNotTracked) {
		t.Errorf("wait on unknown order err = %v, want ErrOrderNotTracked", err)
	}
}
