package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/krobus00/trading-client/internal/entity"
)

// recordingConsumer captures what the user stream handler forwards.
type recordingConsumer struct {
	orderUpdates []*entity.OrderUpdate
	tradeUpdates []*entity.TradeUpdate
	notFound     []string
}

func (c *recordingConsumer) ProcessOrderUpdate(_ context.Context, update *entity.OrderUpdate) error {
	c.orderUpdates = append(c.orderUpdates, update)
	return nil
}

func (c *recordingConsumer) ProcessTradeUpdate(_ context.Context, trade *entity.TradeUpdate) error {
	c.tradeUpdates = append(c.tradeUpdates, trade)
	return nil
}

func (c *recordingConsumer) ProcessOrderNotFound(_ context.Context, clientOrderID string) error {
	c.notFound = append(c.notFound, clientOrderID)
	return nil
}

func submitTestOrder(t *testing.T, e *PaperExchange, clientOrderID string) string {
	t.Helper()

	exchangeOrderID, err := e.SubmitOrder(context.Background(), entity.SubmitOrderRequest{
		ClientOrderID: clientOrderID,
		Symbol:        "BTC-USDT",
		Side:          entity.OrderSideBuy,
		Type:          entity.OrderTypeLimit,
		Price:         decimal.NewFromInt(10000),
		Amount:        decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("SubmitOrder(%s): %v", clientOrderID, err)
	}
	return exchangeOrderID
}

func inFlight(clientOrderID string) *entity.InFlightOrder {
	return entity.NewInFlightOrder(entity.NewOrderParams{
		ClientOrderID: clientOrderID,
		Symbol:        "BTC-USDT",
		Side:          entity.OrderSideBuy,
		Type:          entity.OrderTypeLimit,
		Price:         decimal.NewFromInt(10000),
		Amount:        decimal.NewFromInt(1),
	})
}

func TestPaperSubmitValidation(t *testing.T) {
	e := NewPaperExchange(decimal.NewFromFloat(0.1))

	_, err := e.SubmitOrder(context.Background(), entity.SubmitOrderRequest{
		ClientOrderID: "C1",
		Symbol:        "BTC-USDT",
		Type:          entity.OrderTypeLimit,
		Price:         decimal.NewFromInt(10000),
		Amount:        decimal.Zero,
	})
	if err == nil {
		t.Error("expected rejection for non-positive amount")
	}

	_, err = e.SubmitOrder(context.Background(), entity.SubmitOrderRequest{
		ClientOrderID: "C2",
		Symbol:        "BTC-USDT",
		Type:          entity.OrderTypeLimit,
		Price:         decimal.Zero,
		Amount:        decimal.NewFromInt(1),
	})
	if err == nil {
		t.Error("expected rejection for non-positive limit price")
	}
}

func TestPaperOrderStatusLifecycle(t *testing.T) {
	e := NewPaperExchange(decimal.NewFromFloat(0.1))
	exchangeOrderID := submitTestOrder(t, e, "C1")
	order := inFlight("C1")

	update, err := e.OrderStatus(context.Background(), order)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if update.NewState != entity.OrderStateOpen {
		t.Errorf("state = %s, want OPEN", update.NewState)
	}
	if update.ExchangeOrderID != exchangeOrderID {
		t.Errorf("exchange order id = %q, want %q", update.ExchangeOrderID, exchangeOrderID)
	}

	if _, err := e.Fill("C1", decimal.NewFromInt(10000), decimal.NewFromFloat(0.5)); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	update, err = e.OrderStatus(context.Background(), order)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if update.NewState != entity.OrderStatePartiallyFilled {
		t.Errorf("state = %s, want PARTIALLY_FILLED", update.NewState)
	}

	if _, err := e.Fill("C1", decimal.NewFromInt(10000), decimal.NewFromFloat(0.5)); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	update, err = e.OrderStatus(context.Background(), order)
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if update.NewState != entity.OrderStateFilled {
		t.Errorf("state = %s, want FILLED", update.NewState)
	}
}

func TestPaperOrderStatusUnknownOrder(t *testing.T) {
	e := NewPaperExchange(decimal.NewFromFloat(0.1))

	_, err := e.OrderStatus(context.Background(), inFlight("nope"))
	if !errors.Is(err, entity.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestPaperCancelIsSynchronous(t *testing.T) {
	e := NewPaperExchange(decimal.NewFromFloat(0.1))
	submitTestOrder(t, e, "C1")
	order := inFlight("C1")

	done, err := e.CancelOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if !done {
		t.Error("paper cancel must acknowledge synchronously")
	}

	// Cancelling a closed order looks like not-found.
	if _, err := e.CancelOrder(context.Background(), order); !errors.Is(err, entity.ErrOrderNotFound) {
		t.Errorf("second cancel err = %v, want ErrOrderNotFound", err)
	}
}

func TestPaperTradeFillsAndFees(t *testing.T) {
	e := NewPaperExchange(decimal.NewFromFloat(0.1))
	submitTestOrder(t, e, "C1")

	fill, err := e.Fill("C1", decimal.NewFromInt(10000), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	if fill.FeeAsset != "USDT" {
		t.Errorf("fee asset = %q, want USDT", fill.FeeAsset)
	}
	// 0.1% of 10000.
	if !fill.FeeAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("fee amount = %s, want 10", fill.FeeAmount)
	}

	fills, err := e.TradeFills(context.Background(), inFlight("C1"))
	if err != nil {
		t.Fatalf("TradeFills: %v", err)
	}
	if len(fills) != 1 || fills[0].FillID != fill.FillID {
		t.Errorf("fills = %v, want the single executed fill", fills)
	}

	// Filling a closed order is refused.
	if _, err := e.Fill("C1", decimal.NewFromInt(10000), decimal.NewFromInt(1)); err == nil {
		t.Error("expected error filling a FILLED order")
	}
}

func TestPaperUserStreamDispatch(t *testing.T) {
	e := NewPaperExchange(decimal.NewFromFloat(0.1))
	consumer := &recordingConsumer{}
	e.SetConsumer(consumer)

	messages := [][]byte{
		[]byte(`{"type":"order","order":{"client_order_id":"C1","new_state":"OPEN"}}`),
		[]byte(`{"type":"trade","trade":{"fill_id":"T1","client_order_id":"C1"}}`),
		[]byte(`{"type":"heartbeat"}`),
		[]byte(`not json`),
	}
	for _, message := range messages {
		if err := e.HandleUserStreamMessage(context.Background(), message); err != nil {
			t.Fatalf("HandleUserStreamMessage(%s): %v", message, err)
		}
	}

	if len(consumer.orderUpdates) != 1 || consumer.orderUpdates[0].ClientOrderID != "C1" {
		t.Errorf("order updates = %v, want one for C1", consumer.orderUpdates)
	}
	if len(consumer.tradeUpdates) != 1 || consumer.tradeUpdates[0].FillID != "T1" {
		t.Errorf("trade updates = %v, want one for T1", consumer.tradeUpdates)
	}
}

func TestPaperUserStreamRequiresConsumer(t *testing.T) {
	e := NewPaperExchange(decimal.NewFromFloat(0.1))

	if err := e.HandleUserStreamMessage(context.Background(), []byte(`{"type":"order"}`)); err == nil {
		t.Fatal("expected error when no consumer is wired")
	}
}
