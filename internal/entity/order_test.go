package entity

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestOrder() *InFlightOrder {
	return NewInFlightOrder(NewOrderParams{
		ClientOrderID: "C1",
		Symbol:        "BTC-USDT",
		Side:          OrderSideBuy,
		Type:          OrderTypeLimit,
		Price:         decimal.NewFromInt(10000),
		Amount:        decimal.NewFromInt(1),
	})
}

func TestOrderStateRankOrdering(t *testing.T) {
	ordered := []OrderState{
		OrderStatePendingCreate,
		OrderStateOpen,
		OrderStatePartiallyFilled,
		OrderStatePendingCancel,
	}

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("expected %s to rank above %s", ordered[i], ordered[i-1])
		}
	}

	for _, terminal := range []OrderState{OrderStateFilled, OrderStateCanceled, OrderStateFailed} {
		if !terminal.IsTerminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		if terminal.Rank() <= OrderStatePendingCancel.Rank() {
			t.Errorf("%s should rank above PENDING_CANCEL", terminal)
		}
	}
}

func TestOrderPredicates(t *testing.T) {
	tests := []struct {
		state       OrderState
		isOpen      bool
		isDone      bool
		isFilled    bool
		isCancelled bool
		isFailure   bool
	}{
		{OrderStatePendingCreate, false, false, false, false, false},
		{OrderStateOpen, true, false, false, false, false},
		{OrderStatePartiallyFilled, true, false, false, false, false},
		{OrderStatePendingCancel, true, false, false, false, false},
		{OrderStateFilled, false, true, true, false, false},
		{OrderStateCanceled, false, true, false, true, false},
		{OrderStateFailed, false, true, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			order := NewInFlightOrder(NewOrderParams{
				ClientOrderID: "C1",
				Symbol:        "BTC-USDT",
				Side:          OrderSideBuy,
				Type:          OrderTypeLimit,
				Price:         decimal.NewFromInt(10000),
				Amount:        decimal.NewFromInt(1),
				InitialState:  tt.state,
			})

			if got := order.IsOpen(); got != tt.isOpen {
				t.Errorf("IsOpen() = %v, want %v", got, tt.isOpen)
			}
			if got := order.IsDone(); got != tt.isDone {
				t.Errorf("IsDone() = %v, want %v", got, tt.isDone)
			}
			if got := order.IsFilled(); got != tt.isFilled {
				t.Errorf("IsFilled() = %v, want %v", got, tt.isFilled)
			}
			if got := order.IsCancelled(); got != tt.isCancelled {
				t.Errorf("IsCancelled() = %v, want %v", got, tt.isCancelled)
			}
			if got := order.IsFailure(); got != tt.isFailure {
				t.Errorf("IsFailure() = %v, want %v", got, tt.isFailure)
			}
		})
	}
}

func TestApplyOrderUpdateMonotonicity(t *testing.T) {
	// The same updates delivered in any order must land on the lattice
	// maximum.
	permutations := [][]OrderState{
		{OrderStateOpen, OrderStatePartiallyFilled},
		{OrderStatePartiallyFilled, OrderStateOpen},
		{OrderStatePartiallyFilled, OrderStateOpen, OrderStateOpen},
		{OrderStateOpen, OrderStateOpen, OrderStatePartiallyFilled},
	}

	for _, states := range permutations {
		order := newTestOrder()
		for _, state := range states {
			order.ApplyOrderUpdate(&OrderUpdate{
				ClientOrderID: "C1",
				Symbol:        "BTC-USDT",
				UpdateTime:    time.Now().UTC(),
				NewState:      state,
			})
		}

		if order.CurrentState() != OrderStatePartiallyFilled {
			t.Errorf("states %v: final state = %s, want PARTIALLY_FILLED", states, order.CurrentState())
		}
	}
}

func TestApplyOrderUpdateFirstTerminalWins(t *testing.T) {
	order := newTestOrder()
	order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStateOpen})

	if !order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStateCanceled}) {
		t.Fatal("expected transition to CANCELED")
	}

	if order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStateFilled}) {
		t.Error("FILLED must not supersede CANCELED")
	}
	if order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStateFailed}) {
		t.Error("FAILED must not supersede CANCELED")
	}

	if order.CurrentState() != OrderStateCanceled {
		t.Errorf("final state = %s, want CANCELED", order.CurrentState())
	}
}

func TestApplyOrderUpdateDuplicateStateDropped(t *testing.T) {
	order := newTestOrder()

	if !order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStateOpen}) {
		t.Fatal("expected first OPEN update to transition")
	}
	if order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStateOpen}) {
		t.Error("duplicate OPEN update must be rejected")
	}
}

func TestExchangeOrderIDSetOnce(t *testing.T) {
	order := newTestOrder()

	order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", ExchangeOrderID: "E1", NewState: OrderStateOpen})
	if order.ExchangeOrderID() != "E1" {
		t.Fatalf("exchange order id = %q, want E1", order.ExchangeOrderID())
	}

	order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", ExchangeOrderID: "E2", NewState: OrderStatePartiallyFilled})
	if order.ExchangeOrderID() != "E1" {
		t.Errorf("exchange order id overwritten to %q", order.ExchangeOrderID())
	}
}

func TestExchangeOrderIDAdoptedFromStaleUpdate(t *testing.T) {
	order := newTestOrder()
	order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStatePartiallyFilled})

	// A stale OPEN poll result still carries useful identity.
	order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", ExchangeOrderID: "E1", NewState: OrderStateOpen})
	if order.ExchangeOrderID() != "E1" {
		t.Errorf("exchange order id = %q, want E1", order.ExchangeOrderID())
	}
}

func TestApplyTradeUpdateDedup(t *testing.T) {
	order := newTestOrder()
	trade := &TradeUpdate{
		FillID:          "T1",
		ClientOrderID:   "C1",
		Symbol:          "BTC-USDT",
		FillPrice:       decimal.NewFromInt(10000),
		FillBaseAmount:  decimal.NewFromFloat(0.5),
		FillQuoteAmount: decimal.NewFromInt(5000),
		FillTime:        time.Now().UTC(),
	}

	if !order.ApplyTradeUpdate(trade) {
		t.Fatal("expected first fill to apply")
	}
	if order.ApplyTradeUpdate(trade) {
		t.Error("duplicate fill id must be rejected")
	}

	if !order.ExecutedAmountBase().Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("executed base = %s, want 0.5", order.ExecutedAmountBase())
	}
	if !order.ExecutedAmountQuote().Equal(decimal.NewFromInt(5000)) {
		t.Errorf("executed quote = %s, want 5000", order.ExecutedAmountQuote())
	}
	if order.FillCount() != 1 {
		t.Errorf("fill count = %d, want 1", order.FillCount())
	}
}

func TestCompletelyFilledSignal(t *testing.T) {
	order := newTestOrder()

	select {
	case <-order.CompletelyFilled():
		t.Fatal("signal must not be set before fills")
	default:
	}

	order.ApplyTradeUpdate(&TradeUpdate{
		FillID:          "T1",
		ClientOrderID:   "C1",
		FillPrice:       decimal.NewFromInt(10000),
		FillBaseAmount:  decimal.NewFromInt(1),
		FillQuoteAmount: decimal.NewFromInt(10000),
	})

	if !order.IsCompletelyFilled() {
		t.Fatal("expected order to be completely filled")
	}

	if err := order.WaitUntilCompletelyFilled(context.Background()); err != nil {
		t.Fatalf("WaitUntilCompletelyFilled returned %v", err)
	}
}

func TestWaitUntilCompletelyFilledHonorsContext(t *testing.T) {
	order := newTestOrder()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := order.WaitUntilCompletelyFilled(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestTradeUpdateAcceptedAfterTerminalState(t *testing.T) {
	order := newTestOrder()
	order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", NewState: OrderStateCanceled})

	if !order.ApplyTradeUpdate(&TradeUpdate{
		FillID:          "T1",
		ClientOrderID:   "C1",
		FillPrice:       decimal.NewFromInt(10000),
		FillBaseAmount:  decimal.NewFromFloat(0.3),
		FillQuoteAmount: decimal.NewFromInt(3000),
	}) {
		t.Fatal("fills must still be recorded after a terminal state for accounting")
	}

	if !order.ExecutedAmountBase().Equal(decimal.NewFromFloat(0.3)) {
		t.Errorf("executed base = %s, want 0.3", order.ExecutedAmountBase())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	order := newTestOrder()
	order.ApplyOrderUpdate(&OrderUpdate{ClientOrderID: "C1", ExchangeOrderID: "E1", NewState: OrderStatePartiallyFilled})
	order.ApplyTradeUpdate(&TradeUpdate{
		FillID:          "T1",
		ClientOrderID:   "C1",
		FillPrice:       decimal.NewFromInt(10000),
		FillBaseAmount:  decimal.NewFromFloat(0.4),
		FillQuoteAmount: decimal.NewFromInt(4000),
		FeeAsset:        "USDT",
		FeeAmount:       decimal.NewFromInt(4),
	})

	restored := OrderFromSnapshot(order.ToSnapshot())

	if restored.ClientOrderID != "C1" || restored.ExchangeOrderID() != "E1" {
		t.Fatalf("identity lost: %s/%s", restored.ClientOrderID, restored.ExchangeOrderID())
	}
	if restored.CurrentState() != OrderStatePartiallyFilled {
		t.Errorf("state = %s, want PARTIALLY_FILLED", restored.CurrentState())
	}
	if !restored.ExecutedAmountBase().Equal(decimal.NewFromFloat(0.4)) {
		t.Errorf("executed base = %s, want 0.4", restored.ExecutedAmountBase())
	}
	if restored.FeeAsset() != "USDT" {
		t.Errorf("fee asset = %q, want USDT", restored.FeeAsset())
	}

	// The applied fill id must survive so redelivery after a restart is
	// still deduplicated.
	if restored.ApplyTradeUpdate(&TradeUpdate{
		FillID:         "T1",
		ClientOrderID:  "C1",
		FillBaseAmount: decimal.NewFromFloat(0.4),
	}) {
		t.Error("fill T1 applied twice after snapshot restore")
	}
}

func TestSnapshotRestoreSetsCompletelyFilledSignal(t *testing.T) {
	order := newTestOrder()
	order.ApplyTradeUpdate(&TradeUpdate{
		FillID:          "T1",
		ClientOrderID:   "C1",
		FillPrice:       decimal.NewFromInt(10000),
		FillBaseAmount:  decimal.NewFromInt(1),
		FillQuoteAmount: decimal.NewFromInt(10000),
	})

	restored := OrderFromSnapshot(order.ToSnapshot())

	select {
	case <-restored.CompletelyFilled():
	default:
		t.Fatal("completely-filled signal lost across snapshot restore")
	}
}
