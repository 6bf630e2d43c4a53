package entity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "ORDER_CREATED"
	OrderEventFilled    OrderEventType = "ORDER_FILLED"
	OrderEventCancelled OrderEventType = "ORDER_CANCELLED"
	OrderEventFailure   OrderEventType = "ORDER_FAILURE"
	OrderEventCompleted OrderEventType = "ORDER_COMPLETED"
)

type OrderCreatedEvent struct {
	Timestamp       time.Time       `json:"timestamp"`
	Exchange        string          `json:"exchange"`
	ClientOrderID   string          `json:"client_order_id"`
	ExchangeOrderID string          `json:"exchange_order_id,omitempty"`
	Symbol          string          `json:"symbol"`
	Side            OrderSide       `json:"side"`
	Type            OrderType       `json:"type"`
	Price           decimal.Decimal `json:"price"`
	Amount          decimal.Decimal `json:"amount"`
}

type OrderFilledEvent struct {
	Timestamp       time.Time       `json:"timestamp"`
	Exchange        string          `json:"exchange"`
	ClientOrderID   string          `json:"client_order_id"`
	ExchangeOrderID string          `json:"exchange_order_id,omitempty"`
	Symbol          string          `json:"symbol"`
	Side            OrderSide       `json:"side"`
	Type            OrderType       `json:"type"`
	FillID          string          `json:"fill_id"`
	FillPrice       decimal.Decimal `json:"fill_price"`
	FillBaseAmount  decimal.Decimal `json:"fill_base_amount"`
	FillQuoteAmount decimal.Decimal `json:"fill_quote_amount"`
	FeeAsset        string          `json:"fee_asset,omitempty"`
	FeeAmount       decimal.Decimal `json:"fee_amount"`
}

type OrderCancelledEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	Exchange        string    `json:"exchange"`
	ClientOrderID   string    `json:"client_order_id"`
	ExchangeOrderID string    `json:"exchange_order_id,omitempty"`
	Symbol          string    `json:"symbol"`
}

type OrderFailureEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Exchange      string    `json:"exchange"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Type          OrderType `json:"type"`
	Reason        string    `json:"reason,omitempty"`
}

// OrderCompletedEvent aggregates the whole lifetime of a filled order.
// Amounts are zero when the order closed as FILLED but fills were never
// confirmable on this exchange.
type OrderCompletedEvent struct {
	Timestamp        time.Time       `json:"timestamp"`
	Exchange         string          `json:"exchange"`
	ClientOrderID    string          `json:"client_order_id"`
	ExchangeOrderID  string          `json:"exchange_order_id,omitempty"`
	Symbol           string          `json:"symbol"`
	Side             OrderSide       `json:"side"`
	Type             OrderType       `json:"type"`
	BaseAssetAmount  decimal.Decimal `json:"base_asset_amount"`
	QuoteAssetAmount decimal.Decimal `json:"quote_asset_amount"`
	FeeAsset         string          `json:"fee_asset,omitempty"`
	FeeAmount        decimal.Decimal `json:"fee_amount"`
}

// EventSink receives lifecycle events from the tracker. Implementations must
// not call back into the tracker; the tracker invokes sinks without holding
// any internal lock.
type EventSink interface {
	OrderCreated(ctx context.Context, event OrderCreatedEvent)
	OrderFilled(ctx context.Context, event OrderFilledEvent)
	OrderCancelled(ctx context.Context, event OrderCancelledEvent)
	OrderFailure(ctx context.Context, event OrderFailureEvent)
	OrderCompleted(ctx context.Context, event OrderCompletedEvent)
}

type Publisher interface {
	JetstreamEventInit(ctx context.Context) error
}

type Subscriber interface {
	JetstreamEventSubscribe(ctx context.Context) error
}
