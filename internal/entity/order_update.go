package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderUpdate is one normalized status fact asserted by a producer. Either
// ClientOrderID or ExchangeOrderID must be set; the tracker resolves the
// order from whichever one the producer knows.
type OrderUpdate struct {
	ClientOrderID   string         `json:"client_order_id"`
	ExchangeOrderID string         `json:"exchange_order_id,omitempty"`
	Symbol          string         `json:"symbol"`
	UpdateTime      time.Time      `json:"update_time"`
	NewState        OrderState     `json:"new_state"`
	MiscUpdates     map[string]any `json:"misc_updates,omitempty"`
}

// TradeUpdate is one normalized fill. FillID is unique within an exchange
// and drives deduplication across redundant delivery channels.
type TradeUpdate struct {
	FillID          string          `json:"fill_id"`
	ClientOrderID   string          `json:"client_order_id"`
	ExchangeOrderID string          `json:"exchange_order_id,omitempty"`
	Symbol          string          `json:"symbol"`
	FillPrice       decimal.Decimal `json:"fill_price"`
	FillBaseAmount  decimal.Decimal `json:"fill_base_amount"`
	FillQuoteAmount decimal.Decimal `json:"fill_quote_amount"`
	FeeAsset        string          `json:"fee_asset"`
	FeeAmount       decimal.Decimal `json:"fee_amount"`
	FillTime        time.Time       `json:"fill_time"`
}
