package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSnapshot is the serialized form of one InFlightOrder, persisted so
// non-terminal orders survive a restart. Terminal orders are never restored
// into active tracking.
type OrderSnapshot struct {
	ClientOrderID       string          `json:"client_order_id"`
	ExchangeOrderID     string          `json:"exchange_order_id,omitempty"`
	Symbol              string          `json:"symbol"`
	Side                OrderSide       `json:"side"`
	Type                OrderType       `json:"type"`
	Price               decimal.Decimal `json:"price"`
	Amount              decimal.Decimal `json:"amount"`
	State               OrderState      `json:"state"`
	ExecutedAmountBase  decimal.Decimal `json:"executed_amount_base"`
	ExecutedAmountQuote decimal.Decimal `json:"executed_amount_quote"`
	CumulativeFee       decimal.Decimal `json:"cumulative_fee"`
	FeeAsset            string          `json:"fee_asset,omitempty"`
	AppliedFillIDs      []string        `json:"applied_fill_ids,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	LastUpdateAt        time.Time       `json:"last_update_at"`
}

func (o *InFlightOrder) ToSnapshot() OrderSnapshot {
	fillIDs := make([]string, 0, len(o.appliedFillIDs))
	for id := range o.appliedFillIDs {
		fillIDs = append(fillIDs, id)
	}

	return OrderSnapshot{
		ClientOrderID:       o.ClientOrderID,
		ExchangeOrderID:     o.exchangeOrderID,
		Symbol:              o.Symbol,
		Side:                o.Side,
		Type:                o.Type,
		Price:               o.Price,
		Amount:              o.Amount,
		State:               o.currentState,
		ExecutedAmountBase:  o.executedAmountBase,
		ExecutedAmountQuote: o.executedAmountQuote,
		CumulativeFee:       o.cumulativeFee,
		FeeAsset:            o.feeAsset,
		AppliedFillIDs:      fillIDs,
		CreatedAt:           o.CreatedAt,
		LastUpdateAt:        o.lastUpdateAt,
	}
}

func OrderFromSnapshot(snapshot OrderSnapshot) *InFlightOrder {
	order := NewInFlightOrder(NewOrderParams{
		ClientOrderID:   snapshot.ClientOrderID,
		ExchangeOrderID: snapshot.ExchangeOrderID,
		Symbol:          snapshot.Symbol,
		Side:            snapshot.Side,
		Type:            snapshot.Type,
		Price:           snapshot.Price,
		Amount:          snapshot.Amount,
		InitialState:    snapshot.State,
		CreatedAt:       snapshot.CreatedAt,
	})

	order.executedAmountBase = snapshot.ExecutedAmountBase
	order.executedAmountQuote = snapshot.ExecutedAmountQuote
	order.cumulativeFee = snapshot.CumulativeFee
	order.feeAsset = snapshot.FeeAsset
	if !snapshot.LastUpdateAt.IsZero() {
		order.lastUpdateAt = snapshot.LastUpdateAt
	}
	for _, id := range snapshot.AppliedFillIDs {
		order.appliedFillIDs[id] = struct{}{}
	}
	if order.IsCompletelyFilled() {
		order.MarkCompletelyFilled()
	}

	return order
}
