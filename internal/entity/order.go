package entity

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string
type OrderSide string
type OrderType string

const (
	OrderStatePendingCreate   OrderState = "PENDING_CREATE"
	OrderStateOpen            OrderState = "OPEN"
	OrderStatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderStatePendingCancel   OrderState = "PENDING_CANCEL"
	OrderStateFilled          OrderState = "FILLED"
	OrderStateCanceled        OrderState = "CANCELED"
	OrderStateFailed          OrderState = "FAILED"

	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimitMaker OrderType = "LIMIT_MAKER"
)

// FillAmountTolerance absorbs exchange rounding on the final fill. An order
// is considered completely filled once the remaining amount drops below it.
var FillAmountTolerance = decimal.New(1, -9)

// stateRank orders states so that out-of-order deliveries can be detected.
// Terminal states share the top rank: the first one applied wins and is
// never superseded.
var stateRank = map[OrderState]int{
	OrderStatePendingCreate:   0,
	OrderStateOpen:            1,
	OrderStatePartiallyFilled: 2,
	OrderStatePendingCancel:   3,
	OrderStateFilled:          4,
	OrderStateCanceled:        4,
	OrderStateFailed:          4,
}

func (s OrderState) Rank() int {
	return stateRank[s]
}

func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateFailed:
		return true
	}
	return false
}

// InFlightOrder is the authoritative local record of one order. All mutation
// goes through ApplyOrderUpdate/ApplyTradeUpdate, which the tracker calls
// under a per-order lock.
type InFlightOrder struct {
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Price         decimal.Decimal
	Amount        decimal.Decimal
	CreatedAt     time.Time

	exchangeOrderID     string
	currentState        OrderState
	lastUpdateAt        time.Time
	executedAmountBase  decimal.Decimal
	executedAmountQuote decimal.Decimal
	cumulativeFee       decimal.Decimal
	feeAsset            string
	appliedFillIDs      map[string]struct{}
	miscUpdates         map[string]any

	completelyFilled     chan struct{}
	completelyFilledOnce sync.Once
}

type NewOrderParams struct {
	ClientOrderID   string
	ExchangeOrderID string
	Symbol          string
	Side            OrderSide
	Type            OrderType
	Price           decimal.Decimal
	Amount          decimal.Decimal
	InitialState    OrderState
	CreatedAt       time.Time
}

func NewInFlightOrder(params NewOrderParams) *InFlightOrder {
	state := params.InitialState
	if state == "" {
		state = OrderStatePendingCreate
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &InFlightOrder{
		ClientOrderID:    params.ClientOrderID,
		Symbol:           params.Symbol,
		Side:             params.Side,
		Type:             params.Type,
		Price:            params.Price,
		Amount:           params.Amount,
		CreatedAt:        createdAt,
		exchangeOrderID:  params.ExchangeOrderID,
		currentState:     state,
		lastUpdateAt:     createdAt,
		appliedFillIDs:   make(map[string]struct{}),
		completelyFilled: make(chan struct{}),
	}
}

func (o *InFlightOrder) ExchangeOrderID() string              { return o.exchangeOrderID }
func (o *InFlightOrder) CurrentState() OrderState             { return o.currentState }
func (o *InFlightOrder) LastUpdateAt() time.Time              { return o.lastUpdateAt }
func (o *InFlightOrder) ExecutedAmountBase() decimal.Decimal  { return o.executedAmountBase }
func (o *InFlightOrder) ExecutedAmountQuote() decimal.Decimal { return o.executedAmountQuote }
func (o *InFlightOrder) CumulativeFee() decimal.Decimal       { return o.cumulativeFee }
func (o *InFlightOrder) FeeAsset() string                     { return o.feeAsset }

func (o *InFlightOrder) MiscUpdates() map[string]any { return o.miscUpdates }

func (o *InFlightOrder) IsOpen() bool {
	switch o.currentState {
	case OrderStateOpen, OrderStatePartiallyFilled, OrderStatePendingCancel:
		return true
	}
	return false
}

func (o *InFlightOrder) IsPendingCreate() bool { return o.currentState == OrderStatePendingCreate }
func (o *InFlightOrder) IsPendingCancel() bool { return o.currentState == OrderStatePendingCancel }
func (o *InFlightOrder) IsFilled() bool        { return o.currentState == OrderStateFilled }
func (o *InFlightOrder) IsCancelled() bool     { return o.currentState == OrderStateCanceled }
func (o *InFlightOrder) IsFailure() bool       { return o.currentState == OrderStateFailed }
func (o *InFlightOrder) IsDone() bool          { return o.currentState.IsTerminal() }

// IsCompletelyFilled reports whether accumulated fills cover the requested
// amount within FillAmountTolerance.
func (o *InFlightOrder) IsCompletelyFilled() bool {
	return o.Amount.Sub(o.executedAmountBase).LessThanOrEqual(FillAmountTolerance)
}

// ApplyOrderUpdate commits a proposed state transition. Stale updates (state
// rank not above the current one) and any update against a terminal order
// are rejected. The exchange order id is adopted the first time it is seen
// and never overwritten. Returns whether a visible transition occurred.
func (o *InFlightOrder) ApplyOrderUpdate(update *OrderUpdate) bool {
	if update == nil {
		return false
	}

	if o.currentState.IsTerminal() {
		return false
	}

	if update.NewState.Rank() <= o.currentState.Rank() {
		// Still adopt a late-arriving exchange order id from an otherwise
		// stale update.
		o.adoptExchangeOrderID(update.ExchangeOrderID)
		return false
	}

	o.adoptExchangeOrderID(update.ExchangeOrderID)
	o.currentState = update.NewState
	if !update.UpdateTime.IsZero() {
		o.lastUpdateAt = update.UpdateTime
	}
	if update.MiscUpdates != nil {
		o.miscUpdates = update.MiscUpdates
	}

	return true
}

// ApplyTradeUpdate records one fill. Fill ids are applied at most once, so
// redundant delivery over REST and websocket is harmless. Fills are accepted
// for bookkeeping even after the order reached a terminal state. Returns
// whether this was a previously unseen fill.
func (o *InFlightOrder) ApplyTradeUpdate(trade *TradeUpdate) bool {
	if trade == nil || trade.FillID == "" {
		return false
	}

	if _, applied := o.appliedFillIDs[trade.FillID]; applied {
		return false
	}

	o.appliedFillIDs[trade.FillID] = struct{}{}
	o.adoptExchangeOrderID(trade.ExchangeOrderID)
	o.executedAmountBase = o.executedAmountBase.Add(trade.FillBaseAmount)
	o.executedAmountQuote = o.executedAmountQuote.Add(trade.FillQuoteAmount)
	o.cumulativeFee = o.cumulativeFee.Add(trade.FeeAmount)
	if o.feeAsset == "" {
		o.feeAsset = trade.FeeAsset
	}
	if !trade.FillTime.IsZero() {
		o.lastUpdateAt = trade.FillTime
	}

	if o.IsCompletelyFilled() {
		o.MarkCompletelyFilled()
	}

	return true
}

// MarkCompletelyFilled sets the completely-filled signal. Idempotent. The
// tracker also calls this directly when the exchange cannot report fills and
// the order closed as FILLED.
func (o *InFlightOrder) MarkCompletelyFilled() {
	o.completelyFilledOnce.Do(func() {
		close(o.completelyFilled)
	})
}

// CompletelyFilled exposes the signal channel for select-based waits.
func (o *InFlightOrder) CompletelyFilled() <-chan struct{} {
	return o.completelyFilled
}

// WaitUntilCompletelyFilled blocks until fill accumulation reaches the
// requested amount. The order never times out on its own; callers bound the
// wait through ctx.
func (o *InFlightOrder) WaitUntilCompletelyFilled(ctx context.Context) error {
	select {
	case <-o.completelyFilled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *InFlightOrder) FillCount() int {
	return len(o.appliedFillIDs)
}

func (o *InFlightOrder) adoptExchangeOrderID(id string) {
	if o.exchangeOrderID == "" && id != "" {
		o.exchangeOrderID = id
	}
}
