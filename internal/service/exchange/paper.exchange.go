package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PaperExchange is an in-memory exchange with synchronous cancellation. The
// connector worker runs against it in paper mode and the reconciliation
// tests use it as a deterministic venue. Fills are injected either through
// Fill or through normalized user-stream envelopes.
type PaperExchange struct {
	consumer entity.UpdateConsumer

	mu         sync.Mutex
	nextID     int64
	orders     map[string]*paperOrder
	feePercent decimal.Decimal
}

type paperOrder struct {
	req             entity.SubmitOrderRequest
	exchangeOrderID string
	state           entity.OrderState
	fills           []entity.TradeUpdate
	filledBase      decimal.Decimal
}

// paperStreamEnvelope is the normalized message format of the paper user
// stream. Real connectors translate vendor payloads here instead.
type paperStreamEnvelope struct {
	Type  string              `json:"type"`
	Order *entity.OrderUpdate `json:"order,omitempty"`
	Trade *entity.TradeUpdate `json:"trade,omitempty"`
}

func NewPaperExchange(feePercent decimal.Decimal) *PaperExchange {
	e := &PaperExchange{
		orders:     make(map[string]*paperOrder),
		feePercent: feePercent,
	}

	RegisterExchange(entity.ExchangePaper, e)

	return e
}

// SetConsumer wires the tracker in after construction; the worker builds the
// exchange first because the tracker needs the exchange's fill capability.
func (e *PaperExchange) SetConsumer(consumer entity.UpdateConsumer) {
	e.consumer = consumer
}

func (e *PaperExchange) Name() entity.ExchangeName {
	return entity.ExchangePaper
}

func (e *PaperExchange) TradeFillsAvailable() bool {
	return true
}

func (e *PaperExchange) SubmitOrder(ctx context.Context, req entity.SubmitOrderRequest) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("paper exchange rejected order %s: non-positive amount", req.ClientOrderID)
	}
	if req.Type != entity.OrderTypeMarket && req.Price.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("paper exchange rejected order %s: non-positive price", req.ClientOrderID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	order := &paperOrder{
		req:             req,
		exchangeOrderID: fmt.Sprintf("paper-%d", e.nextID),
		state:           entity.OrderStateOpen,
	}
	e.orders[req.ClientOrderID] = order

	return order.exchangeOrderID, nil
}

// CancelOrder always acknowledges synchronously; the paper venue has no
// in-flight cancel window.
func (e *PaperExchange) CancelOrder(ctx context.Context, order *entity.InFlightOrder) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tracked, ok := e.orders[order.ClientOrderID]
	if !ok {
		return false, entity.ErrOrderNotFound
	}
	if tracked.state.IsTerminal() {
		return false, entity.ErrOrderNotFound
	}

	tracked.state = entity.OrderStateCanceled

	return true, nil
}

func (e *PaperExchange) OrderStatus(ctx context.Context, order *entity.InFlightOrder) (*entity.OrderUpdate, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tracked, ok := e.orders[order.ClientOrderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}

	return &entity.OrderUpdate{
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: tracked.exchangeOrderID,
		Symbol:          tracked.req.Symbol,
		UpdateTime:      time.Now().UTC(),
		NewState:        tracked.state,
	}, nil
}

func (e *PaperExchange) TradeFills(ctx context.Context, order *entity.InFlightOrder) ([]entity.TradeUpdate, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tracked, ok := e.orders[order.ClientOrderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}

	fills := make([]entity.TradeUpdate, len(tracked.fills))
	copy(fills, tracked.fills)

	return fills, nil
}

// Fill executes part of an open order against the paper book and returns the
// resulting trade update.
func (e *PaperExchange) Fill(clientOrderID string, price, amount decimal.Decimal) (*entity.TradeUpdate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tracked, ok := e.orders[clientOrderID]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	if tracked.state.IsTerminal() {
		return nil, fmt.Errorf("order %s is already closed", clientOrderID)
	}

	quote := price.Mul(amount)
	fill := entity.TradeUpdate{
		FillID:          fmt.Sprintf("%s-fill-%d", tracked.exchangeOrderID, len(tracked.fills)+1),
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: tracked.exchangeOrderID,
		Symbol:          tracked.req.Symbol,
		FillPrice:       price,
		FillBaseAmount:  amount,
		FillQuoteAmount: quote,
		FeeAsset:        quoteAsset(tracked.req.Symbol),
		FeeAmount:       quote.Mul(e.feePercent).Div(decimal.NewFromInt(100)),
		FillTime:        time.Now().UTC(),
	}

	tracked.fills = append(tracked.fills, fill)
	tracked.filledBase = tracked.filledBase.Add(amount)
	if tracked.filledBase.GreaterThanOrEqual(tracked.req.Amount) {
		tracked.state = entity.OrderStateFilled
	} else {
		tracked.state = entity.OrderStatePartiallyFilled
	}

	return &fill, nil
}

// HandleUserStreamMessage consumes one normalized envelope and forwards it
// to the tracker. Unparseable or incomplete messages are dropped; the
// reconciliation loops recover anything the stream loses.
func (e *PaperExchange) HandleUserStreamMessage(ctx context.Context, message []byte) error {
	if e.consumer == nil {
		return fmt.Errorf("paper exchange has no update consumer wired")
	}

	var envelope paperStreamEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		logrus.WithField("payload", string(message)).Debug("dropping malformed user stream message")
		return nil
	}

	switch envelope.Type {
	case "order":
		if envelope.Order == nil {
			return nil
		}
		return e.consumer.ProcessOrderUpdate(ctx, envelope.Order)
	case "trade":
		if envelope.Trade == nil {
			return nil
		}
		return e.consumer.ProcessTradeUpdate(ctx, envelope.Trade)
	default:
		logrus.WithField("type", envelope.Type).Debug("ignoring unknown user stream message type")
		return nil
	}
}

func quoteAsset(symbol string) string {
	for i := len(symbol) - 1; i >= 0; i-- {
		if symbol[i] == '-' || symbol[i] == '/' {
			return symbol[i+1:]
		}
	}
	return symbol
}
