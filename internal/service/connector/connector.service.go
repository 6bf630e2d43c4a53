package connector

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/krobus00/trading-client/internal/tracker"
	"github.com/krobus00/trading-client/internal/util"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrOrderNotTracked   = errors.New("order not tracked")
	ErrSubmitOrderFailed = errors.New("failed to submit order")
	ErrCancelOrderFailed = errors.New("failed to cancel order")
)

type PlaceOrderRequest struct {
	Symbol string
	Side   entity.OrderSide
	Type   entity.OrderType
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Service is the order-management surface of one connector: it owns order id
// generation, tracks submissions through the tracker and implements both
// cancellation flavors on top of the exchange collaborator.
type Service struct {
	exchange     entity.Exchange
	orderTracker *tracker.Tracker
	idPrefix     string
}

func NewService(ex entity.Exchange, orderTracker *tracker.Tracker) *Service {
	return &Service{
		exchange:     ex,
		orderTracker: orderTracker,
		idPrefix:     string(ex.Name()),
	}
}

// PlaceOrder registers the order locally before the exchange sees it, so the
// first producer update always finds it tracked. A rejected submission is
// converted into a normal failure update.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	clientOrderID := util.NewClientOrderID(s.idPrefix)

	order := entity.NewInFlightOrder(entity.NewOrderParams{
		ClientOrderID: clientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Price:         req.Price,
		Amount:        req.Amount,
		InitialState:  entity.OrderStatePendingCreate,
	})

	if err := s.orderTracker.StartTracking(ctx, order); err != nil {
		return "", err
	}

	exchangeOrderID, err := s.exchange.SubmitOrder(ctx, entity.SubmitOrderRequest{
		ClientOrderID: clientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Price:         req.Price,
		Amount:        req.Amount,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"exchange":        s.exchange.Name(),
			"client_order_id": clientOrderID,
		}).WithError(err).Error("order submission rejected")

		_ = s.orderTracker.ProcessOrderUpdate(ctx, &entity.OrderUpdate{
			ClientOrderID: clientOrderID,
			Symbol:        req.Symbol,
			UpdateTime:    time.Now().UTC(),
			NewState:      entity.OrderStateFailed,
			MiscUpdates:   map[string]any{"reason": err.Error()},
		})

		return clientOrderID, ErrSubmitOrderFailed
	}

	err = s.orderTracker.ProcessOrderUpdate(ctx, &entity.OrderUpdate{
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: exchangeOrderID,
		Symbol:          req.Symbol,
		UpdateTime:      time.Now().UTC(),
		NewState:        entity.OrderStateOpen,
	})
	if err != nil {
		return clientOrderID, err
	}

	return clientOrderID, nil
}

// CancelOrder requests cancellation. A synchronous acknowledgement moves the
// order straight to CANCELED; otherwise the order parks in PENDING_CANCEL
// until polling or the user stream confirms.
func (s *Service) CancelOrder(ctx context.Context, clientOrderID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	order, ok := s.orderTracker.FetchOrder(clientOrderID)
	if !ok {
		return ErrOrderNotTracked
	}

	done, err := s.exchange.CancelOrder(ctx, order)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"exchange":        s.exchange.Name(),
			"client_order_id": clientOrderID,
		}).WithError(err).Error("cancel request failed")
		return ErrCancelOrderFailed
	}

	newState := entity.OrderStatePendingCancel
	if done {
		newState = entity.OrderStateCanceled
	}

	return s.orderTracker.ProcessOrderUpdate(ctx, &entity.OrderUpdate{
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: order.ExchangeOrderID(),
		Symbol:          order.Symbol,
		UpdateTime:      time.Now().UTC(),
		NewState:        newState,
	})
}

// WaitForCompletion blocks until every listed order reports completely
// filled or ctx expires. Callers own the timeout; orders are left untouched
// on expiry.
func (s *Service) WaitForCompletion(ctx context.Context, clientOrderIDs ...string) error {
	for _, id := range clientOrderIDs {
		order, ok := s.orderTracker.FetchOrder(id)
		if !ok {
			if _, cached := s.orderTracker.FetchCachedOrder(id); cached {
				continue
			}
			return ErrOrderNotTracked
		}

		if err := order.WaitUntilCompletelyFilled(ctx); err != nil {
			return err
		}
	}

	return nil
}
