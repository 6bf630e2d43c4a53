package eventsink

import (
	"context"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/sirupsen/logrus"
)

// LogSink writes lifecycle events to the service log.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) OrderCreated(ctx context.Context, event entity.OrderCreatedEvent) {
	logrus.WithFields(logrus.Fields{
		"exchange":        event.Exchange,
		"client_order_id": event.ClientOrderID,
		"symbol":          event.Symbol,
		"side":            event.Side,
		"price":           event.Price.String(),
		"amount":          event.Amount.String(),
	}).Info("order created")
}

func (s *LogSink) OrderFilled(ctx context.Context, event entity.OrderFilledEvent) {
	logrus.WithFields(logrus.Fields{
		"exchange":        event.Exchange,
		"client_order_id": event.ClientOrderID,
		"fill_id":         event.FillID,
		"fill_price":      event.FillPrice.String(),
		"fill_amount":     event.FillBaseAmount.String(),
		"fee":             event.FeeAmount.String(),
	}).Info("order filled")
}

func (s *LogSink) OrderCancelled(ctx context.Context, event entity.OrderCancelledEvent) {
	logrus.WithFields(logrus.Fields{
		"exchange":        event.Exchange,
		"client_order_id": event.ClientOrderID,
	}).Info("order cancelled")
}

func (s *LogSink) OrderFailure(ctx context.Context, event entity.OrderFailureEvent) {
	logrus.WithFields(logrus.Fields{
		"exchange":        event.Exchange,
		"client_order_id": event.ClientOrderID,
		"reason":          event.Reason,
	}).Warn("order failed")
}

func (s *LogSink) OrderCompleted(ctx context.Context, event entity.OrderCompletedEvent) {
	logrus.WithFields(logrus.Fields{
		"exchange":        event.Exchange,
		"client_order_id": event.ClientOrderID,
		"base_amount":     event.BaseAssetAmount.String(),
		"quote_amount":    event.QuoteAssetAmount.String(),
	}).Info("order completed")
}
