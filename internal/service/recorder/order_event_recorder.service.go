package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/krobus00/trading-client/internal/config"
	"github.com/krobus00/trading-client/internal/constant"
	"github.com/krobus00/trading-client/internal/entity"
	"github.com/krobus00/trading-client/internal/repository"
	"github.com/krobus00/trading-client/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// OrderEventRecorderService consumes the order_events stream and persists
// fills and closed orders for accounting. Failed messages are not acked and
// redeliver; the repositories tolerate replays through their conflict
// clauses.
type OrderEventRecorderService struct {
	js              nats.JetStreamContext
	fillJournalRepo *repository.FillJournalRepository
	orderRecordRepo *repository.OrderRecordRepository
}

func NewOrderEventRecorderService(js nats.JetStreamContext, fillJournalRepo *repository.FillJournalRepository, orderRecordRepo *repository.OrderRecordRepository) *OrderEventRecorderService {
	return &OrderEventRecorderService{
		js:              js,
		fillJournalRepo: fillJournalRepo,
		orderRecordRepo: orderRecordRepo,
	}
}

func (s *OrderEventRecorderService) JetstreamEventSubscribe(ctx context.Context) error {
	_, err := s.js.QueueSubscribe(
		constant.OrderEventsStreamSubjectAll,
		constant.OrderEventsQueueGroup,
		func(msg *nats.Msg) {
			err := util.ProcessWithTimeout(config.Env.NatsJetstream.TimeoutHandler["record_order_event"], msg, s.handleOrderEvent)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.ManualAck(),
		nats.Durable(constant.OrderEventsConsumerName),
	)
	util.ContinueOrFatal(err)

	return nil
}

func (s *OrderEventRecorderService) handleOrderEvent(ctx context.Context, msg *nats.Msg) error {
	logger := logrus.WithFields(logrus.Fields{
		"subject": msg.Subject,
		"req":     string(msg.Data),
	})

	switch msg.Subject {
	case constant.OrderEventsSubjectFilled:
		var event entity.OrderFilledEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error(err)
			return err
		}
		return s.recordFill(ctx, event)

	case constant.OrderEventsSubjectCompleted:
		var event entity.OrderCompletedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error(err)
			return err
		}
		return s.recordCompleted(ctx, event)

	case constant.OrderEventsSubjectCancelled:
		var event entity.OrderCancelledEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error(err)
			return err
		}
		return s.recordCancelled(ctx, event)

	case constant.OrderEventsSubjectFailure:
		var event entity.OrderFailureEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error(err)
			return err
		}
		return s.recordFailure(ctx, event)

	default:
		// order_events.created carries no accounting payload.
		return nil
	}
}

func (s *OrderEventRecorderService) recordFill(ctx context.Context, event entity.OrderFilledEvent) error {
	now := time.Now().UTC()

	return s.fillJournalRepo.Create(ctx, &entity.FillRecord{
		Exchange:        event.Exchange,
		ClientOrderID:   event.ClientOrderID,
		ExchangeOrderID: nullString(event.ExchangeOrderID),
		Symbol:          event.Symbol,
		Side:            event.Side,
		FillID:          event.FillID,
		FillPrice:       event.FillPrice,
		FillBaseAmount:  event.FillBaseAmount,
		FillQuoteAmount: event.FillQuoteAmount,
		FeeAsset:        nullString(event.FeeAsset),
		FeeAmount:       event.FeeAmount,
		FilledAt:        event.Timestamp,
		CreatedAt:       now,
	})
}

func (s *OrderEventRecorderService) recordCompleted(ctx context.Context, event entity.OrderCompletedEvent) error {
	now := time.Now().UTC()
	baseAmount := event.BaseAssetAmount
	quoteAmount := event.QuoteAssetAmount
	feeAmount := event.FeeAmount

	return s.orderRecordRepo.Create(ctx, &entity.OrderRecord{
		Exchange:         event.Exchange,
		ClientOrderID:    event.ClientOrderID,
		ExchangeOrderID:  nullString(event.ExchangeOrderID),
		Symbol:           event.Symbol,
		Side:             nullString(string(event.Side)),
		Type:             nullString(string(event.Type)),
		FinalState:       string(entity.OrderStateFilled),
		BaseAssetAmount:  &baseAmount,
		QuoteAssetAmount: &quoteAmount,
		FeeAsset:         nullString(event.FeeAsset),
		FeeAmount:        &feeAmount,
		ClosedAt:         event.Timestamp,
		CreatedAt:        now,
	})
}

func (s *OrderEventRecorderService) recordCancelled(ctx context.Context, event entity.OrderCancelledEvent) error {
	return s.orderRecordRepo.Create(ctx, &entity.OrderRecord{
		Exchange:        event.Exchange,
		ClientOrderID:   event.ClientOrderID,
		ExchangeOrderID: nullString(event.ExchangeOrderID),
		Symbol:          event.Symbol,
		FinalState:      string(entity.OrderStateCanceled),
		ClosedAt:        event.Timestamp,
		CreatedAt:       time.Now().UTC(),
	})
}

func (s *OrderEventRecorderService) recordFailure(ctx context.Context, event entity.OrderFailureEvent) error {
	return s.orderRecordRepo.Create(ctx, &entity.OrderRecord{
		Exchange:      event.Exchange,
		ClientOrderID: event.ClientOrderID,
		Symbol:        event.Symbol,
		Type:          nullString(string(event.Type)),
		FinalState:    string(entity.OrderStateFailed),
		FailureReason: nullString(event.Reason),
		ClosedAt:      event.Timestamp,
		CreatedAt:     time.Now().UTC(),
	})
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
