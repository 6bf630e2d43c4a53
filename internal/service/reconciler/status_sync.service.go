package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/krobus00/trading-client/internal/tracker"
	"github.com/sirupsen/logrus"
)

const defaultStatusSyncInterval = 10 * time.Second

// StatusSyncService polls the exchange for the status of every updatable
// order and feeds the normalized result into the tracker. A not-found
// response is forwarded as a not-found signal; any other error is the
// producer's problem and is retried on the next tick.
type StatusSyncService struct {
	exchange     entity.Exchange
	orderTracker *tracker.Tracker
	consumer     entity.UpdateConsumer
	syncInterval time.Duration
}

func NewStatusSyncService(ex entity.Exchange, orderTracker *tracker.Tracker, syncInterval time.Duration) *StatusSyncService {
	if syncInterval <= 0 {
		syncInterval = defaultStatusSyncInterval
	}

	return &StatusSyncService{
		exchange:     ex,
		orderTracker: orderTracker,
		consumer:     orderTracker,
		syncInterval: syncInterval,
	}
}

func (s *StatusSyncService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	s.SyncOrderStatuses(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOrderStatuses(ctx)
		}
	}
}

func (s *StatusSyncService) SyncOrderStatuses(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	for _, order := range s.orderTracker.AllUpdatableOrders() {
		if ctx.Err() != nil {
			return
		}

		update, err := s.exchange.OrderStatus(ctx, order)
		if err != nil {
			if errors.Is(err, entity.ErrOrderNotFound) {
				if nfErr := s.consumer.ProcessOrderNotFound(ctx, order.ClientOrderID); nfErr != nil {
					logrus.WithError(nfErr).Error("failed to record order not found")
				}
				continue
			}

			logrus.WithFields(logrus.Fields{
				"exchange":        s.exchange.Name(),
				"client_order_id": order.ClientOrderID,
			}).WithError(err).Error("failed to poll order status")
			continue
		}
		if update == nil {
			continue
		}

		if err := s.consumer.ProcessOrderUpdate(ctx, update); err != nil {
			logrus.WithFields(logrus.Fields{
				"exchange":        s.exchange.Name(),
				"client_order_id": order.ClientOrderID,
			}).WithError(err).Error("failed to process polled order update")
		}
	}
}
