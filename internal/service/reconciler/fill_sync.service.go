package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/krobus00/trading-client/internal/tracker"
	"github.com/sirupsen/logrus"
)

const defaultFillSyncInterval = 15 * time.Second

// FillSyncService polls trade fills for every fillable order, lost orders
// included, so fills arriving after an order was written off are still
// recorded for accounting. Duplicate deliveries are harmless: the tracker
// dedups by fill id.
type FillSyncService struct {
	exchange     entity.Exchange
	orderTracker *tracker.Tracker
	consumer     entity.UpdateConsumer
	syncInterval time.Duration
}

func NewFillSyncService(ex entity.Exchange, orderTracker *tracker.Tracker, syncInterval time.Duration) *FillSyncService {
	if syncInterval <= 0 {
		syncInterval = defaultFillSyncInterval
	}

	return &FillSyncService{
		exchange:     ex,
		orderTracker: orderTracker,
		consumer:     orderTracker,
		syncInterval: syncInterval,
	}
}

func (s *FillSyncService) Run(ctx context.Context) {
	if !s.exchange.TradeFillsAvailable() {
		logrus.WithField("exchange", s.exchange.Name()).Info("exchange cannot enumerate fills, fill sync disabled")
		return
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	s.SyncTradeFills(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncTradeFills(ctx)
		}
	}
}

func (s *FillSyncService) SyncTradeFills(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	for _, order := range s.orderTracker.AllFillableOrders() {
		if ctx.Err() != nil {
			return
		}

		fills, err := s.exchange.TradeFills(ctx, order)
		if err != nil {
			if errors.Is(err, entity.ErrOrderNotFound) {
				// Status sync owns not-found accounting; fills simply are
				// not there yet.
				continue
			}

			logrus.WithFields(logrus.Fields{
				"exchange":        s.exchange.Name(),
				"client_order_id": order.ClientOrderID,
			}).WithError(err).Error("failed to poll trade fills")
			continue
		}

		for i := range fills {
			if err := s.consumer.ProcessTradeUpdate(ctx, &fills[i]); err != nil {
				logrus.WithFields(logrus.Fields{
					"exchange":        s.exchange.Name(),
					"client_order_id": order.ClientOrderID,
					"fill_id":         fills[i].FillID,
				}).WithError(err).Error("failed to process polled fill")
			}
		}
	}
}
