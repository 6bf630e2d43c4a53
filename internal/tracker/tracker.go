package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/sirupsen/logrus"
)

const (
	defaultLostOrderCountLimit = 3
	defaultMaxCachedOrders     = 1000
	defaultCachedOrderTTL      = 30 * time.Minute
)

var (
	ErrNilUpdate            = errors.New("nil update")
	ErrUpdateMissingOrderID = errors.New("update carries neither client nor exchange order id")
	ErrOrderAlreadyTracked  = errors.New("client order id already tracked")
)

type Config struct {
	Exchange            string
	LostOrderCountLimit int
	MaxCachedOrders     int
	CachedOrderTTL      time.Duration

	// TradeFillsAvailable is false for exchanges that cannot enumerate
	// fills. FILLED orders then complete immediately instead of waiting for
	// fill confirmation.
	TradeFillsAvailable bool
}

// OrderStore persists snapshots of non-terminal orders for crash recovery.
type OrderStore interface {
	Save(ctx context.Context, snapshot entity.OrderSnapshot) error
	Delete(ctx context.Context, clientOrderID string) error
	LoadAll(ctx context.Context) ([]entity.OrderSnapshot, error)
}

type cachedOrder struct {
	order     *entity.InFlightOrder
	evictedAt time.Time
}

// Tracker keeps the locally tracked representation of every order consistent
// with the exchange despite duplicated, out-of-order and missing updates
// arriving from REST polling and the websocket user stream. Mutations of one
// order are serialized through a per-order mutex; unrelated orders never
// contend. The table lock is never held across sink calls or signal waits.
type Tracker struct {
	cfg   Config
	sink  entity.EventSink
	store OrderStore

	mu              sync.RWMutex
	activeOrders    map[string]*entity.InFlightOrder
	lostOrders      map[string]*entity.InFlightOrder
	cachedOrders    map[string]cachedOrder
	exchangeIDIndex map[string]string
	orderLocks      map[string]*sync.Mutex
	notFoundRecords map[string]int
}

// New builds a tracker. store may be nil when snapshot persistence is not
// wanted (tests, paper trading without recovery).
func New(cfg Config, sink entity.EventSink, store OrderStore) *Tracker {
	if cfg.LostOrderCountLimit <= 0 {
		cfg.LostOrderCountLimit = defaultLostOrderCountLimit
	}
	if cfg.MaxCachedOrders <= 0 {
		cfg.MaxCachedOrders = defaultMaxCachedOrders
	}
	if cfg.CachedOrderTTL <= 0 {
		cfg.CachedOrderTTL = defaultCachedOrderTTL
	}

	return &Tracker{
		cfg:             cfg,
		sink:            sink,
		store:           store,
		activeOrders:    make(map[string]*entity.InFlightOrder),
		lostOrders:      make(map[string]*entity.InFlightOrder),
		cachedOrders:    make(map[string]cachedOrder),
		exchangeIDIndex: make(map[string]string),
		orderLocks:      make(map[string]*sync.Mutex),
		notFoundRecords: make(map[string]int),
	}
}

// StartTracking registers a new order. Callers own uniqueness of the client
// order id; a duplicate id is reported as caller misuse.
func (t *Tracker) StartTracking(ctx context.Context, order *entity.InFlightOrder) error {
	if order == nil {
		return ErrNilUpdate
	}

	t.mu.Lock()
	if _, ok := t.activeOrders[order.ClientOrderID]; ok {
		t.mu.Unlock()
		return ErrOrderAlreadyTracked
	}
	if _, ok := t.lostOrders[order.ClientOrderID]; ok {
		t.mu.Unlock()
		return ErrOrderAlreadyTracked
	}

	t.activeOrders[order.ClientOrderID] = order
	t.orderLocks[order.ClientOrderID] = &sync.Mutex{}
	if order.ExchangeOrderID() != "" {
		t.exchangeIDIndex[order.ExchangeOrderID()] = order.ClientOrderID
	}
	t.mu.Unlock()

	t.persistSnapshot(ctx, order)

	return nil
}

// RestoreTracking re-registers orders from persisted snapshots after a
// restart. Terminal snapshots are skipped.
func (t *Tracker) RestoreTracking(ctx context.Context, snapshots []entity.OrderSnapshot) error {
	for _, snapshot := range snapshots {
		if snapshot.State.IsTerminal() {
			continue
		}

		order := entity.OrderFromSnapshot(snapshot)
		if err := t.StartTracking(ctx, order); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"exchange":        t.cfg.Exchange,
			"client_order_id": order.ClientOrderID,
			"state":           order.CurrentState(),
		}).Info("restored in-flight order")
	}

	return nil
}

// ProcessOrderUpdate applies one normalized status fact. Updates for unknown
// orders and stale or duplicate updates are dropped silently; the engine is
// tolerant of noisy producers.
func (t *Tracker) ProcessOrderUpdate(ctx context.Context, update *entity.OrderUpdate) error {
	if update == nil {
		return ErrNilUpdate
	}
	if update.ClientOrderID == "" && update.ExchangeOrderID == "" {
		return ErrUpdateMissingOrderID
	}

	order, lock, isLost, tracked := t.resolveOrder(update.ClientOrderID, update.ExchangeOrderID)
	if !tracked {
		logrus.WithFields(logrus.Fields{
			"exchange":          t.cfg.Exchange,
			"client_order_id":   update.ClientOrderID,
			"exchange_order_id": update.ExchangeOrderID,
		}).Debug("order update for untracked order dropped")
		return nil
	}

	lock.Lock()
	transitioned := order.ApplyOrderUpdate(update)
	lock.Unlock()

	t.refreshExchangeIDIndex(order)

	if !transitioned {
		return nil
	}

	t.persistSnapshot(ctx, order)

	if isLost {
		// Demoted orders fired their failure event at demotion time and
		// never produce lifecycle events again; bookkeeping only.
		if order.IsDone() {
			t.deleteSnapshot(ctx, order.ClientOrderID)
		}
		return nil
	}

	switch order.CurrentState() {
	case entity.OrderStateOpen:
		t.sink.OrderCreated(ctx, entity.OrderCreatedEvent{
			Timestamp:       order.LastUpdateAt(),
			Exchange:        t.cfg.Exchange,
			ClientOrderID:   order.ClientOrderID,
			ExchangeOrderID: order.ExchangeOrderID(),
			Symbol:          order.Symbol,
			Side:            order.Side,
			Type:            order.Type,
			Price:           order.Price,
			Amount:          order.Amount,
		})

	case entity.OrderStateCanceled:
		t.stopTracking(ctx, order)
		t.sink.OrderCancelled(ctx, entity.OrderCancelledEvent{
			Timestamp:       order.LastUpdateAt(),
			Exchange:        t.cfg.Exchange,
			ClientOrderID:   order.ClientOrderID,
			ExchangeOrderID: order.ExchangeOrderID(),
			Symbol:          order.Symbol,
		})

	case entity.OrderStateFailed:
		t.stopTracking(ctx, order)
		t.sink.OrderFailure(ctx, entity.OrderFailureEvent{
			Timestamp:     order.LastUpdateAt(),
			Exchange:      t.cfg.Exchange,
			ClientOrderID: order.ClientOrderID,
			Symbol:        order.Symbol,
			Type:          order.Type,
			Reason:        failureReason(update),
		})

	case entity.OrderStateFilled:
		return t.completeOrder(ctx, order)
	}

	return nil
}

// ProcessTradeUpdate applies one normalized fill. Duplicate fill ids are
// dropped. A fill that reaches the requested amount while the order's state
// is still below FILLED triggers an implicit FILLED order update.
func (t *Tracker) ProcessTradeUpdate(ctx context.Context, trade *entity.TradeUpdate) error {
	if trade == nil {
		return ErrNilUpdate
	}
	if trade.ClientOrderID == "" && trade.ExchangeOrderID == "" {
		return ErrUpdateMissingOrderID
	}

	order, lock, _, tracked := t.resolveOrder(trade.ClientOrderID, trade.ExchangeOrderID)
	if !tracked {
		logrus.WithFields(logrus.Fields{
			"exchange": t.cfg.Exchange,
			"fill_id":  trade.FillID,
		}).Debug("trade update for untracked order dropped")
		return nil
	}

	lock.Lock()
	newFill := order.ApplyTradeUpdate(trade)
	completelyFilled := order.IsCompletelyFilled()
	state := order.CurrentState()
	lock.Unlock()

	t.refreshExchangeIDIndex(order)

	if !newFill {
		return nil
	}

	t.persistSnapshot(ctx, order)

	t.sink.OrderFilled(ctx, entity.OrderFilledEvent{
		Timestamp:       trade.FillTime,
		Exchange:        t.cfg.Exchange,
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: order.ExchangeOrderID(),
		Symbol:          order.Symbol,
		Side:            order.Side,
		Type:            order.Type,
		FillID:          trade.FillID,
		FillPrice:       trade.FillPrice,
		FillBaseAmount:  trade.FillBaseAmount,
		FillQuoteAmount: trade.FillQuoteAmount,
		FeeAsset:        trade.FeeAsset,
		FeeAmount:       trade.FeeAmount,
	})

	if completelyFilled && state.Rank() < entity.OrderStateFilled.Rank() {
		return t.ProcessOrderUpdate(ctx, &entity.OrderUpdate{
			ClientOrderID:   order.ClientOrderID,
			ExchangeOrderID: order.ExchangeOrderID(),
			Symbol:          order.Symbol,
			UpdateTime:      trade.FillTime,
			NewState:        entity.OrderStateFilled,
		})
	}

	return nil
}

// completeOrder finishes the FILLED path: wait for fill confirmation (unless
// the exchange cannot report fills), fire the aggregate completion event and
// evict. The per-order lock is not held here; fills may still land while we
// wait.
func (t *Tracker) completeOrder(ctx context.Context, order *entity.InFlightOrder) error {
	if !t.cfg.TradeFillsAvailable {
		order.MarkCompletelyFilled()
	}

	if err := order.WaitUntilCompletelyFilled(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"exchange":        t.cfg.Exchange,
			"client_order_id": order.ClientOrderID,
		}).WithError(err).Warn("order reached FILLED before all fills were confirmed")
		return err
	}

	wasLost := t.isLost(order.ClientOrderID)
	t.stopTracking(ctx, order)

	if wasLost {
		return nil
	}

	t.sink.OrderCompleted(ctx, entity.OrderCompletedEvent{
		Timestamp:        order.LastUpdateAt(),
		Exchange:         t.cfg.Exchange,
		ClientOrderID:    order.ClientOrderID,
		ExchangeOrderID:  order.ExchangeOrderID(),
		Symbol:           order.Symbol,
		Side:             order.Side,
		Type:             order.Type,
		BaseAssetAmount:  order.ExecutedAmountBase(),
		QuoteAssetAmount: order.ExecutedAmountQuote(),
		FeeAsset:         order.FeeAsset(),
		FeeAmount:        order.CumulativeFee(),
	})

	return nil
}

// resolveOrder finds a tracked order by client order id, falling back to the
// exchange-id index for producers that only know the exchange id. Lost
// orders stay resolvable so late fills are not dropped.
func (t *Tracker) resolveOrder(clientOrderID, exchangeOrderID string) (*entity.InFlightOrder, *sync.Mutex, bool, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id := clientOrderID
	if id == "" {
		id = t.exchangeIDIndex[exchangeOrderID]
		if id == "" {
			return nil, nil, false, false
		}
	}

	if order, ok := t.activeOrders[id]; ok {
		return order, t.orderLocks[id], false, true
	}
	if order, ok := t.lostOrders[id]; ok {
		return order, t.orderLocks[id], true, true
	}

	return nil, nil, false, false
}

func (t *Tracker) refreshExchangeIDIndex(order *entity.InFlightOrder) {
	exchangeOrderID := order.ExchangeOrderID()
	if exchangeOrderID == "" {
		return
	}

	t.mu.Lock()
	t.exchangeIDIndex[exchangeOrderID] = order.ClientOrderID
	t.mu.Unlock()
}

// stopTracking evicts a terminal order from both tables into the bounded
// cache of recently closed orders, so late duplicate updates resolve quietly
// instead of looking like unknown orders.
func (t *Tracker) stopTracking(ctx context.Context, order *entity.InFlightOrder) {
	t.mu.Lock()
	delete(t.activeOrders, order.ClientOrderID)
	delete(t.lostOrders, order.ClientOrderID)
	delete(t.notFoundRecords, order.ClientOrderID)
	t.cacheOrderLocked(order)
	t.mu.Unlock()

	t.deleteSnapshot(ctx, order.ClientOrderID)
}

func (t *Tracker) isLost(clientOrderID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.lostOrders[clientOrderID]
	return ok
}

func (t *Tracker) persistSnapshot(ctx context.Context, order *entity.InFlightOrder) {
	if t.store == nil || order.IsDone() {
		return
	}

	if err := t.store.Save(ctx, order.ToSnapshot()); err != nil {
		logrus.WithFields(logrus.Fields{
			"exchange":        t.cfg.Exchange,
			"client_order_id": order.ClientOrderID,
		}).WithError(err).Error("failed to persist order snapshot")
	}
}

func (t *Tracker) deleteSnapshot(ctx context.Context, clientOrderID string) {
	if t.store == nil {
		return
	}

	if err := t.store.Delete(ctx, clientOrderID); err != nil {
		logrus.WithFields(logrus.Fields{
			"exchange":        t.cfg.Exchange,
			"client_order_id": clientOrderID,
		}).WithError(err).Error("failed to delete order snapshot")
	}
}

func failureReason(update *entity.OrderUpdate) string {
	if update.MiscUpdates == nil {
		return ""
	}
	if reason, ok := update.MiscUpdates["reason"].(string); ok {
		return reason
	}
	return ""
}
