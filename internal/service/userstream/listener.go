package userstream

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	"github.com/krobus00/trading-client/internal/entity"
	"github.com/sirupsen/logrus"
)

const (
	wsReconnectMinDelay = 1 * time.Second
	wsReconnectMaxDelay = 15 * time.Second
	wsReconnectFactor   = 2.0
	wsPingInterval      = 2 * time.Minute
)

// Listener maintains the user-data websocket of one exchange and hands every
// raw message to the exchange for normalization. The listener owns only the
// connection; lost messages are recovered by the reconciliation pollers.
type Listener struct {
	url      string
	initSub  map[string]any
	exchange entity.Exchange
}

func NewListener(url string, initSub map[string]any, ex entity.Exchange) *Listener {
	return &Listener{
		url:      url,
		initSub:  initSub,
		exchange: ex,
	}
}

// Run reads the stream until ctx is done, reconnecting with exponential
// backoff after any connection failure.
func (l *Listener) Run(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	attempt := 0

	for {
		if ctx.Err() != nil {
			return
		}

		err := l.readLoop(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := reconnectDelay(attempt, rng)
		attempt++
		logrus.WithFields(logrus.Fields{
			"exchange": l.exchange.Name(),
			"retry_in": delay.String(),
		}).WithError(err).Warn("user stream disconnected")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (l *Listener) readLoop(ctx context.Context) error {
	logrus.WithField("exchange", l.exchange.Name()).Infof("connecting to %s", l.url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetPongHandler(func(string) error {
		return nil
	})

	if l.initSub != nil {
		if err := conn.WriteJSON(l.initSub); err != nil {
			return err
		}
	}

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()

	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					logrus.WithError(err).Warn("user stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	go func() {
		// Unblock ReadMessage when the context ends.
		<-pingCtx.Done()
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := l.exchange.HandleUserStreamMessage(ctx, message); err != nil {
			logrus.WithField("exchange", l.exchange.Name()).WithError(err).Error("failed to handle user stream message")
		}
	}
}

func reconnectDelay(attempt int, rng *rand.Rand) time.Duration {
	backoff := float64(wsReconnectMinDelay) * math.Pow(wsReconnectFactor, float64(attempt))
	if backoff > float64(wsReconnectMaxDelay) {
		backoff = float64(wsReconnectMaxDelay)
	}

	jitterWindow := wsReconnectMaxDelay - wsReconnectMinDelay
	jitter := time.Duration(rng.Int63n(int64(jitterWindow) + 1))
	delay := time.Duration(backoff) + jitter
	if delay > wsReconnectMaxDelay {
		return wsReconnectMaxDelay
	}

	return delay
}
