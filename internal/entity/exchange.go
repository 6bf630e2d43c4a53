package entity

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type ExchangeName string

const (
	ExchangePaper ExchangeName = "paper"
)

// ErrOrderNotFound is the normalized form of an exchange denying that an
// order exists. Producers forward it to the tracker as a not-found signal
// rather than treating it as a hard failure.
var ErrOrderNotFound = errors.New("order not found on exchange")

type SubmitOrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Price         decimal.Decimal
	Amount        decimal.Decimal
}

// Exchange is the vendor-specific collaborator behind one connector. It
// translates wire formats into the normalized DTOs; the core never sees raw
// payloads except as opaque bytes handed back through
// HandleUserStreamMessage.
type Exchange interface {
	Name() ExchangeName

	SubmitOrder(ctx context.Context, req SubmitOrderRequest) (exchangeOrderID string, err error)

	// CancelOrder returns done=true when the exchange acknowledged the
	// cancellation synchronously. done=false means the exchange accepted the
	// request but confirmation arrives later through polling or the user
	// stream.
	CancelOrder(ctx context.Context, order *InFlightOrder) (done bool, err error)

	OrderStatus(ctx context.Context, order *InFlightOrder) (*OrderUpdate, error)

	TradeFills(ctx context.Context, order *InFlightOrder) ([]TradeUpdate, error)

	// TradeFillsAvailable reports whether the exchange can enumerate fills
	// at all. When false the tracker fires completion immediately on FILLED
	// with zero amounts instead of waiting for fill confirmation.
	TradeFillsAvailable() bool

	HandleUserStreamMessage(ctx context.Context, message []byte) error
}
