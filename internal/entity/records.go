package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// FillRecord is the accounting row written for every order-filled event.
type FillRecord struct {
	ID              string          `db:"id" json:"id"`
	Exchange        string          `db:"exchange" json:"exchange"`
	ClientOrderID   string          `db:"client_order_id" json:"client_order_id"`
	ExchangeOrderID sql.NullString  `db:"exchange_order_id" json:"exchange_order_id"`
	Symbol          string          `db:"symbol" json:"symbol"`
	Side            OrderSide       `db:"side" json:"side"`
	FillID          string          `db:"fill_id" json:"fill_id"`
	FillPrice       decimal.Decimal `db:"fill_price" json:"fill_price"`
	FillBaseAmount  decimal.Decimal `db:"fill_base_amount" json:"fill_base_amount"`
	FillQuoteAmount decimal.Decimal `db:"fill_quote_amount" json:"fill_quote_amount"`
	FeeAsset        sql.NullString  `db:"fee_asset" json:"fee_asset"`
	FeeAmount       decimal.Decimal `db:"fee_amount" json:"fee_amount"`
	FilledAt        time.Time       `db:"filled_at" json:"filled_at"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

func (f FillRecord) TableName() string {
	return "order_fills"
}

// OrderRecord is the accounting row written when an order closes.
type OrderRecord struct {
	ID               string           `db:"id" json:"id"`
	Exchange         string           `db:"exchange" json:"exchange"`
	ClientOrderID    string           `db:"client_order_id" json:"client_order_id"`
	ExchangeOrderID  sql.NullString   `db:"exchange_order_id" json:"exchange_order_id"`
	Symbol           string           `db:"symbol" json:"symbol"`
	Side             sql.NullString   `db:"side" json:"side"`
	Type             sql.NullString   `db:"type" json:"type"`
	FinalState       string           `db:"final_state" json:"final_state"`
	BaseAssetAmount  *decimal.Decimal `db:"base_asset_amount" json:"base_asset_amount"`
	QuoteAssetAmount *decimal.Decimal `db:"quote_asset_amount" json:"quote_asset_amount"`
	FeeAsset         sql.NullString   `db:"fee_asset" json:"fee_asset"`
	FeeAmount        *decimal.Decimal `db:"fee_amount" json:"fee_amount"`
	FailureReason    sql.NullString   `db:"failure_reason" json:"failure_reason"`
	ClosedAt         time.Time        `db:"closed_at" json:"closed_at"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

func (o OrderRecord) TableName() string {
	return "order_records"
}
