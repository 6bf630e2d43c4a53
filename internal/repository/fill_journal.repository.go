package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/trading-client/internal/entity"
)

type FillJournalRepository struct {
	db *sqlx.DB
}

func NewFillJournalRepository(db *sqlx.DB) *FillJournalRepository {
	return &FillJournalRepository{db: db}
}

// Create inserts one fill row. The unique constraint on (exchange, fill_id)
// makes replays from the event stream idempotent.
func (r *FillJournalRepository) Create(ctx context.Context, fill *entity.FillRecord) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(fill.TableName()).
		Columns(
			"exchange",
			"client_order_id",
			"exchange_order_id",
			"symbol",
			"side",
			"fill_id",
			"fill_price",
			"fill_base_amount",
			"fill_quote_amount",
			"fee_asset",
			"fee_amount",
			"filled_at",
			"created_at",
		).
		Values(
			fill.Exchange,
			fill.ClientOrderID,
			fill.ExchangeOrderID,
			fill.Symbol,
			fill.Side,
			fill.FillID,
			fill.FillPrice,
			fill.FillBaseAmount,
			fill.FillQuoteAmount,
			fill.FeeAsset,
			fill.FeeAmount,
			fill.FilledAt,
			fill.CreatedAt,
		).
		Suffix("ON CONFLICT (exchange, fill_id) DO NOTHING RETURNING id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&fill.ID); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (r *FillJournalRepository) GetByClientOrderID(ctx context.Context, exchange, clientOrderID string) ([]entity.FillRecord, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From("order_fills").
		Where(sq.Eq{"exchange": exchange, "client_order_id": clientOrderID}).
		OrderBy("filled_at asc")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var fills []entity.FillRecord
	err = r.db.SelectContext(ctx, &fills, query, args...)
	if err != nil {
		return nil, err
	}

	return fills, nil
}
