package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/trading-client/internal/entity"
)

type OrderRecordRepository struct {
	db *sqlx.DB
}

func NewOrderRecordRepository(db *sqlx.DB) *OrderRecordRepository {
	return &OrderRecordRepository{db: db}
}

// Create inserts one closed-order row. Conflicts on (exchange,
// client_order_id) are ignored: an order closes exactly once but the event
// stream may redeliver.
func (r *OrderRecordRepository) Create(ctx context.Context, record *entity.OrderRecord) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(record.TableName()).
		Columns(
			"exchange",
			"client_order_id",
			"exchange_order_id",
			"symbol",
			"side",
			"type",
			"final_state",
			"base_asset_amount",
			"quote_asset_amount",
			"fee_asset",
			"fee_amount",
			"failure_reason",
			"closed_at",
			"created_at",
		).
		Values(
			record.Exchange,
			record.ClientOrderID,
			record.ExchangeOrderID,
			record.Symbol,
			record.Side,
			record.Type,
			record.FinalState,
			record.BaseAssetAmount,
			record.QuoteAssetAmount,
			record.FeeAsset,
			record.FeeAmount,
			record.FailureReason,
			record.ClosedAt,
			record.CreatedAt,
		).
		Suffix("ON CONFLICT (exchange, client_order_id) DO NOTHING RETURNING id")

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
		if err := rows.Scan(&record.ID); err != nil {
			return err
		}
	}

	return rows.Err()
}

func (r *OrderRecordRepository) GetByFinalState(ctx context.Context, exchange string, states []string) ([]entity.OrderRecord, error) {
	if len(states) == 0 {
		return []entity.OrderRecord{}, nil
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From("order_records").
		Where(sq.Eq{"exchange": exchange, "final_state": states}).
		OrderBy("closed_at desc")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var records []entity.OrderRecord
	err = r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, err
	}

	return records, nil
}
