package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// tradeRepository implements domain.TradeRepository
type tradeRepository struct {
	db *DB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *DB) domain.TradeRepository {
	return &tradeRepository{db: db}
}

// List retrieves the ledger in insertion order
func (r *tradeRepository) List(ctx context.Context) ([]*domain.Trade, error) {
	query := `
		SELECT id, trade_type, symbol, price, quantity, ts
		FROM trades
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var trade domain.Trade
		var idStr, typeStr, priceStr string

		if err := rows.Scan(&idStr, &typeStr, &trade.Symbol, &priceStr, &trade.Quantity, &trade.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}

		trade.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, domain.NewMalformedDataError("failed to parse trade id", err)
		}
		trade.Type = domain.TradeType(typeStr)
		trade.Price, err = decimal.NewFromString(priceStr)
		if err != nil {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("failed to parse price of trade %s", idStr), err)
		}
		if err := trade.Validate(); err != nil {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid trade %s", idStr), err)
		}

		trades = append(trades, &trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}

	return trades, nil
}

// Append inserts trade at the end of the ledger
func (r *tradeRepository) Append(ctx context.Context, trade *domain.Trade) error {
	if err := trade.Validate(); err != nil {
		return domain.NewMalformedDataError("refusing to append invalid trade", err)
	}
	return insertTrade(ctx, r.db, r.db.DB, trade)
}

// sqlExecer is satisfied by *sql.DB and *sql.Tx
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertTrade(ctx context.Context, db *DB, exec sqlExecer, trade *domain.Trade) error {
	query := db.rebind(`
		INSERT INTO trades (id, trade_type, symbol, price, quantity, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	id := trade.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := exec.ExecContext(ctx, query,
		id.String(),
		string(trade.Type),
		trade.Symbol,
		trade.Price.String(),
		trade.Quantity,
		trade.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}
