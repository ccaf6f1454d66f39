package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// PriceRepository implements domain.PriceRepository over the prices table.
// Every row is a quote; the newest row per symbol is the latest price.
type PriceRepository struct {
	db *DB
}

var _ domain.PriceRepository = (*PriceRepository)(nil)

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// SetPrice records a quote for symbol at ts
func (r *PriceRepository) SetPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	if !price.IsPositive() {
		return domain.NewMalformedDataError(fmt.Sprintf("invalid price %s for %s", price, symbol), nil)
	}

	query := r.db.rebind(`
		INSERT INTO prices (symbol, ts, price)
		VALUES (?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query, symbol, ts.UTC(), price.String())
	if err != nil {
		return fmt.Errorf("failed to insert price: %w", err)
	}

	return nil
}

// GetLatestPrice retrieves the most recent quote for symbol
func (r *PriceRepository) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	query := r.db.rebind(`
		SELECT price
		FROM prices
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT 1
	`)

	var priceStr string
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&priceStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get latest price: %w", err)
	}

	price, err := parsePrice(priceStr)
	if err != nil {
		return decimal.Zero, false, domain.NewMalformedDataError(fmt.Sprintf("failed to parse price for %s", symbol), err)
	}
	return price, true, nil
}

// GetPriceHistory retrieves every quote for symbol, oldest first
func (r *PriceRepository) GetPriceHistory(ctx context.Context, symbol string) ([]domain.PricePoint, error) {
	query := r.db.rebind(`
		SELECT ts, price
		FROM prices
		WHERE symbol = ?
		ORDER BY ts ASC
	`)

	rows, err := r.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var point domain.PricePoint
		var priceStr string
		if err := rows.Scan(&point.Timestamp, &priceStr); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}

		point.Price, err = parsePrice(priceStr)
		if err != nil {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("failed to parse price history for %s", symbol), err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}

	domain.SortPricePoints(points)
	return points, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", price)
	}
	return price, nil
}
