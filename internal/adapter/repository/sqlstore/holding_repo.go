package sqlstore

import (
	"context"
	"fmt"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// GetAll retrieves every holding row
func (r *holdingRepository) GetAll(ctx context.Context) (domain.Holdings, error) {
	query := `
		SELECT symbol, quantity
		FROM holdings
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := domain.Holdings{}
	for rows.Next() {
		var symbol string
		var quantity int64
		if err := rows.Scan(&symbol, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan holding row: %w", err)
		}
		if quantity < 0 {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("negative holding for %s", symbol), nil)
		}
		holdings[symbol] = quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding rows: %w", err)
	}

	return holdings, nil
}

// Set upserts the holding of symbol
func (r *holdingRepository) Set(ctx context.Context, symbol string, quantity int64) error {
	if quantity < 0 {
		return domain.NewMalformedDataError(fmt.Sprintf("holding for %s cannot be negative", symbol), nil)
	}
	return upsertHolding(ctx, r.db, r.db.DB, symbol, quantity)
}

func upsertHolding(ctx context.Context, db *DB, exec sqlExecer, symbol string, quantity int64) error {
	query := db.rebind(`
		INSERT INTO holdings (symbol, quantity)
		VALUES (?, ?)
		ON CONFLICT (symbol) DO UPDATE SET quantity = excluded.quantity
	`)

	if _, err := exec.ExecContext(ctx, query, symbol, quantity); err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}
