package sqlstore

import (
	"context"
	"fmt"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	domain.TradeRepository
	domain.HoldingRepository
	db *DB
}

// NewLedgerRepository creates a repository over the trades and holdings tables
func NewLedgerRepository(db *DB) domain.LedgerRepository {
	return &ledgerRepository{
		TradeRepository:   NewTradeRepository(db),
		HoldingRepository: NewHoldingRepository(db),
		db:                db,
	}
}

// RecordTrade inserts trade and sets the holding of its symbol in one database transaction
func (r *ledgerRepository) RecordTrade(ctx context.Context, trade *domain.Trade, holding int64) error {
	if err := trade.Validate(); err != nil {
		return domain.NewMalformedDataError("refusing to record invalid trade", err)
	}
	if holding < 0 {
		return domain.NewMalformedDataError(fmt.Sprintf("holding for %s cannot be negative", trade.Symbol), nil)
	}

	// Start a database transaction
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := insertTrade(ctx, r.db, dbTx, trade); err != nil {
		return err
	}

	if err := upsertHolding(ctx, r.db, dbTx, trade.Symbol, holding); err != nil {
		return err
	}

	// Commit the transaction
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
