package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRepository supplies price data per symbol
type PriceRepository interface {
	// GetLatestPrice retrieves the latest quote for a symbol
	// The boolean is false when no quote exists
	GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)

	// GetPriceHistory retrieves the full price series for a symbol, oldest first
	// An empty series means no history exists
	GetPriceHistory(ctx context.Context, symbol string) ([]PricePoint, error)
}

// PriceWriter records quotes into a price source
type PriceWriter interface {
	SetPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error
}

// TradeRepository defines the interface for trade ledger persistence operations
type TradeRepository interface {
	// List retrieves every recorded trade, oldest first
	List(ctx context.Context) ([]*Trade, error)

	// Append adds a trade to the end of the ledger
	Append(ctx context.Context, trade *Trade) error
}

// HoldingRepository defines the interface for holdings persistence operations
type HoldingRepository interface {
	// GetAll retrieves the share count for every symbol
	GetAll(ctx context.Context) (Holdings, error)

	// Set stores the share count for a symbol
	Set(ctx context.Context, symbol string, quantity int64) error
}

// LedgerRepository is the durable side of the portfolio
type LedgerRepository interface {
	TradeRepository
	HoldingRepository

	// RecordTrade appends trade and sets the holding of trade.Symbol as one
	// atomic unit: either both are durable or neither is
	RecordTrade(ctx context.Context, trade *Trade, holding int64) error
}
