package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeType represents the side of a trade
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// Trade represents an executed trade in the ledger.
// Trades are immutable once recorded and the ledger is append-only.
type Trade struct {
	ID        uuid.UUID       `json:"id"`
	Type      TradeType       `json:"type"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
}

// Notional returns price * quantity
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// Validate ensures the trade adheres to domain rules
// Returns an error if validation fails
func (t *Trade) Validate() error {
	if t.Type != TradeTypeBuy && t.Type != TradeTypeSell {
		return errors.New("trade type must be buy or sell")
	}
	if t.Symbol == "" {
		return errors.New("trade symbol cannot be empty")
	}
	if t.Price.LessThanOrEqual(decimal.Zero) {
		return errors.New("trade price must be positive")
	}
	// A zero quantity trade must never be recorded
	if t.Quantity <= 0 {
		return errors.New("trade quantity must be positive")
	}
	if t.Timestamp.IsZero() {
		return errors.New("trade timestamp cannot be empty")
	}
	return nil
}

// LastTradeFor returns the most recent trade for symbol in a ledger ordered
// oldest first, or nil when the symbol was never traded.
func LastTradeFor(trades []*Trade, symbol string) *Trade {
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].Symbol == symbol {
			return trades[i]
		}
	}
	return nil
}
