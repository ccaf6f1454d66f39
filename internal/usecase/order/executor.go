package order

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// Executor turns decisions into portfolio mutations.
// It owns the in-memory portfolio; every mutation is first recorded in the
// ledger repository and only applied in memory once the record is durable.
type Executor struct {
	mu        sync.RWMutex
	portfolio *domain.Portfolio
	ledger    domain.LedgerRepository
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes an Executor
type Option func(*Executor)

// WithClock overrides the clock used to timestamp trades
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithLogger sets the logger used for executed trades
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor acting on portfolio
func NewExecutor(portfolio *domain.Portfolio, ledger domain.LedgerRepository, opts ...Option) *Executor {
	e := &Executor{
		portfolio: portfolio,
		ledger:    ledger,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Buy spends as much cash as possible on symbol at price.
// Returns a nil trade without error when not even one share is affordable.
func (e *Executor) Buy(ctx context.Context, symbol string, price decimal.Decimal) (*domain.Trade, error) {
	if !price.IsPositive() {
		return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid price %s for %s", price, symbol), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	trade := e.portfolio.PlanBuy(symbol, price, e.now())
	if trade == nil {
		e.logger.Debug("buy skipped, balance too low", "symbol", symbol, "price", price.String(), "cash", e.portfolio.CashBalance.String())
		return nil, nil
	}

	if err := e.commit(ctx, trade); err != nil {
		return nil, err
	}

	e.logger.Info("bought shares", "symbol", symbol, "quantity", trade.Quantity, "price", price.String())
	return trade, nil
}

// Sell liquidates the full holding of symbol at price.
// Returns a nil trade without error when nothing is held.
func (e *Executor) Sell(ctx context.Context, symbol string, price decimal.Decimal) (*domain.Trade, error) {
	if !price.IsPositive() {
		return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid price %s for %s", price, symbol), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	trade := e.portfolio.PlanSell(symbol, price, e.now())
	if trade == nil {
		e.logger.Debug("sell skipped, nothing held", "symbol", symbol)
		return nil, nil
	}

	if err := e.commit(ctx, trade); err != nil {
		return nil, err
	}

	e.logger.Info("sold shares", "symbol", symbol, "quantity", trade.Quantity, "price", price.String())
	return trade, nil
}

// commit records trade durably and then applies it in memory.
// Must be called with e.mu held.
func (e *Executor) commit(ctx context.Context, trade *domain.Trade) error {
	// Apply to a copy first so an invariant break is caught before any write
	next := e.portfolio.Clone()
	if err := next.Apply(trade); err != nil {
		return domain.NewMalformedDataError(fmt.Sprintf("refusing %s of %s", trade.Type, trade.Symbol), err)
	}

	holding := next.Quantity(trade.Symbol)
	if err := e.ledger.RecordTrade(ctx, trade, holding); err != nil {
		return domain.AsTradingError(err, fmt.Sprintf("failed to record %s of %s", trade.Type, trade.Symbol))
	}

	*e.portfolio = next
	return nil
}

// Snapshot returns a deep copy of the current portfolio
func (e *Executor) Snapshot() domain.Portfolio {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.portfolio.Clone()
}
