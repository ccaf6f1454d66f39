package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/tradingbot-backend/internal/domain"
	"github.com/simaogato/tradingbot-backend/internal/usecase/order"
	"github.com/simaogato/tradingbot-backend/internal/usecase/report"
	"github.com/simaogato/tradingbot-backend/internal/usecase/signal"
)

// MissingPricePolicy decides what a pass does when a symbol has no quote
type MissingPricePolicy string

const (
	// AbortOnMissingPrice stops the pass at the first symbol without a quote
	AbortOnMissingPrice MissingPricePolicy = "abort"
	// SkipOnMissingPrice records the symbol as skipped and moves on
	SkipOnMissingPrice MissingPricePolicy = "skip"
)

// Config holds the engine settings the service needs
type Config struct {
	InitialBalance     decimal.Decimal
	Symbols            []string
	MissingPricePolicy MissingPricePolicy
}

// SymbolOutcome is what one pass did for one symbol
type SymbolOutcome struct {
	Symbol  string          `json:"symbol"`
	Action  signal.Action   `json:"action"`
	Reason  string          `json:"reason"`
	Price   decimal.Decimal `json:"price"`
	Trade   *domain.Trade   `json:"trade"`
	Skipped bool            `json:"skipped"`
}

// PassResult lists the outcomes of a trading pass in evaluation order
type PassResult struct {
	Strategy  string          `json:"strategy"`
	StartedAt time.Time       `json:"startedAt"`
	Outcomes  []SymbolOutcome `json:"outcomes"`
}

// Executed returns the trades the pass recorded
func (r *PassResult) Executed() []*domain.Trade {
	var trades []*domain.Trade
	for _, o := range r.Outcomes {
		if o.Trade != nil {
			trades = append(trades, o.Trade)
		}
	}
	return trades
}

// Service runs trading passes and produces profit and loss reports.
// Passes are serialized; reports may be requested while a pass runs.
type Service struct {
	mu       sync.Mutex
	cfg      Config
	prices   domain.PriceRepository
	ledger   domain.LedgerRepository
	strategy signal.Strategy
	executor *order.Executor
	reports  *report.Generator
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for pass and trade timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService recovers the portfolio from the ledger and creates the service.
// Holdings are loaded from the store; the cash balance is the configured
// initial balance with every recorded trade replayed over it.
func NewService(
	ctx context.Context,
	cfg Config,
	strategy signal.Strategy,
	prices domain.PriceRepository,
	ledger domain.LedgerRepository,
	opts ...Option,
) (*Service, error) {
	if cfg.MissingPricePolicy == "" {
		cfg.MissingPricePolicy = AbortOnMissingPrice
	}

	s := &Service{
		cfg:      cfg,
		prices:   prices,
		ledger:   ledger,
		strategy: strategy,
		reports:  report.NewGenerator(prices),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	portfolio, err := s.recover(ctx)
	if err != nil {
		return nil, err
	}

	s.executor = order.NewExecutor(portfolio, ledger,
		order.WithLogger(s.logger),
		order.WithClock(s.now),
	)

	s.logger.Info("portfolio recovered",
		"cash", portfolio.CashBalance.String(),
		"positions", len(portfolio.Holdings),
		"strategy", strategy.Name(),
	)
	return s, nil
}

func (s *Service) recover(ctx context.Context) (*domain.Portfolio, error) {
	holdings, err := s.ledger.GetAll(ctx)
	if err != nil {
		return nil, domain.AsTradingError(err, "failed to load holdings")
	}

	trades, err := s.ledger.List(ctx)
	if err != nil {
		return nil, domain.AsTradingError(err, "failed to load trades")
	}

	cash, err := domain.ReplayCash(s.cfg.InitialBalance, trades)
	if err != nil {
		return nil, domain.NewMalformedDataError("failed to recover cash balance", err)
	}
	replayed, err := domain.ReplayHoldings(trades)
	if err != nil {
		return nil, domain.NewMalformedDataError("failed to recover holdings", err)
	}
	if !replayed.Matches(holdings) {
		return nil, domain.NewMalformedDataError("stored holdings disagree with the trade ledger", nil)
	}

	portfolio := domain.NewPortfolio(cash, holdings)
	if err := portfolio.Validate(); err != nil {
		return nil, domain.NewMalformedDataError("stored holdings are invalid", err)
	}
	return portfolio, nil
}

// RunTradingPass evaluates every configured symbol in order and executes
// the resulting decisions.
// With the abort policy the first missing quote ends the pass; trades already
// executed for earlier symbols stay recorded.
func (s *Service) RunTradingPass(ctx context.Context) (*PassResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades, err := s.ledger.List(ctx)
	if err != nil {
		return nil, domain.AsTradingError(err, "failed to load trades")
	}

	result := &PassResult{
		Strategy:  s.strategy.Name(),
		StartedAt: s.now(),
		Outcomes:  make([]SymbolOutcome, 0, len(s.cfg.Symbols)),
	}

	for _, symbol := range s.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("trading pass cancelled: %w", err)
		}

		outcome, err := s.evaluate(ctx, symbol, domain.LastTradeFor(trades, symbol))
		if err != nil {
			if errors.Is(err, domain.ErrMissingPrice) && s.cfg.MissingPricePolicy == SkipOnMissingPrice {
				s.logger.Warn("skipping symbol without price", "symbol", symbol)
				result.Outcomes = append(result.Outcomes, SymbolOutcome{Symbol: symbol, Action: signal.Hold, Reason: "missing_price", Skipped: true})
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, fmt.Errorf("trading pass cancelled at %s: %w", symbol, err)
			}
			return nil, domain.AsTradingError(err, fmt.Sprintf("trading pass failed at %s", symbol))
		}

		if outcome.Trade != nil {
			trades = append(trades, outcome.Trade)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

func (s *Service) evaluate(ctx context.Context, symbol string, lastTrade *domain.Trade) (SymbolOutcome, error) {
	sig, err := s.strategy.Decide(ctx, signal.Input{
		Symbol:    symbol,
		Prices:    s.prices,
		LastTrade: lastTrade,
	})
	if err != nil {
		return SymbolOutcome{}, err
	}

	s.logger.Debug("decision", "symbol", symbol, "action", string(sig.Action), "reason", sig.Reason)

	outcome := SymbolOutcome{
		Symbol: symbol,
		Action: sig.Action,
		Reason: sig.Reason,
		Price:  sig.Price,
	}

	switch sig.Action {
	case signal.Buy:
		outcome.Trade, err = s.executor.Buy(ctx, symbol, sig.Price)
	case signal.Sell:
		outcome.Trade, err = s.executor.Sell(ctx, symbol, sig.Price)
	}
	if err != nil {
		return SymbolOutcome{}, err
	}
	return outcome, nil
}

// GetProfitLossReport reports on the current portfolio.
// The moving average strategy gets per-trade attribution on top of the
// balance summary.
func (s *Service) GetProfitLossReport(ctx context.Context) (*report.Report, error) {
	summary, err := s.reports.Summary(ctx, s.executor.Snapshot(), s.cfg.InitialBalance)
	if err != nil {
		return nil, domain.AsTradingError(err, "failed to build balance summary")
	}

	out := &report.Report{
		Kind:        report.KindBalance,
		Strategy:    s.strategy.Name(),
		GeneratedAt: s.now(),
		Summary:     summary,
	}

	if _, ok := s.strategy.(*signal.CrossoverStrategy); ok {
		trades, err := s.Trades(ctx)
		if err != nil {
			return nil, err
		}
		attribution, err := s.reports.Attribution(ctx, trades)
		if err != nil {
			return nil, domain.AsTradingError(err, "failed to build trade attribution")
		}
		out.Kind = report.KindAttribution
		out.Attribution = attribution
	}

	return out, nil
}

// Portfolio returns a copy of the current portfolio
func (s *Service) Portfolio() domain.Portfolio {
	return s.executor.Snapshot()
}

// Trades returns the trade ledger, oldest first
func (s *Service) Trades(ctx context.Context) ([]*domain.Trade, error) {
	trades, err := s.ledger.List(ctx)
	if err != nil {
		return nil, domain.AsTradingError(err, "failed to load trades")
	}
	return trades, nil
}
