package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/tradingbot-backend/internal/domain"
	"github.com/thrasher-corp/gct-ta/indicators"
)

// smaPrecision is the number of decimal places SMA values are compared at
const smaPrecision = 8

var errInsufficientHistory = errors.New("insufficient price history")

// CrossoverStrategy buys while the short SMA is above the long SMA and sells
// an open position once it falls below
type CrossoverStrategy struct {
	shortPeriod int
	longPeriod  int
}

// NewCrossoverStrategy creates a moving average crossover strategy
func NewCrossoverStrategy(shortPeriod, longPeriod int) (*CrossoverStrategy, error) {
	if shortPeriod <= 0 || longPeriod <= 0 {
		return nil, errors.New("moving average periods must be positive")
	}
	if shortPeriod >= longPeriod {
		return nil, errors.New("short moving average period must be less than long period")
	}
	return &CrossoverStrategy{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
	}, nil
}

// Name implements Strategy interface
func (s *CrossoverStrategy) Name() string {
	return fmt.Sprintf("%s_%d_%d", NameMovingAverage, s.shortPeriod, s.longPeriod)
}

// Decide implements Strategy interface
func (s *CrossoverStrategy) Decide(ctx context.Context, in Input) (Signal, error) {
	history, err := in.Prices.GetPriceHistory(ctx, in.Symbol)
	if err != nil {
		return Signal{}, domain.AsTradingError(err, fmt.Sprintf("failed to get price history for %s", in.Symbol))
	}
	if len(history) == 0 {
		return hold("no_price_history"), nil
	}

	series := make([]domain.PricePoint, len(history))
	copy(series, history)
	domain.SortPricePoints(series)

	shortSMA, err := SimpleMovingAverage(series, s.shortPeriod)
	if err != nil {
		return hold("insufficient_history"), nil
	}
	longSMA, err := SimpleMovingAverage(series, s.longPeriod)
	if err != nil {
		return hold("insufficient_history"), nil
	}

	latest, _ := domain.Latest(series)
	openPosition := in.LastTrade != nil && in.LastTrade.Type == domain.TradeTypeBuy

	switch {
	case shortSMA.GreaterThan(longSMA):
		if openPosition {
			return Signal{Action: Hold, Price: latest.Price, Reason: "position_already_open"}, nil
		}
		return Signal{Action: Buy, Price: latest.Price, Reason: "short_sma_above_long_sma"}, nil
	case shortSMA.LessThan(longSMA):
		if !openPosition {
			return Signal{Action: Hold, Price: latest.Price, Reason: "no_open_position"}, nil
		}
		return Signal{Action: Sell, Price: latest.Price, Reason: "short_sma_below_long_sma"}, nil
	default:
		return Signal{Action: Hold, Price: latest.Price, Reason: "sma_equal"}, nil
	}
}

// SimpleMovingAverage returns the mean of the last period points of an
// ascending series, rounded to smaPrecision decimal places
func SimpleMovingAverage(series []domain.PricePoint, period int) (decimal.Decimal, error) {
	if period <= 0 || len(series) < period {
		return decimal.Zero, errInsufficientHistory
	}

	closes := make([]float64, len(series))
	for i, p := range series {
		closes[i] = p.Price.InexactFloat64()
	}

	sma := indicators.SMA(closes, period)
	return decimal.NewFromFloat(sma[len(sma)-1]).Round(smaPrecision), nil
}
