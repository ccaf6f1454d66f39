package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// ThresholdStrategy reverses position when the price moved far enough from
// the last trade: sell after a rise of at least sellThreshold following a buy,
// buy after a drop of at least buyThreshold following a sell.
type ThresholdStrategy struct {
	buyThreshold  decimal.Decimal // negative fraction, e.g. -0.02
	sellThreshold decimal.Decimal // positive fraction, e.g. 0.03
}

// NewThresholdStrategy creates a threshold-reversal strategy
func NewThresholdStrategy(buyThreshold, sellThreshold decimal.Decimal) (*ThresholdStrategy, error) {
	if !buyThreshold.IsNegative() {
		return nil, errors.New("buy threshold must be negative")
	}
	if !sellThreshold.IsPositive() {
		return nil, errors.New("sell threshold must be positive")
	}
	return &ThresholdStrategy{
		buyThreshold:  buyThreshold,
		sellThreshold: sellThreshold,
	}, nil
}

// Name implements Strategy interface
func (s *ThresholdStrategy) Name() string {
	return NameThreshold
}

// Decide implements Strategy interface.
// Returns a missing price error when the symbol has no current quote.
func (s *ThresholdStrategy) Decide(ctx context.Context, in Input) (Signal, error) {
	price, ok, err := in.Prices.GetLatestPrice(ctx, in.Symbol)
	if err != nil {
		return Signal{}, domain.AsTradingError(err, fmt.Sprintf("failed to get price for %s", in.Symbol))
	}
	if !ok {
		return Signal{}, domain.NewMissingPriceError(in.Symbol)
	}

	// Cold start: always try to open a position
	if in.LastTrade == nil {
		return Signal{Action: Buy, Price: price, Reason: "no_prior_trade"}, nil
	}

	last := in.LastTrade
	if !last.Price.IsPositive() {
		return Signal{}, domain.NewMalformedDataError(
			fmt.Sprintf("last trade for %s has non-positive price %s", in.Symbol, last.Price), nil)
	}
	change := price.Sub(last.Price).Div(last.Price)

	if last.Type == domain.TradeTypeBuy && change.GreaterThanOrEqual(s.sellThreshold) {
		return Signal{Action: Sell, Price: price, Reason: "rise_above_sell_threshold"}, nil
	}
	if last.Type == domain.TradeTypeSell && change.LessThanOrEqual(s.buyThreshold) {
		return Signal{Action: Buy, Price: price, Reason: "drop_below_buy_threshold"}, nil
	}

	return Signal{Action: Hold, Price: price, Reason: "within_thresholds"}, nil
}
