package signal

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// Action is the trade decision emitted for a symbol
type Action string

const (
	Hold Action = "HOLD"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Input is the context a strategy decides on
type Input struct {
	Symbol    string
	Prices    domain.PriceRepository
	LastTrade *domain.Trade // nil when the symbol was never traded
}

// Signal is a strategy decision plus the price to execute it at
type Signal struct {
	Action Action
	Price  decimal.Decimal
	Reason string
}

// Strategy converts price data and the last trade of a symbol into a decision
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Decide returns the decision for in.Symbol
	Decide(ctx context.Context, in Input) (Signal, error)
}

// Strategy names accepted by New
const (
	NameThreshold     = "threshold"
	NameMovingAverage = "moving_average"
)

// Options configures the strategy built by New
type Options struct {
	Name          string
	BuyThreshold  decimal.Decimal
	SellThreshold decimal.Decimal
	ShortPeriod   int
	LongPeriod    int
}

// New builds the strategy selected by opts.Name
func New(opts Options) (Strategy, error) {
	switch opts.Name {
	case NameThreshold, "":
		return NewThresholdStrategy(opts.BuyThreshold, opts.SellThreshold)
	case NameMovingAverage:
		return NewCrossoverStrategy(opts.ShortPeriod, opts.LongPeriod)
	default:
		return nil, fmt.Errorf("unknown strategy: %s", opts.Name)
	}
}

func hold(reason string) Signal {
	return Signal{Action: Hold, Reason: reason}
}
