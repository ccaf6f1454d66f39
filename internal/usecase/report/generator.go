package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// Kind identifies which view a Report carries
type Kind string

const (
	KindBalance     Kind = "balance"
	KindAttribution Kind = "attribution"
)

// Summary is the balance view of the portfolio
type Summary struct {
	CashBalance    decimal.Decimal `json:"cashBalance"`
	Holdings       domain.Holdings `json:"holdings"`
	MarketValue    decimal.Decimal `json:"marketValue"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	ProfitLoss     decimal.Decimal `json:"profitLoss"`
	// Unpriced lists held symbols that had no quote and were valued at zero
	Unpriced []string `json:"unpriced,omitempty"`
}

// TradeAttribution is the profit or loss attributed to one ledger entry
type TradeAttribution struct {
	TradeID        uuid.UUID        `json:"tradeId"`
	Type           domain.TradeType `json:"type"`
	Symbol         string           `json:"symbol"`
	Price          decimal.Decimal  `json:"price"`
	Quantity       int64            `json:"quantity"`
	Timestamp      time.Time        `json:"timestamp"`
	ReferencePrice decimal.Decimal  `json:"referencePrice"`
	ReferenceFound bool             `json:"referenceFound"`
	ProfitLoss     decimal.Decimal  `json:"profitLoss"`
}

// Attribution is the per-trade view of the ledger
type Attribution struct {
	Trades          []TradeAttribution `json:"trades"`
	TotalProfitLoss decimal.Decimal    `json:"totalProfitLoss"`
}

// Report is what callers receive when asking for profit and loss
type Report struct {
	Kind        Kind         `json:"kind"`
	Strategy    string       `json:"strategy"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Summary     *Summary     `json:"summary"`
	Attribution *Attribution `json:"attribution,omitempty"`
}

// Generator computes profit and loss views from portfolio state and prices
type Generator struct {
	PriceRepo domain.PriceRepository
}

// NewGenerator creates a new Generator instance
func NewGenerator(priceRepo domain.PriceRepository) *Generator {
	return &Generator{
		PriceRepo: priceRepo,
	}
}

// Summary values the portfolio at latest prices
// Logic:
//   - MarketValue: sum of holdings[s] * latest(s); a symbol without a quote counts as 0
//   - ProfitLoss: cash + MarketValue - initialBalance
func (g *Generator) Summary(ctx context.Context, portfolio domain.Portfolio, initialBalance decimal.Decimal) (*Summary, error) {
	symbols := make([]string, 0, len(portfolio.Holdings))
	for symbol := range portfolio.Holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	marketValue := decimal.Zero
	var unpriced []string
	for _, symbol := range symbols {
		qty := portfolio.Holdings[symbol]
		if qty == 0 {
			continue
		}

		price, ok, err := g.PriceRepo.GetLatestPrice(ctx, symbol)
		if err != nil {
			return nil, domain.AsTradingError(err, fmt.Sprintf("failed to get latest price for %s", symbol))
		}
		if !ok {
			unpriced = append(unpriced, symbol)
			continue
		}
		marketValue = marketValue.Add(price.Mul(decimal.NewFromInt(qty)))
	}

	return &Summary{
		CashBalance:    portfolio.CashBalance,
		Holdings:       portfolio.Holdings.Clone(),
		MarketValue:    marketValue,
		InitialBalance: initialBalance,
		ProfitLoss:     portfolio.CashBalance.Add(marketValue).Sub(initialBalance),
		Unpriced:       unpriced,
	}, nil
}

// Attribution compares every trade with the price point nearest to its timestamp.
// A buy earns (reference - price) * qty, a sell earns (price - reference) * qty.
func (g *Generator) Attribution(ctx context.Context, trades []*domain.Trade) (*Attribution, error) {
	histories := make(map[string][]domain.PricePoint)
	result := &Attribution{
		Trades:          make([]TradeAttribution, 0, len(trades)),
		TotalProfitLoss: decimal.Zero,
	}

	for _, trade := range trades {
		history, cached := histories[trade.Symbol]
		if !cached {
			var err error
			history, err = g.PriceRepo.GetPriceHistory(ctx, trade.Symbol)
			if err != nil {
				return nil, domain.AsTradingError(err, fmt.Sprintf("failed to get price history for %s", trade.Symbol))
			}
			histories[trade.Symbol] = history
		}

		entry := TradeAttribution{
			TradeID:    trade.ID,
			Type:       trade.Type,
			Symbol:     trade.Symbol,
			Price:      trade.Price,
			Quantity:   trade.Quantity,
			Timestamp:  trade.Timestamp,
			ProfitLoss: decimal.Zero,
		}

		if ref, ok := domain.Nearest(history, trade.Timestamp); ok {
			qty := decimal.NewFromInt(trade.Quantity)
			entry.ReferencePrice = ref.Price
			entry.ReferenceFound = true
			if trade.Type == domain.TradeTypeBuy {
				entry.ProfitLoss = ref.Price.Sub(trade.Price).Mul(qty)
			} else {
				entry.ProfitLoss = trade.Price.Sub(ref.Price).Mul(qty)
			}
		}

		result.Trades = append(result.Trades, entry)
		result.TotalProfitLoss = result.TotalProfitLoss.Add(entry.ProfitLoss)
	}

	return result, nil
}
