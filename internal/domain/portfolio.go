package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holdings maps a symbol to the number of shares held.
// A missing entry is equivalent to zero.
type Holdings map[string]int64

// Clone returns a copy that shares no state with h
func (h Holdings) Clone() Holdings {
	out := make(Holdings, len(h))
	for symbol, qty := range h {
		out[symbol] = qty
	}
	return out
}

// Portfolio is the cash balance plus per-symbol holdings acted upon by the
// order executor
type Portfolio struct {
	CashBalance decimal.Decimal
	Holdings    Holdings
}

// NewPortfolio creates a portfolio with the given cash and holdings
func NewPortfolio(cash decimal.Decimal, holdings Holdings) *Portfolio {
	if holdings == nil {
		holdings = Holdings{}
	}
	return &Portfolio{CashBalance: cash, Holdings: holdings}
}

// Quantity returns the shares held for symbol
func (p *Portfolio) Quantity(symbol string) int64 {
	return p.Holdings[symbol]
}

// Clone returns a deep copy of the portfolio
func (p *Portfolio) Clone() Portfolio {
	return Portfolio{
		CashBalance: p.CashBalance,
		Holdings:    p.Holdings.Clone(),
	}
}

// Validate checks the portfolio invariants
func (p *Portfolio) Validate() error {
	if p.CashBalance.IsNegative() {
		return errors.New("cash balance cannot be negative")
	}
	for symbol, qty := range p.Holdings {
		if qty < 0 {
			return fmt.Errorf("holding for %s cannot be negative", symbol)
		}
	}
	return nil
}

// PlanBuy builds the buy trade that spends as much cash as possible on symbol
// at price. Returns nil when not even one share is affordable.
// The portfolio is not modified.
func (p *Portfolio) PlanBuy(symbol string, price decimal.Decimal, at time.Time) *Trade {
	if !price.IsPositive() {
		return nil
	}
	quantity := p.CashBalance.Div(price).Floor()
	// Div rounds at DivisionPrecision; never spend more than the balance
	if price.Mul(quantity).GreaterThan(p.CashBalance) {
		quantity = quantity.Sub(decimal.NewFromInt(1))
	}
	if !quantity.IsPositive() {
		return nil
	}
	return &Trade{
		ID:        uuid.New(),
		Type:      TradeTypeBuy,
		Symbol:    symbol,
		Price:     price,
		Quantity:  quantity.IntPart(),
		Timestamp: at,
	}
}

// PlanSell builds the trade liquidating the full holding of symbol at price.
// Returns nil when nothing is held.
func (p *Portfolio) PlanSell(symbol string, price decimal.Decimal, at time.Time) *Trade {
	held := p.Quantity(symbol)
	if held <= 0 || !price.IsPositive() {
		return nil
	}
	return &Trade{
		ID:        uuid.New(),
		Type:      TradeTypeSell,
		Symbol:    symbol,
		Price:     price,
		Quantity:  held,
		Timestamp: at,
	}
}

// HoldingAfter returns the holding of trade.Symbol once trade is applied
func (p *Portfolio) HoldingAfter(trade *Trade) int64 {
	if trade.Type == TradeTypeBuy {
		return p.Quantity(trade.Symbol) + trade.Quantity
	}
	return p.Quantity(trade.Symbol) - trade.Quantity
}

// Apply mutates the portfolio by trade.
// Returns an error, leaving the portfolio untouched, if an invariant would break.
func (p *Portfolio) Apply(trade *Trade) error {
	if err := trade.Validate(); err != nil {
		return err
	}

	notional := trade.Notional()
	cash := p.CashBalance
	switch trade.Type {
	case TradeTypeBuy:
		cash = cash.Sub(notional)
	case TradeTypeSell:
		cash = cash.Add(notional)
	}
	holding := p.HoldingAfter(trade)

	if cash.IsNegative() {
		return fmt.Errorf("insufficient cash for %s of %d %s", trade.Type, trade.Quantity, trade.Symbol)
	}
	if holding < 0 {
		return fmt.Errorf("insufficient holding for sell of %d %s", trade.Quantity, trade.Symbol)
	}

	p.CashBalance = cash
	if p.Holdings == nil {
		p.Holdings = Holdings{}
	}
	p.Holdings[trade.Symbol] = holding
	return nil
}

// ReplayCash recomputes the cash balance produced by applying a ledger,
// oldest first, to the initial balance
func ReplayCash(initial decimal.Decimal, trades []*Trade) (decimal.Decimal, error) {
	cash := initial
	for i, trade := range trades {
		if err := trade.Validate(); err != nil {
			return decimal.Zero, fmt.Errorf("ledger entry %d: %w", i, err)
		}
		if trade.Type == TradeTypeBuy {
			cash = cash.Sub(trade.Notional())
		} else {
			cash = cash.Add(trade.Notional())
		}
		if cash.IsNegative() {
			return decimal.Zero, fmt.Errorf("ledger entry %d drives cash balance negative", i)
		}
	}
	return cash, nil
}

// ReplayHoldings recomputes the share count per symbol produced by a ledger,
// oldest first
func ReplayHoldings(trades []*Trade) (Holdings, error) {
	holdings := Holdings{}
	for i, trade := range trades {
		if err := trade.Validate(); err != nil {
			return nil, fmt.Errorf("ledger entry %d: %w", i, err)
		}
		if trade.Type == TradeTypeBuy {
			holdings[trade.Symbol] += trade.Quantity
		} else {
			holdings[trade.Symbol] -= trade.Quantity
		}
		if holdings[trade.Symbol] < 0 {
			return nil, fmt.Errorf("ledger entry %d sells more %s than held", i, trade.Symbol)
		}
	}
	return holdings, nil
}

// Matches reports whether h and other hold the same shares. Symbols at zero
// count as absent.
func (h Holdings) Matches(other Holdings) bool {
	for symbol, qty := range h {
		if other[symbol] != qty {
			return false
		}
	}
	for symbol, qty := range other {
		if h[symbol] != qty {
			return false
		}
	}
	return true
}
