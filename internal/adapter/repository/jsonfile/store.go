package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// File names inside the data directory
const (
	PricesFile   = "prices.json"
	HistoryFile  = "history.json"
	TradesFile   = "trades.json"
	HoldingsFile = "holdings.json"
)

// Store keeps prices, the trade ledger and holdings as JSON documents in a
// directory. A missing file reads as empty.
// Every write replaces the whole document through a temp file and a rename.
type Store struct {
	mu  sync.Mutex
	dir string

	// writeFile is swapped in tests to simulate a failing disk
	writeFile func(path string, data []byte) error
}

var (
	_ domain.PriceRepository  = (*Store)(nil)
	_ domain.LedgerRepository = (*Store)(nil)
)

// NewStore creates a store rooted at dir, creating the directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.NewPersistenceError(fmt.Sprintf("failed to create data dir %s", dir), err)
	}
	return &Store{dir: dir, writeFile: atomicWrite}, nil
}

type tradeRecord struct {
	ID        string      `json:"id,omitempty"`
	Type      string      `json:"type"`
	Price     json.Number `json:"price"`
	Quantity  int64       `json:"quantity"`
	Symbol    string      `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`
}

type pricePointRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Price     json.Number `json:"price"`
}

// GetLatestPrice implements domain.PriceRepository
func (s *Store) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices, err := s.readPrices()
	if err != nil {
		return decimal.Zero, false, err
	}
	price, ok := prices[symbol]
	return price, ok, nil
}

// GetPriceHistory implements domain.PriceRepository
func (s *Store) GetPriceHistory(ctx context.Context, symbol string) ([]domain.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.readHistory()
	if err != nil {
		return nil, err
	}
	points := history[symbol]
	domain.SortPricePoints(points)
	return points, nil
}

// SetPrice appends price to the history of symbol at ts. The latest quote
// only moves when ts is not older than the newest point already stored.
// Both documents change together or not at all.
func (s *Store) SetPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	if !price.IsPositive() {
		return domain.NewMalformedDataError(fmt.Sprintf("invalid price %s for %s", price, symbol), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pricesPath := s.path(PricesFile)
	previous, existed, err := s.snapshot(pricesPath)
	if err != nil {
		return err
	}

	prices, err := s.readPrices()
	if err != nil {
		return err
	}
	history, err := s.readHistory()
	if err != nil {
		return err
	}

	tail, ok := domain.Latest(history[symbol])
	pricesChanged := !ok || !ts.Before(tail.Timestamp)
	history[symbol] = append(history[symbol], domain.PricePoint{Timestamp: ts, Price: price})
	domain.SortPricePoints(history[symbol])

	if pricesChanged {
		prices[symbol] = price
		if err := s.writePrices(prices); err != nil {
			return err
		}
	}

	if err := s.writeHistory(history); err != nil {
		if pricesChanged {
			if rbErr := s.restore(pricesPath, previous, existed); rbErr != nil {
				return domain.NewPersistenceError("failed to restore prices after history write failure", errors.Join(err, rbErr))
			}
		}
		return err
	}
	return nil
}

// List implements domain.TradeRepository
func (s *Store) List(ctx context.Context) ([]*domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTrades()
}

// Append implements domain.TradeRepository
func (s *Store) Append(ctx context.Context, trade *domain.Trade) error {
	if err := trade.Validate(); err != nil {
		return domain.NewMalformedDataError("refusing to append invalid trade", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trades, err := s.readTrades()
	if err != nil {
		return err
	}
	return s.writeTrades(append(trades, trade))
}

// GetAll implements domain.HoldingRepository
func (s *Store) GetAll(ctx context.Context) (domain.Holdings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readHoldings()
}

// Set implements domain.HoldingRepository
func (s *Store) Set(ctx context.Context, symbol string, quantity int64) error {
	if quantity < 0 {
		return domain.NewMalformedDataError(fmt.Sprintf("holding for %s cannot be negative", symbol), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holdings, err := s.readHoldings()
	if err != nil {
		return err
	}
	holdings[symbol] = quantity
	return s.writeHoldings(holdings)
}

// RecordTrade appends trade and sets the new holding as one unit.
// If the holdings write fails the previous trades document is restored.
func (s *Store) RecordTrade(ctx context.Context, trade *domain.Trade, holding int64) error {
	if err := trade.Validate(); err != nil {
		return domain.NewMalformedDataError("refusing to record invalid trade", err)
	}
	if holding < 0 {
		return domain.NewMalformedDataError(fmt.Sprintf("holding for %s cannot be negative", trade.Symbol), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tradesPath := s.path(TradesFile)
	previous, existed, err := s.snapshot(tradesPath)
	if err != nil {
		return err
	}

	trades, err := s.readTrades()
	if err != nil {
		return err
	}
	holdings, err := s.readHoldings()
	if err != nil {
		return err
	}

	if err := s.writeTrades(append(trades, trade)); err != nil {
		return err
	}

	holdings[trade.Symbol] = holding
	if err := s.writeHoldings(holdings); err != nil {
		if rbErr := s.restore(tradesPath, previous, existed); rbErr != nil {
			return domain.NewPersistenceError("failed to restore trades after holdings write failure", errors.Join(err, rbErr))
		}
		return err
	}
	return nil
}

// snapshot returns the raw content of path for a later restore
func (s *Store) snapshot(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, domain.NewPersistenceError(fmt.Sprintf("failed to read file at %s", path), err)
	}
	return data, true, nil
}

func (s *Store) restore(path string, previous []byte, existed bool) error {
	if !existed {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return s.writeFile(path, previous)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON decodes the file name into v. Reports false when the file is absent.
func (s *Store) readJSON(name string, v interface{}) (bool, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, domain.NewPersistenceError(fmt.Sprintf("failed to read file at %s", path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, domain.NewMalformedDataError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return true, nil
}

func (s *Store) writeJSON(name string, v interface{}) error {
	path := s.path(name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domain.NewPersistenceError(fmt.Sprintf("failed to encode %s", path), err)
	}
	if err := s.writeFile(path, data); err != nil {
		return domain.NewPersistenceError(fmt.Sprintf("failed to write file at %s", path), err)
	}
	return nil
}

func (s *Store) readPrices() (map[string]decimal.Decimal, error) {
	raw := map[string]json.Number{}
	if _, err := s.readJSON(PricesFile, &raw); err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(raw))
	for symbol, n := range raw {
		price, err := parsePrice(n)
		if err != nil {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid price for %s in %s", symbol, PricesFile), err)
		}
		prices[symbol] = price
	}
	return prices, nil
}

func (s *Store) writePrices(prices map[string]decimal.Decimal) error {
	raw := make(map[string]json.Number, len(prices))
	for symbol, price := range prices {
		raw[symbol] = json.Number(price.String())
	}
	return s.writeJSON(PricesFile, raw)
}

func (s *Store) readHistory() (map[string][]domain.PricePoint, error) {
	raw := map[string][]pricePointRecord{}
	if _, err := s.readJSON(HistoryFile, &raw); err != nil {
		return nil, err
	}
	history := make(map[string][]domain.PricePoint, len(raw))
	for symbol, records := range raw {
		points := make([]domain.PricePoint, 0, len(records))
		for i, r := range records {
			price, err := parsePrice(r.Price)
			if err != nil {
				return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid price at %s[%d] in %s", symbol, i, HistoryFile), err)
			}
			points = append(points, domain.PricePoint{Timestamp: r.Timestamp, Price: price})
		}
		history[symbol] = points
	}
	return history, nil
}

func (s *Store) writeHistory(history map[string][]domain.PricePoint) error {
	raw := make(map[string][]pricePointRecord, len(history))
	for symbol, points := range history {
		records := make([]pricePointRecord, len(points))
		for i, p := range points {
			records[i] = pricePointRecord{Timestamp: p.Timestamp, Price: json.Number(p.Price.String())}
		}
		raw[symbol] = records
	}
	return s.writeJSON(HistoryFile, raw)
}

func (s *Store) readTrades() ([]*domain.Trade, error) {
	var records []tradeRecord
	if _, err := s.readJSON(TradesFile, &records); err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0, len(records))
	for i, r := range records {
		trade, err := r.toDomain()
		if err != nil {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid trade at index %d in %s", i, TradesFile), err)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (s *Store) writeTrades(trades []*domain.Trade) error {
	records := make([]tradeRecord, len(trades))
	for i, t := range trades {
		records[i] = tradeRecord{
			Type:      string(t.Type),
			Price:     json.Number(t.Price.String()),
			Quantity:  t.Quantity,
			Symbol:    t.Symbol,
			Timestamp: t.Timestamp,
		}
		if t.ID != uuid.Nil {
			records[i].ID = t.ID.String()
		}
	}
	return s.writeJSON(TradesFile, records)
}

func (s *Store) readHoldings() (domain.Holdings, error) {
	holdings := domain.Holdings{}
	if _, err := s.readJSON(HoldingsFile, &holdings); err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = domain.Holdings{}
	}
	for symbol, qty := range holdings {
		if qty < 0 {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("negative holding for %s in %s", symbol, HoldingsFile), nil)
		}
	}
	return holdings, nil
}

func (s *Store) writeHoldings(holdings domain.Holdings) error {
	return s.writeJSON(HoldingsFile, holdings)
}

func (r tradeRecord) toDomain() (*domain.Trade, error) {
	price, err := decimal.NewFromString(r.Price.String())
	if err != nil {
		return nil, err
	}
	trade := &domain.Trade{
		Type:      domain.TradeType(r.Type),
		Symbol:    r.Symbol,
		Price:     price,
		Quantity:  r.Quantity,
		Timestamp: r.Timestamp,
	}
	// Ledgers written before trades carried an id load with uuid.Nil
	if r.ID != "" {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid trade id: %w", err)
		}
		trade.ID = id
	}
	if err := trade.Validate(); err != nil {
		return nil, err
	}
	return trade, nil
}

func parsePrice(n json.Number) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", price)
	}
	return price, nil
}

// atomicWrite replaces path with data so readers never see a partial document
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
