package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := NewDB(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestDB_Rebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "SELECT ? FROM t", lite.rebind("SELECT ? FROM t"))
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB(context.Background(), "mysql", "")
	assert.EqualError(t, err, "unsupported driver: mysql")
}

func TestDB_MigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
}

func TestPriceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPriceRepository(newTestDB(t))

	_, ok, err := repo.GetLatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := repo.GetPriceHistory(ctx, "AAPL")
	require.NoError(t, err)
	assert.Empty(t, history)

	// Inserted out of order on purpose
	require.NoError(t, repo.SetPrice(ctx, "AAPL", decimal.NewFromInt(11), t0.Add(time.Hour)))
	require.NoError(t, repo.SetPrice(ctx, "AAPL", decimal.RequireFromString("14.125"), t0.Add(2*time.Hour)))
	require.NoError(t, repo.SetPrice(ctx, "AAPL", decimal.NewFromInt(10), t0))
	require.NoError(t, repo.SetPrice(ctx, "MSFT", decimal.NewFromInt(300), t0))

	price, ok, err := repo.GetLatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, decimal.RequireFromString("14.125").Equal(price), "got %s", price)

	history, err = repo.GetPriceHistory(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].Timestamp.Equal(t0))
	assert.True(t, decimal.NewFromInt(10).Equal(history[0].Price))
	assert.True(t, decimal.NewFromInt(11).Equal(history[1].Price))

	err = repo.SetPrice(ctx, "AAPL", decimal.NewFromInt(-1), t0)
	assert.ErrorIs(t, err, domain.ErrMalformedData)
}

func TestPriceRepository_MalformedRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	_, err := db.ExecContext(ctx, `INSERT INTO prices (symbol, ts, price) VALUES (?, ?, ?)`, "AAPL", t0, "n/a")
	require.NoError(t, err)

	_, _, err = NewPriceRepository(db).GetLatestPrice(ctx, "AAPL")

	assert.ErrorIs(t, err, domain.ErrMalformedData)
}

func TestLedgerRepository_RecordTrade(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerRepository(newTestDB(t))

	buy := &domain.Trade{ID: uuid.New(), Type: domain.TradeTypeBuy, Symbol: "AAPL", Price: decimal.RequireFromString("100.50"), Quantity: 995, Timestamp: t0}
	sell := &domain.Trade{ID: uuid.New(), Type: domain.TradeTypeSell, Symbol: "AAPL", Price: decimal.NewFromInt(104), Quantity: 995, Timestamp: t0.Add(time.Hour)}

	require.NoError(t, ledger.RecordTrade(ctx, buy, 995))

	holdings, err := ledger.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Holdings{"AAPL": 995}, holdings)

	require.NoError(t, ledger.RecordTrade(ctx, sell, 0))

	trades, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, buy.ID, trades[0].ID)
	assert.Equal(t, domain.TradeTypeBuy, trades[0].Type)
	assert.True(t, buy.Price.Equal(trades[0].Price))
	assert.True(t, buy.Timestamp.Equal(trades[0].Timestamp))
	assert.Equal(t, sell.ID, trades[1].ID)

	holdings, err = ledger.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), holdings["AAPL"])
}

func TestLedgerRepository_RecordTradeIsAtomic(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerRepository(newTestDB(t))

	trade := &domain.Trade{ID: uuid.New(), Type: domain.TradeTypeBuy, Symbol: "AAPL", Price: decimal.NewFromInt(10), Quantity: 5, Timestamp: t0}
	require.NoError(t, ledger.RecordTrade(ctx, trade, 5))

	// Same id violates the unique constraint, so the holding change must not stick
	err := ledger.RecordTrade(ctx, trade, 10)
	require.Error(t, err)

	holdings, err := ledger.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), holdings["AAPL"])

	trades, err := ledger.List(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestLedgerRepository_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerRepository(newTestDB(t))

	err := ledger.RecordTrade(ctx, &domain.Trade{Type: domain.TradeTypeBuy, Symbol: "AAPL", Price: decimal.NewFromInt(1), Quantity: 0, Timestamp: t0}, 0)
	assert.ErrorIs(t, err, domain.ErrMalformedData)

	err = ledger.Set(ctx, "AAPL", -2)
	assert.ErrorIs(t, err, domain.ErrMalformedData)

	err = ledger.Append(ctx, &domain.Trade{Type: "hold", Symbol: "AAPL", Price: decimal.NewFromInt(1), Quantity: 1, Timestamp: t0})
	assert.ErrorIs(t, err, domain.ErrMalformedData)
}

func TestLedgerRepository_AppendAndSet(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerRepository(newTestDB(t))

	require.NoError(t, ledger.Append(ctx, &domain.Trade{Type: domain.TradeTypeBuy, Symbol: "TSLA", Price: decimal.NewFromInt(3), Quantity: 7, Timestamp: t0}))
	require.NoError(t, ledger.Set(ctx, "TSLA", 7))
	require.NoError(t, ledger.Set(ctx, "TSLA", 8))

	trades, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.NotEqual(t, uuid.Nil, trades[0].ID)

	holdings, err := ledger.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), holdings["TSLA"])
}
