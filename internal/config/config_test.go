package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/tradingbot-backend/internal/usecase/signal"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRADINGBOT_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(100000).Equal(cfg.Trading.InitialBalance))
	assert.True(t, decimal.RequireFromString("-0.02").Equal(cfg.Trading.BuyThreshold))
	assert.True(t, decimal.RequireFromString("0.03").Equal(cfg.Trading.SellThreshold))
	assert.Equal(t, []string{"AAPL", "GOOG", "AMZN", "MSFT", "TSLA"}, cfg.Trading.Symbols)
	assert.Equal(t, signal.NameThreshold, cfg.Trading.Strategy)
	assert.Equal(t, 5, cfg.Trading.MovingAveragePeriods.ShortTerm)
	assert.Equal(t, 20, cfg.Trading.MovingAveragePeriods.LongTerm)
	assert.Equal(t, "abort", cfg.Trading.MissingPricePolicy)
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Empty(t, cfg.Prices.SeedDir)
	assert.Zero(t, cfg.Prices.Retention)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, ":3000", cfg.Server.HTTPAddr)
	assert.Equal(t, "dev-token", cfg.Server.APIToken)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
trading:
  initial_balance: 2500.50
  sell_threshold: 0.05
  symbols: [aapl, msft]
  strategy: moving_average
  moving_average_periods:
    short_term: 3
    long_term: 10
  missing_price_policy: skip
storage:
  driver: sqlite3
  dsn: file:bot.db
prices:
  source: redis
  retention: 168h
  redis:
    addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("TRADINGBOT_TRADING_BUY_THRESHOLD", "-0.1")
	t.Setenv("TRADINGBOT_SERVER_API_TOKEN", "secret")
	t.Setenv("TRADINGBOT_PRICES_SEED_DIR", "/srv/seed")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("2500.5").Equal(cfg.Trading.InitialBalance))
	assert.True(t, decimal.RequireFromString("-0.1").Equal(cfg.Trading.BuyThreshold))
	assert.True(t, decimal.RequireFromString("0.05").Equal(cfg.Trading.SellThreshold))
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Trading.Symbols)
	assert.Equal(t, "secret", cfg.Server.APIToken)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/srv/seed", cfg.Prices.SeedDir)
	assert.Equal(t, 7*24*time.Hour, cfg.Prices.Retention)

	opts := cfg.StrategyOptions()
	assert.Equal(t, signal.NameMovingAverage, opts.Name)
	assert.Equal(t, 3, opts.ShortPeriod)
	assert.Equal(t, 10, opts.LongPeriod)

	engine := cfg.Engine()
	assert.Equal(t, trading.SkipOnMissingPrice, engine.MissingPricePolicy)
	assert.Equal(t, []string{"AAPL", "MSFT"}, engine.Symbols)
}

func TestLoad_SymbolsFromEnv(t *testing.T) {
	t.Setenv("TRADINGBOT_CONFIG", "")
	t.Setenv("TRADINGBOT_TRADING_SYMBOLS", "tsla,amzn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "AMZN"}, cfg.Trading.Symbols)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Trading: TradingConfig{
				InitialBalance:       decimal.NewFromInt(100000),
				BuyThreshold:         decimal.RequireFromString("-0.02"),
				SellThreshold:        decimal.RequireFromString("0.03"),
				Symbols:              []string{"AAPL"},
				Strategy:             signal.NameThreshold,
				MovingAveragePeriods: MovingAveragePeriods{ShortTerm: 5, LongTerm: 20},
				MissingPricePolicy:   "abort",
			},
			Storage: StorageConfig{Driver: DriverJSON, DataDir: "./data"},
			Prices:  PricesConfig{Source: PriceSourceStore},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "Valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "Negative initial balance",
			mutate:  func(c *Config) { c.Trading.InitialBalance = decimal.NewFromInt(-1) },
			wantErr: "initial balance cannot be negative",
		},
		{
			name:    "Non negative buy threshold",
			mutate:  func(c *Config) { c.Trading.BuyThreshold = decimal.Zero },
			wantErr: "buy threshold must be negative",
		},
		{
			name:    "Non positive sell threshold",
			mutate:  func(c *Config) { c.Trading.SellThreshold = decimal.RequireFromString("-0.01") },
			wantErr: "sell threshold must be positive",
		},
		{
			name:    "No symbols",
			mutate:  func(c *Config) { c.Trading.Symbols = nil },
			wantErr: "at least one symbol must be configured",
		},
		{
			name:    "Duplicate symbols",
			mutate:  func(c *Config) { c.Trading.Symbols = []string{"AAPL", "AAPL"} },
			wantErr: "duplicate symbol: AAPL",
		},
		{
			name: "Inverted moving average periods",
			mutate: func(c *Config) {
				c.Trading.Strategy = signal.NameMovingAverage
				c.Trading.MovingAveragePeriods = MovingAveragePeriods{ShortTerm: 20, LongTerm: 5}
			},
			wantErr: "short term period must be less than long term period",
		},
		{
			name:    "Unknown strategy",
			mutate:  func(c *Config) { c.Trading.Strategy = "momentum" },
			wantErr: "unknown strategy: momentum",
		},
		{
			name:    "Unknown missing price policy",
			mutate:  func(c *Config) { c.Trading.MissingPricePolicy = "retry" },
			wantErr: "unknown missing price policy: retry",
		},
		{
			name:    "Postgres without dsn",
			mutate:  func(c *Config) { c.Storage.Driver = DriverPostgres },
			wantErr: "dsn is required for the postgres driver",
		},
		{
			name:    "Unknown price source",
			mutate:  func(c *Config) { c.Prices.Source = "kafka" },
			wantErr: "unknown price source: kafka",
		},
		{
			name:    "Negative retention",
			mutate:  func(c *Config) { c.Prices.Retention = -time.Hour },
			wantErr: "price retention cannot be negative",
		},
		{
			name: "Retention without redis",
			mutate: func(c *Config) {
				c.Prices.Source = PriceSourceStore
				c.Prices.Retention = 24 * time.Hour
			},
			wantErr: "price retention is only supported by the redis price source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
