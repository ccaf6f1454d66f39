package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/simaogato/tradingbot-backend/internal/usecase/signal"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

// EnvPrefix prefixes every environment override, e.g. TRADINGBOT_TRADING_STRATEGY
const EnvPrefix = "TRADINGBOT"

// Storage drivers
const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Price sources
const (
	PriceSourceStore = "store"
	PriceSourceRedis = "redis"
)

// Config represents the application configuration
type Config struct {
	Trading TradingConfig `mapstructure:"trading"`
	Storage StorageConfig `mapstructure:"storage"`
	Prices  PricesConfig  `mapstructure:"prices"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

// TradingConfig holds the engine settings
type TradingConfig struct {
	InitialBalance       decimal.Decimal      `mapstructure:"initial_balance"`
	BuyThreshold         decimal.Decimal      `mapstructure:"buy_threshold"`
	SellThreshold        decimal.Decimal      `mapstructure:"sell_threshold"`
	Symbols              []string             `mapstructure:"symbols"`
	Strategy             string               `mapstructure:"strategy"`
	MovingAveragePeriods MovingAveragePeriods `mapstructure:"moving_average_periods"`
	MissingPricePolicy   string               `mapstructure:"missing_price_policy"`
}

// MovingAveragePeriods are the SMA window lengths, in price points
type MovingAveragePeriods struct {
	ShortTerm int `mapstructure:"short_term"`
	LongTerm  int `mapstructure:"long_term"`
}

// StorageConfig selects where trades and holdings live
type StorageConfig struct {
	Driver  string `mapstructure:"driver"`
	DataDir string `mapstructure:"data_dir"`
	DSN     string `mapstructure:"dsn"`
}

// PricesConfig selects the price feed
type PricesConfig struct {
	Source    string        `mapstructure:"source"`
	SeedDir   string        `mapstructure:"seed_dir"`
	Retention time.Duration `mapstructure:"retention"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServerConfig represents transport configuration
type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr"`
	HTTPAddr string `mapstructure:"http_addr"`
	APIToken string `mapstructure:"api_token"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.initial_balance", "100000")
	v.SetDefault("trading.buy_threshold", "-0.02")
	v.SetDefault("trading.sell_threshold", "0.03")
	v.SetDefault("trading.symbols", []string{"AAPL", "GOOG", "AMZN", "MSFT", "TSLA"})
	v.SetDefault("trading.strategy", signal.NameThreshold)
	v.SetDefault("trading.moving_average_periods.short_term", 5)
	v.SetDefault("trading.moving_average_periods.long_term", 20)
	v.SetDefault("trading.missing_price_policy", string(trading.AbortOnMissingPrice))

	v.SetDefault("storage.driver", DriverJSON)
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("prices.source", PriceSourceStore)
	v.SetDefault("prices.seed_dir", "")
	v.SetDefault("prices.retention", "0s")
	v.SetDefault("prices.redis.addr", "localhost:6379")
	v.SetDefault("prices.redis.password", "")
	v.SetDefault("prices.redis.db", 0)

	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.http_addr", ":3000")
	v.SetDefault("server.api_token", "dev-token")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from path (YAML or JSON), falling back to
// TRADINGBOT_CONFIG when path is empty, then applies environment overrides.
// Without a file the defaults are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook decodes numbers and numeric strings into decimal.Decimal
func decimalHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return decimal.NewFromString(strings.TrimSpace(v))
		case float64:
			return decimal.NewFromFloat(v), nil
		case float32:
			return decimal.NewFromFloat32(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		}
		return data, nil
	}
}

func (c *Config) normalize() {
	symbols := make([]string, 0, len(c.Trading.Symbols))
	for _, s := range c.Trading.Symbols {
		for _, field := range strings.Fields(s) {
			symbols = append(symbols, strings.ToUpper(field))
		}
	}
	c.Trading.Symbols = symbols
	c.Trading.Strategy = strings.ToLower(strings.TrimSpace(c.Trading.Strategy))
	c.Trading.MissingPricePolicy = strings.ToLower(strings.TrimSpace(c.Trading.MissingPricePolicy))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Prices.Source = strings.ToLower(strings.TrimSpace(c.Prices.Source))
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	t := c.Trading
	if t.InitialBalance.IsNegative() {
		return errors.New("initial balance cannot be negative")
	}
	if !t.BuyThreshold.IsNegative() {
		return errors.New("buy threshold must be negative")
	}
	if !t.SellThreshold.IsPositive() {
		return errors.New("sell threshold must be positive")
	}
	if len(t.Symbols) == 0 {
		return errors.New("at least one symbol must be configured")
	}
	seen := make(map[string]bool, len(t.Symbols))
	for _, s := range t.Symbols {
		if seen[s] {
			return fmt.Errorf("duplicate symbol: %s", s)
		}
		seen[s] = true
	}

	switch t.Strategy {
	case signal.NameThreshold:
	case signal.NameMovingAverage:
		p := t.MovingAveragePeriods
		if p.ShortTerm <= 0 || p.LongTerm <= 0 {
			return errors.New("moving average periods must be positive")
		}
		if p.ShortTerm >= p.LongTerm {
			return errors.New("short term period must be less than long term period")
		}
	default:
		return fmt.Errorf("unknown strategy: %s", t.Strategy)
	}

	switch trading.MissingPricePolicy(t.MissingPricePolicy) {
	case trading.AbortOnMissingPrice, trading.SkipOnMissingPrice:
	default:
		return fmt.Errorf("unknown missing price policy: %s", t.MissingPricePolicy)
	}

	switch c.Storage.Driver {
	case DriverJSON:
		if c.Storage.DataDir == "" {
			return errors.New("data dir is required for the json driver")
		}
	case DriverPostgres, DriverSQLite:
		if c.Storage.DSN == "" {
			return fmt.Errorf("dsn is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}

	switch c.Prices.Source {
	case PriceSourceStore:
	case PriceSourceRedis:
		if c.Prices.Redis.Addr == "" {
			return errors.New("redis addr is required for the redis price source")
		}
	default:
		return fmt.Errorf("unknown price source: %s", c.Prices.Source)
	}
	if c.Prices.Retention < 0 {
		return errors.New("price retention cannot be negative")
	}
	if c.Prices.Retention > 0 && c.Prices.Source != PriceSourceRedis {
		return errors.New("price retention is only supported by the redis price source")
	}

	return nil
}

// StrategyOptions returns the options to build the configured strategy
func (c *Config) StrategyOptions() signal.Options {
	return signal.Options{
		Name:          c.Trading.Strategy,
		BuyThreshold:  c.Trading.BuyThreshold,
		SellThreshold: c.Trading.SellThreshold,
		ShortPeriod:   c.Trading.MovingAveragePeriods.ShortTerm,
		LongPeriod:    c.Trading.MovingAveragePeriods.LongTerm,
	}
}

// Engine returns the trading service settings
func (c *Config) Engine() trading.Config {
	return trading.Config{
		InitialBalance:     c.Trading.InitialBalance,
		Symbols:            append([]string(nil), c.Trading.Symbols...),
		MissingPricePolicy: trading.MissingPricePolicy(c.Trading.MissingPricePolicy),
	}
}
