package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	rediscache "github.com/simaogato/tradingbot-backend/internal/adapter/cache/redis"
	"github.com/simaogato/tradingbot-backend/internal/adapter/repository/jsonfile"
	"github.com/simaogato/tradingbot-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/tradingbot-backend/internal/config"
	"github.com/simaogato/tradingbot-backend/internal/domain"
	"github.com/simaogato/tradingbot-backend/internal/usecase/seeder"
	"github.com/simaogato/tradingbot-backend/internal/usecase/signal"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

// priceFeed is a price source that can also take new quotes
type priceFeed interface {
	domain.PriceRepository
	domain.PriceWriter
}

// app holds the wired dependencies of one process
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	ledger  domain.LedgerRepository
	prices  priceFeed
	closers []func() error
}

// newApp opens storage and the price feed selected by cfg
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var storePrices priceFeed
	switch cfg.Storage.Driver {
	case config.DriverJSON:
		store, err := jsonfile.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		a.ledger = store
		storePrices = store
	case config.DriverPostgres, config.DriverSQLite:
		db, err := sqlstore.NewDB(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.ledger = sqlstore.NewLedgerRepository(db)
		storePrices = sqlstore.NewPriceRepository(db)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	a.prices = storePrices
	if cfg.Prices.Source == config.PriceSourceRedis {
		cache, err := rediscache.New(ctx, rediscache.Options{
			Addr:     cfg.Prices.Redis.Addr,
			Password: cfg.Prices.Redis.Password,
			DB:       cfg.Prices.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, cache.Close)
		a.prices = cache
	}

	logger.Info("storage ready",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("prices", cfg.Prices.Source),
	)
	return a, nil
}

// seedPrices fills symbols the feed has no quote for from the JSON data
// files in dir
func (a *app) seedPrices(ctx context.Context, dir string) (map[string]int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("seed directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("seed directory %s is not a directory", dir)
	}
	source, err := jsonfile.NewStore(dir)
	if err != nil {
		return nil, err
	}
	return seeder.NewPriceSeeder(source, a.prices, a.logger).Seed(ctx, a.cfg.Trading.Symbols)
}

// historyTrimmer is a price feed that can drop old history
type historyTrimmer interface {
	TrimHistory(ctx context.Context, symbol string, cutoff time.Time) error
}

// trimHistory drops history older than the configured retention for every
// configured symbol
func (a *app) trimHistory(ctx context.Context, now time.Time) error {
	retention := a.cfg.Prices.Retention
	if retention <= 0 {
		return nil
	}
	trimmer, ok := a.prices.(historyTrimmer)
	if !ok {
		return fmt.Errorf("price source %s does not support history retention", a.cfg.Prices.Source)
	}
	cutoff := now.Add(-retention)
	for _, symbol := range a.cfg.Trading.Symbols {
		if err := trimmer.TrimHistory(ctx, symbol, cutoff); err != nil {
			return err
		}
	}
	a.logger.Debug("price history trimmed", slog.Time("cutoff", cutoff))
	return nil
}

// tradingService builds the strategy and recovers the engine from the ledger
func (a *app) tradingService(ctx context.Context) (*trading.Service, error) {
	strategy, err := signal.New(a.cfg.StrategyOptions())
	if err != nil {
		return nil, err
	}
	return trading.NewService(ctx, a.cfg.Engine(), strategy, a.prices, a.ledger, trading.WithLogger(a.logger))
}

// Close releases every opened connection, last opened first
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
