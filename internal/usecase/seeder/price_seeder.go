package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// PriceTarget is the price source being seeded
type PriceTarget interface {
	domain.PriceRepository
	domain.PriceWriter
}

// PriceSeeder copies quotes from a source into a price feed
type PriceSeeder struct {
	source domain.PriceRepository
	target PriceTarget
	logger *slog.Logger
	now    func() time.Time
}

// NewPriceSeeder creates a new PriceSeeder instance
func NewPriceSeeder(source domain.PriceRepository, target PriceTarget, logger *slog.Logger) *PriceSeeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceSeeder{
		source: source,
		target: target,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Seed ensures every symbol has a quote in the target.
// Symbols the target already prices are left alone. For the others the full
// source history is copied oldest first; a source with only a latest quote
// contributes that quote stamped with the current time.
// Returns the number of points written per seeded symbol.
func (s *PriceSeeder) Seed(ctx context.Context, symbols []string) (map[string]int, error) {
	seeded := make(map[string]int)

	for _, symbol := range symbols {
		_, ok, err := s.target.GetLatestPrice(ctx, symbol)
		if err != nil {
			return seeded, domain.AsTradingError(err, fmt.Sprintf("failed to check price for %s", symbol))
		}
		if ok {
			continue
		}

		points, err := s.source.GetPriceHistory(ctx, symbol)
		if err != nil {
			return seeded, domain.AsTradingError(err, fmt.Sprintf("failed to read seed history for %s", symbol))
		}
		if len(points) == 0 {
			price, found, err := s.source.GetLatestPrice(ctx, symbol)
			if err != nil {
				return seeded, domain.AsTradingError(err, fmt.Sprintf("failed to read seed price for %s", symbol))
			}
			if !found {
				s.logger.Warn("no seed data for symbol", slog.String("symbol", symbol))
				continue
			}
			points = []domain.PricePoint{{Timestamp: s.now(), Price: price}}
		}

		for _, p := range points {
			if err := s.target.SetPrice(ctx, symbol, p.Price, p.Timestamp); err != nil {
				return seeded, domain.AsTradingError(err, fmt.Sprintf("failed to seed price for %s", symbol))
			}
		}
		seeded[symbol] = len(points)
		s.logger.Info("seeded prices", slog.String("symbol", symbol), slog.Int("points", len(points)))
	}

	return seeded, nil
}
