package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/simaogato/tradingbot-backend/internal/domain"
)

// Options represents Redis connection settings
type Options struct {
	Addr     string
	Password string
	DB       int
}

// PriceCache implements domain.PriceRepository on top of Redis.
// The latest quote of a symbol lives under price:latest:<SYMBOL>, its history
// in the sorted set price:history:<SYMBOL> scored by unix milliseconds.
type PriceCache struct {
	client *redis.Client
}

var _ domain.PriceRepository = (*PriceCache)(nil)

type historyEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, opts Options) (*PriceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client), nil
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *PriceCache {
	return &PriceCache{client: client}
}

func latestKey(symbol string) string {
	return "price:latest:" + symbol
}

func historyKey(symbol string) string {
	return "price:history:" + symbol
}

// setPriceScript adds a history point and moves the latest quote only when
// the point is not older than the newest one in the history.
// KEYS: latest, history. ARGV: price, score, member.
var setPriceScript = redis.NewScript(`
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
local top = redis.call('ZREVRANGE', KEYS[2], 0, 0, 'WITHSCORES')
if tonumber(top[2]) <= tonumber(ARGV[2]) then
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// SetPrice adds price to the history of symbol at ts. The latest quote only
// moves when ts is not older than the newest stored point.
func (c *PriceCache) SetPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	if !price.IsPositive() {
		return domain.NewMalformedDataError(fmt.Sprintf("invalid price %s for %s", price, symbol), nil)
	}

	member, err := json.Marshal(historyEntry{Timestamp: ts.UTC(), Price: price})
	if err != nil {
		return err
	}

	keys := []string{latestKey(symbol), historyKey(symbol)}
	score := strconv.FormatInt(ts.UnixMilli(), 10)
	if err := setPriceScript.Run(ctx, c.client, keys, price.String(), score, string(member)).Err(); err != nil {
		return fmt.Errorf("failed to store price for %s: %w", symbol, err)
	}
	return nil
}

// GetLatestPrice implements domain.PriceRepository
func (c *PriceCache) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	data, err := c.client.Get(ctx, latestKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get latest price for %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(data)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false, domain.NewMalformedDataError(fmt.Sprintf("invalid cached price %q for %s", data, symbol), err)
	}
	return price, true, nil
}

// GetPriceHistory implements domain.PriceRepository
func (c *PriceCache) GetPriceHistory(ctx context.Context, symbol string) ([]domain.PricePoint, error) {
	values, err := c.client.ZRangeByScore(ctx, historyKey(symbol), &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get price history for %s: %w", symbol, err)
	}

	points := make([]domain.PricePoint, 0, len(values))
	for _, value := range values {
		var entry historyEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid history entry for %s", symbol), err)
		}
		if !entry.Price.IsPositive() {
			return nil, domain.NewMalformedDataError(fmt.Sprintf("invalid history price %s for %s", entry.Price, symbol), nil)
		}
		points = append(points, domain.PricePoint{Timestamp: entry.Timestamp, Price: entry.Price})
	}

	domain.SortPricePoints(points)
	return points, nil
}

// TrimHistory drops history entries older than cutoff
func (c *PriceCache) TrimHistory(ctx context.Context, symbol string, cutoff time.Time) error {
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	if err := c.client.ZRemRangeByScore(ctx, historyKey(symbol), "-inf", upper).Err(); err != nil {
		return fmt.Errorf("failed to trim price history for %s: %w", symbol, err)
	}
	return nil
}

// Close closes the cache connection
func (c *PriceCache) Close() error {
	return c.client.Close()
}
