package quoteCache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/utils"
)

type MarketDataApi interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetSeries(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error)
	SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error)
	GetOverview(ctx context.Context, ticker string) (model.CompanyOverview, error)
}

type quoteEntry struct {
	quote     model.Quote
	fetchedAt time.Time
}

type seriesEntry struct {
	candles   []model.Candle
	fetchedAt time.Time
}

// QuoteCache is a per-ticker TTL cache in front of the market data api.
// Misses go through the request throttle, hits return without an external
// call. Entries are overwritten on refresh, there is no other eviction.
type QuoteCache struct {
	api       MarketDataApi
	throttle  *RequestThrottle
	freshness time.Duration
	now       func() time.Time

	mu     sync.RWMutex
	quotes map[string]quoteEntry
	series map[string]seriesEntry
}

func New(api MarketDataApi, throttle *RequestThrottle, freshness time.Duration) *QuoteCache {
	return &QuoteCache{
		api:       api,
		throttle:  throttle,
		freshness: freshness,
		now:       time.Now,
		quotes:    make(map[string]quoteEntry),
		series:    make(map[string]seriesEntry),
	}
}

func (c *QuoteCache) freshQuote(ticker string) (model.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.quotes[ticker]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.freshness {
		return model.Quote{}, false
	}
	return entry.quote, true
}

func (c *QuoteCache) freshSeries(key string) ([]model.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.series[key]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.freshness {
		return nil, false
	}
	return entry.candles, true
}

func (c *QuoteCache) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if quote, ok := c.freshQuote(ticker); ok {
		return quote, nil
	}

	slog.Debug("quote cache miss", slog.String("rqID", rqID), slog.String("ticker", ticker))

	payload, err := c.throttle.Do(ctx, func(ctx context.Context) (any, error) {
		// a queued caller may have refreshed the entry while we waited
		if quote, ok := c.freshQuote(ticker); ok {
			return quote, nil
		}

		quote, err := c.api.GetQuote(ctx, ticker)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.quotes[ticker] = quoteEntry{quote: quote, fetchedAt: c.now()}
		c.mu.Unlock()

		return quote, nil
	})
	if err != nil {
		return model.Quote{}, err
	}

	return payload.(model.Quote), nil
}

func (c *QuoteCache) GetSeries(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := fmt.Sprintf("%s:%s", ticker, resolution)

	if candles, ok := c.freshSeries(key); ok {
		return candles, nil
	}

	slog.Debug("series cache miss", slog.String("rqID", rqID), slog.String("key", key))

	payload, err := c.throttle.Do(ctx, func(ctx context.Context) (any, error) {
		if candles, ok := c.freshSeries(key); ok {
			return candles, nil
		}

		candles, err := c.api.GetSeries(ctx, ticker, resolution)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.series[key] = seriesEntry{candles: candles, fetchedAt: c.now()}
		c.mu.Unlock()

		return candles, nil
	})
	if err != nil {
		return nil, err
	}

	return payload.([]model.Candle), nil
}

// SearchSymbol is not cached (results depend on free-form keywords) but still
// goes through the throttle, the provider's rate budget is shared.
func (c *QuoteCache) SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	payload, err := c.throttle.Do(ctx, func(ctx context.Context) (any, error) {
		return c.api.SearchSymbol(ctx, keywords)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]model.SymbolMatch), nil
}

// GetOverview is throttled but not cached, same reasoning as SearchSymbol.
func (c *QuoteCache) GetOverview(ctx context.Context, ticker string) (model.CompanyOverview, error) {
	payload, err := c.throttle.Do(ctx, func(ctx context.Context) (any, error) {
		return c.api.GetOverview(ctx, ticker)
	})
	if err != nil {
		return model.CompanyOverview{}, err
	}
	return payload.(model.CompanyOverview), nil
}

func (c *QuoteCache) Stats() model.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return model.CacheStats{
		Entries:   len(c.quotes) + len(c.series),
		Freshness: c.freshness,
	}
}
