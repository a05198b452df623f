package quoteCache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarketDataApi struct {
	mu          sync.Mutex
	quoteCalls  int
	seriesCalls int
	quote       model.Quote
	candles     []model.Candle
	err         error
}

func (f *fakeMarketDataApi) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	if f.err != nil {
		return model.Quote{}, f.err
	}
	quote := f.quote
	quote.Ticker = ticker
	return quote, nil
}

func (f *fakeMarketDataApi) GetSeries(_ context.Context, _ string, _ model.Resolution) ([]model.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seriesCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func (f *fakeMarketDataApi) SearchSymbol(_ context.Context, _ string) ([]model.SymbolMatch, error) {
	return nil, f.err
}

func (f *fakeMarketDataApi) GetOverview(_ context.Context, _ string) (model.CompanyOverview, error) {
	return model.CompanyOverview{}, f.err
}

func newTestCache(t *testing.T, api MarketDataApi, freshness time.Duration) (*QuoteCache, *time.Time) {
	t.Helper()

	throttle := NewRequestThrottle(0, 16)
	t.Cleanup(throttle.Stop)

	cache := New(api, throttle, freshness)

	current := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	return cache, &current
}

func TestGetQuoteCachesWithinFreshness(t *testing.T) {
	api := &fakeMarketDataApi{quote: model.Quote{Price: decimal.NewFromInt(150)}}
	cache, _ := newTestCache(t, api, 15*time.Minute)

	first, err := cache.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	second, err := cache.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.quoteCalls)
}

func TestGetQuoteRefetchesAfterExpiry(t *testing.T) {
	api := &fakeMarketDataApi{quote: model.Quote{Price: decimal.NewFromInt(150)}}
	cache, current := newTestCache(t, api, 15*time.Minute)

	_, err := cache.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	*current = current.Add(16 * time.Minute)

	_, err = cache.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 2, api.quoteCalls)
}

func TestGetQuoteDistinctTickersFetchedSeparately(t *testing.T) {
	api := &fakeMarketDataApi{quote: model.Quote{Price: decimal.NewFromInt(10)}}
	cache, _ := newTestCache(t, api, 15*time.Minute)

	_, err := cache.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	_, err = cache.GetQuote(context.Background(), "MSFT")
	require.NoError(t, err)

	assert.Equal(t, 2, api.quoteCalls)
}

func TestGetQuoteErrorNotCached(t *testing.T) {
	upstreamErr := errors.New("boom")
	api := &fakeMarketDataApi{err: upstreamErr}
	cache, _ := newTestCache(t, api, 15*time.Minute)

	_, err := cache.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, upstreamErr)

	api.mu.Lock()
	api.err = nil
	api.mu.Unlock()

	_, err = cache.GetQuote(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, 2, api.quoteCalls)
}

func TestGetSeriesCachedPerResolution(t *testing.T) {
	api := &fakeMarketDataApi{candles: []model.Candle{{Date: "2025-06-02", Close: decimal.NewFromInt(100)}}}
	cache, _ := newTestCache(t, api, 15*time.Minute)

	_, err := cache.GetSeries(context.Background(), "AAPL", model.ResolutionDaily)
	require.NoError(t, err)

	_, err = cache.GetSeries(context.Background(), "AAPL", model.ResolutionDaily)
	require.NoError(t, err)

	_, err = cache.GetSeries(context.Background(), "AAPL", model.ResolutionWeekly)
	require.NoError(t, err)

	assert.Equal(t, 2, api.seriesCalls)
}

func TestStats(t *testing.T) {
	api := &fakeMarketDataApi{
		quote:   model.Quote{Price: decimal.NewFromInt(10)},
		candles: []model.Candle{{Date: "2025-06-02"}},
	}
	cache, _ := newTestCache(t, api, 15*time.Minute)

	_, err := cache.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	_, err = cache.GetSeries(context.Background(), "AAPL", model.ResolutionDaily)
	require.NoError(t, err)

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 15*time.Minute, stats.Freshness)
}
