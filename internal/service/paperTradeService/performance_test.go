package paperTradeService

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(date, close string) model.Candle {
	return model.Candle{Date: date, Close: dec(close)}
}

func mustDate(t *testing.T, date string) time.Time {
	t.Helper()
	parsed, err := time.Parse(dateLayout, date)
	require.NoError(t, err)
	return parsed
}

func (f *serviceFixture) insertTx(t *testing.T, accountID int64, kind model.TradeKind, ticker, quantity, price, date string) {
	t.Helper()
	err := f.repo.InsertTransaction(context.Background(), accountID, model.Transaction{
		Kind:      kind,
		Ticker:    ticker,
		Quantity:  dec(quantity),
		Price:     dec(price),
		Total:     dec(price).Mul(dec(quantity)),
		CreatedAt: mustDate(t, date),
	})
	require.NoError(t, err)
}

func TestGetPerformanceNoTrades(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	require.NoError(t, f.svc.RegUser(ctx, "user1"))
	f.svc.now = func() time.Time { return mustDate(t, "2024-03-15") }

	points, err := f.svc.GetPerformance(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2024-03-15", points[0].Date)
	assert.True(t, points[0].Value.Equal(dec("100000")))
}

func TestGetPerformanceValuationCurve(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	require.NoError(t, f.svc.RegUser(ctx, "user1"))
	f.insertTx(t, 1, model.TradeBuy, "AAPL", "10", "100", "2024-01-02")
	f.insertTx(t, 1, model.TradeSell, "AAPL", "4", "110", "2024-01-03")

	f.quotes.setSeries("AAPL", []model.Candle{
		candle("2024-01-01", "95"),
		candle("2024-01-02", "100"),
		candle("2024-01-03", "110"),
		candle("2024-01-04", "120"),
	})

	points, err := f.svc.GetPerformance(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, points, 3, "dates before the first trade are excluded")

	// day 1: cash 99000 + 10*100
	assert.Equal(t, "2024-01-02", points[0].Date)
	assert.True(t, points[0].Value.Equal(dec("100000")), "got %s", points[0].Value)

	// day 2: cash 99440 + 6*110
	assert.Equal(t, "2024-01-03", points[1].Date)
	assert.True(t, points[1].Value.Equal(dec("100100")), "got %s", points[1].Value)

	// day 3: cash 99440 + 6*120
	assert.Equal(t, "2024-01-04", points[2].Date)
	assert.True(t, points[2].Value.Equal(dec("100160")), "got %s", points[2].Value)
}

func TestGetPerformanceFallsBackToEarlierClose(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	require.NoError(t, f.svc.RegUser(ctx, "user1"))
	f.insertTx(t, 1, model.TradeBuy, "AAPL", "1", "100", "2024-01-02")
	f.insertTx(t, 1, model.TradeBuy, "TSLA", "1", "200", "2024-01-02")

	// TSLA has no close on 2024-01-03, its 2024-01-02 close is reused
	f.quotes.setSeries("AAPL", []model.Candle{
		candle("2024-01-02", "100"),
		candle("2024-01-03", "110"),
	})
	f.quotes.setSeries("TSLA", []model.Candle{
		candle("2024-01-02", "200"),
	})

	points, err := f.svc.GetPerformance(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, points, 2)

	// cash 99700 + AAPL 110 + TSLA 200 (carried forward)
	assert.Equal(t, "2024-01-03", points[1].Date)
	assert.True(t, points[1].Value.Equal(dec("100010")), "got %s", points[1].Value)
}

func TestGetPerformanceSymbolWithoutEarlierCloseContributesZero(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	require.NoError(t, f.svc.RegUser(ctx, "user1"))
	f.insertTx(t, 1, model.TradeBuy, "AAPL", "1", "100", "2024-01-02")
	f.insertTx(t, 1, model.TradeBuy, "TSLA", "1", "200", "2024-01-02")

	f.quotes.setSeries("AAPL", []model.Candle{
		candle("2024-01-02", "100"),
	})
	// TSLA series starts after the replay window opens
	f.quotes.setSeries("TSLA", []model.Candle{
		candle("2024-01-05", "210"),
	})

	points, err := f.svc.GetPerformance(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, points, 2)

	// 2024-01-02: cash 99700 + AAPL 100 + TSLA 0 (no close on or before)
	assert.True(t, points[0].Value.Equal(dec("99800")), "got %s", points[0].Value)

	// 2024-01-05: cash 99700 + AAPL 100 (carried) + TSLA 210
	assert.True(t, points[1].Value.Equal(dec("100010")), "got %s", points[1].Value)
}

func TestGetPerformancePartialHistoryFailure(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	require.NoError(t, f.svc.RegUser(ctx, "user1"))
	f.insertTx(t, 1, model.TradeBuy, "AAPL", "1", "100", "2024-01-02")
	f.insertTx(t, 1, model.TradeBuy, "TSLA", "1", "200", "2024-01-02")

	f.quotes.setSeries("AAPL", []model.Candle{
		candle("2024-01-02", "100"),
	})
	f.quotes.setErr("TSLA", assert.AnError)

	points, err := f.svc.GetPerformance(ctx, "user1")
	require.NoError(t, err, "one failed symbol does not fail the curve")
	require.Len(t, points, 1)

	// TSLA contributes zero, its cash outflow still counts
	assert.True(t, points[0].Value.Equal(dec("99800")), "got %s", points[0].Value)
}

func TestGetPerformanceAllHistoryUnavailable(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	require.NoError(t, f.svc.RegUser(ctx, "user1"))
	f.insertTx(t, 1, model.TradeBuy, "AAPL", "1", "100", "2024-01-02")

	f.quotes.setErr("AAPL", assert.AnError)

	_, err := f.svc.GetPerformance(ctx, "user1")
	assert.ErrorIs(t, err, service.ErrHistoryUnavailable)
}

func TestGetPerformanceFinalPointMatchesLiveState(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	require.NoError(t, f.svc.RegUser(ctx, "user1"))

	f.quotes.setPrice("AAPL", "100")
	_, err := f.svc.ExecuteTrade(ctx, "user1", "AAPL", dec("10"), model.TradeBuy)
	require.NoError(t, err)

	today := time.Now().Format(dateLayout)
	f.quotes.setSeries("AAPL", []model.Candle{
		candle(today, "100"),
	})

	points, err := f.svc.GetPerformance(ctx, "user1")
	require.NoError(t, err)
	require.NotEmpty(t, points)

	account, err := f.repo.GetAccountByUser(ctx, 1)
	require.NoError(t, err)

	last := points[len(points)-1]
	expected := account.CashBalance.Add(dec("10").Mul(dec("100")))
	assert.True(t, last.Value.Equal(expected), "replayed value %s, live value %s", last.Value, expected)
}
