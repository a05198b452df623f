package paperTradeService

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/KotFed0t/paper_trade_service/internal/converter/dbConverter"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/service"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// GetPerformance reconstructs the portfolio value curve by replaying the
// transaction log against historical daily closes. The replay is a pure fold
// over the log, live ledger state is never consulted. A symbol whose history
// cannot be fetched contributes zero on the dates it lacks data; only when
// every symbol fails the whole call fails.
func (s *PaperTradeService) GetPerformance(ctx context.Context, externalID string) ([]model.PerformancePoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.GetPerformance"

	slog.Debug("GetPerformance start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPerformance finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	account, err := s.getAccount(ctx, externalID)
	if err != nil {
		return nil, err
	}

	dbTransactions, err := s.repo.GetTransactions(ctx, account.AccountID)
	if err != nil {
		return nil, err
	}

	if len(dbTransactions) == 0 {
		return []model.PerformancePoint{{
			Date:  s.now().Format(dateLayout),
			Value: account.InitialBalance,
		}}, nil
	}

	transactions := make([]model.Transaction, 0, len(dbTransactions))
	for _, dbTransaction := range dbTransactions {
		transactions = append(transactions, dbConverter.ConvertTransaction(dbTransaction))
	}

	tickers := distinctTickers(transactions)
	seriesByTicker := s.fetchSeriesConcurrently(ctx, tickers)

	if len(seriesByTicker) == 0 {
		return nil, service.ErrHistoryUnavailable
	}

	firstTradeDate := transactions[0].CreatedAt.Format(dateLayout)
	dates := unionDatesFrom(seriesByTicker, firstTradeDate)

	points := make([]model.PerformancePoint, 0, len(dates))
	for _, date := range dates {
		cash, quantities := replayUpTo(transactions, account.InitialBalance, date)

		value := cash
		for ticker, quantity := range quantities {
			value = value.Add(quantity.Mul(closeOnOrBefore(seriesByTicker[ticker], date)))
		}

		points = append(points, model.PerformancePoint{Date: date, Value: value})
	}

	return points, nil
}

// fetchSeriesConcurrently loads each ticker's daily series independently.
// Failures are isolated per ticker and only logged.
func (s *PaperTradeService) fetchSeriesConcurrently(ctx context.Context, tickers []string) map[string][]model.Candle {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.fetchSeriesConcurrently"

	var mu sync.Mutex
	seriesByTicker := make(map[string][]model.Candle, len(tickers))

	var wg sync.WaitGroup
	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()

			candles, err := s.quotes.GetSeries(ctx, ticker, model.ResolutionDaily)
			if err != nil {
				slog.Warn("history unavailable for ticker", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
				return
			}

			mu.Lock()
			seriesByTicker[ticker] = candles
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	return seriesByTicker
}

func distinctTickers(transactions []model.Transaction) []string {
	seen := make(map[string]struct{})
	tickers := make([]string, 0)
	for _, transaction := range transactions {
		if _, ok := seen[transaction.Ticker]; !ok {
			seen[transaction.Ticker] = struct{}{}
			tickers = append(tickers, transaction.Ticker)
		}
	}
	return tickers
}

func unionDatesFrom(seriesByTicker map[string][]model.Candle, firstDate string) []string {
	seen := make(map[string]struct{})
	dates := make([]string, 0)
	for _, candles := range seriesByTicker {
		for _, candle := range candles {
			if candle.Date < firstDate {
				continue
			}
			if _, ok := seen[candle.Date]; !ok {
				seen[candle.Date] = struct{}{}
				dates = append(dates, candle.Date)
			}
		}
	}
	sort.Strings(dates)
	return dates
}

// replayUpTo folds every transaction dated on or before date over a fresh
// ledger state, applying the same buy/sell rules as live execution.
func replayUpTo(transactions []model.Transaction, initialBalance decimal.Decimal, date string) (decimal.Decimal, map[string]decimal.Decimal) {
	cash := initialBalance
	quantities := make(map[string]decimal.Decimal)

	for _, transaction := range transactions {
		if transaction.CreatedAt.Format(dateLayout) > date {
			break
		}

		total := transaction.Price.Mul(transaction.Quantity)
		switch transaction.Kind {
		case model.TradeBuy:
			cash = cash.Sub(total)
			quantities[transaction.Ticker] = quantities[transaction.Ticker].Add(transaction.Quantity)
		case model.TradeSell:
			cash = cash.Add(total)
			remaining := quantities[transaction.Ticker].Sub(transaction.Quantity)
			if remaining.IsZero() {
				delete(quantities, transaction.Ticker)
			} else {
				quantities[transaction.Ticker] = remaining
			}
		}
	}

	return cash, quantities
}

// closeOnOrBefore returns the close for the exact date, otherwise the closest
// earlier one, otherwise zero. Candles are sorted ascending by date.
func closeOnOrBefore(candles []model.Candle, date string) decimal.Decimal {
	idx := sort.Search(len(candles), func(i int) bool { return candles[i].Date > date })
	if idx == 0 {
		return decimal.Zero
	}
	return candles[idx-1].Close
}
