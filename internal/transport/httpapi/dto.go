package httpapi

import (
	"time"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/shopspring/decimal"
)

type tradeRequest struct {
	Ticker   string `json:"ticker"`
	Quantity string `json:"quantity"`
	Kind     string `json:"kind"`
}

type migrateRequest struct {
	SessionID string `json:"sessionId"`
}

type tradeResponse struct {
	Ticker    string          `json:"ticker"`
	Kind      string          `json:"kind"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

type holdingResponse struct {
	Ticker     string          `json:"ticker"`
	Quantity   decimal.Decimal `json:"quantity"`
	AvgCost    decimal.Decimal `json:"avgCost"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ProfitLoss decimal.Decimal `json:"profitLoss"`
}

type summaryResponse struct {
	CashBalance    decimal.Decimal   `json:"cashBalance"`
	InitialBalance decimal.Decimal   `json:"initialBalance"`
	HoldingsValue  decimal.Decimal   `json:"holdingsValue"`
	TotalValue     decimal.Decimal   `json:"totalValue"`
	ProfitLoss     decimal.Decimal   `json:"profitLoss"`
	Holdings       []holdingResponse `json:"holdings"`
}

type performancePointResponse struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

type quoteResponse struct {
	Ticker     string          `json:"ticker"`
	Price      decimal.Decimal `json:"price"`
	Change     decimal.Decimal `json:"change"`
	ChangePct  decimal.Decimal `json:"changePct"`
	Volume     int64           `json:"volume"`
	TradingDay string          `json:"tradingDay"`
}

type symbolMatchResponse struct {
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Region     string `json:"region"`
	Currency   string `json:"currency"`
	MatchScore string `json:"matchScore"`
}

type overviewResponse struct {
	Ticker        string `json:"ticker"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Sector        string `json:"sector"`
	Industry      string `json:"industry"`
	MarketCap     string `json:"marketCap"`
	PERatio       string `json:"peRatio"`
	DividendYield string `json:"dividendYield"`
}

type candleResponse struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type adviceTargetResponse struct {
	Ticker         string          `json:"ticker"`
	AllocationPct  decimal.Decimal `json:"allocationPct"`
	Reasoning      string          `json:"reasoning"`
	Price          decimal.Decimal `json:"price"`
	TargetQuantity decimal.Decimal `json:"targetQuantity"`
}

type reportResponse struct {
	DownloadLink string `json:"downloadLink"`
}

type cacheStatsResponse struct {
	Entries          int    `json:"entries"`
	FreshnessSeconds int    `json:"freshnessSeconds"`
	Freshness        string `json:"freshness"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func convertTradeResult(result model.TradeResult) tradeResponse {
	return tradeResponse{
		Ticker:    result.Ticker,
		Kind:      string(result.Kind),
		Quantity:  result.Quantity,
		Price:     result.Price,
		Total:     result.Total,
		CreatedAt: result.CreatedAt,
	}
}

func convertSummary(summary model.PortfolioSummary) summaryResponse {
	holdings := make([]holdingResponse, 0, len(summary.Holdings))
	for _, holding := range summary.Holdings {
		holdings = append(holdings, holdingResponse{
			Ticker:     holding.Ticker,
			Quantity:   holding.Quantity,
			AvgCost:    holding.AvgCost,
			Price:      holding.Price,
			TotalPrice: holding.TotalPrice,
			ProfitLoss: holding.ProfitLoss,
		})
	}
	return summaryResponse{
		CashBalance:    summary.CashBalance,
		InitialBalance: summary.InitialBalance,
		HoldingsValue:  summary.HoldingsValue,
		TotalValue:     summary.TotalValue,
		ProfitLoss:     summary.ProfitLoss,
		Holdings:       holdings,
	}
}

func convertPerformance(points []model.PerformancePoint) []performancePointResponse {
	resp := make([]performancePointResponse, 0, len(points))
	for _, point := range points {
		resp = append(resp, performancePointResponse{Date: point.Date, Value: point.Value})
	}
	return resp
}

func convertQuote(quote model.Quote) quoteResponse {
	return quoteResponse{
		Ticker:     quote.Ticker,
		Price:      quote.Price,
		Change:     quote.Change,
		ChangePct:  quote.ChangePct,
		Volume:     quote.Volume,
		TradingDay: quote.TradingDay,
	}
}

func convertMatches(matches []model.SymbolMatch) []symbolMatchResponse {
	resp := make([]symbolMatchResponse, 0, len(matches))
	for _, match := range matches {
		resp = append(resp, symbolMatchResponse{
			Ticker:     match.Ticker,
			Name:       match.Name,
			Type:       match.Type,
			Region:     match.Region,
			Currency:   match.Currency,
			MatchScore: match.MatchScore,
		})
	}
	return resp
}

func convertOverview(overview model.CompanyOverview) overviewResponse {
	return overviewResponse{
		Ticker:        overview.Ticker,
		Name:          overview.Name,
		Description:   overview.Description,
		Sector:        overview.Sector,
		Industry:      overview.Industry,
		MarketCap:     overview.MarketCap,
		PERatio:       overview.PERatio,
		DividendYield: overview.DividendYield,
	}
}

func convertCandles(candles []model.Candle) []candleResponse {
	resp := make([]candleResponse, 0, len(candles))
	for _, candle := range candles {
		resp = append(resp, candleResponse{
			Date:   candle.Date,
			Open:   candle.Open,
			High:   candle.High,
			Low:    candle.Low,
			Close:  candle.Close,
			Volume: candle.Volume,
		})
	}
	return resp
}

func convertAdviceTargets(targets []model.AdviceTarget) []adviceTargetResponse {
	resp := make([]adviceTargetResponse, 0, len(targets))
	for _, target := range targets {
		resp = append(resp, adviceTargetResponse{
			Ticker:         target.Ticker,
			AllocationPct:  target.AllocationPct,
			Reasoning:      target.Reasoning,
			Price:          target.Price,
			TargetQuantity: target.TargetQuantity,
		})
	}
	return resp
}

func convertCacheStats(stats model.CacheStats) cacheStatsResponse {
	return cacheStatsResponse{
		Entries:          stats.Entries,
		FreshnessSeconds: int(stats.Freshness.Seconds()),
		Freshness:        stats.Freshness.String(),
	}
}
