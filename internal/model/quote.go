package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Ticker     string
	Price      decimal.Decimal
	Change     decimal.Decimal
	ChangePct  decimal.Decimal
	Volume     int64
	TradingDay string
}

type SymbolMatch struct {
	Ticker     string
	Name       string
	Type       string
	Region     string
	Currency   string
	MatchScore string
}

type CompanyOverview struct {
	Ticker        string
	Name          string
	Description   string
	Sector        string
	Industry      string
	MarketCap     string
	PERatio       string
	DividendYield string
}

type Resolution string

const (
	ResolutionDaily   Resolution = "daily"
	ResolutionWeekly  Resolution = "weekly"
	ResolutionMonthly Resolution = "monthly"
)

// Candle is one OHLCV point of a historical series. Date format is "2006-01-02".
type Candle struct {
	Date   string
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

type CacheStats struct {
	Entries   int
	Freshness time.Duration
}
