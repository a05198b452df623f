package model

import (
	"github.com/shopspring/decimal"
)

type Account struct {
	AccountID      int64
	CashBalance    decimal.Decimal
	InitialBalance decimal.Decimal
}

type Holding struct {
	Ticker    string
	Quantity  decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

type PortfolioSummary struct {
	CashBalance    decimal.Decimal
	InitialBalance decimal.Decimal
	HoldingsValue  decimal.Decimal
	TotalValue     decimal.Decimal
	ProfitLoss     decimal.Decimal
	Holdings       []HoldingInfo
}

type HoldingInfo struct {
	Ticker     string
	Quantity   decimal.Decimal
	AvgCost    decimal.Decimal
	Price      decimal.Decimal
	TotalPrice decimal.Decimal
	ProfitLoss decimal.Decimal
}

type PerformancePoint struct {
	Date  string
	Value decimal.Decimal
}
