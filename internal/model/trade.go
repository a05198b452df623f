package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

func (k TradeKind) Valid() bool {
	return k == TradeBuy || k == TradeSell
}

type TradeResult struct {
	Ticker    string
	Kind      TradeKind
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

type Transaction struct {
	Kind      TradeKind
	Ticker    string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}
