package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GuestPortfolio is the state a non-authenticated session accumulates locally.
// It is consumed verbatim by portfolio migration, no price lookups involved.
type GuestPortfolio struct {
	CashBalance    decimal.Decimal    `json:"cashBalance"`
	InitialBalance decimal.Decimal    `json:"initialBalance"`
	Holdings       []GuestHolding     `json:"holdings"`
	Transactions   []GuestTransaction `json:"transactions"`
}

type GuestHolding struct {
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avgCost"`
}

type GuestTransaction struct {
	Kind      TradeKind       `json:"kind"`
	Ticker    string          `json:"ticker"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}
