package model

import "github.com/shopspring/decimal"

// Recommendation is what the AI advisor produces. The service treats it as
// opaque data, only Ticker and AllocationPct are interpreted.
type Recommendation struct {
	Ticker        string          `json:"ticker"`
	AllocationPct decimal.Decimal `json:"allocationPct"`
	Reasoning     string          `json:"reasoning"`
}

type AdviceTarget struct {
	Ticker         string
	AllocationPct  decimal.Decimal
	Reasoning      string
	Price          decimal.Decimal
	TargetQuantity decimal.Decimal
}
