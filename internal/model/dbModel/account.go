package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	AccountID      int64           `db:"account_id"`
	UserID         int64           `db:"user_id"`
	CashBalance    decimal.Decimal `db:"cash_balance"`
	InitialBalance decimal.Decimal `db:"initial_balance"`
	CreatedAt      time.Time       `db:"dt_create"`
}

type Holding struct {
	AccountID int64           `db:"account_id"`
	Ticker    string          `db:"ticker"`
	Quantity  decimal.Decimal `db:"quantity"`
	AvgCost   decimal.Decimal `db:"avg_cost"`
	LastPrice decimal.Decimal `db:"last_price"`
}

type Transaction struct {
	TransactionID int64           `db:"transaction_id"`
	AccountID     int64           `db:"account_id"`
	Kind          string          `db:"kind"`
	Ticker        string          `db:"ticker"`
	Quantity      decimal.Decimal `db:"quantity"`
	Price         decimal.Decimal `db:"price"`
	Total         decimal.Decimal `db:"total"`
	CreatedAt     time.Time       `db:"dt_create"`
}
