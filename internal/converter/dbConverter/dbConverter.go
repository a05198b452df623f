package dbConverter

import (
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/model/dbModel"
)

func ConvertAccount(account dbModel.Account) model.Account {
	return model.Account{
		AccountID:      account.AccountID,
		CashBalance:    account.CashBalance,
		InitialBalance: account.InitialBalance,
	}
}

func ConvertHolding(holding dbModel.Holding) model.Holding {
	return model.Holding{
		Ticker:    holding.Ticker,
		Quantity:  holding.Quantity,
		AvgCost:   holding.AvgCost,
		LastPrice: holding.LastPrice,
	}
}

func ConvertTransaction(transaction dbModel.Transaction) model.Transaction {
	return model.Transaction{
		Kind:      model.TradeKind(transaction.Kind),
		Ticker:    transaction.Ticker,
		Quantity:  transaction.Quantity,
		Price:     transaction.Price,
		Total:     transaction.Total,
		CreatedAt: transaction.CreatedAt,
	}
}
