package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/paper_trade_service/data/repository"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/model/dbModel"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolationCode = "23505"

func (r *Postgres) RegUser(ctx context.Context, externalID string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO users(external_id) VALUES($1) RETURNING user_id`

	slog.Debug("RegUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RegUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("RegUser completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, externalID).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) GetUserID(ctx context.Context, externalID string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT user_id FROM users WHERE external_id = $1`

	slog.Debug("GetUserID start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserID failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserID completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, externalID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) CreateAccount(ctx context.Context, userID int64, cashBalance, initialBalance decimal.Decimal) (accountID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO accounts(user_id, cash_balance, initial_balance) VALUES($1, $2, $3) RETURNING account_id`

	slog.Debug("CreateAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreateAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateAccount completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, userID, cashBalance, initialBalance).Scan(&accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return accountID, nil
}

func (r *Postgres) GetAccountByUser(ctx context.Context, userID int64) (account dbModel.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT account_id, user_id, cash_balance, initial_balance, dt_create
		FROM accounts
		WHERE user_id = $1
		`

	slog.Debug("GetAccountByUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccountByUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccountByUser completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.Account{}, repository.ErrNotFound
		}
		return dbModel.Account{}, err
	}

	return account, nil
}

func (r *Postgres) GetAccount(ctx context.Context, accountID int64) (account dbModel.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT account_id, user_id, cash_balance, initial_balance, dt_create
		FROM accounts
		WHERE account_id = $1
		`

	slog.Debug("GetAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccount completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, accountID).StructScan(&account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.Account{}, repository.ErrNotFound
		}
		return dbModel.Account{}, err
	}

	return account, nil
}

func (r *Postgres) UpdateAccountBalance(ctx context.Context, accountID int64, cashBalance decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE accounts SET cash_balance = $1 WHERE account_id = $2`

	slog.Debug("UpdateAccountBalance start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateAccountBalance failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateAccountBalance completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, cashBalance, accountID)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetHolding(ctx context.Context, accountID int64, ticker string) (holding dbModel.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT account_id, ticker, quantity, avg_cost, last_price
		FROM holdings
		WHERE account_id = $1
		AND ticker = $2
		`

	slog.Debug("GetHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHolding completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, accountID, ticker).StructScan(&holding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.Holding{}, repository.ErrNotFound
		}
		return dbModel.Holding{}, err
	}

	return holding, nil
}

func (r *Postgres) GetHoldings(ctx context.Context, accountID int64) (holdings []dbModel.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT account_id, ticker, quantity, avg_cost, last_price
		FROM holdings
		WHERE account_id = $1
		ORDER BY ticker
		`

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldings completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var holding dbModel.Holding
		err = rows.StructScan(&holding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, holding)
	}

	return holdings, nil
}

func (r *Postgres) UpsertHolding(ctx context.Context, holding dbModel.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO holdings(account_id, ticker, quantity, avg_cost, last_price)
		VALUES (:account_id, :ticker, :quantity, :avg_cost, :last_price)
		ON CONFLICT (account_id, ticker) DO UPDATE
		SET quantity = EXCLUDED.quantity,
			avg_cost = EXCLUDED.avg_cost,
			last_price = EXCLUDED.last_price
		`

	slog.Debug("UpsertHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, holding)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) DeleteHolding(ctx context.Context, accountID int64, ticker string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM holdings WHERE account_id = $1 AND ticker = $2`

	slog.Debug("DeleteHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, accountID, ticker)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) InsertTransaction(ctx context.Context, accountID int64, transaction model.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO transactions(account_id, kind, ticker, quantity, price, total, dt_create)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

	slog.Debug(
		"InsertTransaction start",
		slog.String("rqID", rqID),
		slog.Int64("accountID", accountID),
		slog.Any("transaction", transaction),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		accountID,
		string(transaction.Kind),
		transaction.Ticker,
		transaction.Quantity,
		transaction.Price,
		transaction.Total,
		transaction.CreatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetTransactions(ctx context.Context, accountID int64) (transactions []dbModel.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT transaction_id, account_id, kind, ticker, quantity, price, total, dt_create
		FROM transactions
		WHERE account_id = $1
		ORDER BY dt_create, transaction_id
		`

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransactions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactions completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var transaction dbModel.Transaction
		err = rows.StructScan(&transaction)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}

	return transactions, nil
}

func (r *Postgres) InsertHoldings(ctx context.Context, accountID int64, holdings []model.GuestHolding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO holdings(account_id, ticker, quantity, avg_cost, last_price)
		VALUES ($1, $2, $3, $4, $5)
		`

	slog.Debug("InsertHoldings start", slog.String("rqID", rqID), slog.Int("count", len(holdings)), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHoldings completed", slog.String("rqID", rqID))
		}
	}()

	for _, holding := range holdings {
		_, err = r.txOrDb(ctx).ExecContext(ctx, query, accountID, holding.Ticker, holding.Quantity, holding.AvgCost, holding.AvgCost)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Postgres) InsertTransactions(ctx context.Context, accountID int64, transactions []model.GuestTransaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO transactions(account_id, kind, ticker, quantity, price, total, dt_create)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

	slog.Debug("InsertTransactions start", slog.String("rqID", rqID), slog.Int("count", len(transactions)), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertTransactions failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransactions completed", slog.String("rqID", rqID))
		}
	}()

	for _, transaction := range transactions {
		createdAt := transaction.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		_, err = r.txOrDb(ctx).ExecContext(
			ctx,
			query,
			accountID,
			string(transaction.Kind),
			transaction.Ticker,
			transaction.Quantity,
			transaction.Price,
			transaction.Price.Mul(transaction.Quantity),
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *Postgres) GetDistinctHeldTickers(ctx context.Context) (tickers []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT DISTINCT ticker FROM holdings ORDER BY ticker`

	slog.Debug("GetDistinctHeldTickers start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetDistinctHeldTickers failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetDistinctHeldTickers completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &tickers, query)
	if err != nil {
		return nil, err
	}

	return tickers, nil
}
