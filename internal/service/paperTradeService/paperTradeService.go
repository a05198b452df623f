package paperTradeService

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/paper_trade_service/config"
	"github.com/KotFed0t/paper_trade_service/data/repository"
	"github.com/KotFed0t/paper_trade_service/data/session"
	"github.com/KotFed0t/paper_trade_service/internal/converter/dbConverter"
	"github.com/KotFed0t/paper_trade_service/internal/externalApi"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/model/dbModel"
	"github.com/KotFed0t/paper_trade_service/internal/service"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	RegUser(ctx context.Context, externalID string) (userID int64, err error)
	GetUserID(ctx context.Context, externalID string) (userID int64, err error)
	CreateAccount(ctx context.Context, userID int64, cashBalance, initialBalance decimal.Decimal) (accountID int64, err error)
	GetAccountByUser(ctx context.Context, userID int64) (dbModel.Account, error)
	GetAccount(ctx context.Context, accountID int64) (dbModel.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID int64, cashBalance decimal.Decimal) error
	GetHolding(ctx context.Context, accountID int64, ticker string) (dbModel.Holding, error)
	GetHoldings(ctx context.Context, accountID int64) ([]dbModel.Holding, error)
	UpsertHolding(ctx context.Context, holding dbModel.Holding) error
	DeleteHolding(ctx context.Context, accountID int64, ticker string) error
	InsertTransaction(ctx context.Context, accountID int64, transaction model.Transaction) error
	GetTransactions(ctx context.Context, accountID int64) ([]dbModel.Transaction, error)
	InsertHoldings(ctx context.Context, accountID int64, holdings []model.GuestHolding) error
	InsertTransactions(ctx context.Context, accountID int64, transactions []model.GuestTransaction) error
	GetDistinctHeldTickers(ctx context.Context) ([]string, error)
}

type Cache interface {
	GetPortfolioSummary(ctx context.Context, accountID int64) (model.PortfolioSummary, error)
	SetPortfolioSummary(ctx context.Context, accountID int64, summary model.PortfolioSummary) error
	FlushPortfolio(ctx context.Context, accountID int64) error
}

type GuestSession interface {
	GetGuestPortfolio(ctx context.Context, sessionID string) (model.GuestPortfolio, error)
	SetGuestPortfolio(ctx context.Context, sessionID string, portfolio model.GuestPortfolio) error
	DeleteGuestPortfolio(ctx context.Context, sessionID string) error
}

type Quotes interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetSeries(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error)
	SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error)
	GetOverview(ctx context.Context, ticker string) (model.CompanyOverview, error)
	Stats() model.CacheStats
}

type Advisor interface {
	GetRecommendations(ctx context.Context, summary model.PortfolioSummary) ([]model.Recommendation, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, summary model.PortfolioSummary, transactions []model.Transaction, performance []model.PerformancePoint) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type PaperTradeService struct {
	cfg     *config.Config
	repo    Repository
	cache   Cache
	guests  GuestSession
	quotes  Quotes
	advisor Advisor
	reports ReportGenerator
	storage CloudStorage
	locks   *accountLocker
	now     func() time.Time
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	guests GuestSession,
	quotes Quotes,
	advisor Advisor,
	reports ReportGenerator,
	storage CloudStorage,
) *PaperTradeService {
	return &PaperTradeService{
		cfg:     cfg,
		repo:    repo,
		cache:   cache,
		guests:  guests,
		quotes:  quotes,
		advisor: advisor,
		reports: reports,
		storage: storage,
		locks:   newAccountLocker(),
		now:     time.Now,
	}
}

// RegUser registers the owner and opens a fresh ledger with the configured
// starting balance. Idempotent for an already registered owner.
func (s *PaperTradeService) RegUser(ctx context.Context, externalID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.RegUser"

	slog.Debug("RegUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("externalID", externalID))
	defer func() {
		slog.Debug("RegUser finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("externalID", externalID))
	}()

	startBalance, err := decimal.NewFromString(s.cfg.StartBalance)
	if err != nil {
		slog.Error("invalid start balance in config", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		userID, err := s.repo.RegUser(ctx, externalID)
		if err != nil {
			return err
		}

		_, err = s.repo.CreateAccount(ctx, userID, startBalance, startBalance)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil
		}
		slog.Error("got error from repo", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PaperTradeService) getAccount(ctx context.Context, externalID string) (model.Account, error) {
	userID, err := s.repo.GetUserID(ctx, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, service.ErrNotFound
		}
		return model.Account{}, err
	}

	account, err := s.repo.GetAccountByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, service.ErrNotFound
		}
		return model.Account{}, err
	}

	return dbConverter.ConvertAccount(account), nil
}

// ExecuteTrade settles a buy or sell against the account ledger at the price
// resolved through the quote cache. The quote lookup is the only blocking
// point, the balance/holdings/log mutation runs under the per-account lock
// and a single database transaction.
func (s *PaperTradeService) ExecuteTrade(ctx context.Context, externalID, ticker string, quantity decimal.Decimal, kind model.TradeKind) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.ExecuteTrade"

	slog.Debug("ExecuteTrade start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("kind", string(kind)))
	defer func() {
		slog.Debug("ExecuteTrade finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	if !kind.Valid() || !quantity.IsPositive() {
		return model.TradeResult{}, service.ErrInvalidOrder
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return model.TradeResult{}, service.ErrInvalidOrder
	}

	account, err := s.getAccount(ctx, externalID)
	if err != nil {
		return model.TradeResult{}, err
	}

	quote, err := s.quotes.GetQuote(ctx, ticker)
	if err != nil {
		slog.Warn("can't resolve execution price", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return model.TradeResult{}, service.ErrQuoteUnavailable
	}

	unlock := s.locks.lock(account.AccountID)
	defer unlock()

	result := model.TradeResult{
		Ticker:    ticker,
		Kind:      kind,
		Quantity:  quantity,
		Price:     quote.Price,
		Total:     quote.Price.Mul(quantity),
		CreatedAt: s.now(),
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		switch kind {
		case model.TradeBuy:
			return s.applyBuy(ctx, account.AccountID, result)
		default:
			return s.applySell(ctx, account.AccountID, result)
		}
	})
	if err != nil {
		if !errors.Is(err, service.ErrInsufficientFunds) && !errors.Is(err, service.ErrInsufficientShares) {
			slog.Error("trade transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return model.TradeResult{}, err
	}

	// синхронно, иначе конкурентный запрос может успеть прочитать старый кэш
	err = s.cache.FlushPortfolio(ctx, account.AccountID)
	if err != nil {
		slog.Error("got error from cache.FlushPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return result, nil
}

func (s *PaperTradeService) applyBuy(ctx context.Context, accountID int64, trade model.TradeResult) error {
	account, err := s.repo.GetAccount(ctx, accountID) // re-read inside the tx
	if err != nil {
		return err
	}

	if account.CashBalance.LessThan(trade.Total) {
		return service.ErrInsufficientFunds
	}

	holding, err := s.repo.GetHolding(ctx, accountID, trade.Ticker)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if errors.Is(err, repository.ErrNotFound) {
		holding = dbModel.Holding{
			AccountID: accountID,
			Ticker:    trade.Ticker,
			Quantity:  trade.Quantity,
			AvgCost:   trade.Price,
		}
	} else {
		// weighted average cost over the merged position
		newQuantity := holding.Quantity.Add(trade.Quantity)
		holding.AvgCost = holding.AvgCost.Mul(holding.Quantity).Add(trade.Price.Mul(trade.Quantity)).Div(newQuantity)
		holding.Quantity = newQuantity
	}
	holding.LastPrice = trade.Price

	if err := s.repo.UpdateAccountBalance(ctx, accountID, account.CashBalance.Sub(trade.Total)); err != nil {
		return err
	}

	if err := s.repo.UpsertHolding(ctx, holding); err != nil {
		return err
	}

	return s.repo.InsertTransaction(ctx, accountID, model.Transaction{
		Kind:      trade.Kind,
		Ticker:    trade.Ticker,
		Quantity:  trade.Quantity,
		Price:     trade.Price,
		Total:     trade.Total,
		CreatedAt: trade.CreatedAt,
	})
}

func (s *PaperTradeService) applySell(ctx context.Context, accountID int64, trade model.TradeResult) error {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	holding, err := s.repo.GetHolding(ctx, accountID, trade.Ticker)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrInsufficientShares
		}
		return err
	}

	if holding.Quantity.LessThan(trade.Quantity) {
		return service.ErrInsufficientShares
	}

	if err := s.repo.UpdateAccountBalance(ctx, accountID, account.CashBalance.Add(trade.Total)); err != nil {
		return err
	}

	remaining := holding.Quantity.Sub(trade.Quantity)
	if remaining.IsZero() {
		if err := s.repo.DeleteHolding(ctx, accountID, trade.Ticker); err != nil {
			return err
		}
	} else {
		// avg cost of the remainder is untouched on disposal
		holding.Quantity = remaining
		holding.LastPrice = trade.Price
		if err := s.repo.UpsertHolding(ctx, holding); err != nil {
			return err
		}
	}

	return s.repo.InsertTransaction(ctx, accountID, model.Transaction{
		Kind:      trade.Kind,
		Ticker:    trade.Ticker,
		Quantity:  trade.Quantity,
		Price:     trade.Price,
		Total:     trade.Total,
		CreatedAt: trade.CreatedAt,
	})
}

// SaveGuestPortfolio stores the state a guest accumulated client-side so it
// can later be migrated into a real ledger. The snapshot is trusted as-is
// apart from basic consistency checks.
func (s *PaperTradeService) SaveGuestPortfolio(ctx context.Context, sessionID string, portfolio model.GuestPortfolio) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.SaveGuestPortfolio"

	if sessionID == "" || portfolio.CashBalance.IsNegative() || !portfolio.InitialBalance.IsPositive() {
		return service.ErrInvalidOrder
	}
	for _, holding := range portfolio.Holdings {
		if holding.Ticker == "" || !holding.Quantity.IsPositive() || holding.AvgCost.IsNegative() {
			return service.ErrInvalidOrder
		}
	}

	if err := s.guests.SetGuestPortfolio(ctx, sessionID, portfolio); err != nil {
		slog.Error("got error from guests.SetGuestPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// MigratePortfolio turns a guest session portfolio into a real ledger as a
// single all-or-nothing unit. Holdings and transactions are inserted verbatim,
// no price lookups happen here.
func (s *PaperTradeService) MigratePortfolio(ctx context.Context, externalID, sessionID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.MigratePortfolio"

	slog.Debug("MigratePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("externalID", externalID))
	defer func() {
		slog.Debug("MigratePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("externalID", externalID))
	}()

	guestPortfolio, err := s.guests.GetGuestPortfolio(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from guests.GetGuestPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		userID, err := s.repo.RegUser(ctx, externalID)
		if errors.Is(err, repository.ErrAlreadyExists) {
			userID, err = s.repo.GetUserID(ctx, externalID)
		}
		if err != nil {
			return err
		}

		accountID, err := s.repo.CreateAccount(ctx, userID, guestPortfolio.CashBalance, guestPortfolio.InitialBalance)
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return service.ErrMigrationConflict
			}
			return err
		}

		if err := s.repo.InsertHoldings(ctx, accountID, guestPortfolio.Holdings); err != nil {
			return err
		}

		return s.repo.InsertTransactions(ctx, accountID, guestPortfolio.Transactions)
	})
	if err != nil {
		if !errors.Is(err, service.ErrMigrationConflict) {
			slog.Error("migration transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return err
	}

	if err := s.guests.DeleteGuestPortfolio(ctx, sessionID); err != nil {
		slog.Error("got error from guests.DeleteGuestPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

func (s *PaperTradeService) GetPortfolioSummary(ctx context.Context, externalID string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.GetPortfolioSummary"

	slog.Debug("GetPortfolioSummary start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolioSummary finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	account, err := s.getAccount(ctx, externalID)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	summary, err := s.cache.GetPortfolioSummary(ctx, account.AccountID)
	if err == nil {
		return summary, nil
	}

	holdings, err := s.repo.GetHoldings(ctx, account.AccountID)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	summary = model.PortfolioSummary{
		CashBalance:    account.CashBalance,
		InitialBalance: account.InitialBalance,
		Holdings:       make([]model.HoldingInfo, 0, len(holdings)),
	}

	for _, dbHolding := range holdings {
		holding := dbConverter.ConvertHolding(dbHolding)

		price := holding.LastPrice
		quote, err := s.quotes.GetQuote(ctx, holding.Ticker)
		if err != nil {
			// valuation degrades to the last observed price
			slog.Warn("can't refresh quote for holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", holding.Ticker), slog.String("err", err.Error()))
		} else {
			price = quote.Price
		}

		totalPrice := price.Mul(holding.Quantity)
		summary.Holdings = append(summary.Holdings, model.HoldingInfo{
			Ticker:     holding.Ticker,
			Quantity:   holding.Quantity,
			AvgCost:    holding.AvgCost,
			Price:      price,
			TotalPrice: totalPrice,
			ProfitLoss: price.Sub(holding.AvgCost).Mul(holding.Quantity),
		})
		summary.HoldingsValue = summary.HoldingsValue.Add(totalPrice)
	}

	summary.TotalValue = summary.CashBalance.Add(summary.HoldingsValue)
	summary.ProfitLoss = summary.TotalValue.Sub(summary.InitialBalance)

	go s.cache.SetPortfolioSummary(context.WithoutCancel(ctx), account.AccountID, summary)

	return summary, nil
}

func (s *PaperTradeService) mapQuoteErr(err error) error {
	switch {
	case errors.Is(err, externalApi.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, externalApi.ErrRateLimited):
		return service.ErrRateLimited
	default:
		return service.ErrQuoteUnavailable
	}
}

func (s *PaperTradeService) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	quote, err := s.quotes.GetQuote(ctx, strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return model.Quote{}, s.mapQuoteErr(err)
	}
	return quote, nil
}

func (s *PaperTradeService) SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	matches, err := s.quotes.SearchSymbol(ctx, keywords)
	if err != nil {
		return nil, s.mapQuoteErr(err)
	}
	return matches, nil
}

func (s *PaperTradeService) GetCompanyOverview(ctx context.Context, ticker string) (model.CompanyOverview, error) {
	overview, err := s.quotes.GetOverview(ctx, strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return model.CompanyOverview{}, s.mapQuoteErr(err)
	}
	return overview, nil
}

func (s *PaperTradeService) GetHistory(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error) {
	candles, err := s.quotes.GetSeries(ctx, strings.ToUpper(strings.TrimSpace(ticker)), resolution)
	if err != nil {
		return nil, s.mapQuoteErr(err)
	}
	return candles, nil
}

func (s *PaperTradeService) GetCacheStats(ctx context.Context) model.CacheStats {
	return s.quotes.Stats()
}

// RefreshHeldQuotes warms the quote cache for every ticker held by any
// account. Runs as a scheduler job, individual failures only get logged.
func (s *PaperTradeService) RefreshHeldQuotes(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PaperTradeService.RefreshHeldQuotes"

	tickers, err := s.repo.GetDistinctHeldTickers(ctx)
	if err != nil {
		slog.Error("got error from repo.GetDistinctHeldTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, ticker := range tickers {
		if _, err := s.quotes.GetQuote(ctx, ticker); err != nil {
			slog.Warn("can't refresh quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		}
	}

	return nil
}
