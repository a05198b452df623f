package paperTradeService

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/KotFed0t/paper_trade_service/config"
	"github.com/KotFed0t/paper_trade_service/data/repository"
	"github.com/KotFed0t/paper_trade_service/data/session"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

// fakeRepo keeps the whole ledger in memory. WithinTransaction snapshots the
// state and restores it when the callback errors, matching the rollback
// behavior of the real postgres repo.
type fakeRepo struct {
	mu            sync.Mutex
	nextUserID    int64
	nextAccountID int64
	nextTxID      int64
	users         map[string]int64
	accounts      map[int64]dbModel.Account
	accountByUser map[int64]int64
	holdings      map[int64]map[string]dbModel.Holding
	transactions  map[int64][]dbModel.Transaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:         make(map[string]int64),
		accounts:      make(map[int64]dbModel.Account),
		accountByUser: make(map[int64]int64),
		holdings:      make(map[int64]map[string]dbModel.Holding),
		transactions:  make(map[int64][]dbModel.Transaction),
	}
}

func (r *fakeRepo) snapshot() *fakeRepo {
	clone := newFakeRepo()
	clone.nextUserID = r.nextUserID
	clone.nextAccountID = r.nextAccountID
	clone.nextTxID = r.nextTxID
	for k, v := range r.users {
		clone.users[k] = v
	}
	for k, v := range r.accounts {
		clone.accounts[k] = v
	}
	for k, v := range r.accountByUser {
		clone.accountByUser[k] = v
	}
	for accountID, holdings := range r.holdings {
		m := make(map[string]dbModel.Holding, len(holdings))
		for ticker, holding := range holdings {
			m[ticker] = holding
		}
		clone.holdings[accountID] = m
	}
	for accountID, transactions := range r.transactions {
		clone.transactions[accountID] = append([]dbModel.Transaction(nil), transactions...)
	}
	return clone
}

func (r *fakeRepo) restore(snap *fakeRepo) {
	r.nextUserID = snap.nextUserID
	r.nextAccountID = snap.nextAccountID
	r.nextTxID = snap.nextTxID
	r.users = snap.users
	r.accounts = snap.accounts
	r.accountByUser = snap.accountByUser
	r.holdings = snap.holdings
	r.transactions = snap.transactions
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	r.mu.Lock()
	snap := r.snapshot()
	r.mu.Unlock()

	if err := tFunc(ctx); err != nil {
		r.mu.Lock()
		r.restore(snap)
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeRepo) RegUser(ctx context.Context, externalID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[externalID]; ok {
		return 0, repository.ErrAlreadyExists
	}
	r.nextUserID++
	r.users[externalID] = r.nextUserID
	return r.nextUserID, nil
}

func (r *fakeRepo) GetUserID(ctx context.Context, externalID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.users[externalID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return userID, nil
}

func (r *fakeRepo) CreateAccount(ctx context.Context, userID int64, cashBalance, initialBalance decimal.Decimal) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accountByUser[userID]; ok {
		return 0, repository.ErrAlreadyExists
	}
	r.nextAccountID++
	r.accounts[r.nextAccountID] = dbModel.Account{
		AccountID:      r.nextAccountID,
		UserID:         userID,
		CashBalance:    cashBalance,
		InitialBalance: initialBalance,
		CreatedAt:      time.Now(),
	}
	r.accountByUser[userID] = r.nextAccountID
	return r.nextAccountID, nil
}

func (r *fakeRepo) GetAccountByUser(ctx context.Context, userID int64) (dbModel.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	accountID, ok := r.accountByUser[userID]
	if !ok {
		return dbModel.Account{}, repository.ErrNotFound
	}
	return r.accounts[accountID], nil
}

func (r *fakeRepo) GetAccount(ctx context.Context, accountID int64) (dbModel.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return dbModel.Account{}, repository.ErrNotFound
	}
	return account, nil
}

func (r *fakeRepo) UpdateAccountBalance(ctx context.Context, accountID int64, cashBalance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	account.CashBalance = cashBalance
	r.accounts[accountID] = account
	return nil
}

func (r *fakeRepo) GetHolding(ctx context.Context, accountID int64, ticker string) (dbModel.Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	holding, ok := r.holdings[accountID][ticker]
	if !ok {
		return dbModel.Holding{}, repository.ErrNotFound
	}
	return holding, nil
}

func (r *fakeRepo) GetHoldings(ctx context.Context, accountID int64) ([]dbModel.Holding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	holdings := make([]dbModel.Holding, 0, len(r.holdings[accountID]))
	for _, holding := range r.holdings[accountID] {
		holdings = append(holdings, holding)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Ticker < holdings[j].Ticker })
	return holdings, nil
}

func (r *fakeRepo) UpsertHolding(ctx context.Context, holding dbModel.Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holdings[holding.AccountID] == nil {
		r.holdings[holding.AccountID] = make(map[string]dbModel.Holding)
	}
	r.holdings[holding.AccountID][holding.Ticker] = holding
	return nil
}

func (r *fakeRepo) DeleteHolding(ctx context.Context, accountID int64, ticker string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.holdings[accountID], ticker)
	return nil
}

func (r *fakeRepo) InsertTransaction(ctx context.Context, accountID int64, transaction model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTxID++
	r.transactions[accountID] = append(r.transactions[accountID], dbModel.Transaction{
		TransactionID: r.nextTxID,
		AccountID:     accountID,
		Kind:          string(transaction.Kind),
		Ticker:        transaction.Ticker,
		Quantity:      transaction.Quantity,
		Price:         transaction.Price,
		Total:         transaction.Total,
		CreatedAt:     transaction.CreatedAt,
	})
	return nil
}

func (r *fakeRepo) GetTransactions(ctx context.Context, accountID int64) ([]dbModel.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dbModel.Transaction(nil), r.transactions[accountID]...), nil
}

func (r *fakeRepo) InsertHoldings(ctx context.Context, accountID int64, holdings []model.GuestHolding) error {
	for _, holding := range holdings {
		err := r.UpsertHolding(ctx, dbModel.Holding{
			AccountID: accountID,
			Ticker:    holding.Ticker,
			Quantity:  holding.Quantity,
			AvgCost:   holding.AvgCost,
			LastPrice: holding.AvgCost,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) InsertTransactions(ctx context.Context, accountID int64, transactions []model.GuestTransaction) error {
	for _, transaction := range transactions {
		createdAt := transaction.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		err := r.InsertTransaction(ctx, accountID, model.Transaction{
			Kind:      transaction.Kind,
			Ticker:    transaction.Ticker,
			Quantity:  transaction.Quantity,
			Price:     transaction.Price,
			Total:     transaction.Price.Mul(transaction.Quantity),
			CreatedAt: createdAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) GetDistinctHeldTickers(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	tickers := make([]string, 0)
	for _, holdings := range r.holdings {
		for ticker := range holdings {
			if _, ok := seen[ticker]; !ok {
				seen[ticker] = struct{}{}
				tickers = append(tickers, ticker)
			}
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	series map[string][]model.Candle
	errs   map[string]error
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		prices: make(map[string]decimal.Decimal),
		series: make(map[string][]model.Candle),
		errs:   make(map[string]error),
	}
}

func (q *fakeQuotes) setPrice(ticker, price string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prices[ticker] = decimal.RequireFromString(price)
}

func (q *fakeQuotes) setErr(ticker string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs[ticker] = err
}

func (q *fakeQuotes) setSeries(ticker string, candles []model.Candle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.series[ticker] = candles
}

func (q *fakeQuotes) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err, ok := q.errs[ticker]; ok {
		return model.Quote{}, err
	}
	price, ok := q.prices[ticker]
	if !ok {
		return model.Quote{}, errors.New("no price configured")
	}
	return model.Quote{Ticker: ticker, Price: price}, nil
}

func (q *fakeQuotes) GetSeries(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err, ok := q.errs[ticker]; ok {
		return nil, err
	}
	candles, ok := q.series[ticker]
	if !ok {
		return nil, errors.New("no series configured")
	}
	return candles, nil
}

func (q *fakeQuotes) SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	return nil, nil
}

func (q *fakeQuotes) GetOverview(ctx context.Context, ticker string) (model.CompanyOverview, error) {
	return model.CompanyOverview{}, nil
}

func (q *fakeQuotes) Stats() model.CacheStats {
	return model.CacheStats{}
}

// fakeCache always misses so summaries are rebuilt from the ledger.
type fakeCache struct{}

func (c *fakeCache) GetPortfolioSummary(ctx context.Context, accountID int64) (model.PortfolioSummary, error) {
	return model.PortfolioSummary{}, errors.New("cache miss")
}

func (c *fakeCache) SetPortfolioSummary(ctx context.Context, accountID int64, summary model.PortfolioSummary) error {
	return nil
}

func (c *fakeCache) FlushPortfolio(ctx context.Context, accountID int64) error {
	return nil
}

type fakeGuests struct {
	mu         sync.Mutex
	portfolios map[string]model.GuestPortfolio
}

func newFakeGuests() *fakeGuests {
	return &fakeGuests{portfolios: make(map[string]model.GuestPortfolio)}
}

func (g *fakeGuests) GetGuestPortfolio(ctx context.Context, sessionID string) (model.GuestPortfolio, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	portfolio, ok := g.portfolios[sessionID]
	if !ok {
		return model.GuestPortfolio{}, session.ErrNotFound
	}
	return portfolio, nil
}

func (g *fakeGuests) SetGuestPortfolio(ctx context.Context, sessionID string, portfolio model.GuestPortfolio) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.portfolios[sessionID] = portfolio
	return nil
}

func (g *fakeGuests) DeleteGuestPortfolio(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.portfolios, sessionID)
	return nil
}

type fakeAdvisor struct {
	recommendations []model.Recommendation
	err             error
}

func (a *fakeAdvisor) GetRecommendations(ctx context.Context, summary model.PortfolioSummary) ([]model.Recommendation, error) {
	return a.recommendations, a.err
}

type fakeReportGenerator struct{}

func (g *fakeReportGenerator) Generate(ctx context.Context, summary model.PortfolioSummary, transactions []model.Transaction, performance []model.PerformancePoint) ([]byte, string, error) {
	return []byte("report"), ".xlsx", nil
}

type fakeCloudStorage struct {
	mu       sync.Mutex
	uploaded []string
}

func (s *fakeCloudStorage) UploadFile(ctx context.Context, reader io.Reader, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, filename)
	return "https://drive.example/" + filename, nil
}

type serviceFixture struct {
	svc     *PaperTradeService
	repo    *fakeRepo
	quotes  *fakeQuotes
	guests  *fakeGuests
	advisor *fakeAdvisor
	storage *fakeCloudStorage
}

func newTestService() *serviceFixture {
	f := &serviceFixture{
		repo:    newFakeRepo(),
		quotes:  newFakeQuotes(),
		guests:  newFakeGuests(),
		advisor: &fakeAdvisor{},
		storage: &fakeCloudStorage{},
	}
	cfg := &config.Config{StartBalance: "100000"}
	f.svc = New(cfg, f.repo, &fakeCache{}, f.guests, f.quotes, f.advisor, &fakeReportGenerator{}, f.storage)
	return f
}
