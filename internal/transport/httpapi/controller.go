package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/service"
	"github.com/KotFed0t/paper_trade_service/internal/transport/httpapi/middleware"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/shopspring/decimal"
)

const userHeader = "X-User-ID"

type Service interface {
	RegUser(ctx context.Context, externalID string) error
	ExecuteTrade(ctx context.Context, externalID, ticker string, quantity decimal.Decimal, kind model.TradeKind) (model.TradeResult, error)
	SaveGuestPortfolio(ctx context.Context, sessionID string, portfolio model.GuestPortfolio) error
	MigratePortfolio(ctx context.Context, externalID, sessionID string) error
	GetPortfolioSummary(ctx context.Context, externalID string) (model.PortfolioSummary, error)
	GetPerformance(ctx context.Context, externalID string) ([]model.PerformancePoint, error)
	GetAdviceTargets(ctx context.Context, externalID string) ([]model.AdviceTarget, error)
	GeneratePortfolioReport(ctx context.Context, externalID string) (string, error)
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error)
	GetCompanyOverview(ctx context.Context, ticker string) (model.CompanyOverview, error)
	GetHistory(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error)
	GetCacheStats(ctx context.Context) model.CacheStats
}

type Controller struct {
	service Service
}

func New(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/users", c.register)
	mux.HandleFunc("POST /api/v1/trades", c.executeTrade)
	mux.HandleFunc("GET /api/v1/portfolio", c.portfolioSummary)
	mux.HandleFunc("GET /api/v1/portfolio/performance", c.performance)
	mux.HandleFunc("GET /api/v1/portfolio/advice", c.advice)
	mux.HandleFunc("POST /api/v1/portfolio/report", c.report)
	mux.HandleFunc("POST /api/v1/portfolio/migrate", c.migrate)
	mux.HandleFunc("PUT /api/v1/guest/{sessionId}", c.saveGuestPortfolio)
	mux.HandleFunc("GET /api/v1/quotes/{ticker}", c.quote)
	mux.HandleFunc("GET /api/v1/quotes/{ticker}/overview", c.overview)
	mux.HandleFunc("GET /api/v1/quotes/{ticker}/history", c.history)
	mux.HandleFunc("GET /api/v1/symbols", c.searchSymbols)
	mux.HandleFunc("GET /api/v1/cache/stats", c.cacheStats)

	return middleware.Logger(middleware.Recover(mux))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("can't encode response", slog.String("err", err.Error()))
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (c *Controller) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		httpError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidOrder):
		httpError(w, http.StatusBadRequest, "invalid order")
	case errors.Is(err, service.ErrInsufficientFunds):
		httpError(w, http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, service.ErrInsufficientShares):
		httpError(w, http.StatusUnprocessableEntity, "insufficient shares")
	case errors.Is(err, service.ErrMigrationConflict):
		httpError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, service.ErrRateLimited):
		httpError(w, http.StatusTooManyRequests, "market data provider rate limit")
	case errors.Is(err, service.ErrQuoteUnavailable):
		httpError(w, http.StatusBadGateway, "quote unavailable")
	case errors.Is(err, service.ErrHistoryUnavailable):
		httpError(w, http.StatusBadGateway, "history unavailable")
	default:
		slog.Error("internal error", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		httpError(w, http.StatusInternalServerError, "internal error")
	}
}

// externalID identifies the account owner. Upstream auth is expected to fill
// the header, the service itself does not verify identity.
func externalID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userHeader)
	if id == "" {
		httpError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
		return "", false
	}
	return id, true
}

func (c *Controller) register(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	if err := c.service.RegUser(r.Context(), id); err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (c *Controller) executeTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	defer r.Body.Close()
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	result, err := c.service.ExecuteTrade(r.Context(), id, req.Ticker, quantity, model.TradeKind(req.Kind))
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertTradeResult(result))
}

func (c *Controller) portfolioSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	summary, err := c.service.GetPortfolioSummary(r.Context(), id)
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertSummary(summary))
}

func (c *Controller) performance(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	points, err := c.service.GetPerformance(r.Context(), id)
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertPerformance(points))
}

func (c *Controller) advice(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	targets, err := c.service.GetAdviceTargets(r.Context(), id)
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertAdviceTargets(targets))
}

func (c *Controller) report(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	downloadLink, err := c.service.GeneratePortfolioReport(r.Context(), id)
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{DownloadLink: downloadLink})
}

func (c *Controller) migrate(w http.ResponseWriter, r *http.Request) {
	id, ok := externalID(w, r)
	if !ok {
		return
	}

	defer r.Body.Close()
	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if req.SessionID == "" {
		httpError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	if err := c.service.MigratePortfolio(r.Context(), id, req.SessionID); err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

func (c *Controller) saveGuestPortfolio(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var portfolio model.GuestPortfolio
	if err := json.NewDecoder(r.Body).Decode(&portfolio); err != nil {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	if err := c.service.SaveGuestPortfolio(r.Context(), r.PathValue("sessionId"), portfolio); err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (c *Controller) quote(w http.ResponseWriter, r *http.Request) {
	quote, err := c.service.GetQuote(r.Context(), r.PathValue("ticker"))
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertQuote(quote))
}

func (c *Controller) overview(w http.ResponseWriter, r *http.Request) {
	overview, err := c.service.GetCompanyOverview(r.Context(), r.PathValue("ticker"))
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertOverview(overview))
}

func (c *Controller) history(w http.ResponseWriter, r *http.Request) {
	resolution := model.Resolution(r.URL.Query().Get("resolution"))
	if resolution == "" {
		resolution = model.ResolutionDaily
	}
	switch resolution {
	case model.ResolutionDaily, model.ResolutionWeekly, model.ResolutionMonthly:
	default:
		httpError(w, http.StatusBadRequest, "invalid resolution")
		return
	}

	candles, err := c.service.GetHistory(r.Context(), r.PathValue("ticker"), resolution)
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertCandles(candles))
}

func (c *Controller) searchSymbols(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		httpError(w, http.StatusBadRequest, "query is required")
		return
	}

	matches, err := c.service.SearchSymbol(r.Context(), query)
	if err != nil {
		c.serviceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, convertMatches(matches))
}

func (c *Controller) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, convertCacheStats(c.service.GetCacheStats(r.Context())))
}
