package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	tradeResult model.TradeResult
	tradeErr    error
	quote       model.Quote
	quoteErr    error
}

func (s *stubService) RegUser(ctx context.Context, externalID string) error { return nil }

func (s *stubService) ExecuteTrade(ctx context.Context, externalID, ticker string, quantity decimal.Decimal, kind model.TradeKind) (model.TradeResult, error) {
	return s.tradeResult, s.tradeErr
}

func (s *stubService) SaveGuestPortfolio(ctx context.Context, sessionID string, portfolio model.GuestPortfolio) error {
	return nil
}

func (s *stubService) MigratePortfolio(ctx context.Context, externalID, sessionID string) error {
	return nil
}

func (s *stubService) GetPortfolioSummary(ctx context.Context, externalID string) (model.PortfolioSummary, error) {
	return model.PortfolioSummary{}, nil
}

func (s *stubService) GetPerformance(ctx context.Context, externalID string) ([]model.PerformancePoint, error) {
	return nil, nil
}

func (s *stubService) GetAdviceTargets(ctx context.Context, externalID string) ([]model.AdviceTarget, error) {
	return nil, nil
}

func (s *stubService) GeneratePortfolioReport(ctx context.Context, externalID string) (string, error) {
	return "https://drive.google.com/file/d/abc/view", nil
}

func (s *stubService) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	return s.quote, s.quoteErr
}

func (s *stubService) SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	return nil, nil
}

func (s *stubService) GetCompanyOverview(ctx context.Context, ticker string) (model.CompanyOverview, error) {
	return model.CompanyOverview{}, nil
}

func (s *stubService) GetHistory(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error) {
	return nil, nil
}

func (s *stubService) GetCacheStats(ctx context.Context) model.CacheStats {
	return model.CacheStats{Entries: 3}
}

func doRequest(t *testing.T, svc Service, method, target, body string, withUser bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, target, reader)
	if withUser {
		req.Header.Set("X-User-ID", "user1")
	}

	rec := httptest.NewRecorder()
	New(svc).Routes().ServeHTTP(rec, req)
	return rec
}

func TestExecuteTradeEndpoint(t *testing.T) {
	svc := &stubService{
		tradeResult: model.TradeResult{
			Ticker:   "AAPL",
			Kind:     model.TradeBuy,
			Quantity: decimal.RequireFromString("10"),
			Price:    decimal.RequireFromString("150"),
			Total:    decimal.RequireFromString("1500"),
		},
	}

	rec := doRequest(t, svc, http.MethodPost, "/api/v1/trades", `{"ticker":"AAPL","quantity":"10","kind":"buy"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp.Ticker)
	assert.Equal(t, "buy", resp.Kind)
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("1500")))
}

func TestExecuteTradeRequiresUserHeader(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodPost, "/api/v1/trades", `{"ticker":"AAPL","quantity":"10","kind":"buy"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExecuteTradeInvalidQuantity(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodPost, "/api/v1/trades", `{"ticker":"AAPL","quantity":"ten","kind":"buy"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "insufficient funds", err: service.ErrInsufficientFunds, status: http.StatusUnprocessableEntity},
		{name: "insufficient shares", err: service.ErrInsufficientShares, status: http.StatusUnprocessableEntity},
		{name: "invalid order", err: service.ErrInvalidOrder, status: http.StatusBadRequest},
		{name: "not found", err: service.ErrNotFound, status: http.StatusNotFound},
		{name: "quote unavailable", err: service.ErrQuoteUnavailable, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{tradeErr: tt.err}
			rec := doRequest(t, svc, http.MethodPost, "/api/v1/trades", `{"ticker":"AAPL","quantity":"1","kind":"buy"}`, true)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestQuoteEndpointRateLimited(t *testing.T) {
	svc := &stubService{quoteErr: service.ErrRateLimited}
	rec := doRequest(t, svc, http.MethodGet, "/api/v1/quotes/AAPL", "", false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHistoryEndpointRejectsUnknownResolution(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet, "/api/v1/quotes/AAPL/history?resolution=hourly", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	rec := doRequest(t, &stubService{}, http.MethodGet, "/api/v1/cache/stats", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
