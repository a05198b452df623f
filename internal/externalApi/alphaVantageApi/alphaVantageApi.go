package alphaVantageApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/KotFed0t/paper_trade_service/config"
	"github.com/KotFed0t/paper_trade_service/internal/externalApi"
	"github.com/KotFed0t/paper_trade_service/internal/model"
	"github.com/KotFed0t/paper_trade_service/internal/model/alphaModel"
	"github.com/KotFed0t/paper_trade_service/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// AlphaVantageApi normalizes Alpha Vantage payloads into the internal schema.
// One attempt per call, no retries - rate limit handling belongs to the caller.
type AlphaVantageApi struct {
	client *resty.Client
	apiKey string
}

func New(cfg *config.Config) *AlphaVantageApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AlphaVantage.Url)
	return &AlphaVantageApi{client: client, apiKey: cfg.API.AlphaVantage.ApiKey}
}

func (a *AlphaVantageApi) get(ctx context.Context, params map[string]string) ([]byte, error) {
	params["apikey"] = a.apiKey

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get("/query")

	if err != nil {
		return nil, fmt.Errorf("%w: %s", externalApi.ErrUpstream, err)
	}

	if resp.StatusCode() == 429 {
		return nil, externalApi.ErrRateLimited
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", externalApi.ErrUpstream, resp.StatusCode())
	}

	return resp.Body(), nil
}

// checkServiceNotes maps in-band quota signals to ErrRateLimited.
func checkServiceNotes(note, information, errorMessage string) error {
	if note != "" || information != "" {
		return externalApi.ErrRateLimited
	}
	if errorMessage != "" {
		return externalApi.ErrNotFound
	}
	return nil
}

func (a *AlphaVantageApi) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	params := map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   ticker,
	}

	slog.Debug("start AlphaVantageApi.GetQuote request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	body, err := a.get(ctx, params)
	if err != nil {
		slog.Error("error while dialing AlphaVantageApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	rawQuote := alphaModel.RawQuoteResponse{}
	err = json.Unmarshal(body, &rawQuote)
	if err != nil {
		slog.Error("can't unmarshall response into alphaModel.RawQuoteResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, fmt.Errorf("%w: %s", externalApi.ErrUpstream, err)
	}

	if err = checkServiceNotes(rawQuote.Note, rawQuote.Information, rawQuote.ErrorMessage); err != nil {
		return model.Quote{}, err
	}

	res, err := a.parseRawQuote(rawQuote)
	if err != nil {
		slog.Error("can't parse raw quote", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	slog.Debug("AlphaVantageApi.GetQuote request complete", slog.String("rqID", rqID))

	return res, nil
}

func (a *AlphaVantageApi) parseRawQuote(rawQuote alphaModel.RawQuoteResponse) (model.Quote, error) {
	gq := rawQuote.GlobalQuote
	if len(gq) == 0 {
		return model.Quote{}, externalApi.ErrNotFound
	}

	quote := model.Quote{
		Ticker:     gq["01. symbol"],
		TradingDay: gq["07. latest trading day"],
	}

	price, err := decimal.NewFromString(gq["05. price"])
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: failed create decimal from price value = %s: %s", externalApi.ErrUpstream, gq["05. price"], err)
	}
	quote.Price = price

	if v := gq["09. change"]; v != "" {
		change, err := decimal.NewFromString(v)
		if err != nil {
			return model.Quote{}, fmt.Errorf("%w: failed create decimal from change value = %s: %s", externalApi.ErrUpstream, v, err)
		}
		quote.Change = change
	}

	if v := strings.TrimSuffix(gq["10. change percent"], "%"); v != "" {
		changePct, err := decimal.NewFromString(v)
		if err != nil {
			return model.Quote{}, fmt.Errorf("%w: failed create decimal from change percent value = %s: %s", externalApi.ErrUpstream, v, err)
		}
		quote.ChangePct = changePct
	}

	if v := gq["06. volume"]; v != "" {
		volume, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return model.Quote{}, fmt.Errorf("%w: failed parse volume value = %s: %s", externalApi.ErrUpstream, v, err)
		}
		quote.Volume = volume
	}

	return quote, nil
}

func (a *AlphaVantageApi) SearchSymbol(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	params := map[string]string{
		"function": "SYMBOL_SEARCH",
		"keywords": keywords,
	}

	slog.Debug("start AlphaVantageApi.SearchSymbol request", slog.String("rqID", rqID), slog.String("keywords", keywords))

	body, err := a.get(ctx, params)
	if err != nil {
		slog.Error("error while dialing AlphaVantageApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	rawSearch := alphaModel.RawSearchResponse{}
	err = json.Unmarshal(body, &rawSearch)
	if err != nil {
		slog.Error("can't unmarshall response into alphaModel.RawSearchResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("%w: %s", externalApi.ErrUpstream, err)
	}

	if err = checkServiceNotes(rawSearch.Note, rawSearch.Information, rawSearch.ErrorMessage); err != nil {
		return nil, err
	}

	matches := make([]model.SymbolMatch, 0, len(rawSearch.BestMatches))
	for _, m := range rawSearch.BestMatches {
		matches = append(matches, model.SymbolMatch{
			Ticker:     m["1. symbol"],
			Name:       m["2. name"],
			Type:       m["3. type"],
			Region:     m["4. region"],
			Currency:   m["8. currency"],
			MatchScore: m["9. matchScore"],
		})
	}

	slog.Debug("AlphaVantageApi.SearchSymbol request complete", slog.String("rqID", rqID), slog.Int("matches", len(matches)))

	return matches, nil
}

func (a *AlphaVantageApi) GetOverview(ctx context.Context, ticker string) (model.CompanyOverview, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	params := map[string]string{
		"function": "OVERVIEW",
		"symbol":   ticker,
	}

	slog.Debug("start AlphaVantageApi.GetOverview request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	body, err := a.get(ctx, params)
	if err != nil {
		slog.Error("error while dialing AlphaVantageApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.CompanyOverview{}, err
	}

	rawOverview := alphaModel.RawOverviewResponse{}
	err = json.Unmarshal(body, &rawOverview)
	if err != nil {
		slog.Error("can't unmarshall response into alphaModel.RawOverviewResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.CompanyOverview{}, fmt.Errorf("%w: %s", externalApi.ErrUpstream, err)
	}

	if err = checkServiceNotes(rawOverview.Note, rawOverview.Information, rawOverview.ErrorMessage); err != nil {
		return model.CompanyOverview{}, err
	}

	// OVERVIEW returns an empty object for unknown tickers.
	if rawOverview.Symbol == "" {
		return model.CompanyOverview{}, externalApi.ErrNotFound
	}

	slog.Debug("AlphaVantageApi.GetOverview request complete", slog.String("rqID", rqID))

	return model.CompanyOverview{
		Ticker:        rawOverview.Symbol,
		Name:          rawOverview.Name,
		Description:   rawOverview.Description,
		Sector:        rawOverview.Sector,
		Industry:      rawOverview.Industry,
		MarketCap:     rawOverview.MarketCapitalization,
		PERatio:       rawOverview.PERatio,
		DividendYield: rawOverview.DividendYield,
	}, nil
}

var seriesRequests = map[model.Resolution]struct {
	function  string
	seriesKey string
}{
	model.ResolutionDaily:   {"TIME_SERIES_DAILY", "Time Series (Daily)"},
	model.ResolutionWeekly:  {"TIME_SERIES_WEEKLY", "Weekly Time Series"},
	model.ResolutionMonthly: {"TIME_SERIES_MONTHLY", "Monthly Time Series"},
}

func (a *AlphaVantageApi) GetSeries(ctx context.Context, ticker string, resolution model.Resolution) ([]model.Candle, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	req, ok := seriesRequests[resolution]
	if !ok {
		return nil, fmt.Errorf("unknown resolution %q", resolution)
	}

	params := map[string]string{
		"function":   req.function,
		"symbol":     ticker,
		"outputsize": "full",
	}

	slog.Debug("start AlphaVantageApi.GetSeries request", slog.String("rqID", rqID), slog.String("ticker", ticker), slog.String("resolution", string(resolution)))

	body, err := a.get(ctx, params)
	if err != nil {
		slog.Error("error while dialing AlphaVantageApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	envelope := alphaModel.RawSeriesEnvelope{}
	err = json.Unmarshal(body, &envelope)
	if err != nil {
		slog.Error("can't unmarshall response into alphaModel.RawSeriesEnvelope", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("%w: %s", externalApi.ErrUpstream, err)
	}

	if err = checkServiceNotes(envelope.Note, envelope.Information, envelope.ErrorMessage); err != nil {
		return nil, err
	}

	rawFields := map[string]json.RawMessage{}
	if err = json.Unmarshal(body, &rawFields); err != nil {
		return nil, fmt.Errorf("%w: %s", externalApi.ErrUpstream, err)
	}

	seriesRaw, ok := rawFields[req.seriesKey]
	if !ok {
		return nil, externalApi.ErrNotFound
	}

	timeSeries := map[string]map[string]string{}
	if err = json.Unmarshal(seriesRaw, &timeSeries); err != nil {
		slog.Error("can't unmarshall time series", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("%w: %s", externalApi.ErrUpstream, err)
	}

	if len(timeSeries) == 0 {
		return nil, externalApi.ErrNotFound
	}

	candles, err := a.parseRawSeries(timeSeries)
	if err != nil {
		slog.Error("can't parse raw series", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("AlphaVantageApi.GetSeries request complete", slog.String("rqID", rqID), slog.Int("candles", len(candles)))

	return candles, nil
}

func (a *AlphaVantageApi) parseRawSeries(timeSeries map[string]map[string]string) ([]model.Candle, error) {
	candles := make([]model.Candle, 0, len(timeSeries))

	for date, fields := range timeSeries {
		candle := model.Candle{Date: date}

		for key, dst := range map[string]*decimal.Decimal{
			"1. open":  &candle.Open,
			"2. high":  &candle.High,
			"3. low":   &candle.Low,
			"4. close": &candle.Close,
		} {
			d, err := decimal.NewFromString(fields[key])
			if err != nil {
				return nil, fmt.Errorf("%w: failed create decimal from %s value = %s on %s: %s", externalApi.ErrUpstream, key, fields[key], date, err)
			}
			*dst = d
		}

		if v := fields["5. volume"]; v != "" {
			volume, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: failed parse volume value = %s on %s: %s", externalApi.ErrUpstream, v, date, err)
			}
			candle.Volume = volume
		}

		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Date < candles[j].Date })

	return candles, nil
}
