package alphaModel

// Raw Alpha Vantage payloads. The API reports quota exhaustion inside a 200
// response via Note/Information fields, and invalid requests via Error Message.

type RawQuoteResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	Note         string            `json:"Note"`
	Information  string            `json:"Information"`
	ErrorMessage string            `json:"Error Message"`
}

type RawSearchResponse struct {
	BestMatches  []map[string]string `json:"bestMatches"`
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
	ErrorMessage string              `json:"Error Message"`
}

type RawOverviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Description          string `json:"Description"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	DividendYield        string `json:"DividendYield"`
	Note                 string `json:"Note"`
	Information          string `json:"Information"`
	ErrorMessage         string `json:"Error Message"`
}

// RawSeriesEnvelope covers the TIME_SERIES_* responses. The key holding the
// series itself differs per resolution ("Time Series (Daily)", "Weekly Time
// Series", "Monthly Time Series"), so it is extracted separately.
type RawSeriesEnvelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}
