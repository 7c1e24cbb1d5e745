package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chronos-quant/internal/api"
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource reads the public Yahoo Finance chart API.
type YahooSource struct {
	client    *api.Client
	baseURL   string
	retry     *api.RetryConfig
	SymbolMap map[string]string
}

var _ interfaces.CandleSource = (*YahooSource)(nil)

// NewYahooSource builds a source around an api client. baseURL may be empty.
func NewYahooSource(client *api.Client, baseURL string, retry *api.RetryConfig) *YahooSource {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
		SymbolMap: map[string]string{
			"NIFTY":     "^NSEI",
			"NIFTY50":   "^NSEI",
			"BANKNIFTY": "^NSEBANK",
			"SENSEX":    "^BSESN",
		},
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

// yahooSymbol maps index aliases and appends the exchange suffix to bare
// Indian tickers (INFY -> INFY.NS).
func (y *YahooSource) yahooSymbol(symbol, exchange string) string {
	if mapped, ok := y.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	if strings.ContainsAny(symbol, ".^=") {
		return symbol
	}
	switch strings.ToUpper(exchange) {
	case "NSE":
		return symbol + ".NS"
	case "BSE":
		return symbol + ".BO"
	}
	return symbol
}

// yahooChart is the response structure of /v8/finance/chart. Quote arrays
// hold nulls for halted bars, hence []any.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []any `json:"open"`
					High   []any `json:"high"`
					Low    []any `json:"low"`
					Close  []any `json:"close"`
					Volume []any `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(vs []any, i int) (float64, bool) {
	if i >= len(vs) || vs[i] == nil {
		return 0, false
	}
	switch n := vs[i].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (y *YahooSource) Candles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		y.baseURL,
		url.PathEscape(y.yahooSymbol(req.Symbol, req.Exchange)),
		url.QueryEscape(req.Interval),
		url.QueryEscape(resolvePeriod(req)))

	r := api.NewRequest(http.MethodGet, u).WithContext(ctx)
	for k, v := range api.YahooFinanceHeaders() {
		r.WithHeader(k, v)
	}
	resp, err := y.client.DoWithRetry(r, y.retry)
	if err != nil {
		return nil, noData(y.Name(), req, "request failed", err)
	}

	var chart yahooChart
	if err := resp.ParseJSON(&chart); err != nil {
		return nil, noData(y.Name(), req, "decode", err)
	}
	if chart.Chart.Error != nil {
		return nil, noData(y.Name(), req, chart.Chart.Error.Description, nil)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, noData(y.Name(), req, "empty result", nil)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]types.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := toFloat(quote.Open, i)
		h, ok2 := toFloat(quote.High, i)
		l, ok3 := toFloat(quote.Low, i)
		c, ok4 := toFloat(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // null bar
		}
		v, _ := toFloat(quote.Volume, i)
		bars = append(bars, types.Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}

	bars = Normalize(bars)
	if len(bars) == 0 {
		return nil, noData(y.Name(), req, "all rows null", nil)
	}
	return bars, nil
}
