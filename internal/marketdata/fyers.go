package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chronos-quant/internal/api"
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

const defaultFyersBaseURL = "https://api-t1.fyers.in/data"

// FyersSource reads the Fyers v3 history endpoint. Credentials come from the
// environment; this package never performs the login flow.
type FyersSource struct {
	client      *api.Client
	baseURL     string
	retry       *api.RetryConfig
	clientID    string
	accessToken string
	now         func() time.Time
}

var _ interfaces.CandleSource = (*FyersSource)(nil)

func NewFyersSource(client *api.Client, baseURL, clientID, accessToken string, retry *api.RetryConfig) *FyersSource {
	if baseURL == "" {
		baseURL = defaultFyersBaseURL
	}
	return &FyersSource{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		retry:       retry,
		clientID:    clientID,
		accessToken: accessToken,
		now:         time.Now,
	}
}

func (f *FyersSource) Name() string { return "fyers" }

var fyersResolutions = map[string]string{
	"1m":  "1",
	"2m":  "2",
	"3m":  "3",
	"5m":  "5",
	"10m": "10",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"2h":  "120",
	"4h":  "240",
	"1d":  "D",
}

// fyersSymbol turns INFY into NSE:INFY-EQ; already qualified symbols pass through.
func fyersSymbol(symbol, exchange string) string {
	if strings.Contains(symbol, ":") {
		return symbol
	}
	if exchange == "" {
		exchange = "NSE"
	}
	return fmt.Sprintf("%s:%s-EQ", strings.ToUpper(exchange), strings.ToUpper(symbol))
}

type fyersHistory struct {
	S       string      `json:"s"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Candles [][]float64 `json:"candles"`
}

func (f *FyersSource) Candles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	if f.clientID == "" || f.accessToken == "" {
		return nil, noData(f.Name(), req, "missing credentials", errors.New("FYERS_CLIENT_ID/FYERS_ACCESS_TOKEN not set"))
	}
	resolution, ok := fyersResolutions[req.Interval]
	if !ok {
		return nil, noData(f.Name(), req, "unsupported interval", nil)
	}
	lookback, err := ParsePeriod(resolvePeriod(req))
	if err != nil {
		return nil, noData(f.Name(), req, "bad period", err)
	}

	to := f.now()
	from := to.Add(-lookback)
	q := url.Values{}
	q.Set("symbol", fyersSymbol(req.Symbol, req.Exchange))
	q.Set("resolution", resolution)
	q.Set("date_format", "0")
	q.Set("range_from", fmt.Sprintf("%d", from.Unix()))
	q.Set("range_to", fmt.Sprintf("%d", to.Unix()))
	q.Set("cont_flag", "1")

	r := api.NewRequest(http.MethodGet, f.baseURL+"/history?"+q.Encode()).
		WithContext(ctx).
		WithHeader("Authorization", f.clientID+":"+f.accessToken)
	resp, err := f.client.DoWithRetry(r, f.retry)
	if err != nil {
		return nil, noData(f.Name(), req, "request failed", err)
	}

	var hist fyersHistory
	if err := resp.ParseJSON(&hist); err != nil {
		return nil, noData(f.Name(), req, "decode", err)
	}
	if hist.S != "ok" {
		return nil, noData(f.Name(), req, fmt.Sprintf("status %q: %s", hist.S, hist.Message), nil)
	}

	bars := make([]types.Candle, 0, len(hist.Candles))
	for _, row := range hist.Candles {
		if len(row) < 6 {
			continue
		}
		bars = append(bars, types.Candle{
			Time:   time.Unix(int64(row[0]), 0).UTC(),
			Open:   row[1],
			High:   row[2],
			Low:    row[3],
			Close:  row[4],
			Volume: row[5],
		})
	}
	bars = Normalize(bars)
	if len(bars) == 0 {
		return nil, noData(f.Name(), req, "empty candles", nil)
	}
	return bars, nil
}
