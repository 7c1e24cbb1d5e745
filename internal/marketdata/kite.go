package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

// kiteAPI is the slice of the Kite Connect client used for history.
type kiteAPI interface {
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
}

var _ kiteAPI = (*kiteconnect.Client)(nil)

// KiteSource reads historical candles through Zerodha Kite Connect.
type KiteSource struct {
	kc     kiteAPI
	mapper *instrumentMapper
	loadMu sync.Mutex
	loaded map[string]bool
	now    func() time.Time
}

var _ interfaces.CandleSource = (*KiteSource)(nil)

// NewKiteSource creates a client from an API key and an access token that
// was obtained outside this program.
func NewKiteSource(apiKey, accessToken string) *KiteSource {
	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)
	return newKiteSource(kc)
}

func newKiteSource(kc kiteAPI) *KiteSource {
	return &KiteSource{
		kc:     kc,
		mapper: newInstrumentMapper(),
		loaded: make(map[string]bool),
		now:    time.Now,
	}
}

func (k *KiteSource) Name() string { return "kite" }

var kiteIntervals = map[string]string{
	"1m":  "minute",
	"3m":  "3minute",
	"5m":  "5minute",
	"10m": "10minute",
	"15m": "15minute",
	"30m": "30minute",
	"1h":  "60minute",
	"1d":  "day",
}

// token resolves a trading symbol, loading the exchange's instrument dump
// the first time that exchange is seen.
func (k *KiteSource) token(exchange, symbol string) (int, error) {
	if t, ok := k.mapper.getToken(exchange, symbol); ok {
		return t, nil
	}

	k.loadMu.Lock()
	defer k.loadMu.Unlock()
	if !k.loaded[exchange] {
		instruments, err := k.kc.GetInstrumentsByExchange(exchange)
		if err != nil {
			return 0, fmt.Errorf("failed to load %s instruments: %w", exchange, err)
		}
		for _, in := range instruments {
			k.mapper.addMapping(exchange, in.Tradingsymbol, in.InstrumentToken)
		}
		k.loaded[exchange] = true
	}

	if t, ok := k.mapper.getToken(exchange, symbol); ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown instrument %s:%s", exchange, symbol)
}

func (k *KiteSource) Candles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	interval, ok := kiteIntervals[req.Interval]
	if !ok {
		return nil, noData(k.Name(), req, "unsupported interval", nil)
	}
	lookback, err := ParsePeriod(resolvePeriod(req))
	if err != nil {
		return nil, noData(k.Name(), req, "bad period", err)
	}
	exchange := strings.ToUpper(req.Exchange)
	if exchange == "" {
		exchange = "NSE"
	}

	token, err := k.token(exchange, strings.ToUpper(req.Symbol))
	if err != nil {
		return nil, noData(k.Name(), req, "instrument lookup", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, noData(k.Name(), req, "cancelled", err)
	}

	to := k.now()
	rows, err := k.kc.GetHistoricalData(token, interval, to.Add(-lookback), to, false, false)
	if err != nil {
		return nil, noData(k.Name(), req, "historical data", err)
	}

	bars := make([]types.Candle, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, types.Candle{
			Time:   r.Date.Time.UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: float64(r.Volume),
		})
	}
	bars = Normalize(bars)
	if len(bars) == 0 {
		return nil, noData(k.Name(), req, "empty history", errors.New("kite returned no rows"))
	}
	return bars, nil
}

// instrumentMapper keeps exchange-qualified symbol to token mappings.
type instrumentMapper struct {
	symbolToToken map[string]int
	mu            sync.RWMutex
}

func newInstrumentMapper() *instrumentMapper {
	return &instrumentMapper{
		symbolToToken: make(map[string]int),
	}
}

func mapperKey(exchange, symbol string) string { return exchange + ":" + symbol }

func (im *instrumentMapper) addMapping(exchange, symbol string, token int) {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.symbolToToken[mapperKey(exchange, symbol)] = token
}

func (im *instrumentMapper) getToken(exchange, symbol string) (int, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	token, exists := im.symbolToToken[mapperKey(exchange, symbol)]
	return token, exists
}
