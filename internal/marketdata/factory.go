package marketdata

import (
	"context"
	"errors"
	"fmt"
	"os"

	"chronos-quant/internal/api"
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/store"
)

// New builds the configured candle source, rate limited and cached as the
// config asks. The returned close func releases the cache connection.
func New(ctx context.Context, cfg *store.Config) (interfaces.CandleSource, func() error, error) {
	client := api.NewClient(
		api.WithTimeout(cfg.FetchTimeout()),
		api.WithRateLimit(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst),
		api.WithLogging(true),
	)
	retry := api.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Fetch.MaxAttempts

	var src interfaces.CandleSource
	switch cfg.DataSource {
	case "YAHOO":
		src = NewYahooSource(client, cfg.Fetch.YahooBaseURL, retry)
	case "FYERS":
		src = NewFyersSource(client, cfg.Fetch.FyersBaseURL, os.Getenv("FYERS_CLIENT_ID"), os.Getenv("FYERS_ACCESS_TOKEN"), retry)
	case "KITE":
		apiKey, token := os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN")
		if apiKey == "" || token == "" {
			return nil, nil, errors.New("KITE_API_KEY and KITE_ACCESS_TOKEN are required for the KITE data source")
		}
		src = NewKiteSource(apiKey, token)
	case "STATIC":
		src = NewStaticSource()
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}

	noop := func() error { return nil }
	switch cfg.Cache.Backend {
	case "MEMORY":
		return Cached(src, NewMemoryCache(0), cfg.CacheTTL(), cfg.Cache.KeyPrefix), noop, nil
	case "REDIS":
		rdb, err := DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return Cached(src, NewRedisCache(rdb), cfg.CacheTTL(), cfg.Cache.KeyPrefix), rdb.Close, nil
	}
	return src, noop, nil
}
