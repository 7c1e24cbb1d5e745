package marketobs

import (
	"context"
	"errors"
	"time"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/marketdata"
	"chronos-quant/internal/metrics"
	"chronos-quant/internal/trace"
	"chronos-quant/internal/types"
)

// observableSource wraps a CandleSource with observability (logging, tracing & metrics)
type observableSource struct {
	src     interfaces.CandleSource
	metrics *metrics.Metrics
}

// Compile-time interface check
var _ interfaces.CandleSource = (*observableSource)(nil)

// Wrap wraps a candle source with observability middleware
func Wrap(src interfaces.CandleSource, m *metrics.Metrics) interfaces.CandleSource {
	return &observableSource{src: src, metrics: m}
}

func (o *observableSource) Name() string { return o.src.Name() }

// Candles fetches history with observability
func (o *observableSource) Candles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.Candles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles",
		"source", o.src.Name(),
		"symbol", req.Symbol,
		"interval", req.Interval,
		"period", req.Period,
	)

	start := time.Now()
	candles, err := o.src.Candles(ctx, req)
	if err != nil {
		kind := "error"
		if errors.Is(err, marketdata.ErrNoData) {
			kind = "no_data"
		}
		o.metrics.ObserveFailure("fetch", kind)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err,
			"source", o.src.Name(),
			"symbol", req.Symbol,
		)
		return nil, err
	}
	o.metrics.ObserveFetch(o.src.Name(), req.Symbol, time.Since(start), len(candles))

	logger.DebugSkip(ctx, 1, "Candles fetched successfully",
		"source", o.src.Name(),
		"symbol", req.Symbol,
		"count", len(candles),
		"duration", time.Since(start),
	)
	return candles, nil
}
