package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chronos-quant/internal/commentary"
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/pipeline"
	"chronos-quant/internal/store"
	"chronos-quant/internal/types"
)

type Engine struct {
	cfg         *store.Config
	pcfg        pipeline.Config
	src         interfaces.CandleSource
	commentator interfaces.Commentator
	sink        interfaces.DecisionSink
	newID       func() string
}

func newEngine(cfg *store.Config, src interfaces.CandleSource, c interfaces.Commentator, sink interfaces.DecisionSink) *Engine {
	if c == nil {
		c = commentary.Noop{}
	}
	return &Engine{
		cfg:         cfg,
		pcfg:        cfg.PipelineConfig(),
		src:         src,
		commentator: c,
		sink:        sink,
		newID:       uuid.NewString,
	}
}

func (e *Engine) request(symbol string) types.CandleRequest {
	return types.CandleRequest{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Interval: e.cfg.Interval,
		Period:   e.cfg.Period,
		Exchange: e.cfg.Exchange,
	}
}

func (e *Engine) analyze(ctx context.Context, symbol string) ([]types.Candle, *pipeline.Analysis, error) {
	req := e.request(symbol)
	candles, err := e.src.Candles(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug(ctx, "Candles fetched successfully", "symbol", req.Symbol, "count", len(candles))

	a, err := pipeline.Analyze(candles, e.pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate %s: %w", req.Symbol, err)
	}
	return candles, a, nil
}

func (e *Engine) Analyze(ctx context.Context, symbol string) (*pipeline.Analysis, error) {
	_, a, err := e.analyze(ctx, symbol)
	return a, err
}

func (e *Engine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	logger.Debug(ctx, "Starting evaluation step", "symbol", symbol)

	candles, a, err := e.analyze(ctx, symbol)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "Indicators calculated",
		"symbol", symbol,
		"schema", a.Schema,
		"rsi", a.Snapshot.RSI,
		"sma", a.Snapshot.SMA,
		"ema_fast", a.Snapshot.EMAFast,
		"macd_hist", a.Snapshot.MACDHist,
		"bb_upper", a.Snapshot.BBUpper,
		"bb_lower", a.Snapshot.BBLower,
		"atr", a.ATR,
	)

	rec := a.Record
	rec.PredictedPrice = round2(rec.PredictedPrice)
	res := &types.StepResult{
		ID:         e.newID(),
		Symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		Decision:   rec,
		Rule:       a.Verdict.Rule,
		Price:      a.Last.Close,
		Time:       a.Last.Time.Unix(),
		Bars:       a.Bars,
		Source:     e.src.Name(),
		Indicators: a.Snapshot.Floats(),
	}

	if e.commentator.Capability() != string(commentary.None) {
		var atr *float64
		if v, ok := a.ATR.Get(); ok {
			atr = &v
		}
		c, err := e.commentator.Comment(ctx, types.CommentaryRequest{
			Symbol:     res.Symbol,
			Interval:   e.cfg.Interval,
			Candles:    candles,
			Indicators: res.Indicators,
			ATR:        atr,
			Decision:   rec,
			Rule:       res.Rule,
		})
		if err != nil {
			// The decision is recorded without commentary
			res.CommentaryError = err.Error()
			logger.Warn(ctx, "Commentary failed", "symbol", res.Symbol, "capability", e.commentator.Capability(), "error", err)
		} else {
			res.Commentary = &c
		}
	}

	logger.Decision(ctx, res.Symbol, rec.Action, rec.Confidence, rec.PredictedPrice, res.Rule,
		"price", res.Price,
		"bar_time", time.Unix(res.Time, 0).UTC().Format(time.RFC3339),
	)

	// A failed write does not invalidate the decision
	if e.sink != nil {
		if err := e.sink.Record(ctx, res); err != nil {
			logger.ErrorWithErr(ctx, "Failed to record decision", err, "symbol", res.Symbol, "id", res.ID)
		}
	}

	return res, nil
}

func round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}
