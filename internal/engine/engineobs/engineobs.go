package engineobs

import (
	"context"
	"errors"
	"time"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/marketdata"
	"chronos-quant/internal/metrics"
	"chronos-quant/internal/pipeline"
	"chronos-quant/internal/trace"
	"chronos-quant/internal/types"
)

type observableEngine struct {
	engine  interfaces.Engine
	metrics *metrics.Metrics
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine, m *metrics.Metrics) interfaces.Engine {
	return &observableEngine{
		engine:  eng,
		metrics: m,
	}
}

// failureKind labels a step failure for metrics.
func failureKind(err error) string {
	if k := pipeline.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, marketdata.ErrNoData) {
		return "NO_DATA"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "CANCELED"
	}
	return "OTHER"
}

func (oe *observableEngine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting evaluation cycle",
		"symbol", symbol,
	)

	result, err := oe.engine.Step(ctx, symbol)
	if err != nil {
		oe.metrics.ObserveFailure("step", failureKind(err))
		logger.ErrorWithErrSkip(ctx, 1, "Evaluation cycle failed", err,
			"symbol", symbol,
			"kind", failureKind(err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	oe.metrics.ObserveDecision(result.Symbol, result.Decision.Action, result.Decision.Confidence, result.Decision.PredictedPrice)

	logger.InfoSkip(ctx, 1, "Evaluation cycle completed",
		"symbol", symbol,
		"action", result.Decision.Action,
		"confidence", result.Decision.Confidence,
		"rule", result.Rule,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func (oe *observableEngine) Analyze(ctx context.Context, symbol string) (*pipeline.Analysis, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Analyze")
	defer span.End()

	a, err := oe.engine.Analyze(ctx, symbol)
	if err != nil {
		oe.metrics.ObserveFailure("analyze", failureKind(err))
		logger.ErrorWithErrSkip(ctx, 1, "Analysis failed", err,
			"symbol", symbol,
			"kind", failureKind(err),
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Analysis completed",
		"symbol", symbol,
		"bars", a.Bars,
		"direction", a.Verdict.Direction,
	)
	return a, nil
}
