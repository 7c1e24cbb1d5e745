package engine

import (
	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/store"
)

func New(cfg *store.Config, src interfaces.CandleSource, c interfaces.Commentator, sink interfaces.DecisionSink) interfaces.Engine {
	return newEngine(cfg, src, c, sink)
}
