package commentaryobs

import (
	"context"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/metrics"
	"chronos-quant/internal/types"
)

// observableCommentator wraps a Commentator with observability (logging, tracing & metrics)
type observableCommentator struct {
	c       interfaces.Commentator
	metrics *metrics.Metrics
}

// Compile-time interface check
var _ interfaces.Commentator = (*observableCommentator)(nil)

// Wrap wraps a commentator with observability middleware
func Wrap(c interfaces.Commentator, m *metrics.Metrics) interfaces.Commentator {
	return &observableCommentator{c: c, metrics: m}
}

func (o *observableCommentator) Capability() string { return o.c.Capability() }

// Comment requests commentary with observability
func (o *observableCommentator) Comment(ctx context.Context, req types.CommentaryRequest) (types.Commentary, error) {
	op := logger.StartOperation(ctx, "commentary.Comment",
		"symbol", req.Symbol,
		"capability", o.c.Capability(),
		"action", req.Decision.Action,
	)

	out, err := o.c.Comment(op.GetContext(), req)
	o.metrics.ObserveCommentary(o.c.Capability(), err)
	if err != nil {
		op.EndWithError(err)
		return types.Commentary{}, err
	}

	op.End("recommendation", out.Recommendation)
	return out, nil
}
