package interfaces

import (
	"context"

	"chronos-quant/internal/types"
)

// DecisionSink persists step results.
type DecisionSink interface {
	Record(ctx context.Context, res *types.StepResult) error
	Close() error
}
