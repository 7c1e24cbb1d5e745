package interfaces

import (
	"context"

	"chronos-quant/internal/pipeline"
	"chronos-quant/internal/types"
)

type Engine interface {
	// Step evaluates one symbol and records the decision.
	Step(ctx context.Context, symbol string) (*types.StepResult, error)
	// Analyze fetches and evaluates without recording anything.
	Analyze(ctx context.Context, symbol string) (*pipeline.Analysis, error)
}
