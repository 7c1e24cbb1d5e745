// Package recorder holds the decision sinks that sit behind the engine.
package recorder

import (
	"context"
	"errors"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

// NoopRecorder is used when no sink is configured.
type NoopRecorder struct{}

var _ interfaces.DecisionSink = NoopRecorder{}

func (NoopRecorder) Record(context.Context, *types.StepResult) error { return nil }
func (NoopRecorder) Close() error { return nil }

// Multi fans a result out to every sink. All sinks are tried; their errors
// are joined.
type Multi []interfaces.DecisionSink

var _ interfaces.DecisionSink = Multi(nil)

func (m Multi) Record(ctx context.Context, r *types.StepResult) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
