package interfaces

import (
	"context"

	"chronos-quant/internal/types"
)

// CandleSource returns history ordered by ascending time. Failures surface
// as marketdata.ErrNoData.
type CandleSource interface {
	Name() string
	Candles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error)
}
