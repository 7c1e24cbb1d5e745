package interfaces

import (
	"context"

	"chronos-quant/internal/types"
)

type Commentator interface {
	Capability() string
	Comment(ctx context.Context, req types.CommentaryRequest) (types.Commentary, error)
}
