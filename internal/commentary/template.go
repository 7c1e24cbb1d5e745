package commentary

import (
	"context"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

// TemplateCommentator renders reports from the readings alone.
type TemplateCommentator struct{}

var _ interfaces.Commentator = TemplateCommentator{}

func (TemplateCommentator) Capability() string { return string(Template) }

func (TemplateCommentator) Comment(_ context.Context, req types.CommentaryRequest) (types.Commentary, error) {
	return types.Commentary{
		Capability:      string(Template),
		IndicatorReport: IndicatorReport(req),
		PatternReport:   PatternReport(req),
		TrendReport:     TrendReport(req),
		Recommendation:  Recommendation(req),
	}, nil
}

// Noop is the NONE capability.
type Noop struct{}

var _ interfaces.Commentator = Noop{}

func (Noop) Capability() string { return string(None) }

func (Noop) Comment(context.Context, types.CommentaryRequest) (types.Commentary, error) {
	return types.Commentary{Capability: string(None)}, nil
}
