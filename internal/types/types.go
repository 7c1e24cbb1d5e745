package types

import "time"

type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// CandleRequest asks a data source for history of one symbol.
type CandleRequest struct {
	Symbol   string
	Interval string // 1m, 5m, 1h, 1d ...
	Period   string // lookback such as 60d or 2y; empty picks the interval default
	Exchange string
}

// DecisionRecord is the result of one pipeline evaluation.
type DecisionRecord struct {
	Action         string  `json:"action"`
	Direction      string  `json:"direction"`
	PredictedPrice float64 `json:"predicted_price"`
	Confidence     float64 `json:"confidence"`
}

// Commentary is optional natural-language output built on top of a decision.
type Commentary struct {
	Capability      string `json:"capability"`
	IndicatorReport string `json:"indicator_report,omitempty"`
	PatternReport   string `json:"pattern_report,omitempty"`
	TrendReport     string `json:"trend_report,omitempty"`
	Recommendation  string `json:"recommendation,omitempty"`
}

type StepResult struct {
	ID         string              `json:"id"`
	Symbol     string              `json:"symbol"`
	Decision   DecisionRecord      `json:"decision"`
	Rule       string              `json:"rule"`
	Price      float64             `json:"price"`
	Time       int64               `json:"time"`
	Bars       int                 `json:"bars"`
	Source     string              `json:"source"`
	Indicators map[string]*float64 `json:"indicators"`
	Commentary *Commentary         `json:"commentary,omitempty"`

	// CommentaryError is set when the commentator failed; the decision stands.
	CommentaryError string `json:"commentary_error,omitempty"`
}

// CommentaryRequest is what a commentator sees: recent bars plus the
// indicator readings by schema name and the decision they produced.
type CommentaryRequest struct {
	Symbol     string
	Interval   string
	Candles    []Candle
	Indicators map[string]*float64
	ATR        *float64
	Decision   DecisionRecord
	Rule       string
}
