// Package pipeline turns an ordered candle sequence into a decision record.
//
// Evaluate validates the input, computes every indicator series, reads the
// latest snapshot, applies the rule table and the predictor, and returns the
// combined record. It keeps no state between calls and is safe for
// concurrent use.
package pipeline

import (
	"math"

	"chronos-quant/internal/predictor"
	"chronos-quant/internal/rules"
	"chronos-quant/internal/ta"
	"chronos-quant/internal/types"
)

// Analysis is everything one evaluation produced.
type Analysis struct {
	Schema     string               `json:"schema"`
	Bars       int                  `json:"bars"`
	Last       types.Candle         `json:"last"`
	Table      Table                `json:"table"`
	Snapshot   Snapshot             `json:"snapshot"`
	ATR        ta.Value             `json:"atr"`
	Verdict    rules.Verdict        `json:"verdict"`
	Prediction predictor.Prediction `json:"prediction"`
	Record     types.DecisionRecord `json:"record"`
}

func Evaluate(bars []types.Candle, cfg Config) (types.DecisionRecord, error) {
	a, err := Analyze(bars, cfg)
	if err != nil {
		return types.DecisionRecord{}, err
	}
	return a.Record, nil
}

func Analyze(bars []types.Candle, cfg Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateBars(bars, cfg.MinBars()); err != nil {
		return nil, err
	}

	closes, highs, lows := columns(bars)
	s := series{
		sma:  ta.SMA(closes, cfg.SMAWindow),
		ema:  ta.EMA(closes, cfg.EMAWindow),
		rsi:  ta.RSI(closes, cfg.RSIWindow),
		atr:  ta.ATR(highs, lows, closes, cfg.ATRWindow),
		macd: ta.MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		bb:   ta.Bollinger(closes, cfg.BBWindow, cfg.BBK),
	}

	table := make(Table, len(bars))
	for i, b := range bars {
		table[i] = Row{Candle: b, Snapshot: s.at(i)}
	}
	lastIdx := len(bars) - 1
	last := bars[lastIdx]
	snap := table[lastIdx].Snapshot

	verdict := rules.Evaluate(rules.Input{
		Close:    last.Close,
		RSI:      snap.RSI,
		SMA:      snap.SMA,
		MACDHist: snap.MACDHist,
	}, cfg.Rules)

	pred := predictor.Predict(predictor.Input{
		Closes: closes,
		EMA:    snap.EMAFast,
		SMA:    snap.SMA,
		RSI:    snap.RSI,
	}, cfg.Predictor)

	vocab, _ := rules.ParseVocabulary(string(cfg.Vocabulary))
	return &Analysis{
		Schema:     SchemaVersion,
		Bars:       len(bars),
		Last:       last,
		Table:      table,
		Snapshot:   snap,
		ATR:        s.atr.Last(),
		Verdict:    verdict,
		Prediction: pred,
		Record: types.DecisionRecord{
			Action:         vocab.Render(verdict.Direction),
			Direction:      string(verdict.Direction),
			PredictedPrice: pred.Price,
			Confidence:     pred.Confidence,
		},
	}, nil
}

// ValidateBars checks length, then timestamp order, then that every price
// and volume is finite.
func ValidateBars(bars []types.Candle, minBars int) error {
	if len(bars) < minBars {
		return newError(KindInsufficientData, "need at least %d bars, got %d", minBars, len(bars))
	}
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Time, bars[i].Time
		if cur.Equal(prev) {
			return newError(KindInvalidSeries, "duplicate timestamp %s at index %d", cur.Format("2006-01-02T15:04:05Z07:00"), i)
		}
		if cur.Before(prev) {
			return newError(KindInvalidSeries, "timestamps not ascending at index %d", i)
		}
	}
	for i, b := range bars {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return newError(KindInvalidSeries, "non-finite value at index %d", i)
			}
		}
	}
	return nil
}

func columns(bars []types.Candle) (closes, highs, lows []float64) {
	closes = make([]float64, len(bars))
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	return
}
