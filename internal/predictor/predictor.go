// Package predictor blends the latest indicator readings into a next-price
// estimate with a bounded confidence score.
//
// Confidence is a heuristic: it grows as RSI sits near neutral and as the
// fast EMA agrees with the SMA. It is not a probability.
package predictor

import (
	"errors"
	"fmt"
	"math"

	"chronos-quant/internal/ta"
)

type Weights struct {
	EMA      float64 `yaml:"ema"`
	SMA      float64 `yaml:"sma"`
	Close    float64 `yaml:"close"`
	Momentum float64 `yaml:"momentum"`
}

func (w Weights) Sum() float64 { return w.EMA + w.SMA + w.Close + w.Momentum }

type Config struct {
	Weights              Weights
	MomentumLag          int
	MinBars              int
	ConfidenceMin        float64
	ConfidenceMax        float64
	DegenerateConfidence float64
}

func DefaultConfig() Config {
	return Config{
		Weights:              Weights{EMA: 0.40, SMA: 0.20, Close: 0.30, Momentum: 0.10},
		MomentumLag:          5,
		MinBars:              20,
		ConfidenceMin:        55,
		ConfidenceMax:        95,
		DegenerateConfidence: 60,
	}
}

func (c Config) Validate() error {
	if math.Abs(c.Weights.Sum()-1) > 1e-9 {
		return fmt.Errorf("predictor weights must sum to 1.0, got %.6f", c.Weights.Sum())
	}
	if c.MomentumLag <= 0 {
		return fmt.Errorf("predictor momentum lag must be positive, got %d", c.MomentumLag)
	}
	if c.MinBars <= 0 {
		return fmt.Errorf("predictor min bars must be positive, got %d", c.MinBars)
	}
	if c.ConfidenceMin < 0 || c.ConfidenceMax > 100 || c.ConfidenceMin > c.ConfidenceMax {
		return fmt.Errorf("confidence bounds must satisfy 0 <= min <= max <= 100, got [%.2f, %.2f]", c.ConfidenceMin, c.ConfidenceMax)
	}
	if c.DegenerateConfidence < 0 || c.DegenerateConfidence > 100 {
		return errors.New("degenerate confidence must be within [0, 100]")
	}
	return nil
}

// Input carries the close history and the latest readings.
type Input struct {
	Closes []float64
	EMA    ta.Value
	SMA    ta.Value
	RSI    ta.Value
}

type Prediction struct {
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
	Degenerate bool    `json:"degenerate"`
}

// Momentum is the average per-bar change over the trailing lag, zero when the
// history is too short.
func Momentum(closes []float64, lag int) float64 {
	n := len(closes)
	if lag <= 0 || n < lag+1 {
		return 0
	}
	return (closes[n-1] - closes[n-1-lag]) / float64(lag)
}

// Predict falls back to the last close with the degenerate confidence when
// history is short or any reading it needs is undefined.
func Predict(in Input, cfg Config) Prediction {
	n := len(in.Closes)
	if n == 0 {
		return Prediction{Confidence: cfg.DegenerateConfidence, Degenerate: true}
	}
	last := in.Closes[n-1]

	ema, okE := in.EMA.Get()
	sma, okS := in.SMA.Get()
	rsi, okR := in.RSI.Get()
	if n < cfg.MinBars || !okE || !okS || !okR {
		return Prediction{Price: last, Confidence: cfg.DegenerateConfidence, Degenerate: true}
	}

	w := cfg.Weights
	mom := Momentum(in.Closes, cfg.MomentumLag)
	price := w.EMA*ema + w.SMA*sma + w.Close*last + w.Momentum*(last+mom)

	rsiScore := 1 - math.Abs(rsi-50)/50
	alignScore := 0.0
	if sma != 0 {
		alignScore = 1 - math.Min(math.Abs(ema-sma)/math.Abs(sma)*10, 1)
	}
	conf := math.Floor(55 + 20*rsiScore + 20*alignScore)
	conf = math.Max(cfg.ConfidenceMin, math.Min(cfg.ConfidenceMax, conf))

	return Prediction{Price: price, Confidence: conf}
}
