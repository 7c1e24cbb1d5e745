package predictor

import (
	"math"
	"math/rand"
	"testing"

	"chronos-quant/internal/ta"
)

func closesFrom(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestPredictWeightedBlend(t *testing.T) {
	closes := closesFrom(100, 1, 25) // last 124, momentum 1
	in := Input{Closes: closes, EMA: ta.Defined(120), SMA: ta.Defined(114.5), RSI: ta.Defined(50)}

	p := Predict(in, DefaultConfig())
	want := 0.4*120 + 0.2*114.5 + 0.3*124 + 0.1*(124+1)
	if math.Abs(p.Price-want) > 1e-9 {
		t.Errorf("Expected price %f, got %f", want, p.Price)
	}
	if p.Degenerate {
		t.Error("Expected the weighted branch")
	}
	// rsi score 1, align = 1 - 5.5/114.5*10 ~ 0.52 -> 85.4 -> 85
	if p.Confidence != 85 {
		t.Errorf("Expected confidence 85, got %f", p.Confidence)
	}
}

func TestPredictConfidenceTruncates(t *testing.T) {
	closes := closesFrom(100, 0.1, 30)
	// rsi score 0.9, align 1 -> 55 + 18 + 20 = 93
	in := Input{Closes: closes, EMA: ta.Defined(100), SMA: ta.Defined(100), RSI: ta.Defined(55)}
	if got := Predict(in, DefaultConfig()).Confidence; got != 93 {
		t.Errorf("Expected 93, got %f", got)
	}
	// rsi score 0.99 -> 55 + 19.8 + 20 = 94.8 -> 94
	in.RSI = ta.Defined(50.5)
	if got := Predict(in, DefaultConfig()).Confidence; got != 94 {
		t.Errorf("Expected 94, got %f", got)
	}
}

func TestPredictDegenerate(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"short history", Input{Closes: closesFrom(10, 1, 19), EMA: ta.Defined(1), SMA: ta.Defined(1), RSI: ta.Defined(50)}},
		{"undefined rsi", Input{Closes: closesFrom(10, 0, 25), EMA: ta.Defined(10), SMA: ta.Defined(10)}},
		{"undefined ema", Input{Closes: closesFrom(10, 1, 25), SMA: ta.Defined(10), RSI: ta.Defined(50)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predict(tt.in, DefaultConfig())
			last := tt.in.Closes[len(tt.in.Closes)-1]
			if !p.Degenerate || p.Price != last || p.Confidence != 60 {
				t.Errorf("Expected degenerate (%f, 60), got %+v", last, p)
			}
		})
	}
}

func TestPredictZeroSMA(t *testing.T) {
	in := Input{Closes: closesFrom(0, 0, 25), EMA: ta.Defined(0), SMA: ta.Defined(0), RSI: ta.Defined(50)}
	p := Predict(in, DefaultConfig())
	if math.IsNaN(p.Confidence) || p.Confidence != 75 {
		t.Errorf("Expected align score 0 when SMA is zero, got confidence %f", p.Confidence)
	}
}

func TestConfidenceAlwaysBounded(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	cfg := DefaultConfig()
	for i := 0; i < 2000; i++ {
		in := Input{
			Closes: closesFrom(r.Float64()*200, r.NormFloat64(), 20+r.Intn(40)),
			EMA:    ta.Defined(r.Float64() * 300),
			SMA:    ta.Defined(r.NormFloat64() * 200),
			RSI:    ta.Defined(r.Float64() * 100),
		}
		c := Predict(in, cfg).Confidence
		if c < 55 || c > 95 {
			t.Fatalf("confidence out of bounds: %f for %+v", c, in)
		}
	}
}

func TestMomentum(t *testing.T) {
	if got := Momentum([]float64{1, 2, 3, 4, 5}, 5); got != 0 {
		t.Errorf("Expected 0 with fewer than lag+1 bars, got %f", got)
	}
	if got := Momentum([]float64{10, 0, 0, 0, 0, 20}, 5); got != 2 {
		t.Errorf("Expected 2, got %f", got)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	cfg := DefaultConfig()
	cfg.Weights.Close = 0.5
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for weights not summing to 1")
	}
	cfg = DefaultConfig()
	cfg.ConfidenceMin = 96
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for inverted confidence bounds")
	}
	cfg = DefaultConfig()
	cfg.MomentumLag = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero momentum lag")
	}
}
