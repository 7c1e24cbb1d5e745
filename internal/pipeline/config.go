package pipeline

import (
	"chronos-quant/internal/predictor"
	"chronos-quant/internal/rules"
)

// Config is passed explicitly to every evaluation; the pipeline keeps no
// process-wide settings.
type Config struct {
	SMAWindow  int
	EMAWindow  int
	RSIWindow  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	BBWindow   int
	BBK        float64
	ATRWindow  int

	Rules      rules.Config
	Predictor  predictor.Config
	Vocabulary rules.Vocabulary
}

func DefaultConfig() Config {
	return Config{
		SMAWindow:  20,
		EMAWindow:  9,
		RSIWindow:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BBWindow:   20,
		BBK:        2,
		ATRWindow:  14,
		Rules:      rules.DefaultConfig(),
		Predictor:  predictor.DefaultConfig(),
		Vocabulary: rules.Trade,
	}
}

// MinBars is the shortest input accepted: enough for the longest lookback
// among SMA, Bollinger, EMA and RSI, or slow+signal bars once MACD
// confirmation gates the rules.
func (c Config) MinBars() int {
	m := max(c.SMAWindow, c.BBWindow, c.EMAWindow, c.RSIWindow+1)
	if c.Rules.UseMACDConfirmation {
		m = max(m, c.MACDSlow+c.MACDSignal)
	}
	return m
}

func (c Config) Validate() error {
	windows := []struct {
		name string
		v    int
	}{
		{"sma_window", c.SMAWindow},
		{"ema_window", c.EMAWindow},
		{"rsi_window", c.RSIWindow},
		{"macd_fast", c.MACDFast},
		{"macd_slow", c.MACDSlow},
		{"macd_signal", c.MACDSignal},
		{"bb_window", c.BBWindow},
		{"atr_window", c.ATRWindow},
	}
	for _, w := range windows {
		if w.v <= 0 {
			return newError(KindInvalidConfig, "%s must be positive, got %d", w.name, w.v)
		}
	}
	if c.MACDFast >= c.MACDSlow {
		return newError(KindInvalidConfig, "macd_fast (%d) must be shorter than macd_slow (%d)", c.MACDFast, c.MACDSlow)
	}
	if c.BBK < 0 {
		return newError(KindInvalidConfig, "bb_k must be non-negative, got %.4f", c.BBK)
	}
	r := c.Rules
	if r.Oversold < 0 || r.Overbought > 100 || r.Oversold >= r.Overbought {
		return newError(KindInvalidConfig, "rsi thresholds must satisfy 0 <= oversold < overbought <= 100, got %.2f / %.2f", r.Oversold, r.Overbought)
	}
	if err := c.Predictor.Validate(); err != nil {
		return newError(KindInvalidConfig, "%v", err)
	}
	if _, err := rules.ParseVocabulary(string(c.Vocabulary)); err != nil {
		return newError(KindInvalidConfig, "%v", err)
	}
	return nil
}
