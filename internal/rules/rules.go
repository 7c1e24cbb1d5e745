// Package rules maps the latest indicator readings to a direction.
//
// The canonical rule set, evaluated top to bottom with the first match winning:
//
//	RSI < oversold   AND close > SMA [AND macd_hist > 0] -> UP
//	RSI > overbought AND close < SMA [AND macd_hist < 0] -> DOWN
//	otherwise                                            -> FLAT
//
// The bracketed MACD condition applies only when confirmation is enabled. A
// rule whose inputs are undefined never matches.
package rules

import (
	"fmt"
	"strings"

	"chronos-quant/internal/ta"
)

type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
	Flat Direction = "FLAT"
)

type Config struct {
	Oversold            float64
	Overbought          float64
	UseMACDConfirmation bool
}

func DefaultConfig() Config {
	return Config{Oversold: 30, Overbought: 70}
}

// Input is the latest bar's close and the readings the rules look at.
type Input struct {
	Close    float64
	RSI      ta.Value
	SMA      ta.Value
	MACDHist ta.Value
}

type Rule struct {
	Name      string
	Direction Direction
	Match     func(in Input, cfg Config) bool
}

// Table is the ordered rule set. The last entry always matches.
var Table = []Rule{
	{
		Name:      "oversold_above_sma",
		Direction: Up,
		Match: func(in Input, cfg Config) bool {
			rsi, okR := in.RSI.Get()
			sma, okS := in.SMA.Get()
			if !okR || !okS {
				return false
			}
			if !(rsi < cfg.Oversold && in.Close > sma) {
				return false
			}
			return !cfg.UseMACDConfirmation || histSign(in.MACDHist) > 0
		},
	},
	{
		Name:      "overbought_below_sma",
		Direction: Down,
		Match: func(in Input, cfg Config) bool {
			rsi, okR := in.RSI.Get()
			sma, okS := in.SMA.Get()
			if !okR || !okS {
				return false
			}
			if !(rsi > cfg.Overbought && in.Close < sma) {
				return false
			}
			return !cfg.UseMACDConfirmation || histSign(in.MACDHist) < 0
		},
	},
	{
		Name:      "default_hold",
		Direction: Flat,
		Match:     func(Input, Config) bool { return true },
	},
}

// histSign is 0 for an undefined histogram so confirmation fails closed.
func histSign(h ta.Value) int {
	v, ok := h.Get()
	switch {
	case !ok || v == 0:
		return 0
	case v > 0:
		return 1
	default:
		return -1
	}
}

type Verdict struct {
	Direction Direction `json:"direction"`
	Rule      string    `json:"rule"`
}

func Evaluate(in Input, cfg Config) Verdict {
	for _, r := range Table {
		if r.Match(in, cfg) {
			return Verdict{Direction: r.Direction, Rule: r.Name}
		}
	}
	return Verdict{Direction: Flat, Rule: "default_hold"}
}

// Vocabulary renders a direction as a user-facing action.
type Vocabulary string

const (
	// Trade renders BUY / SELL / HOLD.
	Trade Vocabulary = "TRADE"
	// Position renders LONG / SHORT / HOLD.
	Position Vocabulary = "POSITION"
)

func ParseVocabulary(s string) (Vocabulary, error) {
	switch Vocabulary(strings.ToUpper(strings.TrimSpace(s))) {
	case "", Trade:
		return Trade, nil
	case Position:
		return Position, nil
	}
	return "", fmt.Errorf("unknown vocabulary %q: must be TRADE or POSITION", s)
}

func (v Vocabulary) Render(d Direction) string {
	switch d {
	case Up:
		if v == Position {
			return "LONG"
		}
		return "BUY"
	case Down:
		if v == Position {
			return "SHORT"
		}
		return "SELL"
	}
	return "HOLD"
}
