// Package commentary attaches human-readable analysis to a decision. The
// capability is fixed at construction: NONE attaches nothing, TEMPLATE
// renders deterministic reports and LLM asks a language model for the
// recommendation. A failing LLM call is an error, not a silent downgrade.
package commentary

import (
	"fmt"
	"strings"

	"chronos-quant/internal/types"
)

type Capability string

const (
	None     Capability = "NONE"
	Template Capability = "TEMPLATE"
	LLM      Capability = "LLM"
)

func ParseCapability(s string) (Capability, error) {
	switch c := Capability(strings.ToUpper(strings.TrimSpace(s))); c {
	case None, Template, LLM:
		return c, nil
	case "":
		return None, nil
	}
	return "", fmt.Errorf("unknown commentary capability %q", s)
}

type Provider string

const (
	OpenAI Provider = "OPENAI"
	Claude Provider = "CLAUDE"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToUpper(strings.TrimSpace(s))); p {
	case OpenAI, Claude:
		return p, nil
	}
	return "", fmt.Errorf("unknown llm provider %q", s)
}

// Stop and target distances in ATRs. Without an ATR reading 1% of the close
// stands in for one ATR.
const (
	stopATRs   = 1.5
	targetATRs = 2.0
)

// Levels are the trade levels a recommendation quotes.
type Levels struct {
	Entry  float64
	Stop   float64
	Target float64
}

// LevelsFor derives entry, stop and target from the last close. A FLAT
// decision has no stop or target.
func LevelsFor(req types.CommentaryRequest) (Levels, bool) {
	if len(req.Candles) == 0 {
		return Levels{}, false
	}
	entry := req.Candles[len(req.Candles)-1].Close
	unit := entry * 0.01
	if req.ATR != nil && *req.ATR > 0 {
		unit = *req.ATR
	}
	switch req.Decision.Direction {
	case "UP":
		return Levels{Entry: entry, Stop: entry - stopATRs*unit, Target: entry + targetATRs*unit}, true
	case "DOWN":
		return Levels{Entry: entry, Stop: entry + stopATRs*unit, Target: entry - targetATRs*unit}, true
	}
	return Levels{Entry: entry}, false
}

func num(m map[string]*float64, name string, prec int) string {
	if v, ok := m[name]; ok && v != nil {
		return fmt.Sprintf("%.*f", prec, *v)
	}
	return "n/a"
}

func IndicatorReport(req types.CommentaryRequest) string {
	in := req.Indicators
	return fmt.Sprintf("EMA: ₹%s | SMA: ₹%s | RSI: %s | MACD: %s",
		num(in, "ema_fast", 2), num(in, "sma", 2), num(in, "rsi", 1), num(in, "macd", 4))
}

func PatternReport(req types.CommentaryRequest) string {
	in := req.Indicators
	report := fmt.Sprintf("BB Upper: ₹%s | BB Lower: ₹%s", num(in, "bb_upper", 2), num(in, "bb_lower", 2))
	if len(req.Candles) == 0 {
		return report
	}
	last := req.Candles[len(req.Candles)-1].Close
	up, lo := in["bb_upper"], in["bb_lower"]
	switch {
	case up != nil && last > *up:
		report += " | close above upper band"
	case lo != nil && last < *lo:
		report += " | close below lower band"
	case up != nil && lo != nil:
		report += " | close inside bands"
	}
	return report
}

func TrendReport(req types.CommentaryRequest) string {
	report := fmt.Sprintf("Predicted: ₹%.2f | Confidence: %.0f%%", req.Decision.PredictedPrice, req.Decision.Confidence)
	if h := req.Indicators["macd_hist"]; h != nil {
		switch {
		case *h > 0:
			report += " | MACD momentum rising"
		case *h < 0:
			report += " | MACD momentum falling"
		}
	}
	return report
}

// Recommendation renders the action with its levels and the rule that fired.
func Recommendation(req types.CommentaryRequest) string {
	lv, ok := LevelsFor(req)
	if !ok {
		return fmt.Sprintf("Action: %s | Entry: ₹%.2f | Reason: %s", req.Decision.Action, lv.Entry, req.Rule)
	}
	return fmt.Sprintf("Action: %s | Entry: ₹%.2f | Stop Loss: ₹%.2f | Target: ₹%.2f | Reason: %s",
		req.Decision.Action, lv.Entry, lv.Stop, lv.Target, req.Rule)
}

// BuildPrompt formats the most recent bars, the indicator readings and the
// decision for a language model.
func BuildPrompt(req types.CommentaryRequest, bars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Expert stock trader analyzing %s (%s bars).\n", req.Symbol, req.Interval)

	tail := req.Candles
	if bars > 0 && len(tail) > bars {
		tail = tail[len(tail)-bars:]
	}
	fmt.Fprintf(&b, "Last %d candles:\ntime open high low close volume\n", len(tail))
	for _, c := range tail {
		fmt.Fprintf(&b, "%s %.2f %.2f %.2f %.2f %.0f\n",
			c.Time.UTC().Format("2006-01-02T15:04"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	in := req.Indicators
	fmt.Fprintf(&b, "EMA: ₹%s | SMA: ₹%s | RSI: %s\n", num(in, "ema_fast", 2), num(in, "sma", 2), num(in, "rsi", 1))
	fmt.Fprintf(&b, "MACD: %s | Signal: %s | Hist: %s\n", num(in, "macd", 4), num(in, "macd_signal", 4), num(in, "macd_hist", 4))
	fmt.Fprintf(&b, "BB_Upper: ₹%s | BB_Lower: ₹%s\n", num(in, "bb_upper", 2), num(in, "bb_lower", 2))
	if req.ATR != nil {
		fmt.Fprintf(&b, "ATR: %.2f\n", *req.ATR)
	}
	fmt.Fprintf(&b, "Rule engine: %s (%s)\n", req.Decision.Action, req.Rule)
	fmt.Fprintf(&b, "Model Prediction: ₹%.2f (Confidence: %.0f%%)\n\n", req.Decision.PredictedPrice, req.Decision.Confidence)
	b.WriteString("Give SHORT trade decision:\n")
	b.WriteString("1. Action: LONG/SHORT/HOLD\n")
	b.WriteString("2. Entry: ₹X  3. Stop Loss: ₹X  4. Target: ₹X\n")
	b.WriteString("5. Reason: 2 sentences")
	return b.String()
}
