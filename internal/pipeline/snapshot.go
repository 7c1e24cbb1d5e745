package pipeline

import (
	"chronos-quant/internal/ta"
	"chronos-quant/internal/types"
)

// SchemaVersion identifies the indicator field set below. Bump it when a
// field is added, removed or renamed.
const SchemaVersion = "indicators/v1"

// Names lists the snapshot fields in schema order.
var Names = []string{
	"sma", "ema_fast", "rsi",
	"macd", "macd_signal", "macd_hist",
	"bb_upper", "bb_mid", "bb_lower",
}

// Snapshot holds the indicator readings at one bar.
type Snapshot struct {
	SMA        ta.Value `json:"sma"`
	EMAFast    ta.Value `json:"ema_fast"`
	RSI        ta.Value `json:"rsi"`
	MACD       ta.Value `json:"macd"`
	MACDSignal ta.Value `json:"macd_signal"`
	MACDHist   ta.Value `json:"macd_hist"`
	BBUpper    ta.Value `json:"bb_upper"`
	BBMid      ta.Value `json:"bb_mid"`
	BBLower    ta.Value `json:"bb_lower"`
}

// Get looks a reading up by schema name.
func (s Snapshot) Get(name string) (ta.Value, bool) {
	switch name {
	case "sma":
		return s.SMA, true
	case "ema_fast":
		return s.EMAFast, true
	case "rsi":
		return s.RSI, true
	case "macd":
		return s.MACD, true
	case "macd_signal":
		return s.MACDSignal, true
	case "macd_hist":
		return s.MACDHist, true
	case "bb_upper":
		return s.BBUpper, true
	case "bb_mid":
		return s.BBMid, true
	case "bb_lower":
		return s.BBLower, true
	}
	return ta.Value{}, false
}

func (s Snapshot) Named() map[string]ta.Value {
	out := make(map[string]ta.Value, len(Names))
	for _, n := range Names {
		out[n], _ = s.Get(n)
	}
	return out
}

// Floats is Named with undefined readings as nil pointers.
func (s Snapshot) Floats() map[string]*float64 {
	out := make(map[string]*float64, len(Names))
	for _, n := range Names {
		v, _ := s.Get(n)
		if f, ok := v.Get(); ok {
			out[n] = &f
		} else {
			out[n] = nil
		}
	}
	return out
}

// Row is one bar annotated with its readings. It encodes as a flat record.
type Row struct {
	types.Candle
	Snapshot
}

type Table []Row

// series is the full set of computed indicator series for one input.
type series struct {
	sma, ema, rsi, atr ta.Series
	macd               ta.MACDResult
	bb                 ta.BollingerResult
}

func (s series) at(i int) Snapshot {
	return Snapshot{
		SMA:        s.sma.At(i),
		EMAFast:    s.ema.At(i),
		RSI:        s.rsi.At(i),
		MACD:       s.macd.MACD.At(i),
		MACDSignal: s.macd.Signal.At(i),
		MACDHist:   s.macd.Hist.At(i),
		BBUpper:    s.bb.Upper.At(i),
		BBMid:      s.bb.Mid.At(i),
		BBLower:    s.bb.Lower.At(i),
	}
}
