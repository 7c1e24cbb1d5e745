// Package ta computes technical indicator series over close prices.
//
// Every function is pure and returns a freshly allocated Series aligned with
// its input. A position is defined only when its whole lookback window is
// present and contains no gaps.
package ta

import "math"

func SMA(closes []float64, n int) Series {
	return SMASeries(FromFloats(closes), n)
}

func SMASeries(s Series, n int) Series {
	out := make(Series, len(s))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(s); i++ {
		if m, ok := windowMean(s, i, n); ok {
			out[i] = Defined(m)
		}
	}
	return out
}

// windowMean averages s[i-n+1..i]; false when any slot is a gap.
func windowMean(s Series, i, n int) (float64, bool) {
	sum := 0.0
	for j := i - n + 1; j <= i; j++ {
		if !s[j].ok {
			return 0, false
		}
		sum += s[j].v
	}
	return sum / float64(n), true
}

func EMA(closes []float64, n int) Series {
	return EMASeries(FromFloats(closes), n)
}

// EMASeries smooths with alpha = 2/(n+1), seeded by the SMA of the first n
// consecutive defined values. A gap resets the seed.
func EMASeries(s Series, n int) Series {
	out := make(Series, len(s))
	if n <= 0 {
		return out
	}
	alpha := 2.0 / float64(n+1)
	var prev Value
	run, sum := 0, 0.0
	for i, x := range s {
		if !x.ok {
			prev, run, sum = Value{}, 0, 0
			continue
		}
		run++
		switch {
		case prev.ok:
			prev = Defined(alpha*x.v + (1-alpha)*prev.v)
		case run == n:
			prev = Defined((sum + x.v) / float64(n))
		default:
			sum += x.v
		}
		out[i] = prev
	}
	return out
}

// RSI uses simple rolling means of gains and losses over the trailing n
// deltas, so the first defined position is index n. A window with losses of
// zero reads 100 when there were gains and stays undefined when flat.
func RSI(closes []float64, n int) Series {
	s := FromFloats(closes)
	out := make(Series, len(s))
	if n <= 0 {
		return out
	}
	for i := n; i < len(s); i++ {
		gain, loss, ok := 0.0, 0.0, true
		for j := i - n + 1; j <= i; j++ {
			if !s[j].ok || !s[j-1].ok {
				ok = false
				break
			}
			d := s[j].v - s[j-1].v
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		if !ok {
			continue
		}
		avgGain, avgLoss := gain/float64(n), loss/float64(n)
		switch {
		case avgLoss == 0 && avgGain == 0:
		case avgLoss == 0:
			out[i] = Defined(100)
		default:
			rs := avgGain / avgLoss
			out[i] = Defined(100 - 100/(1+rs))
		}
	}
	return out
}

type MACDResult struct {
	MACD, Signal, Hist Series
}

func MACD(closes []float64, fast, slow, signal int) MACDResult {
	f := EMA(closes, fast)
	sl := EMA(closes, slow)
	line := make(Series, len(closes))
	for i := range line {
		a, okA := f[i].Get()
		b, okB := sl[i].Get()
		if okA && okB {
			line[i] = Defined(a - b)
		}
	}
	sig := EMASeries(line, signal)
	hist := make(Series, len(closes))
	for i := range hist {
		m, okM := line[i].Get()
		g, okG := sig[i].Get()
		if okM && okG {
			hist[i] = Defined(m - g)
		}
	}
	return MACDResult{MACD: line, Signal: sig, Hist: hist}
}

// StdDev is the population standard deviation of the trailing window.
func StdDev(closes []float64, n int) Series {
	s := FromFloats(closes)
	out := make(Series, len(s))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(s); i++ {
		m, ok := windowMean(s, i, n)
		if !ok {
			continue
		}
		lo, hi := s[i].v, s[i].v
		acc := 0.0
		for j := i - n + 1; j <= i; j++ {
			d := s[j].v - m
			acc += d * d
			lo = math.Min(lo, s[j].v)
			hi = math.Max(hi, s[j].v)
		}
		if lo == hi {
			out[i] = Defined(0)
			continue
		}
		out[i] = Defined(math.Sqrt(acc / float64(n)))
	}
	return out
}

type BollingerResult struct {
	Upper, Mid, Lower Series
}

// Bollinger bands are mid ± k·stddev. k must be non-negative for
// Upper >= Mid >= Lower to hold.
func Bollinger(closes []float64, n int, k float64) BollingerResult {
	mid := SMA(closes, n)
	sd := StdDev(closes, n)
	res := BollingerResult{
		Upper: make(Series, len(closes)),
		Mid:   mid,
		Lower: make(Series, len(closes)),
	}
	for i := range closes {
		m, okM := mid[i].Get()
		d, okD := sd[i].Get()
		if okM && okD {
			res.Upper[i] = Defined(m + k*d)
			res.Lower[i] = Defined(m - k*d)
		}
	}
	return res
}

// ATR averages the true range over the trailing n bars.
func ATR(highs, lows, closes []float64, n int) Series {
	out := make(Series, len(closes))
	if len(highs) != len(lows) || len(lows) != len(closes) || n <= 0 {
		return out
	}
	for i := n; i < len(closes); i++ {
		sum := 0.0
		for j := i - n + 1; j <= i; j++ {
			tr1 := highs[j] - lows[j]
			tr2 := math.Abs(highs[j] - closes[j-1])
			tr3 := math.Abs(lows[j] - closes[j-1])
			sum += math.Max(tr1, math.Max(tr2, tr3))
		}
		out[i] = Defined(sum / float64(n))
	}
	return out
}
