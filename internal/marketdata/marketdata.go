// Package marketdata fetches OHLCV history from external providers and
// hands it to the pipeline in the shape it expects: ascending, unique
// timestamps, finite values.
package marketdata

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"chronos-quant/internal/types"
)

// ErrNoData matches every NoDataError via errors.Is.
var ErrNoData = errors.New("no market data")

// NoDataError reports that a source produced nothing usable for a request.
type NoDataError struct {
	Source   string
	Symbol   string
	Interval string
	Reason   string
	Err      error
}

func (e *NoDataError) Error() string {
	msg := fmt.Sprintf("%s: no data for %s (%s)", e.Source, e.Symbol, e.Interval)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NoDataError) Is(target error) bool { return target == ErrNoData }

func (e *NoDataError) Unwrap() error { return e.Err }

func noData(source string, req types.CandleRequest, reason string, err error) error {
	return &NoDataError{Source: source, Symbol: req.Symbol, Interval: req.Interval, Reason: reason, Err: err}
}

// Normalize sorts candles ascending, keeps the last row seen for a repeated
// timestamp and drops rows carrying non-finite prices or volume.
func Normalize(in []types.Candle) []types.Candle {
	out := make([]types.Candle, 0, len(in))
	for _, c := range in {
		if !finite(c.Open, c.High, c.Low, c.Close, c.Volume) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(c.Time) {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Lookback used when a request leaves Period empty. Intraday providers cap
// how far back small intervals reach.
var defaultPeriods = map[string]string{
	"1m":  "7d",
	"2m":  "7d",
	"5m":  "60d",
	"15m": "60d",
	"30m": "60d",
	"1h":  "730d",
	"1d":  "2y",
}

// PeriodFor returns the default lookback for an interval, 60d if unknown.
func PeriodFor(interval string) string {
	if p, ok := defaultPeriods[interval]; ok {
		return p
	}
	return "60d"
}

func resolvePeriod(req types.CandleRequest) string {
	if req.Period != "" {
		return req.Period
	}
	return PeriodFor(req.Interval)
}

// ParsePeriod converts lookbacks such as 7d, 6mo, 2y or 3wk to a duration.
// Months count as 30 days and years as 365.
func ParsePeriod(p string) (time.Duration, error) {
	p = strings.TrimSpace(strings.ToLower(p))
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"mo", 30 * 24 * time.Hour},
		{"wk", 7 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"y", 365 * 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
	}
	for _, u := range units {
		if !strings.HasSuffix(p, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(p, u.suffix))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid period %q", p)
		}
		return time.Duration(n) * u.unit, nil
	}
	return 0, fmt.Errorf("invalid period %q", p)
}

// ParseInterval converts bar intervals such as 5m, 1h or 1d to a duration.
func ParseInterval(interval string) (time.Duration, error) {
	switch strings.ToLower(interval) {
	case "1wk":
		return 7 * 24 * time.Hour, nil
	case "1mo":
		return 30 * 24 * time.Hour, nil
	}
	d, err := ParsePeriod(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	return d, nil
}
