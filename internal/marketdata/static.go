package marketdata

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/types"
)

const maxStaticBars = 500

// StaticSource generates synthetic candles for offline runs. The series is a
// random walk seeded by the symbol, so repeated calls agree.
type StaticSource struct {
	Base float64
	now  func() time.Time
}

var _ interfaces.CandleSource = (*StaticSource)(nil)

func NewStaticSource() *StaticSource {
	return &StaticSource{Base: 1000, now: time.Now}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Candles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	step, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, noData(s.Name(), req, "bad interval", err)
	}
	lookback, err := ParsePeriod(resolvePeriod(req))
	if err != nil {
		return nil, noData(s.Name(), req, "bad period", err)
	}
	n := int(lookback / step)
	if n > maxStaticBars {
		n = maxStaticBars
	}
	if n <= 0 {
		return nil, noData(s.Name(), req, "period shorter than interval", nil)
	}

	h := fnv.New64a()
	h.Write([]byte(req.Symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	end := s.now().Truncate(step)
	cs := make([]types.Candle, 0, n)
	c := s.Base
	for i := n - 1; i >= 0; i-- {
		open := c
		c += (rng.Float64() - 0.5) * 10
		if c < 1 {
			c = 1
		}
		hi := max(open, c) + rng.Float64()*3
		lo := min(open, c) - rng.Float64()*3
		cs = append(cs, types.Candle{
			Time:   end.Add(-time.Duration(i) * step),
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  c,
			Volume: rng.Float64() * 1000,
		})
	}
	return cs, nil
}
