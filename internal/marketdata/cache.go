package marketdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"chronos-quant/internal/interfaces"
	"chronos-quant/internal/logger"
	"chronos-quant/internal/types"
)

// Cache stores candle slices under a request key.
type Cache interface {
	Get(ctx context.Context, key string) ([]types.Candle, bool, error)
	Set(ctx context.Context, key string, candles []types.Candle, ttl time.Duration) error
}

// memoryCache manages symbol-specific candle buffers with thread-safe access
type memoryCache struct {
	buffers map[string]*candleBuffer
	maxSize int
	now     func() time.Time
	mu      sync.RWMutex
}

// candleBuffer stores the most recent candles of one request key
type candleBuffer struct {
	candles []types.Candle
	expires time.Time
}

// NewMemoryCache returns an in-process cache keeping at most maxSize candles
// per key; maxSize <= 0 keeps everything.
func NewMemoryCache(maxSize int) Cache {
	return &memoryCache{
		buffers: make(map[string]*candleBuffer),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (mc *memoryCache) Get(_ context.Context, key string) ([]types.Candle, bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	buffer, exists := mc.buffers[key]
	if !exists || !mc.now().Before(buffer.expires) {
		return nil, false, nil
	}
	out := make([]types.Candle, len(buffer.candles))
	copy(out, buffer.candles)
	return out, true, nil
}

func (mc *memoryCache) Set(_ context.Context, key string, candles []types.Candle, ttl time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	// Keep only the tail when the buffer is bounded
	if mc.maxSize > 0 && len(candles) > mc.maxSize {
		candles = candles[len(candles)-mc.maxSize:]
	}
	stored := make([]types.Candle, len(candles))
	copy(stored, candles)
	mc.buffers[key] = &candleBuffer{candles: stored, expires: mc.now().Add(ttl)}

	for k, b := range mc.buffers {
		if !mc.now().Before(b.expires) {
			delete(mc.buffers, k)
		}
	}
	return nil
}

// cachedSource serves repeated requests from a cache.
type cachedSource struct {
	src    interfaces.CandleSource
	cache  Cache
	ttl    time.Duration
	prefix string
}

var _ interfaces.CandleSource = (*cachedSource)(nil)

// Cached decorates src with cache. Cache failures are logged and fall
// through to the source; they never fail a fetch.
func Cached(src interfaces.CandleSource, cache Cache, ttl time.Duration, prefix string) interfaces.CandleSource {
	if cache == nil || ttl <= 0 {
		return src
	}
	return &cachedSource{src: src, cache: cache, ttl: ttl, prefix: prefix}
}

func (c *cachedSource) Name() string { return c.src.Name() }

func (c *cachedSource) key(req types.CandleRequest) string {
	return strings.Join([]string{
		c.prefix, c.src.Name(), strings.ToUpper(req.Exchange), strings.ToUpper(req.Symbol), req.Interval, resolvePeriod(req),
	}, ":")
}

func (c *cachedSource) Candles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	key := c.key(req)
	if cs, ok, err := c.cache.Get(ctx, key); err != nil {
		logger.Warn(ctx, "Candle cache read failed", "key", key, "error", err)
	} else if ok {
		logger.Debug(ctx, "Candle cache hit", "key", key, "count", len(cs))
		return cs, nil
	}

	cs, err := c.src.Candles(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, cs, c.ttl); err != nil {
		logger.Warn(ctx, "Candle cache write failed", "key", key, "error", err)
	}
	return cs, nil
}
