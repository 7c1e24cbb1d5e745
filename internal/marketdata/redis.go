package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"chronos-quant/internal/types"
)

// redisCache stores candles as JSON strings with a TTL so several watch
// processes can share one fetch budget.
type redisCache struct {
	rdb *redis.Client
}

var _ Cache = (*redisCache)(nil)

func NewRedisCache(rdb *redis.Client) Cache {
	return &redisCache{rdb: rdb}
}

// DialRedis connects and pings before returning.
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]types.Candle, bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cs []types.Candle
	if err := json.Unmarshal(b, &cs); err != nil {
		return nil, false, fmt.Errorf("decode cached candles: %w", err)
	}
	return cs, true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, candles []types.Candle, ttl time.Duration) error {
	b, err := json.Marshal(candles)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, b, ttl).Err()
}
