package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// InFlightGuard claims submission slots with SETNX. The TTL frees a slot whose
// holder died before releasing it.
type InFlightGuard struct {
	rdb    RedisClient
	prefix string
	ttl    time.Duration
}

var _ ports.InFlightGuard = (*InFlightGuard)(nil)

func NewInFlightGuard(rdb RedisClient, prefix string, ttl time.Duration) *InFlightGuard {
	return &InFlightGuard{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (g *InFlightGuard) key(k string) string {
	return g.prefix + ":inflight:" + k
}

func (g *InFlightGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, g.key(key), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis: %v", domain.ErrUnavailable, err)
	}
	return ok, nil
}

func (g *InFlightGuard) Release(ctx context.Context, key string) error {
	if err := g.rdb.Del(ctx, g.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis: %v", domain.ErrUnavailable, err)
	}
	return nil
}
