package calls

import (
	"context"
	"time"

	"callwatch/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter caps concurrent active calls per owner using the atomic
// Redis counter in pkg/utils. The TTL bounds leaked slots if the process
// crashes between placement and the terminal webhook.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) key(ownerID string) string { return "callwatch:active_calls:" + ownerID }

func (l *RedisLimiter) Acquire(ctx context.Context, ownerID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key(ownerID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, ownerID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key(ownerID))
}
