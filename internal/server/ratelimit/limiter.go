// Package ratelimit throttles credential verification per user with a fixed
// window counter kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cliquefs:verify:"

// Counter is the subset of *redis.Client used by Limiter.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Limiter allows at most limit attempts per user within window. A nil
// *Limiter allows everything.
type Limiter struct {
	rdb    Counter
	limit  int64
	window time.Duration
}

func New(rdb Counter, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: int64(limit), window: window}
}

// NewRedisClient connects to addr and pings it. Callers treat an error as
// "throttling disabled".
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Allow counts one attempt for userID and reports whether it is within the
// limit. The window starts at the first attempt.
func (l *Limiter) Allow(ctx context.Context, userID int64) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}

	k := key(userID)
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return n <= l.limit, nil
}

// Reset clears the counter after a successful verification.
func (l *Limiter) Reset(ctx context.Context, userID int64) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	if err := l.rdb.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
