package services

import (
	"context"
	"fmt"
	"time"
)

// Rate-limited action kinds.
const (
	ActionVote       = "vote"
	ActionCreatePoll = "create_poll"
)

// CounterStore is the minimal atomic-counter surface the limiter needs.
// *database.RedisClient satisfies it.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RateLimiter maintains per-day action counters with automatic expiry.
type RateLimiter interface {
	Consume(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type counterRateLimiter struct {
	store CounterStore
}

func NewRateLimiter(store CounterStore) RateLimiter {
	return &counterRateLimiter{store: store}
}

// Consume increments the counter at key and returns the running count.
// The first call of a window creates the key at 1 and arms the TTL;
// later calls increment without touching the expiry. The increment
// happens before any limit comparison, so the call that exceeds a limit
// still burns one unit of quota and there is nothing to roll back -- a
// deliberate one-round-trip trade-off.
func (l *counterRateLimiter) Consume(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if _, err := l.store.Expire(ctx, key, ttl); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// DailyKey builds the counter key for one user, action and calendar day.
func DailyKey(userID, action string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", action, userID, now.Format("2006-01-02"))
}

// UntilDayEnd returns the time left until the day rolls over, used as the
// counter TTL so keys evict themselves.
func UntilDayEnd(now time.Time) time.Duration {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
	return midnight.Sub(now)
}
