package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BROWN1213/picknic/internal/database"

	"github.com/redis/go-redis/v9"
)

// LeaderboardKey is the sorted set holding cumulative points per user.
const LeaderboardKey = "leaderboard:weekly"

// ScoreIndex is the score-ordered member index behind the leaderboard.
// It is injected into whatever needs it; nothing reads it ambiently.
type ScoreIndex interface {
	// IncrementScore adjusts a member's score by delta. Best-effort:
	// failures are logged and swallowed because ranking is secondary to
	// the action that earned the points.
	IncrementScore(ctx context.Context, key, member string, delta float64)

	// TopMembers returns members ordered by descending score. start and
	// stop are inclusive zero-based positions; stop of -1 means the end.
	// Equal scores fall back to Redis's lexical member order, which is
	// not guaranteed stable across store implementations.
	TopMembers(ctx context.Context, key string, start, stop int64) ([]string, error)

	// RankOf returns the raw zero-based descending-score position of the
	// member, unfiltered. The second result is false when the member is
	// not indexed.
	RankOf(ctx context.Context, key, member string) (int64, bool, error)

	// ScoreOf returns the member's score, or (0, false, nil) when the
	// member is not indexed.
	ScoreOf(ctx context.Context, key, member string) (float64, bool, error)
}

type redisScoreIndex struct {
	client *database.RedisClient
}

func NewScoreIndex(client *database.RedisClient) ScoreIndex {
	return &redisScoreIndex{client: client}
}

func (r *redisScoreIndex) IncrementScore(ctx context.Context, key, member string, delta float64) {
	if err := r.client.GetClient().ZIncrBy(ctx, key, delta, member).Err(); err != nil {
		slog.Error("failed to increment score", "key", key, "member", member, "delta", delta, "error", err)
	}
}

func (r *redisScoreIndex) TopMembers(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.GetClient().ZRevRange(ctx, key, start, stop).Result()
}

func (r *redisScoreIndex) RankOf(ctx context.Context, key, member string) (int64, bool, error) {
	rank, err := r.client.GetClient().ZRevRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (r *redisScoreIndex) ScoreOf(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := r.client.GetClient().ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}
