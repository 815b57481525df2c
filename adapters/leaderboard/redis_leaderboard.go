package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

// RedisLeaderboard ranks players with a Redis sorted set
type RedisLeaderboard struct {
	client *redis.Client
	key    string
}

// NewRedisLeaderboard creates a new Redis-backed leaderboard
func NewRedisLeaderboard(client *redis.Client) ports.Leaderboard {
	return &RedisLeaderboard{
		client: client,
		key:    "pincade:leaderboard",
	}
}

// AddScore increments the player's total and returns it
func (l *RedisLeaderboard) AddScore(ctx context.Context, userID string, points int64) (int64, error) {
	total, err := l.client.ZIncrBy(ctx, l.key, float64(points), userID).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: zincrby: %v", core.ErrStoreUnavailable, err)
	}
	return int64(total), nil
}

// Top returns the highest-ranked entries, best first
func (l *RedisLeaderboard) Top(ctx context.Context, n int) ([]core.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	members, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: zrevrange: %v", core.ErrStoreUnavailable, err)
	}

	entries := make([]core.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, core.LeaderboardEntry{
			UserID: userID,
			Score:  int64(m.Score),
		})
	}

	return entries, nil
}

// Rank returns the player's zero-based rank and total score
func (l *RedisLeaderboard) Rank(ctx context.Context, userID string) (int64, int64, error) {
	rank, err := l.client.ZRevRank(ctx, l.key, userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, core.ErrRecordNotFound
		}
		return 0, 0, fmt.Errorf("%w: zrevrank: %v", core.ErrStoreUnavailable, err)
	}

	score, err := l.client.ZScore(ctx, l.key, userID).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: zscore: %v", core.ErrStoreUnavailable, err)
	}

	return rank, int64(score), nil
}
