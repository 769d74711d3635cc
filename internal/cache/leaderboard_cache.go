package cache

import (
	"context"
	"fmt"
	"riskierwas/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for the team scoreboard
type LeaderboardCache interface {
	SetScores(ctx context.Context, code string, teams []model.Team) error
	GetTop(ctx context.Context, code string, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, code, team string) (int64, error)
	Delete(ctx context.Context, code string) error
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	Team  string `json:"team"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

type leaderboardCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client redis.UniversalClient) LeaderboardCache {
	return &leaderboardCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *leaderboardCache) key(code string) string {
	return fmt.Sprintf("game:%s:lb", code)
}

// SetScores writes the banked score of every team in one round trip
func (c *leaderboardCache) SetScores(ctx context.Context, code string, teams []model.Team) error {
	if len(teams) == 0 {
		return nil
	}
	members := make([]redis.Z, len(teams))
	for i, t := range teams {
		members[i] = redis.Z{Score: float64(t.Score), Member: t.Name}
	}

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, c.key(code), members...)
	pipe.Expire(ctx, c.key(code), c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *leaderboardCache) GetTop(ctx context.Context, code string, limit int) ([]LeaderboardEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(code), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			Team:  z.Member.(string),
			Score: int(z.Score),
			Rank:  i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, code, team string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(code), team).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *leaderboardCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
