package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"delta-scoreboard/internal/domain"
)

const snapshotKey = "scoreboard:leaderboard"

// SnapshotCache shares one leaderboard snapshot across instances for a single
// refresh interval, so a room full of polling clients costs one aggregate
// query per interval.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) GetOrCompute(ctx context.Context, compute func(ctx context.Context) ([]domain.LeaderboardRow, error)) ([]domain.LeaderboardRow, error) {
	if rows, ok := c.get(ctx); ok {
		return rows, nil
	}

	result, err, _ := c.sf.Do(snapshotKey, func() (interface{}, error) {
		if rows, ok := c.get(ctx); ok {
			return rows, nil
		}

		rows, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(rows); err == nil {
			// best-effort: a failed write only costs a recompute
			_ = c.client.Set(ctx, snapshotKey, raw, c.ttl).Err()
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardRow), nil
}

func (c *SnapshotCache) get(ctx context.Context) ([]domain.LeaderboardRow, bool) {
	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []domain.LeaderboardRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// Invalidate drops the shared snapshot so the next poll recomputes.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, snapshotKey).Err()
}
