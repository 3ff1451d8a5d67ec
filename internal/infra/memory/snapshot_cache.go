package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"delta-scoreboard/internal/domain"
)

// SnapshotCache keeps the last computed leaderboard for one refresh interval,
// so concurrent polls share a single aggregate query.
type SnapshotCache struct {
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu        sync.RWMutex
	rows      []domain.LeaderboardRow
	hasRows   bool
	expiresAt time.Time
}

func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{ttl: ttl, clock: time.Now}
}

func (c *SnapshotCache) GetOrCompute(ctx context.Context, compute func(ctx context.Context) ([]domain.LeaderboardRow, error)) ([]domain.LeaderboardRow, error) {
	now := c.clock()

	c.mu.RLock()
	if c.hasRows && c.expiresAt.After(now) {
		rows := c.rows
		c.mu.RUnlock()
		return rows, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("leaderboard", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.hasRows && c.expiresAt.After(now) {
			rows := c.rows
			c.mu.RUnlock()
			return rows, nil
		}
		c.mu.RUnlock()

		rows, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.rows = rows
		c.hasRows = true
		c.expiresAt = now.Add(c.ttl)
		c.mu.Unlock()
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardRow), nil
}

// Invalidate drops the cached snapshot so the next poll recomputes.
func (c *SnapshotCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	c.hasRows = false
	c.rows = nil
	c.mu.Unlock()
}
