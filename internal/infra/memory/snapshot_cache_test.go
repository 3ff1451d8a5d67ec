package memory

import (
	"context"
	"testing"
	"time"

	"delta-scoreboard/internal/domain"
)

func TestSnapshotCacheServesWithinTTL(t *testing.T) {
	cache := NewSnapshotCache(time.Minute)

	calls := 0
	compute := func(ctx context.Context) ([]domain.LeaderboardRow, error) {
		calls++
		return []domain.LeaderboardRow{{Rank: 1, UserID: "alice@example.com", TotalScore: 10}}, nil
	}

	rows, err := cache.GetOrCompute(context.Background(), compute)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rows) != 1 || calls != 1 {
		t.Fatalf("expected one computed row, rows=%d calls=%d", len(rows), calls)
	}

	if _, err := cache.GetOrCompute(context.Background(), compute); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cache hit, compute calls %d", calls)
	}

	cache.Invalidate(context.Background())
	if _, err := cache.GetOrCompute(context.Background(), compute); err != nil {
		t.Fatalf("get 3: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected recompute after invalidate, calls %d", calls)
	}
}
