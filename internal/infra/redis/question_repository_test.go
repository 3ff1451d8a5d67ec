package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"delta-scoreboard/internal/domain"
	"delta-scoreboard/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(sampleSet()),
	}
	repo := NewQuestionRepository(client, loader, "workshop", time.Minute)

	set, err := repo.GetQuestionSet(context.Background())
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	if len(set.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(set.Questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("scoreboard:questions:workshop") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit cache, loader not incremented.
	_, _ = repo.GetQuestionSet(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context) (domain.QuestionSet, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestionSet(ctx)
}

func sampleSet() domain.QuestionSet {
	set, err := domain.NewQuestionSet("workshop", []domain.Question{
		{
			ID:      "q1",
			Prompt:  "Which format does Delta Lake use for storage?",
			Options: []string{"JSON", "Parquet", "CSV"},
			Answer:  "Parquet",
		},
	}, 0)
	if err != nil {
		panic(err)
	}
	return set
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
