package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"delta-scoreboard/internal/domain"
)

// QuestionLoader fetches the question set from a backing store (e.g., the warehouse).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context) (domain.QuestionSet, error)
}

// QuestionRepository caches the question set in Redis as a JSON blob and falls
// back to the loader on cache miss. Key: scoreboard:questions:{setID}
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	setID  string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, setID string, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		setID:  setID,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context) (domain.QuestionSet, error) {
	key := r.key()

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var set domain.QuestionSet
		if err := json.Unmarshal(raw, &set); err == nil {
			return set, nil
		}
		// Corrupt entry; fall through and refill.
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var set domain.QuestionSet
			if err := json.Unmarshal(raw, &set); err == nil {
				return set, nil
			}
		}

		set, err := r.loader.LoadQuestionSet(ctx)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if raw, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) key() string {
	return fmt.Sprintf("scoreboard:questions:%s", r.setID)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
