package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"delta-scoreboard/internal/domain"
)

// QuestionLoader fetches the question set from a backing store (e.g., the warehouse).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context) (domain.QuestionSet, error)
}

// QuestionRepository caches the question set with TTL to avoid repeated loads.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    domain.QuestionSet
	hasCache  bool
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context) (domain.QuestionSet, error) {
	now := r.clock()

	r.mu.RLock()
	if r.hasCache && r.expiresAt.After(now) {
		set := r.cached
		r.mu.RUnlock()
		return set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("questions", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.hasCache && r.expiresAt.After(now) {
			set := r.cached
			r.mu.RUnlock()
			return set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadQuestionSet(ctx)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cached = set
		r.hasCache = true
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a fixed question set (useful for tests/demos).
type StaticQuestionLoader struct {
	set domain.QuestionSet
}

func NewStaticQuestionLoader(set domain.QuestionSet) *StaticQuestionLoader {
	return &StaticQuestionLoader{set: set}
}

func (l *StaticQuestionLoader) LoadQuestionSet(_ context.Context) (domain.QuestionSet, error) {
	if l.set.ID == "" {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	return l.set, nil
}
