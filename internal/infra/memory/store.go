package memory

import (
	"context"
	"sort"
	"sync"

	"delta-scoreboard/internal/domain"
)

// Store is an in-memory eligibility and response store, used for demo mode and
// tests when no warehouse is configured.
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.EligibleUser
	responses map[string]map[string]domain.QuestionResponse // user -> question -> response
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.EligibleUser),
		responses: make(map[string]map[string]domain.QuestionResponse),
	}
}

func (s *Store) UpsertUsers(_ context.Context, users []domain.EligibleUser) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.Email] = u
	}
	return len(users), nil
}

func (s *Store) PurgeMissing(_ context.Context, keep []string) (int, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, email := range keep {
		keepSet[email] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for email := range s.users {
		if _, ok := keepSet[email]; !ok {
			delete(s.users, email)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) IsEligible(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[email]
	return ok, nil
}

func (s *Store) UpsertResponse(_ context.Context, resp domain.QuestionResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byQuestion, ok := s.responses[resp.UserID]
	if !ok {
		byQuestion = make(map[string]domain.QuestionResponse)
		s.responses[resp.UserID] = byQuestion
	}
	byQuestion[resp.QuestionID] = resp
	return nil
}

func (s *Store) UserScore(_ context.Context, email string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, resp := range s.responses[email] {
		total += resp.Points
	}
	return total, nil
}

// ScoreAggregates rolls up responses per eligible user. Synced users with no
// responses yet appear with a zero total, matching the warehouse aggregate.
func (s *Store) ScoreAggregates(_ context.Context) ([]domain.ScoreAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	aggregates := make([]domain.ScoreAggregate, 0, len(s.users))
	for email, user := range s.users {
		agg := domain.ScoreAggregate{
			Email:       email,
			DisplayName: user.DisplayName,
		}
		for _, resp := range s.responses[email] {
			agg.TotalScore += resp.Points
			agg.QuestionsAnswered++
			if resp.Correct && resp.SubmittedAt.After(agg.LastCorrectAt) {
				agg.LastCorrectAt = resp.SubmittedAt
			}
		}
		aggregates = append(aggregates, agg)
	}

	// Map iteration order is random; keep output stable for callers.
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].Email < aggregates[j].Email
	})
	return aggregates, nil
}

// ResponseCount is test-only visibility into stored rows for a user.
func (s *Store) ResponseCount(email string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.responses[email])
}

// StaticDirectory is a fixed user listing (useful for demos without a
// reachable directory service).
type StaticDirectory struct {
	users []domain.EligibleUser
}

func NewStaticDirectory(users []domain.EligibleUser) *StaticDirectory {
	return &StaticDirectory{users: users}
}

func (d *StaticDirectory) ListUsers(_ context.Context) ([]domain.EligibleUser, error) {
	out := make([]domain.EligibleUser, len(d.users))
	copy(out, d.users)
	return out, nil
}
