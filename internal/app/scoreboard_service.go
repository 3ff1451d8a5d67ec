package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"delta-scoreboard/internal/domain"
)

// DirectoryClient lists the users eligible to participate, as reported by the
// external directory service.
type DirectoryClient interface {
	ListUsers(ctx context.Context) ([]domain.EligibleUser, error)
}

// EligibilityStore persists the reconciled eligibility table.
type EligibilityStore interface {
	UpsertUsers(ctx context.Context, users []domain.EligibleUser) (int, error)
	// PurgeMissing deletes users whose email is not in keep. Only invoked on
	// explicit operator request; the default sync policy is fail-open.
	PurgeMissing(ctx context.Context, keep []string) (int, error)
	IsEligible(ctx context.Context, email string) (bool, error)
}

// ResponseStore persists question responses and serves score rollups.
type ResponseStore interface {
	UpsertResponse(ctx context.Context, resp domain.QuestionResponse) error
	UserScore(ctx context.Context, email string) (int, error)
	ScoreAggregates(ctx context.Context) ([]domain.ScoreAggregate, error)
}

// QuestionRepository loads the question set (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context) (domain.QuestionSet, error)
}

// SnapshotCache holds a short-lived leaderboard snapshot so fixed-interval
// polling by many clients does not recompute the aggregate each time.
type SnapshotCache interface {
	GetOrCompute(ctx context.Context, compute func(ctx context.Context) ([]domain.LeaderboardRow, error)) ([]domain.LeaderboardRow, error)
	Invalidate(ctx context.Context)
}

// Config carries the ScoreboardService dependencies.
type Config struct {
	Directory   DirectoryClient
	Eligibility EligibilityStore
	Responses   ResponseStore
	Questions   QuestionRepository
	// Snapshots is optional; when nil the leaderboard is recomputed per call.
	Snapshots SnapshotCache

	PointsPerQuestion int
	// Now is test-only for deterministic timestamps.
	Now func() time.Time
}

// ScoreboardService contains the workshop scoreboard use cases.
type ScoreboardService struct {
	directory   DirectoryClient
	eligibility EligibilityStore
	responses   ResponseStore
	questions   QuestionRepository
	snapshots   SnapshotCache
	points      int
	now         func() time.Time
}

func NewScoreboardService(c Config) *ScoreboardService {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return &ScoreboardService{
		directory:   c.Directory,
		eligibility: c.Eligibility,
		responses:   c.Responses,
		questions:   c.Questions,
		snapshots:   c.Snapshots,
		points:      c.PointsPerQuestion,
		now:         now,
	}
}

// SyncUsers reconciles the directory listing into the eligibility table and
// returns the number of users upserted. Emails are normalized to lower case;
// duplicates differing only by case are collapsed (first wins). Users missing
// from the directory are kept unless purgeMissing is set.
func (s *ScoreboardService) SyncUsers(ctx context.Context, purgeMissing bool) (int, error) {
	listed, err := s.directory.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	users := make([]domain.EligibleUser, 0, len(listed))
	seen := make(map[string]struct{}, len(listed))
	for _, u := range listed {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		u.Email = email
		users = append(users, u)
	}

	count, err := s.eligibility.UpsertUsers(ctx, users)
	if err != nil {
		return 0, err
	}

	if purgeMissing {
		keep := make([]string, 0, len(users))
		for _, u := range users {
			keep = append(keep, u.Email)
		}
		if _, err := s.eligibility.PurgeMissing(ctx, keep); err != nil {
			return count, err
		}
	}
	return count, nil
}

// SubmitResponse grades and records an answer. The prior response for the same
// (user, question) pair, if any, is overwritten.
func (s *ScoreboardService) SubmitResponse(ctx context.Context, email, questionID, answer string) (domain.SubmissionResult, error) {
	set, err := s.questions.GetQuestionSet(ctx)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	question, ok := set.Question(questionID)
	if !ok {
		return domain.SubmissionResult{}, domain.ErrUnknownQuestion
	}

	email = strings.ToLower(strings.TrimSpace(email))
	eligible, err := s.eligibility.IsEligible(ctx, email)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if !eligible {
		return domain.SubmissionResult{}, domain.ErrIneligibleUser
	}

	correct := question.Grade(answer)
	awarded := 0
	if correct {
		awarded = s.points
	}

	resp := domain.QuestionResponse{
		ResponseID:  uuid.NewString(),
		UserID:      email,
		QuestionID:  questionID,
		Answer:      strings.TrimSpace(answer),
		Correct:     correct,
		Points:      awarded,
		SubmittedAt: s.now(),
	}
	if err := s.responses.UpsertResponse(ctx, resp); err != nil {
		return domain.SubmissionResult{}, err
	}

	total, err := s.responses.UserScore(ctx, email)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	if s.snapshots != nil {
		s.snapshots.Invalidate(ctx)
	}

	return domain.SubmissionResult{
		QuestionID: questionID,
		Correct:    correct,
		Awarded:    awarded,
		TotalScore: total,
	}, nil
}

// Leaderboard returns the ranked scoreboard, fresh or from the snapshot cache.
func (s *ScoreboardService) Leaderboard(ctx context.Context) ([]domain.LeaderboardRow, error) {
	if s.snapshots == nil {
		return s.computeLeaderboard(ctx)
	}
	return s.snapshots.GetOrCompute(ctx, s.computeLeaderboard)
}

func (s *ScoreboardService) computeLeaderboard(ctx context.Context) ([]domain.LeaderboardRow, error) {
	aggregates, err := s.responses.ScoreAggregates(ctx)
	if err != nil {
		return nil, err
	}
	return RankAggregates(aggregates), nil
}

// UserScore returns the user's current total.
func (s *ScoreboardService) UserScore(ctx context.Context, email string) (int, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	eligible, err := s.eligibility.IsEligible(ctx, email)
	if err != nil {
		return 0, err
	}
	if !eligible {
		return 0, domain.ErrIneligibleUser
	}
	return s.responses.UserScore(ctx, email)
}

// RankAggregates orders score rollups into leaderboard rows: total score
// descending, then earliest last-correct-answer timestamp (users without a
// correct answer sort after those with one), then display name. Ranks are the
// 1-based position after ordering; equal scores still get distinct ranks.
func RankAggregates(aggregates []domain.ScoreAggregate) []domain.LeaderboardRow {
	sorted := make([]domain.ScoreAggregate, len(aggregates))
	copy(sorted, aggregates)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		switch {
		case a.LastCorrectAt.IsZero() != b.LastCorrectAt.IsZero():
			return b.LastCorrectAt.IsZero()
		case !a.LastCorrectAt.Equal(b.LastCorrectAt):
			return a.LastCorrectAt.Before(b.LastCorrectAt)
		}
		return a.DisplayName < b.DisplayName
	})

	rows := make([]domain.LeaderboardRow, 0, len(sorted))
	for i, agg := range sorted {
		rows = append(rows, domain.LeaderboardRow{
			Rank:              i + 1,
			UserID:            agg.Email,
			DisplayName:       agg.DisplayName,
			TotalScore:        agg.TotalScore,
			QuestionsAnswered: agg.QuestionsAnswered,
		})
	}
	return rows
}
