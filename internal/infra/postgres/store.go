package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"delta-scoreboard/internal/domain"
)

const maxConcurrentUpserts = 8

// Tables names the warehouse tables the store reads and writes. Names are
// configurable to match whatever the workshop warehouse uses.
type Tables struct {
	Users     string
	Responses string
}

func DefaultTables() Tables {
	return Tables{Users: "eligible_users", Responses: "user_responses"}
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store implements the eligibility and response stores on the warehouse.
type Store struct {
	session *Session
	tables  Tables
}

// NewStore validates table names up front; they are interpolated into SQL.
func NewStore(session *Session, tables Tables) (*Store, error) {
	if tables.Users == "" || tables.Responses == "" {
		tables = DefaultTables()
	}
	for _, name := range []string{tables.Users, tables.Responses} {
		if !tableNamePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return &Store{session: session, tables: tables}, nil
}

func (s *Store) UpsertUsers(ctx context.Context, users []domain.EligibleUser) (int, error) {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (email, display_name, workspace_id, synced_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (email) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    workspace_id = EXCLUDED.workspace_id,
		    synced_at = EXCLUDED.synced_at`, s.tables.Users)

	// Warehouse round-trips dominate sync time; row upserts are independent.
	var eg errgroup.Group
	eg.SetLimit(maxConcurrentUpserts)
	for _, u := range users {
		u := u
		eg.Go(func() error {
			if err := s.session.Exec(ctx, stmt, u.Email, u.DisplayName, u.WorkspaceID); err != nil {
				return fmt.Errorf("upsert user %s: %w", u.Email, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return len(users), nil
}

func (s *Store) PurgeMissing(ctx context.Context, keep []string) (int, error) {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE NOT (email = ANY($1))`, s.tables.Users)
	tag, err := s.session.pool.Exec(ctx, stmt, keep)
	if err != nil {
		return 0, queryErr(fmt.Errorf("purge users: %v", err))
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) IsEligible(ctx context.Context, email string) (bool, error) {
	stmt := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE email = $1)`, s.tables.Users)
	var eligible bool
	if err := s.session.QueryRow(ctx, stmt, email).Scan(&eligible); err != nil {
		return false, WrapQueryErr(fmt.Errorf("check eligibility: %v", err))
	}
	return eligible, nil
}

func (s *Store) UpsertResponse(ctx context.Context, resp domain.QuestionResponse) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (response_id, user_id, question_id, answer, is_correct, points, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, question_id) DO UPDATE
		SET response_id = EXCLUDED.response_id,
		    answer = EXCLUDED.answer,
		    is_correct = EXCLUDED.is_correct,
		    points = EXCLUDED.points,
		    submitted_at = EXCLUDED.submitted_at`, s.tables.Responses)

	if err := s.session.Exec(ctx, stmt,
		resp.ResponseID, resp.UserID, resp.QuestionID, resp.Answer, resp.Correct, resp.Points, resp.SubmittedAt); err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

func (s *Store) UserScore(ctx context.Context, email string) (int, error) {
	stmt := fmt.Sprintf(`SELECT COALESCE(SUM(points), 0) FROM %s WHERE user_id = $1`, s.tables.Responses)
	var total int
	if err := s.session.QueryRow(ctx, stmt, email).Scan(&total); err != nil {
		return 0, WrapQueryErr(fmt.Errorf("user score: %v", err))
	}
	return total, nil
}

// ScoreAggregates joins eligibility against responses so synced users without
// a single answer still appear with a zero total.
func (s *Store) ScoreAggregates(ctx context.Context) ([]domain.ScoreAggregate, error) {
	stmt := fmt.Sprintf(`
		SELECT u.email,
		       u.display_name,
		       COALESCE(SUM(r.points), 0)::int AS total_points,
		       COUNT(r.question_id)::int AS questions_answered,
		       MAX(r.submitted_at) FILTER (WHERE r.is_correct) AS last_correct_at
		FROM %s u
		LEFT JOIN %s r ON r.user_id = u.email
		GROUP BY u.email, u.display_name`, s.tables.Users, s.tables.Responses)

	rows, err := s.session.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("score aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []domain.ScoreAggregate
	for rows.Next() {
		var agg domain.ScoreAggregate
		var lastCorrect *time.Time
		if err := rows.Scan(&agg.Email, &agg.DisplayName, &agg.TotalScore, &agg.QuestionsAnswered, &lastCorrect); err != nil {
			return nil, WrapQueryErr(fmt.Errorf("scan aggregate: %v", err))
		}
		if lastCorrect != nil {
			agg.LastCorrectAt = *lastCorrect
		}
		aggregates = append(aggregates, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapQueryErr(err)
	}
	return aggregates, nil
}
