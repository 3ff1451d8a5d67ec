package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"delta-scoreboard/internal/app"
	"delta-scoreboard/internal/domain"
	"delta-scoreboard/internal/infra/memory"
	"delta-scoreboard/internal/infra/postgres"
	pgmigrations "delta-scoreboard/internal/infra/postgres/migrations"
	redisinfra "delta-scoreboard/internal/infra/redis"
)

func TestScoreboardEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	session, err := postgres.Connect(ctx, postgres.Credentials{URL: pgURL})
	if err != nil {
		t.Fatalf("connect warehouse: %v", err)
	}
	defer session.Close()

	store, err := postgres.NewStore(session, postgres.DefaultTables())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := postgres.NewQuestionLoader(session, "workshop", 10)
	service := app.NewScoreboardService(app.Config{
		Directory: memory.NewStaticDirectory([]domain.EligibleUser{
			{Email: "Alice@Example.com", DisplayName: "Alice", WorkspaceID: "1"},
			{Email: "bob@example.com", DisplayName: "Bob", WorkspaceID: "2"},
			{Email: "carol@example.com", DisplayName: "Carol", WorkspaceID: "3"},
		}),
		Eligibility:       store,
		Responses:         store,
		Questions:         redisinfra.NewQuestionRepository(redisClient, loader, "workshop", 5*time.Minute),
		Snapshots:         redisinfra.NewSnapshotCache(redisClient, time.Second),
		PointsPerQuestion: 10,
	})

	count, err := service.SyncUsers(ctx, false)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 users synced, got %d", count)
	}

	// Sync again: idempotent.
	if again, err := service.SyncUsers(ctx, false); err != nil || again != 3 {
		t.Fatalf("resync: count=%d err=%v", again, err)
	}

	result, err := service.SubmitResponse(ctx, "alice@example.com", "q1", "parquet")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.Awarded != 10 || result.TotalScore != 10 {
		t.Fatalf("expected correct 10-point answer, got %+v", result)
	}

	// Resubmit with the wrong answer: overwrites, score drops to 0.
	result, err = service.SubmitResponse(ctx, "alice@example.com", "q1", "JSON")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if result.Correct || result.TotalScore != 0 {
		t.Fatalf("expected overwrite to 0, got %+v", result)
	}

	if _, err := service.SubmitResponse(ctx, "bob@example.com", "q1", "Parquet"); err != nil {
		t.Fatalf("bob submit: %v", err)
	}

	if _, err := service.SubmitResponse(ctx, "mallory@example.com", "q1", "Parquet"); !errors.Is(err, domain.ErrIneligibleUser) {
		t.Fatalf("expected ineligible error, got %v", err)
	}

	rows, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].UserID != "bob@example.com" || rows[0].TotalScore != 10 || rows[0].Rank != 1 {
		t.Fatalf("expected bob leading, got %+v", rows[0])
	}

	total, err := service.UserScore(ctx, "bob@example.com")
	if err != nil || total != 10 {
		t.Fatalf("expected bob score 10, got %d err=%v", total, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "scoreboard", "POSTGRES_PASSWORD": "scoreboardpass", "POSTGRES_DB": "scoreboarddb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://scoreboard:scoreboardpass@%s:%s/scoreboarddb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_sets (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, "workshop", string(data)); err != nil {
		t.Fatalf("insert questions: %v", err)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:      "q1",
			Prompt:  "Which format does Delta Lake use for storage?",
			Options: []string{"JSON", "Parquet", "CSV"},
			Answer:  "Parquet",
		},
		{
			ID:      "q2",
			Prompt:  "What command is used to optimize Delta tables?",
			Options: []string{"VACUUM", "OPTIMIZE", "COMPACT"},
			Answer:  "OPTIMIZE",
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
