package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"delta-scoreboard/internal/app"
	"delta-scoreboard/internal/config"
	"delta-scoreboard/internal/directory"
	"delta-scoreboard/internal/domain"
	"delta-scoreboard/internal/infra/memory"
	"delta-scoreboard/internal/infra/postgres"
	redisinfra "delta-scoreboard/internal/infra/redis"
	transport "delta-scoreboard/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the scoreboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// The original app reconciles the directory on startup so the board is
	// usable immediately; failures are not fatal, sync can be re-run.
	if count, err := service.SyncUsers(ctx, false); err != nil {
		log.Printf("initial user sync failed: %v", err)
	} else {
		log.Printf("initial user sync: %d users", count)
	}

	refresh := config.TTLDuration(cfg.Workshop.RefreshInterval, 30*time.Second)
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service, refresh)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket feed writes for the connection lifetime
	}

	go func() {
		log.Printf("starting scoreboard on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildService wires stores, caches and the directory client per config.
// Without a postgres URL the service runs on in-memory stores (demo mode).
func buildService(ctx context.Context, cfg config.Config) (*app.ScoreboardService, func(), error) {
	cleanup := func() {}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	refresh := config.TTLDuration(cfg.Workshop.RefreshInterval, 30*time.Second)

	var (
		eligibility app.EligibilityStore
		responses   app.ResponseStore
		loader      memory.QuestionLoader
	)
	if cfg.Postgres.URL != "" {
		session, err := postgres.Connect(ctx, postgres.Credentials{URL: cfg.Postgres.URL})
		if err != nil {
			return nil, nil, fmt.Errorf("connect warehouse: %w", err)
		}
		cleanup = session.Close

		store, err := postgres.NewStore(session, postgres.Tables{
			Users:     cfg.Workshop.UsersTable,
			Responses: cfg.Workshop.ResponsesTable,
		})
		if err != nil {
			session.Close()
			return nil, nil, err
		}
		eligibility = store
		responses = store
		loader = postgres.NewQuestionLoader(session, cfg.Workshop.QuestionSet, cfg.Workshop.MaxQuestions)
	} else {
		store := memory.NewStore()
		eligibility = store
		responses = store
		loader = memory.NewStaticQuestionLoader(defaultQuestionSet(cfg.Workshop.QuestionSet, cfg.Workshop.MaxQuestions))
	}

	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, cfg.Workshop.QuestionSet, cacheTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, cacheTTL)
	}

	var snapshots app.SnapshotCache
	if redisClient != nil {
		snapshots = redisinfra.NewSnapshotCache(redisClient, refresh)
	} else {
		snapshots = memory.NewSnapshotCache(refresh)
	}

	var dir app.DirectoryClient
	if cfg.Directory.BaseURL != "" {
		dir = directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.Token)
	} else {
		dir = memory.NewStaticDirectory(demoUsers())
	}

	service := app.NewScoreboardService(app.Config{
		Directory:         dir,
		Eligibility:       eligibility,
		Responses:         responses,
		Questions:         questions,
		Snapshots:         snapshots,
		PointsPerQuestion: cfg.Workshop.PointsPerQuestion,
	})
	return service, cleanup, nil
}

// demoUsers mirrors the demo roster shipped with the original app.
func demoUsers() []domain.EligibleUser {
	return []domain.EligibleUser{
		{Email: "demo@example.com", DisplayName: "Demo User", WorkspaceID: "1"},
		{Email: "test@example.com", DisplayName: "Test User", WorkspaceID: "2"},
		{Email: "admin@example.com", DisplayName: "Admin User", WorkspaceID: "3"},
	}
}

// defaultQuestionSet is the built-in workshop quiz; swap in a warehouse-backed
// set by configuring postgres.
func defaultQuestionSet(id string, maxQuestions int) domain.QuestionSet {
	set, err := domain.NewQuestionSet(id, []domain.Question{
		{
			ID:      "q1",
			Prompt:  "What is the primary benefit of Delta Lake?",
			Options: []string{"ACID transactions", "Schema evolution", "Time travel", "All of the above"},
			Answer:  "All of the above",
		},
		{
			ID:      "q2",
			Prompt:  "Which format does Delta Lake use for storage?",
			Options: []string{"JSON", "Parquet", "CSV", "Avro"},
			Answer:  "Parquet",
		},
		{
			ID:      "q3",
			Prompt:  "What command is used to optimize Delta tables?",
			Options: []string{"VACUUM", "OPTIMIZE", "COMPACT", "MERGE"},
			Answer:  "OPTIMIZE",
		},
		{
			ID:      "q4",
			Prompt:  "Which SQL command allows you to see table history in Delta Lake?",
			Options: []string{"SHOW HISTORY", "DESCRIBE HISTORY", "SELECT HISTORY", "TABLE HISTORY"},
			Answer:  "DESCRIBE HISTORY",
		},
		{
			ID:      "q5",
			Prompt:  "What is the default retention period for Delta Lake time travel?",
			Options: []string{"7 days", "30 days", "90 days", "365 days"},
			Answer:  "30 days",
		},
	}, maxQuestions)
	if err != nil {
		// The built-in set is compile-time data; failing validation is a bug.
		panic(err)
	}
	return set
}
