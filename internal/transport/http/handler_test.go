package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"delta-scoreboard/internal/app"
	"delta-scoreboard/internal/domain"
	"delta-scoreboard/internal/infra/memory"
)

func TestSubmitAndLeaderboardFlow(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/responses", `{"email":"Alice@Example.com","questionId":"q1","answer":"parquet"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result domain.SubmissionResult
	decodeBody(t, resp, &result)
	if !result.Correct || result.Awarded != 10 || result.TotalScore != 10 {
		t.Fatalf("unexpected result %+v", result)
	}

	lbResp, err := http.Get(server.URL + "/api/leaderboard")
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	var lb struct {
		Leaderboard []domain.LeaderboardRow `json:"leaderboard"`
	}
	decodeBody(t, lbResp, &lb)
	if len(lb.Leaderboard) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lb.Leaderboard))
	}
	if lb.Leaderboard[0].UserID != "alice@example.com" || lb.Leaderboard[0].Rank != 1 {
		t.Fatalf("expected alice leading, got %+v", lb.Leaderboard[0])
	}
}

func TestUserScoreEndpoint(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	_ = postJSON(t, server.URL+"/api/responses", `{"email":"alice@example.com","questionId":"q1","answer":"Parquet"}`)

	resp, err := http.Get(server.URL + "/api/scores/alice@example.com")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	var body struct {
		Email      string `json:"email"`
		TotalScore int    `json:"totalScore"`
	}
	decodeBody(t, resp, &body)
	if body.TotalScore != 10 {
		t.Fatalf("expected score 10, got %+v", body)
	}
}

func TestErrorMapping(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	cases := map[string]struct {
		body       string
		wantStatus int
	}{
		"unknown question":  {`{"email":"alice@example.com","questionId":"q99","answer":"x"}`, http.StatusNotFound},
		"ineligible user":   {`{"email":"mallory@example.com","questionId":"q1","answer":"x"}`, http.StatusForbidden},
		"missing email":     {`{"questionId":"q1","answer":"x"}`, http.StatusBadRequest},
		"malformed payload": {`{`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/responses", tc.body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestSyncEndpoint(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/sync", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Synced int `json:"synced"`
	}
	decodeBody(t, resp, &body)
	if body.Synced != 1 {
		t.Fatalf("expected 1 synced, got %d", body.Synced)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := newTestService(t)

	mux := http.NewServeMux()
	NewHandler(service).Register(mux)
	return httptest.NewServer(mux)
}

func newTestService(t *testing.T) *app.ScoreboardService {
	t.Helper()
	store := memory.NewStore()
	_, err := store.UpsertUsers(context.Background(), []domain.EligibleUser{
		{Email: "alice@example.com", DisplayName: "Alice"},
		{Email: "bob@example.com", DisplayName: "Bob"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	set, err := domain.NewQuestionSet("workshop", []domain.Question{
		{ID: "q1", Prompt: "Which format does Delta Lake use for storage?", Options: []string{"JSON", "Parquet"}, Answer: "Parquet"},
	}, 0)
	if err != nil {
		t.Fatalf("question set: %v", err)
	}

	return app.NewScoreboardService(app.Config{
		Directory:         memory.NewStaticDirectory([]domain.EligibleUser{{Email: "carol@example.com", DisplayName: "Carol"}}),
		Eligibility:       store,
		Responses:         store,
		Questions:         memory.NewQuestionRepository(memory.NewStaticQuestionLoader(set), 5*time.Minute),
		PointsPerQuestion: 10,
	})
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}
