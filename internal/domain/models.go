package domain

import "time"

// EligibleUser is a workshop participant as reported by the directory service.
// Rows are created and refreshed by the directory sync, never by end users.
type EligibleUser struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	WorkspaceID string `json:"workspaceId"`
}

// QuestionResponse records a user's answer to a single question. At most one
// response exists per (user, question); a resubmission overwrites it.
type QuestionResponse struct {
	ResponseID  string    `json:"responseId"`
	UserID      string    `json:"userId"`
	QuestionID  string    `json:"questionId"`
	Answer      string    `json:"answer"`
	Correct     bool      `json:"correct"`
	Points      int       `json:"points"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// SubmissionResult summarizes the outcome of a submission for a single user.
type SubmissionResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}

// ScoreAggregate is the unranked per-user rollup produced by the response store.
// LastCorrectAt is zero when the user has no correct answers yet.
type ScoreAggregate struct {
	Email             string
	DisplayName       string
	TotalScore        int
	QuestionsAnswered int
	LastCorrectAt     time.Time
}

// LeaderboardRow is a derived ranking entry. Rows are recomputed from responses
// on demand and never persisted.
type LeaderboardRow struct {
	Rank              int    `json:"rank"`
	UserID            string `json:"userId"`
	DisplayName       string `json:"displayName"`
	TotalScore        int    `json:"totalScore"`
	QuestionsAnswered int    `json:"questionsAnswered"`
}
