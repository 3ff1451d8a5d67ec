package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"delta-scoreboard/internal/domain"
)

// QuestionLoader loads the workshop question set stored as JSONB.
type QuestionLoader struct {
	session      *Session
	setID        string
	maxQuestions int
}

func NewQuestionLoader(session *Session, setID string, maxQuestions int) *QuestionLoader {
	return &QuestionLoader{session: session, setID: setID, maxQuestions: maxQuestions}
}

func (l *QuestionLoader) LoadQuestionSet(ctx context.Context) (domain.QuestionSet, error) {
	var raw []byte
	err := l.session.QueryRow(ctx, `SELECT data FROM question_sets WHERE id=$1`, l.setID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, WrapQueryErr(fmt.Errorf("load question set: %v", err))
	}

	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("unmarshal question set: %w", err)
	}
	return domain.NewQuestionSet(l.setID, questions, l.maxQuestions)
}
