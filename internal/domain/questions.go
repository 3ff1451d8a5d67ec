package domain

import (
	"fmt"
	"strings"
)

// Question is an immutable multiple-choice record. Options keep their
// configured order; Answer must match one of them.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// Grade reports whether the given answer is correct. Comparison trims
// whitespace and ignores case.
func (q Question) Grade(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.Answer))
}

// QuestionSet is the validated collection of workshop questions.
type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// NewQuestionSet validates questions at load time so use sites never see a
// malformed record. maxQuestions <= 0 means unlimited.
func NewQuestionSet(id string, questions []Question, maxQuestions int) (QuestionSet, error) {
	if id == "" {
		return QuestionSet{}, fmt.Errorf("question set: missing id")
	}
	if len(questions) == 0 {
		return QuestionSet{}, fmt.Errorf("question set %q: no questions", id)
	}
	if maxQuestions > 0 && len(questions) > maxQuestions {
		return QuestionSet{}, fmt.Errorf("question set %q: %d questions exceeds limit %d", id, len(questions), maxQuestions)
	}

	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := validateQuestion(q); err != nil {
			return QuestionSet{}, fmt.Errorf("question set %q: %w", id, err)
		}
		if _, ok := seen[q.ID]; ok {
			return QuestionSet{}, fmt.Errorf("question set %q: duplicate question id %q", id, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return QuestionSet{ID: id, Questions: questions}, nil
}

func validateQuestion(q Question) error {
	if q.ID == "" {
		return fmt.Errorf("question with empty id")
	}
	if q.Prompt == "" {
		return fmt.Errorf("question %q: empty prompt", q.ID)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %q: needs at least 2 options", q.ID)
	}
	for _, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt), strings.TrimSpace(q.Answer)) {
			return nil
		}
	}
	return fmt.Errorf("question %q: answer %q not among options", q.ID, q.Answer)
}

// Question looks up a question by id.
func (s QuestionSet) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
