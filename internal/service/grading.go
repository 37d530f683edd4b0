package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/openaula/exam-backend/internal/model"
)

// QuestionResult is the graded outcome of a single question.
type QuestionResult struct {
	QuestionID     uuid.UUID          `json:"question_id"`
	Kind           model.QuestionKind `json:"kind"`
	Answered       bool               `json:"answered"`
	Correct        bool               `json:"correct"`
	PointsPossible int                `json:"points_possible"`
	PointsEarned   int                `json:"points_earned"`
}

// ScoreResult is the deterministic scoring of recorded answers against the
// answer key. Percentage is the canonical grade; any bounded display scale
// is derived from it at the boundary via Grade20.
type ScoreResult struct {
	EarnedPoints int              `json:"earned_points"`
	TotalPoints  int              `json:"total_points"`
	Percentage   float64          `json:"percentage"`
	Questions    []QuestionResult `json:"questions"`
}

// Score grades an attempt's recorded answers against the exam's questions.
// TotalPoints sums every question's points whether answered or not;
// unanswered questions never earn. Matching is an exact comparison of the
// trimmed answer against the trimmed key, case-sensitive, for every kind:
// multiple_choice and true_false compare the selected option text verbatim,
// short_answer gets no fuzzy or partial credit.
func Score(questions []model.Question, answers []model.Answer) ScoreResult {
	recorded := make(map[uuid.UUID]model.Answer, len(answers))
	for _, a := range answers {
		recorded[a.QuestionID] = a
	}

	result := ScoreResult{Questions: make([]QuestionResult, 0, len(questions))}
	for _, q := range questions {
		qr := QuestionResult{
			QuestionID:     q.ID,
			Kind:           q.Kind,
			PointsPossible: q.Points,
		}
		result.TotalPoints += q.Points

		if ans, ok := recorded[q.ID]; ok {
			qr.Answered = true
			if answerMatches(q, ans.Value) {
				qr.Correct = true
				qr.PointsEarned = q.Points
				result.EarnedPoints += q.Points
			}
		}
		result.Questions = append(result.Questions, qr)
	}

	if result.TotalPoints > 0 {
		result.Percentage = 100 * float64(result.EarnedPoints) / float64(result.TotalPoints)
	}
	return result
}

func answerMatches(q model.Question, value string) bool {
	return strings.TrimSpace(value) == strings.TrimSpace(q.CorrectAnswer)
}

// Grade20 converts the canonical 0-100 percentage to the 0-20 display
// scale. This is the single conversion used by every view; the 0-20 value
// is never stored.
func Grade20(percentage float64) float64 {
	return percentage / 5
}
