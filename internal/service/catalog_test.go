package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaula/exam-backend/internal/model"
)

func paperExam(randomize bool) (*model.Exam, []model.Question) {
	exam := openExam()
	exam.RandomizeQuestions = randomize

	questions := make([]model.Question, 0, 8)
	for i := 0; i < 8; i++ {
		q := mcQuestion(5, "A")
		q.ExamID = exam.ID
		q.OrderNum = i + 1
		questions = append(questions, q)
	}
	return exam, questions
}

func TestBuildPaper_StripsAnswerKey(t *testing.T) {
	exam, questions := paperExam(false)

	paper := BuildPaper(exam, questions, uuid.New())

	require.Len(t, paper.Questions, len(questions))
	assert.Equal(t, exam.TimeLimitMinutes, paper.TimeLimitMinutes)
	for i, pq := range paper.Questions {
		assert.Equal(t, questions[i].ID, pq.ID)
		assert.Equal(t, questions[i].Options, pq.Options)
	}
}

func TestBuildPaper_ShuffleIsStablePerAttempt(t *testing.T) {
	exam, questions := paperExam(true)
	attemptID := uuid.New()

	first := BuildPaper(exam, questions, attemptID)
	second := BuildPaper(exam, questions, attemptID)

	require.Len(t, second.Questions, len(first.Questions))
	for i := range first.Questions {
		assert.Equal(t, first.Questions[i].ID, second.Questions[i].ID,
			"the same attempt must always see the same order")
	}
}

func TestBuildPaper_DifferentAttemptsDiffer(t *testing.T) {
	exam, questions := paperExam(true)

	orders := make(map[string]bool)
	for i := 0; i < 5; i++ {
		paper := BuildPaper(exam, questions, uuid.New())
		key := ""
		for _, q := range paper.Questions {
			key += q.ID.String()
		}
		orders[key] = true
	}

	// Eight questions have 40320 orderings; five attempts colliding on
	// one ordering means the seed is not being used.
	assert.Greater(t, len(orders), 1)
}

func TestBuildPaper_NoShuffleKeepsAuthoredOrder(t *testing.T) {
	exam, questions := paperExam(false)

	paper := BuildPaper(exam, questions, uuid.New())

	for i, pq := range paper.Questions {
		assert.Equal(t, questions[i].ID, pq.ID)
	}
}
