package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/openaula/exam-backend/internal/model"
)

func mcQuestion(points int, correct string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Kind:          model.QuestionKindMultipleChoice,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: correct,
		Points:        points,
	}
}

func TestScore_PartiallyCorrect(t *testing.T) {
	q1 := mcQuestion(10, "B")
	q2 := mcQuestion(10, "C")
	questions := []model.Question{q1, q2}

	answers := []model.Answer{
		{QuestionID: q1.ID, Value: "B"},
		{QuestionID: q2.ID, Value: "A"},
	}

	result := Score(questions, answers)

	assert.Equal(t, 10, result.EarnedPoints)
	assert.Equal(t, 20, result.TotalPoints)
	assert.InDelta(t, 50.0, result.Percentage, 1e-9)

	assert.True(t, result.Questions[0].Correct)
	assert.Equal(t, 10, result.Questions[0].PointsEarned)
	assert.False(t, result.Questions[1].Correct)
	assert.Equal(t, 0, result.Questions[1].PointsEarned)
}

func TestScore_UnansweredCountsInTotal(t *testing.T) {
	q1 := mcQuestion(5, "A")
	q2 := mcQuestion(15, "B")

	result := Score([]model.Question{q1, q2}, []model.Answer{
		{QuestionID: q1.ID, Value: "A"},
	})

	assert.Equal(t, 5, result.EarnedPoints)
	assert.Equal(t, 20, result.TotalPoints)
	assert.InDelta(t, 25.0, result.Percentage, 1e-9)
	assert.False(t, result.Questions[1].Answered)
}

func TestScore_TrimsWhitespaceButKeepsCase(t *testing.T) {
	q := model.Question{
		ID:            uuid.New(),
		Kind:          model.QuestionKindShortAnswer,
		CorrectAnswer: "photosynthesis",
		Points:        4,
	}

	trimmed := Score([]model.Question{q}, []model.Answer{
		{QuestionID: q.ID, Value: "  photosynthesis \n"},
	})
	assert.Equal(t, 4, trimmed.EarnedPoints)

	wrongCase := Score([]model.Question{q}, []model.Answer{
		{QuestionID: q.ID, Value: "Photosynthesis"},
	})
	assert.Equal(t, 0, wrongCase.EarnedPoints)
}

func TestScore_TrueFalse(t *testing.T) {
	q := model.Question{
		ID:            uuid.New(),
		Kind:          model.QuestionKindTrueFalse,
		CorrectAnswer: "true",
		Points:        2,
	}

	result := Score([]model.Question{q}, []model.Answer{
		{QuestionID: q.ID, Value: "true"},
	})
	assert.Equal(t, 2, result.EarnedPoints)
	assert.InDelta(t, 100.0, result.Percentage, 1e-9)
}

func TestScore_ZeroTotalPoints(t *testing.T) {
	q := model.Question{ID: uuid.New(), Kind: model.QuestionKindShortAnswer, Points: 0}

	result := Score([]model.Question{q}, nil)

	assert.Equal(t, 0, result.TotalPoints)
	assert.Zero(t, result.Percentage)
}

func TestScore_StrayAnswersIgnored(t *testing.T) {
	q := mcQuestion(10, "A")

	result := Score([]model.Question{q}, []model.Answer{
		{QuestionID: uuid.New(), Value: "A"}, // not part of the exam
	})

	assert.Equal(t, 0, result.EarnedPoints)
	assert.False(t, result.Questions[0].Answered)
}

func TestGrade20(t *testing.T) {
	assert.InDelta(t, 20.0, Grade20(100), 1e-9)
	assert.InDelta(t, 10.0, Grade20(50), 1e-9)
	assert.InDelta(t, 0.0, Grade20(0), 1e-9)
	assert.InDelta(t, 13.5, Grade20(67.5), 1e-9)
}
