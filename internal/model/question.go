package model

import (
	"github.com/google/uuid"
)

// QuestionKind enumerates the supported question types.
type QuestionKind string

const (
	QuestionKindMultipleChoice QuestionKind = "multiple_choice"
	QuestionKindTrueFalse      QuestionKind = "true_false"
	QuestionKindShortAnswer    QuestionKind = "short_answer"
)

// Question represents a single exam question, including its answer key.
// Only multiple_choice questions carry options.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	ExamID        uuid.UUID    `json:"exam_id"`
	QuestionText  string       `json:"question_text"`
	Kind          QuestionKind `json:"kind"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	OrderNum      int          `json:"order_num"`
}
