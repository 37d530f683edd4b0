package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a timed exam definition. The core treats exams as
// read-only: authoring happens outside this service.
type Exam struct {
	ID                  uuid.UUID  `json:"id"`
	CourseID            uuid.UUID  `json:"course_id"`
	Title               string     `json:"title"`
	TimeLimitMinutes    int        `json:"time_limit_minutes"`
	AttemptsAllowed     int        `json:"attempts_allowed"`
	WindowStart         *time.Time `json:"window_start,omitempty"`
	WindowEnd           *time.Time `json:"window_end,omitempty"`
	Active              bool       `json:"active"`
	ShowResultsOnFinish bool       `json:"show_results_on_finish"`
	RandomizeQuestions  bool       `json:"randomize_questions"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ExamPaper is the cached payload sent to students (no correct answers).
type ExamPaper struct {
	ExamID           uuid.UUID            `json:"exam_id"`
	Title            string               `json:"title"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	Questions        []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without the correct answer.
type QuestionForStudent struct {
	ID           uuid.UUID    `json:"id"`
	QuestionText string       `json:"question_text"`
	Kind         QuestionKind `json:"kind"`
	Options      []string     `json:"options,omitempty"`
	Points       int          `json:"points"`
	OrderNum     int          `json:"order_num"`
}
