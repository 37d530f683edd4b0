package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. The only transition is
// in_progress -> completed; a completed attempt is read-only.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// Attempt represents one student's timed run through an exam.
// StartedAt is set once at creation and never modified; Percentage and
// FinishedAt are set once at completion. Remaining time is always derived
// from StartedAt and the server clock, never stored.
type Attempt struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	StudentID  int           `json:"student_id"`
	Status     AttemptStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Percentage *float64      `json:"percentage,omitempty"`
}

// Answer is a recorded response to a single question within an attempt.
type Answer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Value      string    `json:"value"`
	WrittenAt  time.Time `json:"written_at"`
}

// UpsertAnswerRequest is the payload for recording a single answer.
type UpsertAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Value      string `json:"value" binding:"required,max=10000"`
}

// AnswerSubmission is one buffered answer flushed at submit time.
type AnswerSubmission struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Value      string `json:"value" binding:"required,max=10000"`
}

// SubmitAttemptRequest is the payload for finishing an attempt. Answers is
// optional: clients that autosave continuously submit an empty list.
type SubmitAttemptRequest struct {
	Answers []AnswerSubmission `json:"answers" binding:"omitempty,dive"`
}
