package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openaula/exam-backend/internal/model"
)

// AttemptStore is the durable record of attempts and per-question answers.
// Implemented by repository.AttemptRepository; mocked in tests.
// Implementations report missing rows with pgx.ErrNoRows.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetInProgress(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error)
	CountByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (int, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error)
	UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, value string, writtenAt time.Time) error
	GetAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
	Complete(ctx context.Context, attemptID uuid.UUID, percentage float64, finishedAt time.Time) (bool, error)
}

// ExamCatalog supplies exam definitions and ordered question lists. It is
// read-only to this service: exams are assumed immutable for the duration
// of an attempt.
type ExamCatalog interface {
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
	GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	ListActive(ctx context.Context) ([]model.Exam, error)
}

// UserDirectory validates student identity before an attempt starts.
type UserDirectory interface {
	Exists(ctx context.Context, studentID int) (bool, error)
}
