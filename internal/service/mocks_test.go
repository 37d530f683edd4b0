package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/openaula/exam-backend/internal/model"
)

// newTestRedis spins up an in-process Redis for cache paths.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type mockAttemptStore struct {
	mock.Mock
}

func (m *mockAttemptStore) Create(ctx context.Context, a *model.Attempt) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*model.Attempt), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAttemptStore) GetInProgress(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	args := m.Called(ctx, examID, studentID)
	if a := args.Get(0); a != nil {
		return a.(*model.Attempt), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAttemptStore) CountByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (int, error) {
	args := m.Called(ctx, examID, studentID)
	return args.Int(0), args.Error(1)
}

func (m *mockAttemptStore) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	args := m.Called(ctx, studentID)
	if a := args.Get(0); a != nil {
		return a.([]model.Attempt), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAttemptStore) UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, value string, writtenAt time.Time) error {
	args := m.Called(ctx, attemptID, questionID, value, writtenAt)
	return args.Error(0)
}

func (m *mockAttemptStore) GetAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	args := m.Called(ctx, attemptID)
	if a := args.Get(0); a != nil {
		return a.([]model.Answer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAttemptStore) Complete(ctx context.Context, attemptID uuid.UUID, percentage float64, finishedAt time.Time) (bool, error) {
	args := m.Called(ctx, attemptID, percentage, finishedAt)
	return args.Bool(0), args.Error(1)
}

type mockExamCatalog struct {
	mock.Mock
}

func (m *mockExamCatalog) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	args := m.Called(ctx, examID)
	if e := args.Get(0); e != nil {
		return e.(*model.Exam), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExamCatalog) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	args := m.Called(ctx, examID)
	if q := args.Get(0); q != nil {
		return q.([]model.Question), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExamCatalog) ListActive(ctx context.Context) ([]model.Exam, error) {
	args := m.Called(ctx)
	if e := args.Get(0); e != nil {
		return e.([]model.Exam), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) Exists(ctx context.Context, studentID int) (bool, error) {
	args := m.Called(ctx, studentID)
	return args.Bool(0), args.Error(1)
}

var testLogger = zerolog.Nop()
