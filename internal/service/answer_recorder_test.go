package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openaula/exam-backend/internal/config"
	"github.com/openaula/exam-backend/internal/model"
)

type recorderFixture struct {
	store    *mockAttemptStore
	catalog  *mockExamCatalog
	rdb      *redis.Client
	recorder *AnswerRecorder
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	t.Helper()
	store := new(mockAttemptStore)
	catalog := new(mockExamCatalog)
	rdb := newTestRedis(t)
	return &recorderFixture{
		store:    store,
		catalog:  catalog,
		rdb:      rdb,
		recorder: NewAnswerRecorder(store, catalog, rdb, testLogger),
	}
}

func liveAttempt(exam *model.Exam) *model.Attempt {
	return &model.Attempt{
		ID:        uuid.New(),
		ExamID:    exam.ID,
		StudentID: testStudentID,
		Status:    model.AttemptInProgress,
		StartedAt: time.Now().Add(-time.Minute),
	}
}

func TestUpsert_RecordsAndQueuesMirror(t *testing.T) {
	f := newRecorderFixture(t)
	exam := openExam()
	attempt := liveAttempt(exam)
	q := mcQuestion(10, "B")
	now := time.Now()

	f.store.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)
	f.catalog.On("GetExam", mock.Anything, exam.ID).Return(exam, nil)
	f.catalog.On("GetQuestions", mock.Anything, exam.ID).Return([]model.Question{q}, nil)
	f.store.On("UpsertAnswer", mock.Anything, attempt.ID, q.ID, "B", now).Return(nil)

	answer, err := f.recorder.Upsert(context.Background(), attempt.ID, testStudentID, q.ID, "B", now)

	require.NoError(t, err)
	assert.Equal(t, q.ID, answer.QuestionID)
	assert.Equal(t, "B", answer.Value)

	queued, err := f.rdb.LLen(context.Background(), config.WorkerKey.AnswerCacheQueue).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
}

func TestUpsert_ReplacesIsIdempotentAtStore(t *testing.T) {
	f := newRecorderFixture(t)
	exam := openExam()
	attempt := liveAttempt(exam)
	q := mcQuestion(10, "B")
	now := time.Now()

	f.store.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)
	f.catalog.On("GetExam", mock.Anything, exam.ID).Return(exam, nil)
	f.catalog.On("GetQuestions", mock.Anything, exam.ID).Return([]model.Question{q}, nil)
	f.store.On("UpsertAnswer", mock.Anything, attempt.ID, q.ID, mock.Anything, mock.Anything).Return(nil)

	_, err := f.recorder.Upsert(context.Background(), attempt.ID, testStudentID, q.ID, "A", now)
	require.NoError(t, err)
	answer, err := f.recorder.Upsert(context.Background(), attempt.ID, testStudentID, q.ID, "B", now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, "B", answer.Value)
	f.store.AssertNumberOfCalls(t, "UpsertAnswer", 2)
}

func TestUpsert_RejectedAfterExpiry(t *testing.T) {
	f := newRecorderFixture(t)
	exam := openExam()
	attempt := liveAttempt(exam)
	attempt.StartedAt = time.Now().Add(-time.Duration(exam.TimeLimitMinutes+5) * time.Minute)
	q := mcQuestion(10, "B")

	f.store.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)
	f.catalog.On("GetExam", mock.Anything, exam.ID).Return(exam, nil)
	f.catalog.On("GetQuestions", mock.Anything, exam.ID).Return([]model.Question{q}, nil)

	_, err := f.recorder.Upsert(context.Background(), attempt.ID, testStudentID, q.ID, "B", time.Now())

	assert.ErrorIs(t, err, ErrAttemptExpired)
	f.store.AssertNotCalled(t, "UpsertAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpsert_RejectedOnCompletedAttempt(t *testing.T) {
	f := newRecorderFixture(t)
	exam := openExam()
	attempt := liveAttempt(exam)
	attempt.Status = model.AttemptCompleted
	q := mcQuestion(10, "B")

	f.store.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)
	f.catalog.On("GetExam", mock.Anything, exam.ID).Return(exam, nil)
	f.catalog.On("GetQuestions", mock.Anything, exam.ID).Return([]model.Question{q}, nil)

	_, err := f.recorder.Upsert(context.Background(), attempt.ID, testStudentID, q.ID, "B", time.Now())
	assert.ErrorIs(t, err, ErrAttemptNotActive)
}

func TestUpsert_RejectsForeignQuestion(t *testing.T) {
	f := newRecorderFixture(t)
	exam := openExam()
	attempt := liveAttempt(exam)

	f.store.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)
	f.catalog.On("GetExam", mock.Anything, exam.ID).Return(exam, nil)
	f.catalog.On("GetQuestions", mock.Anything, exam.ID).Return([]model.Question{mcQuestion(10, "B")}, nil)

	_, err := f.recorder.Upsert(context.Background(), attempt.ID, testStudentID, uuid.New(), "B", time.Now())
	assert.ErrorIs(t, err, ErrQuestionNotInExam)
}

func TestUpsert_OwnershipEnforced(t *testing.T) {
	f := newRecorderFixture(t)
	exam := openExam()
	attempt := liveAttempt(exam)

	f.store.On("GetByID", mock.Anything, attempt.ID).Return(attempt, nil)

	_, err := f.recorder.Upsert(context.Background(), attempt.ID, testStudentID+1, uuid.New(), "B", time.Now())
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestUpsert_MissingAttempt(t *testing.T) {
	f := newRecorderFixture(t)
	id := uuid.New()

	f.store.On("GetByID", mock.Anything, id).Return(nil, pgx.ErrNoRows)

	_, err := f.recorder.Upsert(context.Background(), id, testStudentID, uuid.New(), "B", time.Now())
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}
