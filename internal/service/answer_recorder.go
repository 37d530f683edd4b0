package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openaula/exam-backend/internal/config"
	"github.com/openaula/exam-backend/internal/model"
)

// AnswerRecorder performs the idempotent per-question answer upsert. Every
// write is gated server-side: the attempt must be in progress and the
// timer must not have expired, regardless of what the client believes.
type AnswerRecorder struct {
	store   AttemptStore
	catalog ExamCatalog
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewAnswerRecorder creates a new AnswerRecorder.
func NewAnswerRecorder(store AttemptStore, catalog ExamCatalog, rdb *redis.Client, log zerolog.Logger) *AnswerRecorder {
	return &AnswerRecorder{
		store:   store,
		catalog: catalog,
		rdb:     rdb,
		log:     log.With().Str("component", "answer_recorder").Logger(),
	}
}

// Upsert records or replaces the student's answer to one question.
// Repeating the same value is a no-op at the storage layer; a different
// value replaces the previous one (last write wins by server receipt time).
func (r *AnswerRecorder) Upsert(ctx context.Context, attemptID uuid.UUID, studentID int, questionID uuid.UUID, value string, now time.Time) (*model.Answer, error) {
	attempt, err := r.store.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotOwner
	}

	exam, err := r.catalog.GetExam(ctx, attempt.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	questions, err := r.catalog.GetQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	return r.record(ctx, attempt, exam, questions, questionID, value, now)
}

// record applies the write gates and persists one answer. Shared by Upsert
// and by the submit-time merge in AttemptService, which has already loaded
// the attempt, exam and questions.
func (r *AnswerRecorder) record(ctx context.Context, attempt *model.Attempt, exam *model.Exam, questions []model.Question, questionID uuid.UUID, value string, now time.Time) (*model.Answer, error) {
	if attempt.Status != model.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	if Remaining(exam.TimeLimitMinutes, attempt.StartedAt, now).Expired {
		return nil, ErrAttemptExpired
	}

	if !questionInExam(questions, questionID) {
		return nil, ErrQuestionNotInExam
	}

	if err := r.store.UpsertAnswer(ctx, attempt.ID, questionID, value, now); err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}

	r.enqueueCacheMirror(ctx, attempt.ID, questionID, value)

	return &model.Answer{QuestionID: questionID, Value: value, WrittenAt: now}, nil
}

// enqueueCacheMirror queues the durably written answer for the cache
// worker, which mirrors it into the per-attempt Redis hash used by state
// reads. Best effort: the hash is a read cache with a database fallback,
// so a failed enqueue costs a slower read, never a lost answer.
func (r *AnswerRecorder) enqueueCacheMirror(ctx context.Context, attemptID, questionID uuid.UUID, value string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"attempt_id":  attemptID.String(),
		"question_id": questionID.String(),
		"value":       value,
	})
	if err := r.rdb.RPush(ctx, config.WorkerKey.AnswerCacheQueue, payload).Err(); err != nil {
		r.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to enqueue answer cache mirror")
	}
}

func questionInExam(questions []model.Question, questionID uuid.UUID) bool {
	for _, q := range questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}
