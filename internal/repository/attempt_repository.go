package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openaula/exam-backend/internal/model"
)

// AttemptRepository is the durable record of attempts and their answers.
// It is the single source of truth for elapsed time: started_at is written
// by the database exactly once and never updated.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, exam_id, student_id, status, started_at, finished_at, percentage`

// Create inserts a new in-progress attempt. A partial unique index on
// (exam_id, student_id) WHERE status = 'in_progress' serializes concurrent
// starts: the losing insert hits the conflict, returns no row, and the
// caller gets pgx.ErrNoRows to signal "fetch the winner instead".
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) WHERE status = 'in_progress' DO NOTHING
		 RETURNING id, started_at`,
		a.ExamID, a.StudentID, model.AttemptInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// GetByID retrieves a single attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.Percentage)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetInProgress retrieves the single in-progress attempt for an
// exam-student pair, if any.
func (r *AttemptRepository) GetInProgress(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1 AND student_id = $2 AND status = $3`,
		examID, studentID, model.AttemptInProgress,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.Percentage)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CountByExamAndStudent counts every attempt ever created for the pair,
// regardless of status. Used to enforce the attempts_allowed policy.
func (r *AttemptRepository) CountByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&count)
	return count, err
}

// ListByStudent retrieves all attempts of a student, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.Percentage); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// UpsertAnswer records or replaces the answer for a question. Last write
// wins, ordered by server receipt: written_at is the server timestamp of
// the write that landed last.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, attemptID, questionID uuid.UUID, value string, writtenAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_id, value, written_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET value = EXCLUDED.value, written_at = EXCLUDED.written_at`,
		attemptID, questionID, value, writtenAt,
	)
	return err
}

// GetAnswers retrieves all recorded answers for an attempt.
func (r *AttemptRepository) GetAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, value, written_at
		 FROM attempt_answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var ans model.Answer
		if err := rows.Scan(&ans.QuestionID, &ans.Value, &ans.WrittenAt); err != nil {
			return nil, err
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}

// Complete transitions an attempt to completed, persisting its percentage
// and finish time. The status guard makes the grade write exactly-once: a
// second submit matches zero rows and reports false.
func (r *AttemptRepository) Complete(ctx context.Context, attemptID uuid.UUID, percentage float64, finishedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, percentage = $2, finished_at = $3
		 WHERE id = $4 AND status = $5`,
		model.AttemptCompleted, percentage, finishedAt, attemptID, model.AttemptInProgress,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
