package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openaula/exam-backend/internal/model"
)

// ExamRepository handles read-only exam definition access. Exam authoring
// lives outside this service, so there are no write methods.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, course_id, title, time_limit_minutes, attempts_allowed,
	window_start, window_end, active, show_results_on_finish, randomize_questions,
	created_at, updated_at`

// GetByID retrieves a single exam definition.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.CourseID, &e.Title, &e.TimeLimitMinutes, &e.AttemptsAllowed,
		&e.WindowStart, &e.WindowEnd, &e.Active, &e.ShowResultsOnFinish, &e.RandomizeQuestions,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListActive retrieves all exams currently flagged active, newest first.
// Window filtering is a policy concern and stays in the service layer.
func (r *ExamRepository) ListActive(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE active ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(
			&e.ID, &e.CourseID, &e.Title, &e.TimeLimitMinutes, &e.AttemptsAllowed,
			&e.WindowStart, &e.WindowEnd, &e.Active, &e.ShowResultsOnFinish, &e.RandomizeQuestions,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
