package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openaula/exam-backend/internal/model"
)

// StudentRepository handles student account access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByUsername retrieves a student by username, for login.
func (r *StudentRepository) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM students WHERE username = $1`, username,
	).Scan(&s.ID, &s.Username, &s.Name, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Username, &s.Name, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Exists reports whether a student account exists.
func (r *StudentRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}

// Create inserts a new student account.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (username, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Username, s.Name, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt)
}
