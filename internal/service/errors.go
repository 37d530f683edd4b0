package service

import "errors"

// Sentinel errors surfaced by the attempt lifecycle services. All of them
// are terminal for the calling operation: they represent policy violations,
// not transient failures, and are never retried internally.
var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrExamNotFound        = errors.New("exam not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrExamUnavailable     = errors.New("exam is inactive or outside its window")
	ErrAttemptLimitReached = errors.New("attempt limit reached for this exam")
	ErrAttemptNotActive    = errors.New("attempt is not in progress")
	ErrAlreadyCompleted    = errors.New("attempt is already completed")
	ErrAttemptExpired      = errors.New("attempt time has expired")
	ErrQuestionNotInExam   = errors.New("question does not belong to this exam")
	ErrNotOwner            = errors.New("attempt does not belong to this student")
	ErrResultsNotAvailable = errors.New("results are not available for this attempt")
)

// Auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active")
)
