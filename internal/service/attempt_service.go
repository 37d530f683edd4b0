package service

import (
	"context"
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

// AttemptService orchestrates the attempt lifecycle: start/resume, the
// in_progress -> completed transition, and the read views derived from it.
type AttemptService struct {
	store    AttemptStore
	catalog  ExamCatalog
	users    UserDirectory
	recorder *AnswerRecorder
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	store AttemptStore,
	catalog ExamCatalog,
	users UserDirectory,
	recorder *AnswerRecorder,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		store:    store,
		catalog:  catalog,
		users:    users,
		recorder: recorder,
		rdb:      rdb,
		log:      log.With().Str("component", "attempt_service").Logger(),
	}
}

// GradeResult is returned by Submit.
type GradeResult struct {
	AttemptID    uuid.UUID        `json:"attempt_id"`
	Percentage   float64          `json:"percentage"`
	Grade20      float64          `json:"grade20"`
	EarnedPoints int              `json:"earned_points"`
	TotalPoints  int              `json:"total_points"`
	FinishedAt   time.Time        `json:"finished_at"`
	Questions    []QuestionResult `json:"questions"`
}

// AttemptState is the resume view: everything a reloaded client needs to
// rebuild the attempt screen in one call.
type AttemptState struct {
	Attempt *model.Attempt    `json:"attempt"`
	Answers map[string]string `json:"answers"`
	Time    TimeState         `json:"time"`
}

// ReviewItem pairs a graded question with what the student answered.
type ReviewItem struct {
	QuestionResult
	QuestionText  string `json:"question_text"`
	Value         string `json:"value,omitempty"`
	CorrectAnswer string `json:"correct_answer"`
}

// AttemptReview is the post-completion detail view.
type AttemptReview struct {
	Attempt      *model.Attempt `json:"attempt"`
	Percentage   float64        `json:"percentage"`
	Grade20      float64        `json:"grade20"`
	EarnedPoints int            `json:"earned_points"`
	TotalPoints  int            `json:"total_points"`
	Items        []ReviewItem   `json:"items"`
}

// Start begins a new attempt or resumes the in-progress one. The resumed
// flag tells the two apart. Resume is idempotent: the existing attempt is
// returned unchanged, with its original started_at. Policy checks (active
// flag, window, attempt count) apply only when a new attempt would be
// created.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, studentID int, now time.Time) (attempt *model.Attempt, resumed bool, err error) {
	exists, err := s.users.Exists(ctx, studentID)
	if err != nil {
		return nil, false, fmt.Errorf("check student: %w", err)
	}
	if !exists {
		return nil, false, ErrStudentNotFound
	}

	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrExamNotFound
		}
		return nil, false, fmt.Errorf("get exam: %w", err)
	}

	existing, err := s.store.GetInProgress(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		s.log.Info().
			Str("attempt_id", existing.ID.String()).
			Int("student_id", studentID).
			Msg("Resuming in-progress attempt")
		return existing, true, nil
	}

	if !examOpen(exam, now) {
		return nil, false, ErrExamUnavailable
	}

	count, err := s.store.CountByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, false, fmt.Errorf("count attempts: %w", err)
	}
	if count >= exam.AttemptsAllowed {
		return nil, false, ErrAttemptLimitReached
	}

	attempt = &model.Attempt{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.AttemptInProgress,
	}
	if err := s.store.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a concurrent start race: return the winner's attempt.
			winner, fetchErr := s.store.GetInProgress(ctx, examID, studentID)
			if fetchErr != nil {
				return nil, false, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return winner, true, nil
		}
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Msg("Attempt started")

	return attempt, false, nil
}

// Submit finishes an attempt and grades it exactly once. Answers supplied
// with the submission are merged first, unless the deadline has passed:
// the deadline gates answer writes, not the grade call, so a late
// submission is still accepted and graded on whatever is on record.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, studentID int, submitted []model.AnswerSubmission, now time.Time) (*GradeResult, error) {
	attempt, err := s.store.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, ErrNotOwner
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, ErrAlreadyCompleted
	}

	exam, err := s.catalog.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	questions, err := s.catalog.GetQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	if !Remaining(exam.TimeLimitMinutes, attempt.StartedAt, now).Expired {
		for _, sub := range submitted {
			questionID, err := uuid.Parse(sub.QuestionID)
			if err != nil {
				return nil, ErrQuestionNotInExam
			}
			if _, err := s.recorder.record(ctx, attempt, exam, questions, questionID, sub.Value, now); err != nil {
				return nil, fmt.Errorf("merge answer for question %s: %w", sub.QuestionID, err)
			}
		}
	}

	answers, err := s.store.GetAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}

	score := Score(questions, answers)

	completed, err := s.store.Complete(ctx, attemptID, score.Percentage, now)
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if !completed {
		// A concurrent submit won; the stored grade is theirs and stands.
		return nil, ErrAlreadyCompleted
	}

	// The answer hash is only needed while the attempt runs.
	if err := s.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to clear answer cache")
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("percentage", score.Percentage).
		Int("earned", score.EarnedPoints).
		Int("total", score.TotalPoints).
		Msg("Attempt submitted and graded")

	return &GradeResult{
		AttemptID:    attemptID,
		Percentage:   score.Percentage,
		Grade20:      Grade20(score.Percentage),
		EarnedPoints: score.EarnedPoints,
		TotalPoints:  score.TotalPoints,
		FinishedAt:   now,
		Questions:    score.Questions,
	}, nil
}

// RemainingFor computes the authoritative remaining time of an attempt.
func (s *AttemptService) RemainingFor(ctx context.Context, attemptID uuid.UUID, studentID int, now time.Time) (TimeState, error) {
	attempt, exam, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return TimeState{}, err
	}
	if attempt.Status != model.AttemptInProgress {
		return TimeState{RemainingSeconds: 0, Expired: true}, nil
	}
	return Remaining(exam.TimeLimitMinutes, attempt.StartedAt, now), nil
}

// State returns the resume view of an in-progress attempt. Answers are
// read from the Redis hash maintained by the cache worker; on a miss the
// durable store is read instead and the cache self-heals.
func (s *AttemptService) State(ctx context.Context, attemptID uuid.UUID, studentID int, now time.Time) (*AttemptState, error) {
	attempt, exam, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	answers, err := s.answersWithFallback(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	state := &AttemptState{
		Attempt: attempt,
		Answers: answers,
		Time:    Remaining(exam.TimeLimitMinutes, attempt.StartedAt, now),
	}
	if attempt.Status != model.AttemptInProgress {
		state.Time = TimeState{RemainingSeconds: 0, Expired: true}
	}
	return state, nil
}

// Review returns the full attempt detail for post-completion review. Only
// available once the attempt is completed, and only when the exam allows
// showing results on finish.
func (s *AttemptService) Review(ctx context.Context, attemptID uuid.UUID, studentID int) (*AttemptReview, error) {
	attempt, exam, err := s.loadOwned(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptCompleted || !exam.ShowResultsOnFinish {
		return nil, ErrResultsNotAvailable
	}

	questions, err := s.catalog.GetQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	answers, err := s.store.GetAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}

	recorded := make(map[uuid.UUID]model.Answer, len(answers))
	for _, a := range answers {
		recorded[a.QuestionID] = a
	}

	score := Score(questions, answers)

	items := make([]ReviewItem, 0, len(score.Questions))
	for i, qr := range score.Questions {
		item := ReviewItem{
			QuestionResult: qr,
			QuestionText:   questions[i].QuestionText,
			CorrectAnswer:  questions[i].CorrectAnswer,
		}
		if ans, ok := recorded[qr.QuestionID]; ok {
			item.Value = ans.Value
		}
		items = append(items, item)
	}

	// The stored percentage is the grade of record; the recomputed
	// breakdown only explains it.
	percentage := score.Percentage
	if attempt.Percentage != nil {
		percentage = *attempt.Percentage
	}

	return &AttemptReview{
		Attempt:      attempt,
		Percentage:   percentage,
		Grade20:      Grade20(percentage),
		EarnedPoints: score.EarnedPoints,
		TotalPoints:  score.TotalPoints,
		Items:        items,
	}, nil
}

// LobbyStatus is the student-facing state of an exam in the lobby.
type LobbyStatus string

const (
	LobbyUpcoming   LobbyStatus = "upcoming"
	LobbyAvailable  LobbyStatus = "available"
	LobbyInProgress LobbyStatus = "in_progress"
	LobbyCompleted  LobbyStatus = "completed"
	LobbyClosed     LobbyStatus = "closed"
)

// LobbyExam is an exam as displayed in the student lobby, with the
// student's own attempt history overlaid.
type LobbyExam struct {
	model.Exam
	LobbyStatus     LobbyStatus `json:"lobby_status"`
	AttemptsUsed    int         `json:"attempts_used"`
	ActiveAttemptID *uuid.UUID  `json:"active_attempt_id,omitempty"`
	LastPercentage  *float64    `json:"last_percentage,omitempty"`
	LastGrade20     *float64    `json:"last_grade20,omitempty"`
}

// Lobby lists the active exams with the student's attempt status.
func (s *AttemptService) Lobby(ctx context.Context, studentID int, now time.Time) ([]LobbyExam, error) {
	exams, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	attempts, err := s.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	byExam := make(map[uuid.UUID][]model.Attempt)
	for _, a := range attempts {
		byExam[a.ExamID] = append(byExam[a.ExamID], a)
	}

	lobby := make([]LobbyExam, 0, len(exams))
	for _, exam := range exams {
		entry := LobbyExam{Exam: exam}

		var active *model.Attempt
		for i := range byExam[exam.ID] {
			a := &byExam[exam.ID][i]
			entry.AttemptsUsed++
			if a.Status == model.AttemptInProgress {
				active = a
			} else if entry.LastPercentage == nil && a.Percentage != nil {
				// Attempts are newest first.
				p := *a.Percentage
				g := Grade20(p)
				entry.LastPercentage = &p
				entry.LastGrade20 = &g
			}
		}

		switch {
		case active != nil:
			entry.LobbyStatus = LobbyInProgress
			id := active.ID
			entry.ActiveAttemptID = &id
		case entry.AttemptsUsed >= exam.AttemptsAllowed:
			entry.LobbyStatus = LobbyCompleted
		case exam.WindowStart != nil && now.Before(*exam.WindowStart):
			entry.LobbyStatus = LobbyUpcoming
		case exam.WindowEnd != nil && now.After(*exam.WindowEnd):
			entry.LobbyStatus = LobbyClosed
		default:
			entry.LobbyStatus = LobbyAvailable
		}

		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// Paper returns the student-facing question list for an attempt's exam.
// Requires an in-progress attempt so papers cannot be pulled for exams
// the student has not started.
func (s *AttemptService) Paper(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamPaper, error) {
	attempt, err := s.store.GetInProgress(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotActive
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	questions, err := s.catalog.GetQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	return BuildPaper(exam, questions, attempt.ID), nil
}

// loadOwned fetches an attempt and its exam, enforcing ownership.
func (s *AttemptService) loadOwned(ctx context.Context, attemptID uuid.UUID, studentID int) (*model.Attempt, *model.Exam, error) {
	attempt, err := s.store.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, nil, ErrNotOwner
	}

	exam, err := s.catalog.GetExam(ctx, attempt.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}
	return attempt, exam, nil
}

// answersWithFallback reads the attempt's answers from the Redis hash,
// falling back to the durable store on a miss or Redis failure and
// self-healing the cache so the next read is fast.
func (s *AttemptService) answersWithFallback(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	cacheKey := config.CacheKey.AttemptAnswersKey(attemptID.String())

	cached, err := s.rdb.HGetAll(ctx, cacheKey).Result()
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Redis answer cache read failed, falling back to database")
	}

	answers, err := s.store.GetAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}

	out := make(map[string]string, len(answers))
	for _, a := range answers {
		out[a.QuestionID.String()] = a.Value
	}

	if len(out) > 0 {
		if err := s.rdb.HSet(ctx, cacheKey, out).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to self-heal answer cache")
		}
	}
	return out, nil
}

// examOpen reports whether an exam may accept new attempts at the given
// instant: it must be active and, when a window is set, now must fall
// inside [window_start, window_end].
func examOpen(exam *model.Exam, now time.Time) bool {
	if !exam.Active {
		return false
	}
	if exam.WindowStart != nil && now.Before(*exam.WindowStart) {
		return false
	}
	if exam.WindowEnd != nil && now.After(*exam.WindowEnd) {
		return false
	}
	return true
}
