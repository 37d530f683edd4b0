package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openaula/exam-backend/internal/config"
	"github.com/openaula/exam-backend/internal/model"
	"github.com/openaula/exam-backend/internal/repository"
)

// questionCacheTTL bounds staleness of the cached question lists. Exams are
// assumed immutable while attempts run, so a short TTL is only a hedge
// against out-of-band edits.
const questionCacheTTL = 10 * time.Minute

// CatalogService is the read-only exam catalog adapter. It caches question
// lists in Redis with a PostgreSQL fallback: a cache miss or Redis outage
// degrades to a repository read and self-heals the cache.
type CatalogService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "catalog").Logger(),
	}
}

// GetExam retrieves a single exam definition. Always read from PostgreSQL:
// the active flag and window bounds gate attempt starts and must be fresh.
func (s *CatalogService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, examID)
}

// ListActive retrieves all active exams.
func (s *CatalogService) ListActive(ctx context.Context) ([]model.Exam, error) {
	return s.examRepo.ListActive(ctx)
}

// GetQuestions retrieves the ordered question list of an exam, including
// answer keys. Served from Redis when cached; a miss falls through to
// PostgreSQL and repopulates the cache.
func (s *CatalogService) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	cacheKey := config.CacheKey.ExamQuestionsKey(examID.String())

	raw, err := s.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		var questions []model.Question
		if err := json.Unmarshal([]byte(raw), &questions); err == nil {
			return questions, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt question cache entry, falling back to database")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis read failed, falling back to database")
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	if payload, err := json.Marshal(questions); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, payload, questionCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache questions")
		}
	}

	return questions, nil
}

// Prewarm loads the question lists of every active exam into Redis before
// traffic arrives, avoiding thundering-herd lazy loads at exam start.
func (s *CatalogService) Prewarm(ctx context.Context) error {
	exams, err := s.examRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active exams: %w", err)
	}

	for _, exam := range exams {
		if _, err := s.GetQuestions(ctx, exam.ID); err != nil {
			return fmt.Errorf("prewarm exam %s: %w", exam.ID, err)
		}
	}

	s.log.Info().Int("exams", len(exams)).Msg("Question caches prewarmed")
	return nil
}

// BuildPaper produces the student-facing view of an exam's questions with
// answer keys stripped. When the exam randomizes question order, the
// shuffle is seeded from the attempt ID so the order is stable across
// reloads of the same attempt.
func BuildPaper(exam *model.Exam, questions []model.Question, attemptID uuid.UUID) *model.ExamPaper {
	paper := &model.ExamPaper{
		ExamID:           exam.ID,
		Title:            exam.Title,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		Questions:        make([]model.QuestionForStudent, 0, len(questions)),
	}

	for _, q := range questions {
		paper.Questions = append(paper.Questions, model.QuestionForStudent{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Kind:         q.Kind,
			Options:      q.Options,
			Points:       q.Points,
			OrderNum:     q.OrderNum,
		})
	}

	if exam.RandomizeQuestions {
		seed := int64(binary.BigEndian.Uint64(attemptID[:8]))
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(paper.Questions), func(i, j int) {
			paper.Questions[i], paper.Questions[j] = paper.Questions[j], paper.Questions[i]
		})
	}

	return paper
}
