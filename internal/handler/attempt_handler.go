package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openaula/exam-backend/internal/middleware"
	"github.com/openaula/exam-backend/internal/model"
	"github.com/openaula/exam-backend/internal/response"
	"github.com/openaula/exam-backend/internal/service"
	"github.com/openaula/exam-backend/internal/validator"
)

// AttemptHandler exposes the attempt lifecycle over HTTP.
type AttemptHandler struct {
	attemptService *service.AttemptService
	recorder       *service.AnswerRecorder
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, recorder *service.AnswerRecorder) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService, recorder: recorder}
}

// Start godoc
// POST /api/v1/exams/:exam_id/attempts
// Starts a new attempt, or returns the existing in-progress one. Returns
// 201 on a fresh start and 200 on resume.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, resumed, err := h.attemptService.Start(c.Request.Context(), examID, claims.StudentID, time.Now())
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"attempt": attempt, "resumed": resumed})
}

// Remaining godoc
// GET /api/v1/attempts/:attempt_id/remaining
// Returns the authoritative remaining time for an attempt.
func (h *AttemptHandler) Remaining(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	state, err := h.attemptService.RemainingFor(c.Request.Context(), attemptID, claims.StudentID, time.Now())
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// State godoc
// GET /api/v1/attempts/:attempt_id/state
// Returns the resume view: the attempt, recorded answers, and remaining
// time, in a single call for clients rebuilding after a reload.
func (h *AttemptHandler) State(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), attemptID, claims.StudentID, time.Now())
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// UpsertAnswer godoc
// PUT /api/v1/attempts/:attempt_id/answers
// Records or replaces the answer to one question. Safe to retry: the same
// request applied twice leaves the same recorded answer.
func (h *AttemptHandler) UpsertAnswer(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	var req model.UpsertAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	answer, err := h.recorder.Upsert(c.Request.Context(), attemptID, claims.StudentID, questionID, req.Value, time.Now())
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Finishes and grades the attempt. Buffered answers in the body are
// merged first when the deadline has not passed. Submitting twice returns
// 409 from the second call; the first grade stands.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.StudentID, req.Answers, time.Now())
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Review godoc
// GET /api/v1/attempts/:attempt_id
// Returns the post-completion review with per-question correctness.
func (h *AttemptHandler) Review(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	review, err := h.attemptService.Review(c.Request.Context(), attemptID, claims.StudentID)
	if err != nil {
		h.failLifecycle(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": review})
}

// attemptParams extracts the claims and the attempt ID path param,
// failing the request itself when either is missing or malformed.
func (h *AttemptHandler) attemptParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, attemptID, true
}

// failLifecycle maps service sentinel errors onto HTTP statuses and
// error codes.
func (h *AttemptHandler) failLifecycle(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrExamUnavailable):
		response.Fail(c, http.StatusConflict, response.ErrExamUnavailable)
	case errors.Is(err, service.ErrAttemptLimitReached):
		response.Fail(c, http.StatusConflict, response.ErrAttemptLimitReached)
	case errors.Is(err, service.ErrAttemptNotActive):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
	case errors.Is(err, service.ErrAttemptExpired):
		response.Fail(c, http.StatusConflict, response.ErrAttemptExpired)
	case errors.Is(err, service.ErrResultsNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrResultsNotAvailable)
	case errors.Is(err, service.ErrQuestionNotInExam):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
