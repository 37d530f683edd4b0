package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openaula/exam-backend/internal/middleware"
	"github.com/openaula/exam-backend/internal/response"
	"github.com/openaula/exam-backend/internal/service"
)

// ExamHandler serves the student-facing exam catalog views.
type ExamHandler struct {
	attemptService *service.AttemptService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(attemptService *service.AttemptService) *ExamHandler {
	return &ExamHandler{attemptService: attemptService}
}

// Lobby godoc
// GET /api/v1/exams
// Lists the active exams with the student's own attempt status overlaid.
func (h *ExamHandler) Lobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.attemptService.Lobby(c.Request.Context(), claims.StudentID, time.Now())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// Paper godoc
// GET /api/v1/exams/:exam_id/paper
// Returns the question paper, stripped of answer keys. Only available
// while the student holds an in-progress attempt on the exam.
func (h *ExamHandler) Paper(c *gin.Context) {
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

	paper, err := h.attemptService.Paper(c.Request.Context(), examID, claims.StudentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrAttemptNotActive):
			response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}
