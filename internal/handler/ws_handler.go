package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/openaula/exam-backend/internal/middleware"
	"github.com/openaula/exam-backend/internal/service"
	ws "github.com/openaula/exam-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an attempt over WebSocket: autosave and submit flow
// in, a countdown tick flows out every second. Every action goes through
// the same services as the HTTP routes, so the time and state gates are
// identical on both transports.
type WSHandler struct {
	attemptService *service.AttemptService
	recorder       *service.AnswerRecorder
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, recorder *service.AnswerRecorder, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		recorder:       recorder,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Upgrades to WebSocket for autosave, submit, and the countdown tick.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	studentID := claims.StudentID

	// Ownership and liveness checks before committing to the upgrade.
	if _, err := h.attemptService.RemainingFor(c.Request.Context(), attemptID, studentID, time.Now()); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not available"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(rawConn)
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.tickLoop(ctx, conn, attemptID, studentID, wsLog)

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(ctx, conn, attemptID, studentID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, wsLog, attemptID, studentID)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("", "unknown action: "+string(msg.Action))
		}
	}
}

// tickLoop pushes the recomputed remaining time every second until the
// connection closes or the attempt leaves in_progress. Display only; the
// write gates never consult it.
func (h *WSHandler) tickLoop(ctx context.Context, conn *ws.Conn, attemptID uuid.UUID, studentID int, log zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := h.attemptService.RemainingFor(ctx, attemptID, studentID, time.Now())
			if err != nil {
				log.Debug().Err(err).Msg("Tick stopped")
				return
			}
			if err := conn.WriteTyped(ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: state.RemainingSeconds,
				Expired:          state.Expired,
			}); err != nil {
				return
			}
			if state.Expired {
				return
			}
		}
	}
}

// handleAutosave records one answer through the shared recorder gates.
func (h *WSHandler) handleAutosave(ctx context.Context, conn *ws.Conn, attemptID uuid.UUID, studentID int, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("INVALID_ID", "invalid question ID")
		return
	}

	if _, err := h.recorder.Upsert(ctx, attemptID, studentID, questionID, msg.Value, time.Now()); err != nil {
		conn.WriteError(lifecycleCode(err), err.Error())
		return
	}

	conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

// handleSubmit finishes the attempt and pushes the grade back.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, log zerolog.Logger, attemptID uuid.UUID, studentID int) {
	result, err := h.attemptService.Submit(ctx, attemptID, studentID, nil, time.Now())
	if err != nil {
		conn.WriteError(lifecycleCode(err), err.Error())
		return
	}

	log.Info().Float64("percentage", result.Percentage).Msg("Attempt submitted over WebSocket")

	conn.WriteTyped(ws.GradedResponse{
		Event:      ws.EventGraded,
		Percentage: result.Percentage,
		Grade20:    result.Grade20,
	})
}

// lifecycleCode maps service sentinels onto the error codes the WS
// protocol reports.
func lifecycleCode(err error) string {
	switch {
	case isAny(err, service.ErrAttemptNotFound, service.ErrExamNotFound):
		return "NOT_FOUND"
	case isAny(err, service.ErrNotOwner):
		return "FORBIDDEN"
	case isAny(err, service.ErrAttemptNotActive):
		return "ATTEMPT_NOT_ACTIVE"
	case isAny(err, service.ErrAlreadyCompleted):
		return "ALREADY_COMPLETED"
	case isAny(err, service.ErrAttemptExpired):
		return "ATTEMPT_EXPIRED"
	case isAny(err, service.ErrQuestionNotInExam):
		return "INVALID_PAYLOAD"
	default:
		return "INTERNAL_ERROR"
	}
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
