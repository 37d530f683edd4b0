package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaula/exam-backend/internal/middleware"
	"github.com/openaula/exam-backend/internal/service"
	"github.com/openaula/exam-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// newAuthedContext builds a test context carrying student claims and an
// attempt_id path param, the way the JWT middleware and router would.
func newAuthedContext(body interface{}, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req, _ = http.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(http.MethodGet, "/", nil)
	}
	c.Request = req
	c.Params = params
	c.Set(middleware.ContextKeyClaims, &service.Claims{StudentID: 1})
	return c, w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp.Error.Code
}

func TestStart_InvalidExamID(t *testing.T) {
	h := &AttemptHandler{}
	c, w := newAuthedContext(nil, gin.Param{Key: "exam_id", Value: "not-a-uuid"})

	h.Start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))
}

func TestStart_MissingClaims(t *testing.T) {
	h := &AttemptHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/", nil)

	h.Start(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REQUIRED", errorCode(t, w))
}

func TestUpsertAnswer_ValidationErrors(t *testing.T) {
	attemptID := gin.Param{Key: "attempt_id", Value: "0f0dd0ba-0a70-4f0c-8e65-d348b2b7be76"}

	tests := []struct {
		name     string
		body     interface{}
		wantCode string
	}{
		{
			name:     "empty body",
			body:     map[string]string{},
			wantCode: "VALIDATION_ERROR",
		},
		{
			name:     "missing value",
			body:     map[string]string{"question_id": "0f0dd0ba-0a70-4f0c-8e65-d348b2b7be76"},
			wantCode: "VALIDATION_ERROR",
		},
		{
			name:     "question_id not a uuid",
			body:     map[string]string{"question_id": "nope", "value": "B"},
			wantCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &AttemptHandler{}
			c, w := newAuthedContext(tt.body, attemptID)

			h.UpsertAnswer(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestSubmit_InvalidAttemptID(t *testing.T) {
	h := &AttemptHandler{}
	c, w := newAuthedContext(map[string]interface{}{"answers": []interface{}{}},
		gin.Param{Key: "attempt_id", Value: "42"})

	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))
}
