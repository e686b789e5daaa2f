package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

func respond(err error) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondWithError(c, err)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperrors.NewNotFound("bill", nil), http.StatusNotFound, "NOT_FOUND"},
		{"invalid argument", apperrors.NewBadRequest("bad date", nil), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"invalid state", apperrors.NewInvalidState("bill is already paid"), http.StatusConflict, "INVALID_STATE"},
		{"conflict", apperrors.NewConflict(errors.New("40001")), http.StatusConflict, "CONFLICT"},
		{"forbidden", apperrors.NewForbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{"wrapped", fmt.Errorf("failed to pay: %w", apperrors.NewInvalidState("bill is already paid")), http.StatusConflict, "INVALID_STATE"},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := respond(tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestRespondWithError_HidesInternalDetail(t *testing.T) {
	_, body := respond(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", body.Message)
}

func TestRespondWithSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithStatus(c, http.StatusCreated, map[string]int{"id": 7})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"success","data":{"id":7}}`, w.Body.String())
}
