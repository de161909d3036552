package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/findash/findash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperrors.Validation("Email is required"), http.StatusBadRequest},
		{"invalid credentials", apperrors.InvalidCredentials(""), http.StatusUnauthorized},
		{"session expired", apperrors.SessionExpired(errors.New("401")), http.StatusUnauthorized},
		{"network", apperrors.Network(errors.New("dial tcp")), http.StatusBadGateway},
		{"upstream", apperrors.Upstream(503, ""), http.StatusBadGateway},
		{"not found", apperrors.NotFound("no record"), http.StatusNotFound},
		{"wrapped", fmt.Errorf("login: %w", apperrors.InvalidCredentials("nope")), http.StatusUnauthorized},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, fmt.Errorf("login: %w", apperrors.InvalidCredentials("No active account found")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_credentials", body["error"])
	assert.Equal(t, "No active account found", body["message"])
}

func TestWriteAppError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, errors.New("pq: connection refused at 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	assert.Contains(t, rec.Body.String(), `"error":"internal"`)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrorParams{Code: http.StatusBadRequest, ErrCode: "bad_request", Err: errors.New("missing email")})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bad_request","message":"missing email"}`, rec.Body.String())
}
