package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/pkg/httpx"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		detail  any
	}{
		{"conflict", domain.Conflict("Email already exists!"), http.StatusConflict, "Email already exists!", "conflict"},
		{"wrapped not found", fmt.Errorf("lookup: %w", domain.NotFound("User not found!")), http.StatusNotFound, "User not found!", "not_found"},
		{"server error hides cause", domain.Internal("Database error occurred!", errors.New("pq: secret detail")), http.StatusInternalServerError, "Database error occurred!", "server_error"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, msgUnexpected, nil},
		{"bad json", fmt.Errorf("%w: eof", httpx.ErrBadJSON), http.StatusBadRequest, msgInvalidBody, nil},
		{"fields", fieldErrors{"name": "is required"}, http.StatusBadRequest, msgValidation, map[string]any{"name": "is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			require.Equal(t, tt.status, rec.Code)
			require.NotContains(t, rec.Body.String(), "secret detail")

			var env httpx.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.False(t, env.Success)
			require.Equal(t, tt.message, env.Message)
			require.Equal(t, tt.detail, env.Error)
		})
	}
}

func TestFieldErrors_FirstMessageWins(t *testing.T) {
	fe := fieldErrors{}
	require.NoError(t, fe.err())

	fe.add("email", "is required")
	fe.add("email", "must be a valid email address")
	require.Equal(t, "is required", fe["email"])
	require.Error(t, fe.err())
}
