package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/music-catalog/internal/pkg/reqid"
	"github.com/pribylovaa/music-catalog/internal/service"
	"github.com/pribylovaa/music-catalog/internal/token"
)

func TestToHTTP_Table(t *testing.T) {
	t.Parallel()

	wrap := func(err error) error { return fmt.Errorf("op: %w", err) }

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"nil", nil, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unauthorized", wrap(service.ErrUnauthorized), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired_token", wrap(token.ErrExpired), http.StatusForbidden, "INVALID_TOKEN"},
		{"bad_signature", wrap(token.ErrInvalidSignature), http.StatusForbidden, "INVALID_TOKEN"},
		{"role_mismatch", wrap(token.ErrRoleMismatch), http.StatusForbidden, "INVALID_TOKEN"},
		{"no_refresh", wrap(service.ErrNoRefreshToken), http.StatusUnauthorized, "NO_REFRESH_TOKEN"},
		{"invalid_refresh", fmt.Errorf("op: %w: %w", service.ErrInvalidRefreshToken, token.ErrExpired), http.StatusForbidden, "INVALID_REFRESH_TOKEN"},
		{"invalid_credentials", wrap(service.ErrInvalidCredentials), http.StatusBadRequest, "INVALID_CREDENTIALS"},
		{"user_exists", wrap(service.ErrEmailTaken), http.StatusBadRequest, "USER_EXISTS"},
		{"invalid_email", wrap(service.ErrInvalidEmail), http.StatusBadRequest, "INVALID_REQUEST"},
		{"empty_password", wrap(service.ErrEmptyPassword), http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad_body", service.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"user_not_found", wrap(service.ErrUserNotFound), http.StatusNotFound, "USER_NOT_FOUND"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "CANCELED"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, body := ToHTTP(tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.code, body.Code)
			require.NotEmpty(t, body.Message)
		})
	}
}

func TestWriteError_BodyAndRequestID(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(reqid.Into(req.Context(), "rid-1"))

	WriteError(rr, req, service.ErrUserNotFound)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "USER_NOT_FOUND", body.Code)
	require.Equal(t, "User not found", body.Message)
	require.Equal(t, "rid-1", body.RequestID)
}

func TestWriteError_InternalDoesNotLeak(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(rr, req, stderrors.New("pq: password authentication failed for user admin"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "admin")
	require.NotContains(t, rr.Body.String(), "request_id")
}
