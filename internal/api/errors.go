package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/backup"
)

// badRequestError rejects malformed client input.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// statusOf maps an error to the HTTP status returned to clients.
func statusOf(err error) int {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad), errors.Is(err, backup.ErrUnsupportedVersion):
		return http.StatusBadRequest
	case errors.Is(err, &apperrors.ErrNotFound{}),
		errors.Is(err, &apperrors.NoExtractorFoundError{}),
		errors.Is(err, &apperrors.NoServerFoundError{}):
		return http.StatusNotFound
	case apperrors.IsStaleSession(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, &apperrors.ParseError{}),
		errors.Is(err, &apperrors.UnpackError{}),
		errors.Is(err, &apperrors.FetchError{}),
		errors.Is(err, &apperrors.DNSResolutionError{}),
		errors.Is(err, &apperrors.HTTPStatusError{}),
		errors.Is(err, &apperrors.RedirectLoopError{}):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	logger := s.logger.With().Str("request_id", RequestIDFromContext(r.Context())).Logger()
	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Int("status", code).Msg("Request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Int("status", code).Msg("Request rejected")
	}
	if code == http.StatusInternalServerError {
		sentry.CaptureException(err)
	}
	writeJSON(w, code, errorResponse{
		Error:     err.Error(),
		Status:    code,
		Retryable: apperrors.IsRetryable(err),
		RequestID: RequestIDFromContext(r.Context()),
	})
}
