package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-optimizer/internal/pipeline"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		malformed  *pipeline.MalformedInputError
		expired    *pipeline.SessionExpiredError
		failed     *pipeline.OptimizationFailedError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation), errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.As(err, &expired):
		return http.StatusGone
	case errors.As(err, &failed), errors.Is(err, pipeline.ErrScoringUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody maps err to the reply shown to the caller. Internal details and
// oracle output are never echoed.
func errorBody(err error) ErrorResponse {
	var (
		validation *ErrValidation
		malformed  *pipeline.MalformedInputError
		expired    *pipeline.SessionExpiredError
		failed     *pipeline.OptimizationFailedError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return ErrorResponse{Error: "payload_too_large", Message: "Request body is too large."}
	case errors.As(err, &validation):
		return ErrorResponse{Error: "invalid_request", Message: validation.Message, Field: validation.Field}
	case errors.As(err, &malformed):
		return ErrorResponse{Error: "malformed_input", Message: malformed.Message, Field: malformed.Field}
	case errors.As(err, &expired):
		return ErrorResponse{Error: "session_expired", Message: "Your session has expired. Please upload your résumé again."}
	case errors.As(err, &failed):
		return ErrorResponse{Error: "optimization_failed", Message: "The optimization could not be completed. Please try again later."}
	case errors.Is(err, pipeline.ErrScoringUnavailable):
		return ErrorResponse{Error: "scoring_unavailable", Message: "The analysis is temporarily unavailable. Please try again later."}
	default:
		return ErrorResponse{Error: "internal_error", Message: "An internal error occurred."}
	}
}

// errorResponse writes the reply for err.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zapError(err))
	}
	s.jsonResponse(w, status, errorBody(err))
}
