package pipeline

import (
	"fmt"

	"github.com/jonathan/resume-optimizer/internal/scoring"
)

// ErrScoringUnavailable is returned by Analyze when the document could not be
// scored within the retry budget. Callers should ask the user to retry later.
var ErrScoringUnavailable = scoring.ErrScoringUnavailable

// SessionExpiredError is returned when a token is unknown, expired, already
// used or currently in use by another request.
type SessionExpiredError struct {
	Message string
	Cause   error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session expired: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("session expired: %s", e.Message)
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Cause
}

// OptimizationFailedError is returned when the rewriter produced no usable
// result within the retry budget. No state is changed; the token stays valid.
type OptimizationFailedError struct {
	Message string
	Cause   error
}

func (e *OptimizationFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("optimization failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("optimization failed: %s", e.Message)
}

func (e *OptimizationFailedError) Unwrap() error {
	return e.Cause
}

// MalformedInputError is returned before any oracle call for an empty
// document, an empty token or scores outside [0,100].
type MalformedInputError struct {
	Field   string
	Message string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s: %s", e.Field, e.Message)
}
