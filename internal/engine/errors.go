package engine

import (
	"errors"
	"fmt"
	"time"
)

// RuntimeError represents a condition detected while walking a method.
//
// Runtime errors include:
//   - Timeout: an attempt ran longer than the per-attempt bound
//   - Sequence too long: an attempt recorded more events than allowed
//   - Depth exhausted: an attempt visited more statements than allowed
//   - Defect: an internal invariant was violated
//   - Irrelevant app: none of the configured types exists in the program
//
// The first three end one attempt (depth exhaustion also ends the method).
// Defects and irrelevant apps end the run.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Method is the quoted signature of the method being walked, if any.
	Method string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTimeout indicates an attempt exceeded its wall-clock bound.
	ErrCodeTimeout RuntimeErrorCode = "TIMEOUT"

	// ErrCodeSequenceTooLong indicates an attempt exceeded the event ceiling.
	ErrCodeSequenceTooLong RuntimeErrorCode = "SEQUENCE_TOO_LONG"

	// ErrCodeDepthExhausted indicates an attempt exceeded the walk bound.
	ErrCodeDepthExhausted RuntimeErrorCode = "DEPTH_EXHAUSTED"

	// ErrCodeDefect indicates a broken invariant in definitions or engine.
	ErrCodeDefect RuntimeErrorCode = "DEFECT"

	// ErrCodeIrrelevantApp indicates no configured type exists in the program.
	ErrCodeIrrelevantApp RuntimeErrorCode = "IRRELEVANT_APP"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Method != "" {
		msg += fmt.Sprintf(" (method=%s)", e.Method)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsTimeoutError returns true if the error is an attempt timeout.
// Uses errors.As to handle wrapped errors.
func IsTimeoutError(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsSequenceTooLongError returns true if the error is an event ceiling hit.
// Uses errors.As to handle wrapped errors.
func IsSequenceTooLongError(err error) bool {
	return hasCode(err, ErrCodeSequenceTooLong)
}

// IsDepthExhaustedError returns true if the error is a walk bound hit.
// Uses errors.As to handle wrapped errors.
func IsDepthExhaustedError(err error) bool {
	return hasCode(err, ErrCodeDepthExhausted)
}

// IsDefect returns true if the error is an invariant violation.
// Uses errors.As to handle wrapped errors.
func IsDefect(err error) bool {
	return hasCode(err, ErrCodeDefect)
}

// IsIrrelevantAppError returns true if the program has none of the
// configured types. Uses errors.As to handle wrapped errors.
func IsIrrelevantAppError(err error) bool {
	return hasCode(err, ErrCodeIrrelevantApp)
}

// NewTimeoutError creates a RuntimeError for an attempt timeout.
func NewTimeoutError(method string, elapsed, limit time.Duration) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTimeout,
		Message: fmt.Sprintf("attempt exceeded %s (elapsed %s)", limit, elapsed),
		Method:  method,
		Details: map[string]string{
			"elapsed": elapsed.String(),
			"limit":   limit.String(),
		},
	}
}

// NewDefect creates a RuntimeError for an invariant violation.
func NewDefect(method, message string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDefect,
		Message: message,
		Method:  method,
		Err:     cause,
	}
}
