package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures.
type ErrorCode string

const (
	// ErrValidation marks a malformed graph: dangling step or port
	// references, self-loops, or a loop step without a finite bound.
	// Detected before any step runs.
	ErrValidation ErrorCode = "VALIDATION"
	// ErrCycle marks a graph that is not a DAG. Detected by the
	// scheduler before any step runs.
	ErrCycle ErrorCode = "CYCLE"
	// ErrStepExecution marks a step body failure during a run,
	// including missing required inputs and collaborator errors.
	ErrStepExecution ErrorCode = "STEP_EXECUTION"
	// ErrCancelled marks a host-requested cancellation while steps
	// were in flight.
	ErrCancelled ErrorCode = "CANCELLED"
)

// Error is the structured error carried across the engine boundary.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	StepID  string    `json:"step_id,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.StepID != "" && e.Cause != nil:
		return fmt.Sprintf("[%s] step %s: %s: %v", e.Code, e.StepID, e.Message, e.Cause)
	case e.StepID != "":
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.StepID, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches the failing step id.
func (e *Error) WithStep(stepID string) *Error {
	e.StepID = stepID
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Returns "" when err carries no *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
