// Package apperr defines the error taxonomy shared across the peer
// assessment engine. Every error surfaced to callers is one of three kinds:
// a RequestError (the caller sent something malformed), a WorkflowError (the
// request was well-formed but the workflow state does not permit it), or an
// InternalError (the engine itself failed).
package apperr

import "fmt"

// RequestError indicates the caller supplied malformed or invalid input.
type RequestError struct {
	Msg string
	Err error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RequestError) Unwrap() error { return e.Err }

// WorkflowError indicates the request was valid but the workflow state does
// not allow the operation. These are expected, recoverable outcomes.
type WorkflowError struct {
	Msg string
	Err error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// InternalError indicates a failure inside the engine or its backing
// services. Callers can only retry or report it.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *InternalError) Unwrap() error { return e.Err }

// Request builds a RequestError from a format string.
func Request(format string, args ...interface{}) *RequestError {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// Workflow builds a WorkflowError from a format string.
func Workflow(format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps a low-level failure with a stable message.
func Internal(msg string, err error) *InternalError {
	return &InternalError{Msg: msg, Err: err}
}
