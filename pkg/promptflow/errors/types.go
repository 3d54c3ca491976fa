// Package errors defines the failure taxonomy of prompt execution and the
// policy that decides how each failure is recovered.
//
// The taxonomy is layered the way execution is:
//   - Configuration: no model roster, or a model index outside it
//   - Rendering and request building: the prompt could not be produced
//   - Remote: the completion call failed (HTTP status or transport)
//   - Decode: the response could not be turned into a value
//
// Classify maps any of these to an Action; the execute package carries the
// action out.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	// ErrModelNotConfigured indicates a binding with an empty model roster.
	ErrModelNotConfigured = errors.New("no model configured")

	// ErrRetryBudgetExceeded is matched by every *RetryBudgetExceededError.
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")
)

// InvalidModelSelectionError indicates a model index outside the roster.
type InvalidModelSelectionError struct {
	Index      int
	RosterSize int
}

// Error implements the error interface.
func (e *InvalidModelSelectionError) Error() string {
	return fmt.Sprintf("invalid model selection: index %d (roster has %d models)", e.Index, e.RosterSize)
}

// RenderError indicates the leaf could not be rendered into a prompt.
type RenderError struct {
	Node string
	Err  error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("render %s: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("render: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error { return e.Err }

// BuildError indicates the completion request could not be assembled.
type BuildError struct {
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("build request: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }

// RemoteError indicates the completion call itself failed.
type RemoteError struct {
	Model string
	Err   error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call to %s: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *RemoteError) Unwrap() error { return e.Err }

// DecodeError indicates a response could not be decoded into a value.
type DecodeError struct {
	Model string
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("decode response from %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("decode response: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string

	// RetryAfter is the parsed Retry-After header, if the server sent one.
	RetryAfter *time.Duration
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the status is 429.
func (e *HTTPError) RateLimited() bool {
	return e.StatusCode == 429
}

// ServerError reports whether the status is a 5xx.
func (e *HTTPError) ServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// TransportError indicates the request never produced a usable HTTP
// response: the connection failed or the body could not be read or parsed.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// RetryBudgetExceededError reports that every allowed retry failed.
// Last is the failure of the final attempt.
type RetryBudgetExceededError struct {
	Budget int
	Last   error
}

// Error implements the error interface.
func (e *RetryBudgetExceededError) Error() string {
	return fmt.Sprintf("retry budget of %d exceeded: %v", e.Budget, e.Last)
}

// Unwrap returns the last failure.
func (e *RetryBudgetExceededError) Unwrap() error { return e.Last }

// Is matches ErrRetryBudgetExceeded.
func (e *RetryBudgetExceededError) Is(target error) bool {
	return target == ErrRetryBudgetExceeded
}
