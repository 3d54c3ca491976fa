// Package llm provides the completion transport used to execute prompts.
//
// The Client interface is the only thing the rest of promptflow depends
// on. Three implementations ship with the package:
//   - OpenAI: any OpenAI-compatible chat completions endpoint over HTTP
//   - ClaudeCLI: the claude command line tool
//   - MockClient: scripted responses for tests
//
// Transports report failures with the types in package errors: an HTTP
// status becomes *errors.HTTPError, a connection or body failure becomes
// *errors.TransportError. Context cancellation is returned unwrapped.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client sends a single completion request.
//
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Sentinel errors for request building.
var (
	// ErrEmptyPrompt indicates a request with no prompt text.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrEmptyModel indicates a request with no model name.
	ErrEmptyModel = errors.New("model is empty")

	// ErrInvalidMaxTokens indicates a negative token limit.
	ErrInvalidMaxTokens = errors.New("max tokens must not be negative")

	// ErrInvalidTemperature indicates a temperature outside [0, 2].
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 2")
)

// RequestOption configures a request built by NewRequest.
type RequestOption func(*CompletionRequest)

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(s string) RequestOption {
	return func(r *CompletionRequest) { r.SystemPrompt = s }
}

// WithMaxTokens sets the response token limit. Zero means provider default.
func WithMaxTokens(n int) RequestOption {
	return func(r *CompletionRequest) { r.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) RequestOption {
	return func(r *CompletionRequest) { r.Temperature = &t }
}

// NewRequest builds a single-turn request sending prompt to model.
func NewRequest(prompt, model string, opts ...RequestOption) (CompletionRequest, error) {
	req := CompletionRequest{
		Model:    model,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
	for _, opt := range opts {
		opt(&req)
	}

	switch {
	case strings.TrimSpace(prompt) == "":
		return CompletionRequest{}, ErrEmptyPrompt
	case strings.TrimSpace(model) == "":
		return CompletionRequest{}, ErrEmptyModel
	case req.MaxTokens < 0:
		return CompletionRequest{}, fmt.Errorf("%w: %d", ErrInvalidMaxTokens, req.MaxTokens)
	case req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2):
		return CompletionRequest{}, fmt.Errorf("%w: %g", ErrInvalidTemperature, *req.Temperature)
	}
	return req, nil
}
